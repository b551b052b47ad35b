package cmd

import (
	"fmt"
	"strings"
	"time"

	"lv-ledger/internal/httputil"
	"lv-ledger/internal/model"

	"github.com/go-resty/resty/v2"
	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Smoke-test a running API",
	Long: `Smoke-test a running API over HTTP.

Examples:
  ledgerctl verify login --url http://localhost:8080 -u alice -p secret
  ledgerctl verify admin --url http://localhost:8080 -u root -p secret`,
}

var verifyLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Issue a token and fetch the caller's profile",
	Args:  cobra.NoArgs,
	RunE:  runVerifyLogin,
}

var verifyAdminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Log in as an admin, create a throwaway user and list accounts",
	Args:  cobra.NoArgs,
	RunE:  runVerifyAdmin,
}

var (
	verifyURL      string
	verifyUsername string
	verifyPassword string
	verifyTimeout  time.Duration
)

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.AddCommand(verifyLoginCmd, verifyAdminCmd)

	verifyCmd.PersistentFlags().StringVar(&verifyURL, "url", "http://localhost:8080", "API base URL")
	verifyCmd.PersistentFlags().StringVarP(&verifyUsername, "username", "u", "", "username (required)")
	verifyCmd.PersistentFlags().StringVarP(&verifyPassword, "password", "p", "", "password (required)")
	verifyCmd.PersistentFlags().DurationVar(&verifyTimeout, "timeout", 10*time.Second, "per-request timeout")
	_ = verifyCmd.MarkPersistentFlagRequired("username")
	_ = verifyCmd.MarkPersistentFlagRequired("password")
}

type apiClient struct {
	http *resty.Client
}

func newAPIClient() *apiClient {
	c := resty.New()
	c.SetBaseURL(strings.TrimRight(verifyURL, "/") + "/v1")
	c.SetTimeout(verifyTimeout)
	c.SetHeader("Accept", "application/json")
	return &apiClient{http: c}
}

func apiError(op string, resp *resty.Response) error {
	if e, ok := resp.Error().(*httputil.ErrorResponse); ok && e.Error != "" {
		return fmt.Errorf("%s: %s (%s, HTTP %d)", op, e.Error, e.Code, resp.StatusCode())
	}
	return fmt.Errorf("%s: HTTP %d", op, resp.StatusCode())
}

func (c *apiClient) login(username, password string) error {
	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	resp, err := c.http.R().
		SetBody(map[string]string{"username": username, "password": password}).
		SetResult(&tok).
		SetError(&httputil.ErrorResponse{}).
		Post("/auth/token")
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}
	if resp.IsError() {
		return apiError("token", resp)
	}
	c.http.SetAuthToken(tok.AccessToken)
	return nil
}

func (c *apiClient) me() (model.Account, error) {
	var acct model.Account
	resp, err := c.http.R().SetResult(&acct).SetError(&httputil.ErrorResponse{}).Get("/auth/me")
	if err != nil {
		return acct, fmt.Errorf("me: %w", err)
	}
	if resp.IsError() {
		return acct, apiError("me", resp)
	}
	return acct, nil
}

func (c *apiClient) listUsers() ([]model.Account, error) {
	var list []model.Account
	resp, err := c.http.R().
		SetQueryParam("limit", "500").
		SetResult(&list).
		SetError(&httputil.ErrorResponse{}).
		Get("/admin/users")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if resp.IsError() {
		return nil, apiError("list users", resp)
	}
	return list, nil
}

func (c *apiClient) createUser(username string) (model.Account, error) {
	var acct model.Account
	resp, err := c.http.R().
		SetBody(map[string]any{
			"username":     username,
			"password":     ulid.Make().String(),
			"full_name":    "Verify User",
			"broker":       "MetaQuotes-Demo",
			"account_type": "demo",
			"balance":      "10000",
		}).
		SetResult(&acct).
		SetError(&httputil.ErrorResponse{}).
		Post("/admin/users")
	if err != nil {
		return acct, fmt.Errorf("create user: %w", err)
	}
	if resp.IsError() {
		return acct, apiError("create user", resp)
	}
	return acct, nil
}

func runVerifyLogin(cmd *cobra.Command, args []string) error {
	c := newAPIClient()
	if err := c.login(verifyUsername, verifyPassword); err != nil {
		return err
	}
	acct, err := c.me()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ok: %s (id %d, role %s, balance %s)\n", acct.Username, acct.ID, acct.Role, acct.Balance)
	return nil
}

func runVerifyAdmin(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	c := newAPIClient()
	if err := c.login(verifyUsername, verifyPassword); err != nil {
		return err
	}
	before, err := c.listUsers()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "accounts before: %d\n", len(before))

	username := "verify_" + strings.ToLower(ulid.Make().String()[20:])
	created, err := c.createUser(username)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created %s (id %d, login code %s)\n", created.Username, created.ID, created.LoginCode)

	after, err := c.listUsers()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "accounts after: %d\n", len(after))
	if len(after) != len(before)+1 && len(after) < 500 {
		return fmt.Errorf("expected %d accounts after create, got %d", len(before)+1, len(after))
	}
	return nil
}
