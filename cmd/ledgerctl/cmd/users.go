package cmd

import (
	"fmt"
	"text/tabwriter"

	"lv-ledger/internal/accounts"
	"lv-ledger/internal/auth"
	"lv-ledger/internal/model"
	"lv-ledger/internal/store"
	"lv-ledger/internal/types"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect and create ledger accounts",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts in id order",
	Args:  cobra.NoArgs,
	RunE:  runUsersList,
}

var usersCheckCmd = &cobra.Command{
	Use:   "check <username>",
	Short: "Show one account and optionally verify its password",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersCheck,
}

var usersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account",
	Long: `Create an account with a fresh login code.

Example:
  ledgerctl users create --username ops --password secret --role admin`,
	Args: cobra.NoArgs,
	RunE: runUsersCreate,
}

var (
	usersSkip      int
	usersLimit     int
	checkPassword  string
	createUsername string
	createPassword string
	createRole     string
	createBalance  string
	createType     string
	createFullName string
	createBroker   string
)

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersListCmd, usersCheckCmd, usersCreateCmd)

	usersListCmd.Flags().IntVar(&usersSkip, "skip", 0, "accounts to skip")
	usersListCmd.Flags().IntVar(&usersLimit, "limit", store.DefaultPageLimit, "maximum accounts to print")

	usersCheckCmd.Flags().StringVar(&checkPassword, "password", "", "verify this password against the stored hash")

	usersCreateCmd.Flags().StringVarP(&createUsername, "username", "u", "", "username (required)")
	usersCreateCmd.Flags().StringVarP(&createPassword, "password", "p", "", "password (required)")
	usersCreateCmd.Flags().StringVar(&createRole, "role", string(types.RoleUser), "user or admin")
	usersCreateCmd.Flags().StringVar(&createBalance, "balance", "", "initial balance (default 10000)")
	usersCreateCmd.Flags().StringVar(&createType, "account-type", "", "demo or real")
	usersCreateCmd.Flags().StringVar(&createFullName, "full-name", "", "display name")
	usersCreateCmd.Flags().StringVar(&createBroker, "broker", "", "broker label")
	_ = usersCreateCmd.MarkFlagRequired("username")
	_ = usersCreateCmd.MarkFlagRequired("password")
}

func runUsersList(cmd *cobra.Command, args []string) error {
	page, err := store.NewPage(usersSkip, usersLimit)
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	list, err := accounts.NewService(st, zap.NewNop()).List(cmd.Context(), page)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tLOGIN CODE\tROLE\tTYPE\tBALANCE\tEQUITY\tCREATED")
	for _, a := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.Username, a.LoginCode, a.Role, a.AccountType,
			a.Balance.StringFixed(2), a.Equity.StringFixed(2), a.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func runUsersCheck(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	acct, err := accounts.NewService(st, zap.NewNop()).GetByUsername(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	printAccount(cmd, acct)
	if checkPassword != "" {
		if !auth.CheckPassword(acct.PasswordHash, checkPassword) {
			return fmt.Errorf("password does not match for %s", acct.Username)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "password: ok")
	}
	return nil
}

func runUsersCreate(cmd *cobra.Command, args []string) error {
	role, ok := types.ParseRole(createRole)
	if !ok {
		return fmt.Errorf("invalid role %q", createRole)
	}
	in := accounts.CreateInput{
		Username:    createUsername,
		Password:    createPassword,
		FullName:    createFullName,
		Broker:      createBroker,
		AccountType: createType,
	}
	if createBalance != "" {
		b, err := decimal.NewFromString(createBalance)
		if err != nil {
			return fmt.Errorf("invalid balance: %w", err)
		}
		in.Balance = &b
	}

	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	acct, err := accounts.NewService(st, zap.NewNop()).Create(cmd.Context(), in, role)
	if err != nil {
		return err
	}
	printAccount(cmd, acct)
	return nil
}

func printAccount(cmd *cobra.Command, a model.Account) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id:\t%d\n", a.ID)
	fmt.Fprintf(tw, "username:\t%s\n", a.Username)
	fmt.Fprintf(tw, "login code:\t%s\n", a.LoginCode)
	fmt.Fprintf(tw, "role:\t%s\n", a.Role)
	fmt.Fprintf(tw, "account type:\t%s\n", a.AccountType)
	fmt.Fprintf(tw, "full name:\t%s\n", a.FullName)
	fmt.Fprintf(tw, "broker:\t%s\n", a.Broker)
	fmt.Fprintf(tw, "balance:\t%s\n", a.Balance.String())
	fmt.Fprintf(tw, "equity:\t%s\n", a.Equity.String())
	fmt.Fprintf(tw, "margin:\t%s\n", a.Margin.String())
	_ = tw.Flush()
}
