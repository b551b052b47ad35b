package auth

import (
	"errors"
	"net/http"
	"strings"

	"lv-ledger/internal/apperr"
	"lv-ledger/internal/httputil"
	"lv-ledger/internal/store"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Token accepts JSON or an OAuth2 password-style form body.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			httputil.WriteError(w, r, apperr.InvalidArgument("invalid form body"))
			return
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
	} else if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		httputil.WriteError(w, r, apperr.InvalidArgument("username and password required"))
		return
	}
	token, err := h.svc.IssueToken(r.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   TokenType,
		ExpiresIn:   int64(h.svc.TTL().Seconds()),
	})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request, id Identity) {
	acct, err := h.svc.accounts.GetAccount(r.Context(), id.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = apperr.NotFound("account not found")
		}
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, acct)
}
