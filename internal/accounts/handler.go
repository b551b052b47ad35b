package accounts

import (
	"net/http"
	"strings"

	"lv-ledger/internal/apperr"
	"lv-ledger/internal/httputil"
	"lv-ledger/internal/types"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createRequest struct {
	CreateInput
	Role string `json:"role"`
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httputil.ReadJSON(r, &in); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	acct, err := h.svc.Register(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, acct)
}

// Create handles POST /admin/users. Role defaults to user.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	role := types.RoleUser
	if strings.TrimSpace(req.Role) != "" {
		parsed, ok := types.ParseRole(req.Role)
		if !ok {
			httputil.WriteError(w, r, apperr.InvalidArgument("role must be user or admin"))
			return
		}
		role = parsed
	}
	acct, err := h.svc.Create(r.Context(), req.CreateInput, role)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, acct)
}

// List handles GET /admin/users?skip=&limit=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, err := httputil.QueryPage(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	accts, err := h.svc.List(r.Context(), page)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, accts)
}
