package trades

import (
	"net/http"

	"lv-ledger/internal/auth"
	"lv-ledger/internal/httputil"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Place(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var in PlaceInput
	if err := httputil.ReadJSON(r, &in); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	t, err := h.svc.Place(r.Context(), id.AccountID, in)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) ListOwn(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	list, err := h.svc.ListOwn(r.Context(), id.AccountID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

// ListAll handles GET /admin/trades, newest first.
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	page, err := httputil.QueryPage(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	list, err := h.svc.ListAll(r.Context(), page)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}
