package settings

import (
	"net/http"

	"lv-ledger/internal/httputil"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	cur, err := h.svc.Get(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cur)
}

func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	var u Update
	if err := httputil.ReadJSON(r, &u); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	saved, err := h.svc.Upsert(r.Context(), u)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, saved)
}
