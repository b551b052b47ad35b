package ledger

import (
	"net/http"
	"strings"

	"lv-ledger/internal/apperr"
	"lv-ledger/internal/auth"
	"lv-ledger/internal/httputil"
	"lv-ledger/internal/store"
	"lv-ledger/internal/types"

	"github.com/shopspring/decimal"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

type closeRequest struct {
	ClosePrice *decimal.Decimal `json:"close_price"`
}

// Close handles PUT /trades/{id}/close. The price comes from the close_price
// query parameter or a JSON body.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	tradeID, err := httputil.PathInt64(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var price decimal.Decimal
	if raw := strings.TrimSpace(r.URL.Query().Get("close_price")); raw != "" {
		price, err = decimal.NewFromString(raw)
		if err != nil {
			httputil.WriteError(w, r, apperr.InvalidArgument("close_price must be a number"))
			return
		}
	} else {
		var req closeRequest
		if err := httputil.ReadJSON(r, &req); err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		if req.ClosePrice == nil {
			httputil.WriteError(w, r, apperr.InvalidArgument("close_price is required"))
			return
		}
		price = *req.ClosePrice
	}
	t, err := h.engine.CloseTrade(r.Context(), tradeID, id.AccountID, price)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

type settleRequest struct {
	Outcome string          `json:"outcome"`
	Amount  decimal.Decimal `json:"amount"`
}

type settleResponse struct {
	Message string `json:"message"`
	Settlement
}

func (h *Handler) Settle(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	tradeID, err := httputil.PathInt64(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var req settleRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	outcome, ok := types.ParseOutcome(req.Outcome)
	if !ok || !outcome.Decisive() {
		httputil.WriteError(w, r, apperr.InvalidArgument("outcome must be WIN or LOSS"))
		return
	}
	res, err := h.engine.AdminSettleTrade(r.Context(), tradeID, outcome, req.Amount)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, settleResponse{
		Message:    "trade settled as " + string(outcome),
		Settlement: res,
	})
}

type outcomeRequest struct {
	Outcome string `json:"outcome"`
}

type outcomeResponse struct {
	Message string        `json:"message"`
	TradeID int64         `json:"trade_id"`
	Outcome types.Outcome `json:"outcome"`
}

// ForceOutcome handles PUT /admin/trades/{id}/outcome with the outcome in the
// query string or a JSON body.
func (h *Handler) ForceOutcome(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	tradeID, err := httputil.PathInt64(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	raw := r.URL.Query().Get("outcome")
	if raw == "" {
		var req outcomeRequest
		if err := httputil.ReadJSON(r, &req); err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		raw = req.Outcome
	}
	outcome, ok := types.ParseOutcome(raw)
	if !ok {
		httputil.WriteError(w, r, apperr.InvalidArgument("outcome must be WIN, LOSS or NONE"))
		return
	}
	t, err := h.engine.AdminForceOutcome(r.Context(), tradeID, outcome)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, outcomeResponse{
		Message: "trade outcome set to " + string(outcome),
		TradeID: t.ID,
		Outcome: t.ForcedOutcome,
	})
}

type adjustRequest struct {
	Balance     *decimal.Decimal `json:"balance"`
	Equity      *decimal.Decimal `json:"equity"`
	Margin      *decimal.Decimal `json:"margin"`
	AccountType *string          `json:"account_type"`
	FullName    *string          `json:"full_name"`
	Broker      *string          `json:"broker"`
}

func (h *Handler) AdjustAccount(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	accountID, err := httputil.PathInt64(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var req adjustRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	u := store.AccountUpdate{
		Balance:  req.Balance,
		Equity:   req.Equity,
		Margin:   req.Margin,
		FullName: req.FullName,
		Broker:   req.Broker,
	}
	if req.AccountType != nil {
		at, ok := types.ParseAccountType(*req.AccountType)
		if !ok {
			httputil.WriteError(w, r, apperr.InvalidArgument("account_type must be demo or real"))
			return
		}
		u.AccountType = &at
	}
	acct, err := h.engine.AdminAdjustAccount(r.Context(), accountID, u)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, acct)
}
