package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"lv-ledger/internal/apperr"
	"lv-ledger/internal/store"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// WriteError maps err to its kind's status and code. Internal causes are
// kept off the wire and left in the request's error slot for the access log.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		recordError(r.Context(), err)
	}
	WriteJSON(w, kind.HTTPStatus(), ErrorResponse{Error: apperr.PublicMessage(err), Code: kind.Code()})
}

func ReadJSON(r *http.Request, dst any) error {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.InvalidArgument("empty body")
		}
		return apperr.Wrap(apperr.KindInvalidArgument, "invalid json body", err)
	}
	if dec.More() {
		return apperr.InvalidArgument("unexpected trailing json")
	}
	return nil
}

func PathInt64(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.InvalidArgument("invalid " + name)
	}
	return id, nil
}

// QueryInt returns def when the parameter is absent.
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.InvalidArgument(name + " must be an integer")
	}
	return v, nil
}

// QueryPage reads skip and limit into a validated store.Page.
func QueryPage(r *http.Request) (store.Page, error) {
	skip, err := QueryInt(r, "skip", 0)
	if err != nil {
		return store.Page{}, err
	}
	limit, err := QueryInt(r, "limit", store.DefaultPageLimit)
	if err != nil {
		return store.Page{}, err
	}
	page, err := store.NewPage(skip, limit)
	if err != nil {
		return store.Page{}, apperr.InvalidArgument(err.Error())
	}
	return page, nil
}

type errorSlotKey struct{}

type errorSlot struct {
	err error
}

// WithErrorSlot prepares ctx to carry the internal error of a request.
func WithErrorSlot(ctx context.Context) context.Context {
	return context.WithValue(ctx, errorSlotKey{}, &errorSlot{})
}

// RecordedError returns the internal error written by WriteError, if any.
func RecordedError(ctx context.Context) error {
	if slot, ok := ctx.Value(errorSlotKey{}).(*errorSlot); ok {
		return slot.err
	}
	return nil
}

func recordError(ctx context.Context, err error) {
	if slot, ok := ctx.Value(errorSlotKey{}).(*errorSlot); ok {
		slot.err = err
	}
}
