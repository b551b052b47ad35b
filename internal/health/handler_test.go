package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestReady(t *testing.T) {
	t.Parallel()
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		store  Pinger
		code   int
		status string
	}{
		{"reachable", pingFunc(func(context.Context) error { return nil }), http.StatusOK, "ok"},
		{"down", pingFunc(func(context.Context) error { return errors.New("connection refused") }), http.StatusServiceUnavailable, "degraded"},
		{"unconfigured", nil, http.StatusServiceUnavailable, "degraded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(tc.store, "postgres", start)
			h.now = func() time.Time { return start.Add(90 * time.Second) }

			w := httptest.NewRecorder()
			h.Ready(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, tc.code, w.Code)

			var body readinessResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.status, body.Status)
			assert.Equal(t, int64(90), body.UptimeSec)
			assert.Equal(t, "postgres", body.Store.Driver)
			assert.Equal(t, tc.code == http.StatusOK, body.Store.Reachable)
		})
	}
}

func TestLiveSkipsStore(t *testing.T) {
	t.Parallel()
	called := false
	h := NewHandler(pingFunc(func(context.Context) error { called = true; return nil }), "memory", time.Time{})

	w := httptest.NewRecorder()
	h.Live(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, called)
}
