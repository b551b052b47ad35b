package health

import (
	"context"
	"net/http"
	"time"

	"lv-ledger/internal/httputil"
)

const pingTimeout = time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	store     Pinger
	driver    string
	startedAt time.Time
	now       func() time.Time
}

func NewHandler(store Pinger, driver string, startedAt time.Time) *Handler {
	start := startedAt.UTC()
	if start.IsZero() {
		start = time.Now().UTC()
	}
	return &Handler{
		store:     store,
		driver:    driver,
		startedAt: start,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type liveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	UptimeSec int64  `json:"uptime_sec"`
	Uptime    string `json:"uptime"`
}

type readinessResponse struct {
	liveResponse
	Store storeStat `json:"store"`
}

type storeStat struct {
	Driver    string `json:"driver"`
	Reachable bool   `json:"reachable"`
	PingMs    int64  `json:"ping_ms"`
	Error     string `json:"error,omitempty"`
}

func (h *Handler) live(now time.Time, status string) liveResponse {
	uptime := now.Sub(h.startedAt)
	if uptime < 0 {
		uptime = 0
	}
	return liveResponse{
		Status:    status,
		Timestamp: now.Format(time.RFC3339),
		UptimeSec: int64(uptime.Seconds()),
		Uptime:    uptime.Truncate(time.Second).String(),
	}
}

// Live does not touch the store.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.live(h.now(), "ok"))
}

// Ready pings the store and answers 503 when it is unreachable.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	stat := storeStat{Driver: h.driver}
	if h.store == nil {
		stat.Error = "store is not configured"
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		start := time.Now()
		err := h.store.Ping(ctx)
		cancel()
		stat.PingMs = time.Since(start).Milliseconds()
		if err != nil {
			stat.Error = err.Error()
		} else {
			stat.Reachable = true
		}
	}

	status, code := "ok", http.StatusOK
	if !stat.Reachable {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, code, readinessResponse{liveResponse: h.live(h.now(), status), Store: stat})
}
