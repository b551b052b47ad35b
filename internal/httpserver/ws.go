package httpserver

import (
	"net/http"
	"strings"
	"time"

	"lv-ledger/internal/apperr"
	"lv-ledger/internal/auth"
	"lv-ledger/internal/events"
	"lv-ledger/internal/httputil"
	"lv-ledger/internal/types"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

// EventsWSHandler streams ledger events. Users see events for their own
// account only. Admins see every event.
type EventsWSHandler struct {
	bus      *events.Bus
	authSvc  *auth.Service
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewEventsWSHandler(bus *events.Bus, authSvc *auth.Service, origin string, log *zap.Logger) *EventsWSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventsWSHandler{
		bus:     bus,
		authSvc: authSvc,
		log:     log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return allowOrigin(r, origin) },
		},
	}
}

func allowOrigin(r *http.Request, origin string) bool {
	reqOrigin := r.Header.Get("Origin")
	if origin == "" || origin == "*" || reqOrigin == "" {
		return true
	}
	if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
		if strings.Contains(reqOrigin, "localhost") || strings.Contains(reqOrigin, "127.0.0.1") {
			return true
		}
	}
	return strings.EqualFold(reqOrigin, origin)
}

func visibleTo(id auth.Identity, evt events.Event) bool {
	return id.Role.Satisfies(types.RoleAdmin) || evt.AccountID == id.AccountID
}

func (h *EventsWSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on a websocket handshake.
	token := r.URL.Query().Get("token")
	if token == "" {
		httputil.WriteError(w, r, apperr.Unauthorized("missing token"))
		return
	}
	id, err := h.authSvc.Authenticate(r.Context(), token)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)
	h.log.Debug("ws subscribed", zap.Int64("account_id", id.AccountID), zap.String("role", string(id.Role)))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case evt := <-sub:
			if !visibleTo(id, evt) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
