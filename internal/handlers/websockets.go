package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"air_monitor/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	defaultInterval  = 1 * time.Second
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000 // 10s in ms
)

// Message types on the wire.
const (
	wsTypeState     = "state"
	wsTypeDismiss   = "dismiss"
	wsTypeDismissed = "dismissed"
	wsTypeError     = "error"
)

// Envelope used for WebSocket messages.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// wsCommand is what a dashboard may send: {"type":"dismiss","id":"..."}.
type wsCommand struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// Upgrader for HTTP -> WebSocket. The dashboard is served from other origins.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConnect streams {"type":"state","data":DashboardState} every interval and
// accepts dismiss commands from the client.
//
// @Summary      Dashboard stream
// @Tags         sensors
// @Param        interval      query  string  false  "Push interval, e.g. 2s (max 10s)"
// @Param        interval_ms   query  int     false  "Push interval in ms (max 10000)"
// @Param        access_token  query  string  false  "JWT when the Authorization header cannot be set"
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	interval := h.parseInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Only this goroutine writes; the reader hands commands over.
	cmds := make(chan wsCommand)
	done := make(chan struct{})
	stop := make(chan struct{})
	defer close(stop)
	go h.startReader(conn, cmds, stop, done)

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	ctx := c.Request.Context()
	if err := h.sendState(ctx, conn); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
		}
		return
	}

	for {
		var err error
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			err = conn.WriteMessage(websocket.PingMessage, nil)
		case cmd := <-cmds:
			err = h.handleCommand(ctx, conn, cmd)
		case <-ticker.C:
			err = h.sendState(ctx, conn)
		}
		if err != nil {
			if h.log != nil {
				h.log.Infow("ws_write_failed", "err", err)
			}
			return
		}
	}
}

// Helper: parseInterval reads ?interval=2s or ?interval_ms=2000 with bounds.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}

	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}

	return defaultInterval
}

// startReader decodes client commands until the connection closes.
// Undecodable frames are dropped.
func (h *Handler) startReader(conn *websocket.Conn, cmds chan<- wsCommand, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
		var cmd wsCommand
		if err := json.Unmarshal(raw, &cmd); err != nil || cmd.Type == "" {
			continue
		}
		select {
		case cmds <- cmd:
		case <-stop:
			return
		}
	}
}

// handleCommand applies one client command and writes the reply plus the
// resulting state.
func (h *Handler) handleCommand(ctx context.Context, conn *websocket.Conn, cmd wsCommand) error {
	if cmd.Type != wsTypeDismiss {
		return h.writeEnvelope(conn, wsEnvelope{Type: wsTypeError, Error: "unknown command " + strconv.Quote(cmd.Type)})
	}
	if err := h.services.Monitoring.Dismiss(ctx, cmd.ID); err != nil {
		msg := err.Error()
		if !errors.Is(err, service.ErrNotificationMismatch) {
			if h.log != nil {
				h.log.Errorw("ws_dismiss_failed", "err", err)
			}
			msg = errDismiss
		}
		return h.writeEnvelope(conn, wsEnvelope{Type: wsTypeError, Error: msg})
	}
	if err := h.writeEnvelope(conn, wsEnvelope{Type: wsTypeDismissed, Data: cmd.ID}); err != nil {
		return err
	}
	return h.sendState(ctx, conn)
}

// sendState fetches and writes the current state.
func (h *Handler) sendState(ctx context.Context, conn *websocket.Conn) error {
	st, err := h.services.Monitoring.GetState(ctx)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_get_state_failed", "err", err)
		}
		return err
	}
	return h.writeEnvelope(conn, wsEnvelope{Type: wsTypeState, Data: st})
}

func (h *Handler) writeEnvelope(conn *websocket.Conn, env wsEnvelope) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(env)
}
