package handler

import (
	"context"
	"net/http"
	"time"

	"livepoll/internal/container"
	"livepoll/internal/domain"
	"livepoll/internal/service"
	"livepoll/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// LiveMessage is the envelope pushed to live viewers
type LiveMessage struct {
	Type    string              `json:"type"`
	Session *domain.SessionView `json:"session"`
}

const liveMessageSession = "session"

// LiveHandler upgrades viewers to a WebSocket and streams session views
type LiveHandler struct {
	engine   *service.SessionEngine
	feed     *service.LiveFeed
	auth     service.AuthService
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewLiveHandler creates a new live handler accepting the configured browser origins
func NewLiveHandler(container *container.Container) *LiveHandler {
	allowed := make(map[string]bool)
	for _, origin := range container.GetConfig().AllowedOrigins {
		allowed[origin] = true
	}

	return &LiveHandler{
		engine: container.GetEngine(),
		feed:   container.Services.Live,
		auth:   container.GetAuthService(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
			},
		},
		logger: container.GetLogger().Named("http.live"),
	}
}

// Watch handles GET /api/sessions/{code}/live?voterId=&token=
// A valid admin token in the query selects the admin view.
func (h *LiveHandler) Watch(w http.ResponseWriter, r *http.Request) {
	code := normalizeCode(chi.URLParam(r, "code"))
	query := r.URL.Query()

	adminView := false
	if token := query.Get("token"); token != "" {
		if _, err := h.auth.Authorize(r.Context(), token); err != nil {
			writeError(w, r, err, h.logger)
			return
		}
		adminView = true
	}

	if _, err := h.engine.Session(code); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	views, err := h.feed.Watch(ctx, code, adminView, query.Get("voterId"))
	if err != nil {
		cancel()
		_ = wsConn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, err.Error()))
		_ = wsConn.Close()
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"session_code": code,
		"admin":        adminView,
	}).Debug("Live viewer connected")

	go h.writePump(wsConn, views, cancel)
	go h.readPump(wsConn, cancel)
}

// readPump only watches for the client going away
func (h *LiveHandler) readPump(wsConn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	wsConn.SetReadLimit(maxMessageSize)
	_ = wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		return wsConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := wsConn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.WithError(err).Debug("Live viewer read error")
			}
			return
		}
	}
}

func (h *LiveHandler) writePump(wsConn *websocket.Conn, views <-chan domain.SessionView, cancel context.CancelFunc) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		_ = wsConn.Close()
	}()

	for {
		select {
		case view, ok := <-views:
			_ = wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = wsConn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := wsConn.WriteJSON(LiveMessage{Type: liveMessageSession, Session: &view}); err != nil {
				return
			}

		case <-ticker.C:
			_ = wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
