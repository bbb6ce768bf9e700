package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/marisusis/eclipse.marisusis.me/internal/api/dto"
	"github.com/marisusis/eclipse.marisusis.me/internal/dashboard"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// StreamService is a PanelService that also publishes change events
type StreamService interface {
	PanelService
	Subscribe() chan dashboard.Event
	Unsubscribe(ch chan dashboard.Event)
}

// StreamHandler pushes the panel list to websocket clients after every change
type StreamHandler struct {
	service  StreamService
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(service StreamService, logger *slog.Logger) *StreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 8192,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.With("component", "stream"),
	}
}

// Stream godoc
// @Summary Panel update stream
// @Description Upgrade to WebSocket; the current panel list is sent on connect and after every change
// @Tags panels
// @Success 101
// @Router /api/panels/stream [get]
func (h *StreamHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events := h.service.Subscribe()
	defer h.service.Unsubscribe(events)

	h.logger.Debug("Stream client connected", "remote_addr", c.Request.RemoteAddr)

	// The reader only services control frames and notices the client leaving
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.send(conn, dashboard.Event{Type: dashboard.EventSnapshot, Version: h.service.Version()}); err != nil {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			h.logger.Debug("Stream client disconnected", "remote_addr", c.Request.RemoteAddr)
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "dashboard stopped"))
				return
			}
			if err := h.send(conn, ev); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *StreamHandler) send(conn *websocket.Conn, ev dashboard.Event) error {
	msg := dto.StreamMessage{
		Type:    string(ev.Type),
		NodeID:  ev.NodeID,
		Version: ev.Version,
		Panels:  PanelList(h.service),
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug("Stream write failed", "error", err)
		return err
	}
	return nil
}
