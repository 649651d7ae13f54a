package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/gateway"
	"github.com/dbehnke/dstar-gateway/pkg/logger"
	"github.com/dbehnke/dstar-gateway/pkg/text"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Event types pushed to dashboard clients
const (
	EventHeader           = "header"
	EventLinkState        = "link_state"
	EventRoute            = "route"
	EventDirectoryTimeout = "directory_timeout"
	EventStatusUpdate     = "status_update"
	EventRepeaters        = "repeaters_update"
)

// Event represents a WebSocket event to be broadcast to clients
type Event struct {
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Marshal converts an event to JSON bytes
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Client represents a WebSocket client connection
type Client struct {
	ID       string
	conn     *websocket.Conn
	messages chan []byte
}

// WebSocketHub manages WebSocket client connections and broadcasts. It is
// also a gateway.Recorder so session events reach the dashboard directly.
type WebSocketHub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	logger     *logger.Logger
	mu         sync.RWMutex

	translator *text.Translator
}

var _ gateway.Recorder = (*WebSocketHub)(nil)

// NewWebSocketHub creates a new WebSocket hub
func NewWebSocketHub(log *logger.Logger) *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     log,
	}
}

// SetTranslator adds the localized status text to link_state events
func (h *WebSocketHub) SetTranslator(t *text.Translator) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.translator = t
}

// Run starts the WebSocket hub event loop
func (h *WebSocketHub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("WebSocket client registered",
				logger.String("client_id", client.ID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.messages)
			}
			h.mu.Unlock()
			h.logger.Debug("WebSocket client unregistered",
				logger.String("client_id", client.ID))

		case event := <-h.broadcast:
			data, err := event.Marshal()
			if err != nil {
				h.logger.Error("Failed to marshal event",
					logger.Error(err))
				continue
			}

			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.messages <- data:
				default:
					h.logger.Warn("Client message buffer full, skipping",
						logger.String("client_id", client.ID))
				}
			}
			h.mu.RUnlock()

		case <-ctx.Done():
			h.logger.Info("WebSocket hub shutting down")
			h.mu.Lock()
			for client := range h.clients {
				close(client.messages)
			}
			h.clients = make(map[*Client]bool)
			h.mu.Unlock()
			return
		}
	}
}

// Broadcast sends an event to all connected clients
func (h *WebSocketHub) Broadcast(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("Broadcast channel full, dropping event",
			logger.String("event_type", event.Type))
	}
}

// Handler returns an HTTP handler for WebSocket connections
func (h *WebSocketHub) Handler() http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, "websocket upgrade failed", http.StatusBadRequest)
			return
		}
		client := &Client{ID: uuid.NewString(), conn: conn, messages: make(chan []byte, 256)}
		h.register <- client
		h.logger.Debug("WebSocket client connected",
			logger.String("client_id", client.ID),
			logger.String("remote", r.RemoteAddr))

		// Reads only detect the close
		go func() {
			defer func() {
				h.unregister <- client
				_ = client.conn.Close()
			}()
			client.conn.SetReadLimit(1024)
			for {
				if _, _, err := client.conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		go func() {
			for msg := range client.messages {
				_ = client.conn.WriteMessage(websocket.TextMessage, msg)
			}
		}()
	})
}

// GetClientCount returns the number of connected clients
func (h *WebSocketHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HeaderReceived broadcasts an RF header on a repeater
func (h *WebSocketHub) HeaderReceived(repeater string) {
	h.Broadcast(Event{
		Type: EventHeader,
		Data: map[string]interface{}{
			"repeater": strings.TrimSpace(repeater),
		},
	})
}

// FrameReceived is not forwarded; frames arrive every 20ms.
func (h *WebSocketHub) FrameReceived(string, bool, uint) {}

// DirectoryQuery is not forwarded.
func (h *WebSocketHub) DirectoryQuery(string) {}

// DirectoryTimeout broadcasts an unanswered directory query
func (h *WebSocketHub) DirectoryTimeout(kind string) {
	h.Broadcast(Event{
		Type: EventDirectoryTimeout,
		Data: map[string]interface{}{
			"kind": kind,
		},
	})
}

// LinkStateChanged broadcasts a link state change
func (h *WebSocketHub) LinkStateChanged(repeater string, status dstar.LinkStatus, target string) {
	data := map[string]interface{}{
		"repeater": strings.TrimSpace(repeater),
		"status":   status.String(),
		"target":   strings.TrimSpace(target),
	}

	h.mu.RLock()
	tr := h.translator
	h.mu.RUnlock()
	if tr != nil {
		if msg := tr.Format(linkStatusEvent(status, target)); msg != "" {
			data["text"] = msg
		}
	}

	h.Broadcast(Event{Type: EventLinkState, Data: data})
}

// RouteSelected broadcasts the route chosen for an RF transmission
func (h *WebSocketHub) RouteSelected(repeater string, route dstar.RouteStatus) {
	h.Broadcast(Event{
		Type: EventRoute,
		Data: map[string]interface{}{
			"repeater": strings.TrimSpace(repeater),
			"route":    route.String(),
		},
	})
}

// BroadcastStatusUpdate broadcasts a status update to all clients
func (h *WebSocketHub) BroadcastStatusUpdate(status string, version string) {
	h.Broadcast(Event{
		Type:      EventStatusUpdate,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"status":  status,
			"version": version,
		},
	})
}

// BroadcastRepeatersUpdate broadcasts the repeater list to all clients
func (h *WebSocketHub) BroadcastRepeatersUpdate(repeaters []RepeaterView) {
	h.Broadcast(Event{
		Type:      EventRepeaters,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"repeaters": repeaters,
		},
	})
}

func linkStatusEvent(status dstar.LinkStatus, target string) gateway.Status {
	kind := gateway.StatusNotLinked
	switch {
	case status.IsLinking():
		kind = gateway.StatusLinking
	case status.IsLinked():
		kind = gateway.StatusLinked
	}
	return gateway.Status{Kind: kind, Link: status, Target: target}
}
