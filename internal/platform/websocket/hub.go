// Package websocket pushes controller snapshots to connected UI clients.
// Every client belongs to an owner (a console session) and subscribes to
// topics within it, so one session never sees another session's state.
package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// Event is an outbound message. Data is already-encoded JSON.
type Event struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ClientMessage is an inbound message from a client:
// {"action":"subscribe","topics":["referrals"]}.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

// Client is one WebSocket connection.
type Client struct {
	ID     string
	Owner  string
	Topics []string
	Send   chan []byte
}

func NewClient(owner string) *Client {
	return &Client{
		ID:     uuid.New().String(),
		Owner:  owner,
		Topics: []string{},
		Send:   make(chan []byte, sendBuffer),
	}
}

type channel struct {
	owner string
	topic string
}

// SubscribeHook runs after client subscribes to topic, typically to send
// the topic's current state.
type SubscribeHook func(client *Client, topic string)

// Hub tracks clients and their subscriptions.
type Hub struct {
	mu       sync.RWMutex
	channels map[channel]map[*Client]struct{}
	all      map[*Client]struct{}
	onSub    SubscribeHook
	logger   zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		channels: make(map[channel]map[*Client]struct{}),
		all:      make(map[*Client]struct{}),
		logger:   logger,
	}
}

// OnSubscribe installs fn as the subscribe hook. It must be set before
// clients connect.
func (h *Hub) OnSubscribe(fn SubscribeHook) {
	h.mu.Lock()
	h.onSub = fn
	h.mu.Unlock()
}

// Register adds a client and subscribes it to its initial topics.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.all[client] = struct{}{}
	for _, topic := range client.Topics {
		h.addLocked(client, topic)
	}
	h.mu.Unlock()
}

// Unregister removes a client from every topic and closes its Send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unregisterLocked(client)
}

func (h *Hub) unregisterLocked(client *Client) {
	if _, ok := h.all[client]; !ok {
		return
	}
	for _, topic := range client.Topics {
		h.removeLocked(client, topic)
	}
	delete(h.all, client)
	close(client.Send)
}

// CloseOwner disconnects every client of owner.
func (h *Hub) CloseOwner(owner string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.all {
		if client.Owner == owner {
			h.unregisterLocked(client)
		}
	}
}

func (h *Hub) addLocked(client *Client, topic string) {
	ch := channel{owner: client.Owner, topic: topic}
	if h.channels[ch] == nil {
		h.channels[ch] = make(map[*Client]struct{})
	}
	h.channels[ch][client] = struct{}{}
}

func (h *Hub) removeLocked(client *Client, topic string) {
	ch := channel{owner: client.Owner, topic: topic}
	if subs, ok := h.channels[ch]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.channels, ch)
		}
	}
}

// Subscribe adds topics to a registered client. Topics it already has are
// skipped.
func (h *Hub) Subscribe(client *Client, topics []string) {
	h.mu.Lock()
	if _, ok := h.all[client]; !ok {
		h.mu.Unlock()
		return
	}
	have := make(map[string]struct{}, len(client.Topics))
	for _, t := range client.Topics {
		have[t] = struct{}{}
	}
	var added []string
	for _, topic := range topics {
		if _, dup := have[topic]; dup || topic == "" {
			continue
		}
		have[topic] = struct{}{}
		h.addLocked(client, topic)
		client.Topics = append(client.Topics, topic)
		added = append(added, topic)
	}
	hook := h.onSub
	h.mu.Unlock()

	if hook != nil {
		for _, topic := range added {
			hook(client, topic)
		}
	}
}

// Unsubscribe removes topics from a registered client.
func (h *Hub) Unsubscribe(client *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	drop := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		drop[t] = struct{}{}
		h.removeLocked(client, t)
	}
	remaining := make([]string, 0, len(client.Topics))
	for _, t := range client.Topics {
		if _, rm := drop[t]; !rm {
			remaining = append(remaining, t)
		}
	}
	client.Topics = remaining
}

// ProcessMessage dispatches subscribe and unsubscribe actions. Anything
// else is ignored.
func (h *Hub) ProcessMessage(client *Client, msg ClientMessage) {
	switch msg.Action {
	case "subscribe":
		h.Subscribe(client, msg.Topics)
	case "unsubscribe":
		h.Unsubscribe(client, msg.Topics)
	}
}

// Broadcast sends event to owner's clients subscribed to topic.
func (h *Hub) Broadcast(owner, topic string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("topic", topic).Msg("marshal websocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.channels[channel{owner: owner, topic: topic}] {
		h.sendLocked(client, data)
	}
}

// Deliver sends event to one client.
func (h *Hub) Deliver(client *Client, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("topic", event.Topic).Msg("marshal websocket event")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.all[client]; ok {
		h.sendLocked(client, data)
	}
}

// sendLocked never blocks; a client that is not keeping up loses messages.
// Every event carries a full snapshot, so the next one repairs the gap.
func (h *Hub) sendLocked(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		h.logger.Debug().Str("client_id", client.ID).Msg("websocket client buffer full, dropping event")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

// TopicCount returns the number of owner's clients subscribed to topic.
func (h *Hub) TopicCount(owner, topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel{owner: owner, topic: topic}])
}

// HandlerConfig configures the WebSocket endpoint.
type HandlerConfig struct {
	// Owner names the session a connection belongs to. A nil Owner puts
	// every connection under "".
	Owner func(c echo.Context) (string, error)
	// AllowedOrigins restricts the Origin header. Empty or "*" allows all.
	AllowedOrigins []string
	Logger         zerolog.Logger
}

// WebSocketHandler upgrades HTTP connections and routes client messages.
type WebSocketHandler struct {
	hub      *Hub
	cfg      HandlerConfig
	upgrader gorillawebsocket.Upgrader
}

func NewWebSocketHandler(hub *Hub, cfg HandlerConfig) *WebSocketHandler {
	wsh := &WebSocketHandler{hub: hub, cfg: cfg}
	wsh.upgrader = gorillawebsocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     wsh.checkOrigin,
	}
	return wsh
}

func (wsh *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(wsh.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range wsh.cfg.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// RegisterRoutes registers GET /ws on g.
func (wsh *WebSocketHandler) RegisterRoutes(g *echo.Group, m ...echo.MiddlewareFunc) {
	g.GET("/ws", wsh.HandleConnect, m...)
}

// HandleConnect upgrades the connection, registers the client and starts
// its read and write pumps.
func (wsh *WebSocketHandler) HandleConnect(c echo.Context) error {
	owner := ""
	if wsh.cfg.Owner != nil {
		o, err := wsh.cfg.Owner(c)
		if err != nil {
			return err
		}
		owner = o
	}

	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the error response.
		wsh.cfg.Logger.Debug().Err(err).Msg("websocket upgrade failed")
		return nil
	}

	client := NewClient(owner)
	wsh.hub.Register(client)
	wsh.cfg.Logger.Debug().Str("client_id", client.ID).Str("owner", owner).Msg("websocket connected")

	go wsh.writePump(client, ws)
	go wsh.readPump(client, ws)
	return nil
}

func (wsh *WebSocketHandler) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		wsh.hub.Unregister(client)
		ws.Close()
		wsh.cfg.Logger.Debug().Str("client_id", client.ID).Msg("websocket disconnected")
	}()

	ws.SetReadLimit(4096)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		wsh.hub.ProcessMessage(client, msg)
	}
}

func (wsh *WebSocketHandler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ws.WriteMessage(gorillawebsocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(gorillawebsocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
