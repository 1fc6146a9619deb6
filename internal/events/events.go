// Package events implements the progress-broadcast hub referenced by C5
// (ingest) and C7 (dedup) for emitting task-update/progress notifications.
// Grounded on CineVault's internal/api.WSHub (nhooyr.io/websocket,
// registered clients fanned out via a buffered send channel, the
// task:update snapshot replay for newly connected clients), trimmed of
// CineVault's HTTP-server/auth coupling: connection upgrade and request
// routing belong to whatever process embeds this core, so the hub here
// only owns the fan-out and the websocket write loop.
package events

import (
	"context"
	"encoding/json"
	"sync"

	"nhooyr.io/websocket"
)

// Notifier is the seam the core programs against; concrete callers may
// substitute a no-op or a test double.
type Notifier interface {
	Broadcast(event string, data any)
}

// Message is the wire envelope every broadcast is wrapped in.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Client is one connected websocket subscriber.
type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans a Broadcast out to every registered Client, and replays the
// last task:update snapshot per task_id to newly connected clients so
// they see current progress without missing history.
type Hub struct {
	mu          sync.RWMutex
	clients     map[*Client]struct{}
	tasksMu     sync.RWMutex
	activeTasks map[string]json.RawMessage
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{
		clients:     make(map[*Client]struct{}),
		activeTasks: make(map[string]json.RawMessage),
	}
}

// Broadcast fans event/data out to every connected client, dropping the
// message for any client whose send buffer is full rather than blocking
// the caller.
func (h *Hub) Broadcast(event string, data any) {
	msg, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		return
	}

	if event == "task:update" {
		h.trackTask(data, msg)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

func (h *Hub) trackTask(data any, raw []byte) {
	m, ok := data.(map[string]any)
	if !ok {
		return
	}
	taskID, _ := m["task_id"].(string)
	status, _ := m["status"].(string)
	if taskID == "" {
		return
	}

	h.tasksMu.Lock()
	defer h.tasksMu.Unlock()
	if status == "complete" || status == "failed" {
		delete(h.activeTasks, taskID)
	} else {
		h.activeTasks[taskID] = json.RawMessage(raw)
	}
}

// Register adopts an already-accepted websocket connection (the embedding
// process owns the HTTP upgrade, auth, and routing) and starts its write
// loop. The returned function deregisters and closes the client.
func (h *Hub) Register(ctx context.Context, conn *websocket.Conn) func() {
	c := &Client{conn: conn, send: make(chan []byte, 64)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.tasksMu.RLock()
	for _, msg := range h.activeTasks {
		select {
		case c.send <- msg:
		default:
		}
	}
	h.tasksMu.RUnlock()

	go func() {
		defer conn.Close(websocket.StatusNormalClosure, "")
		for msg := range c.send {
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.clients[c]; ok {
			close(c.send)
			delete(h.clients, c)
		}
	}
}

// ClientCount reports the number of currently registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Nop is a Notifier that discards every broadcast, for callers that run
// without a progress UI attached.
type Nop struct{}

// Broadcast implements Notifier by doing nothing.
func (Nop) Broadcast(string, any) {}
