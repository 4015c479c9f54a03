package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Brownie44l1/babble-runtime/internal/runtime"
	"github.com/Brownie44l1/babble-runtime/internal/zone"
)

// Hub fans out on_data notifications to connected /stream clients,
// modeled on the monolithic server's websocket proxy module: one
// upgrader, a registry of live connections guarded by a mutex, and a
// best-effort write to each, bounded by writeTimeout.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.Mutex
	conns    map[*websocket.Conn]struct{}
}

// NewHub constructs an empty Hub. The upgrader accepts any origin,
// matching the teacher's permissive CORS posture for local/dev use.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// notification is the JSON payload pushed to every connected client
// whenever the runtime's on_data callback fires.
type notification struct {
	Zones     uint8 `json:"zones"`
	Timestamp int64 `json:"timestamp"`
}

// Serve upgrades r to a websocket connection and registers it with the
// hub until the client disconnects.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("stream: upgrade failed: %v", err)
		return
	}
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	// Drain and discard inbound messages; the connection is push-only.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// OnData is installed as the runtime's OnDataFunc. It is invoked with
// the runtime's mutex held. Each write is synchronous and bounded by
// writeTimeout, so a slow client can hold the callback (and the runtime
// mutex) for up to that long per connection; a connection whose write
// fails is closed and dropped.
func (h *Hub) OnData(rt *runtime.Runtime, zones zone.Zones, timestamp int64) {
	payload, err := json.Marshal(notification{Zones: uint8(zones), Timestamp: timestamp})
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			go conn.Close()
			delete(h.conns, conn)
		}
	}
}

const writeTimeout = 2 * time.Second
