package handlers

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/mnohosten/laura-db/pkg/storage"
)

// upgrader upgrades the eviction-stream endpoint to a WebSocket
// connection. Origins are not restricted here; the admin surface as a
// whole is gated by whatever reverse proxy or CORS policy fronts it.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EvictionEvent is the JSON payload pushed to every connected client each
// time the buffer pool evicts a frame.
type EvictionEvent struct {
	FrameID   storage.FrameID `json:"frame_id"`
	PageID    storage.PageID  `json:"page_id"`
	WasDirty  bool            `json:"was_dirty"`
	Timestamp time.Time       `json:"timestamp"`
}

// EvictionStreamManager fans out eviction events to every connected
// WebSocket client. It is registered with a BufferPoolManager as an
// EvictionListener, so it observes every eviction the pool performs,
// regardless of which caller triggered it.
type EvictionStreamManager struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan EvictionEvent
}

// NewEvictionStreamManager creates an empty stream manager.
func NewEvictionStreamManager() *EvictionStreamManager {
	return &EvictionStreamManager{
		clients: make(map[*websocket.Conn]chan EvictionEvent),
	}
}

// Listener returns a storage.EvictionListener that broadcasts to every
// connected client. Pass it to BufferPoolManager.SetEvictionListener.
func (m *EvictionStreamManager) Listener() storage.EvictionListener {
	return func(frameID storage.FrameID, pageID storage.PageID, wasDirty bool) {
		m.broadcast(EvictionEvent{
			FrameID:   frameID,
			PageID:    pageID,
			WasDirty:  wasDirty,
			Timestamp: time.Now(),
		})
	}
}

func (m *EvictionStreamManager) broadcast(event EvictionEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.clients {
		select {
		case ch <- event:
		default:
			// Slow client; drop the event rather than block the pool's
			// eviction path, which runs with the pool's lock held.
		}
	}
}

func (m *EvictionStreamManager) addClient(conn *websocket.Conn) chan EvictionEvent {
	ch := make(chan EvictionEvent, 64)
	m.mu.Lock()
	m.clients[conn] = ch
	m.mu.Unlock()
	return ch
}

func (m *EvictionStreamManager) removeClient(conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.clients[conn]; ok {
		close(ch)
		delete(m.clients, conn)
	}
}

// Close disconnects every connected client.
func (m *EvictionStreamManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for conn, ch := range m.clients {
		close(ch)
		conn.Close()
		delete(m.clients, conn)
	}
	return nil
}

// HandleEvictionStream upgrades the connection and streams one JSON event
// per eviction until the client disconnects.
func (h *Handlers) HandleEvictionStream(manager *EvictionStreamManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("eviction stream: failed to upgrade connection: %v", err)
			return
		}
		defer conn.Close()

		events := manager.addClient(conn)
		defer manager.removeClient(conn)

		// Drain client-initiated control frames (pings, close) on their
		// own goroutine so a dead connection is noticed promptly.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.NextReader(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				if err := conn.WriteJSON(event); err != nil {
					log.Printf("eviction stream: failed to write event: %v", err)
					return
				}
			case <-closed:
				return
			}
		}
	}
}

// SetupEvictionStreamRoutes mounts the /_ws/evictions endpoint and wires
// the returned manager as the buffer pool's eviction listener, alongside
// recording each eviction into the handlers' metrics collector so
// `/_metrics` and the stream agree on the same eviction counts.
func SetupEvictionStreamRoutes(r chi.Router, h *Handlers, bpm *storage.BufferPoolManager) *EvictionStreamManager {
	manager := NewEvictionStreamManager()
	broadcast := manager.Listener()
	bpm.SetEvictionListener(func(frameID storage.FrameID, pageID storage.PageID, wasDirty bool) {
		if h.metrics != nil {
			h.metrics.RecordEviction(wasDirty)
		}
		broadcast(frameID, pageID, wasDirty)
	})
	r.Get("/_ws/evictions", h.HandleEvictionStream(manager))
	return manager
}
