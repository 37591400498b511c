// Package wsview implements the live-viewer websocket feed: one Hub per
// camera, generalized from the teacher's single global HubService
// (internal/services/websocket.HubService) register/unregister/broadcast
// loop.
package wsview

import (
	"sync"
	"time"

	"sentrycore/internal/buffer"
	"sentrycore/internal/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// pushInterval is the modest live-feed rate mentioned in SPEC_FULL.md §6.
const pushInterval = 500 * time.Millisecond

// Hub fans the latest JPEG-encoded frame for one camera out to its
// connected viewers.
type Hub struct {
	cameraID string
	ring     *buffer.RingBuffer
	log      *logger.Logger

	clients    map[string]*websocket.Conn
	register   chan *websocket.Conn
	unregister chan string
	stop       chan struct{}
	mutex      sync.RWMutex

	encode func(*buffer.RingBuffer) ([]byte, error)
}

// NewHub builds a Hub for one camera. encode produces the JPEG bytes to
// push each tick; passed in rather than imported to keep this package free
// of a gocv dependency (internal/app supplies its gocv JPEG encoder).
func NewHub(cameraID string, ring *buffer.RingBuffer, encode func(*buffer.RingBuffer) ([]byte, error), log *logger.Logger) *Hub {
	return &Hub{
		cameraID:   cameraID,
		ring:       ring,
		log:        log,
		clients:    make(map[string]*websocket.Conn),
		register:   make(chan *websocket.Conn),
		unregister: make(chan string),
		stop:       make(chan struct{}),
		encode:     encode,
	}
}

// Run drives the register/unregister/broadcast loop until Stop is called.
func (h *Hub) Run() {
	ticker := time.NewTicker(pushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			h.mutex.Lock()
			for id, c := range h.clients {
				c.Close()
				delete(h.clients, id)
			}
			h.mutex.Unlock()
			return

		case conn := <-h.register:
			id := uuid.NewString()
			h.mutex.Lock()
			h.clients[id] = conn
			h.mutex.Unlock()
			h.log.Info("wsview[%s]: viewer %s connected, total %d", h.cameraID, id, h.ClientCount())

		case id := <-h.unregister:
			h.mutex.Lock()
			if c, ok := h.clients[id]; ok {
				c.Close()
				delete(h.clients, id)
			}
			h.mutex.Unlock()
			h.log.Info("wsview[%s]: viewer %s disconnected, total %d", h.cameraID, id, h.ClientCount())

		case <-ticker.C:
			h.broadcastLatest()
		}
	}
}

func (h *Hub) broadcastLatest() {
	h.mutex.RLock()
	empty := len(h.clients) == 0
	h.mutex.RUnlock()
	if empty {
		return
	}

	payload, err := h.encode(h.ring)
	if err != nil {
		return
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()
	for id, c := range h.clients {
		if err := c.WriteMessage(websocket.BinaryMessage, payload); err != nil {
			h.log.Warning("wsview[%s]: write to viewer %s failed: %v", h.cameraID, id, err)
		}
	}
}

// Register enrolls a new viewer connection.
func (h *Hub) Register(conn *websocket.Conn) { h.register <- conn }

// UnregisterByConn removes a viewer connection, looking it up by pointer
// since callers only hold the *websocket.Conn, not its generated ID.
func (h *Hub) UnregisterByConn(conn *websocket.Conn) {
	h.mutex.RLock()
	var id string
	for cid, c := range h.clients {
		if c == conn {
			id = cid
			break
		}
	}
	h.mutex.RUnlock()
	if id != "" {
		h.unregister <- id
	}
}

// ClientCount reports the current viewer count.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Stop shuts the hub down and closes all connections.
func (h *Hub) Stop() { close(h.stop) }
