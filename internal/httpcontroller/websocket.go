package httpcontroller

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/jtoivola/fretwatch-go/internal/myaudio"
	"github.com/jtoivola/fretwatch-go/internal/observability"
)

const levelWriteTimeout = time.Second

// levelMessage is the JSON frame pushed to websocket clients.
type levelMessage struct {
	Level    int  `json:"level"`
	Clipping bool `json:"clipping"`
}

// LevelHub pushes audio level updates to websocket clients.
type LevelHub struct {
	levelChan <-chan myaudio.AudioLevelData
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	mu        sync.Mutex
	metrics   *observability.Metrics
}

// NewLevelHub creates a hub reading from levelChan. A nil channel yields a
// hub that accepts connections but never sends. metrics may be nil.
func NewLevelHub(levelChan <-chan myaudio.AudioLevelData, m *observability.Metrics) *LevelHub {
	return &LevelHub{
		levelChan: levelChan,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]bool),
		metrics: m,
	}
}

// Start launches the pump that forwards level updates until quitChan closes.
func (h *LevelHub) Start(wg *sync.WaitGroup, quitChan <-chan struct{}) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-quitChan:
				h.closeAll()
				return
			case level, open := <-h.levelChan:
				if !open {
					h.closeAll()
					return
				}
				h.broadcast(levelMessage{Level: level.Level, Clipping: level.Clipping})
			}
		}
	}()
}

func (h *LevelHub) broadcast(msg levelMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(levelWriteTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			h.dropLocked(conn)
		}
	}
}

func (h *LevelHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		h.dropLocked(conn)
	}
}

// dropLocked removes and closes a connection. Caller holds h.mu.
func (h *LevelHub) dropLocked(conn *websocket.Conn) {
	if _, ok := h.clients[conn]; !ok {
		return
	}
	delete(h.clients, conn)
	conn.Close()
	if h.metrics != nil {
		h.metrics.HTTP.AddWSClient(-1)
	}
}

func (h *LevelHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[conn] = true
	if h.metrics != nil {
		h.metrics.HTTP.AddWSClient(1)
	}
}

func (h *LevelHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(conn)
}

// ClientCount returns the number of connected websocket clients.
func (h *LevelHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// serveLevelSocket upgrades the connection and streams audio levels until
// the client disconnects.
// API: GET /ws/levels
func (s *Server) serveLevelSocket(c echo.Context) error {
	conn, err := s.Levels.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	s.Levels.add(conn)

	// Reads only serve to detect disconnection; clients send nothing.
	go func() {
		defer s.Levels.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return nil
}
