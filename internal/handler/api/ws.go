package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/ingl3585/xgb-model/internal/domain/models"
	"github.com/ingl3585/xgb-model/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	clientBuffer   = 32
	broadcastQueue = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// admin surface, same-origin policy enforced upstream
	CheckOrigin: func(r *http.Request) bool { return true },
}

// DecisionHub fans live decision events out to websocket subscribers. It
// doubles as an audit sink so it can sit in the fanout next to the
// durable backend.
type DecisionHub struct {
	log *logger.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}

	events chan *models.DecisionEvent
	done   chan struct{}
	once   sync.Once
}

type wsClient struct {
	conn *websocket.Conn
	send chan *models.DecisionEvent
}

// NewDecisionHub builds the hub; Run must be started for delivery.
func NewDecisionHub(log *logger.Logger) *DecisionHub {
	return &DecisionHub{
		log:     log,
		clients: make(map[*wsClient]struct{}),
		events:  make(chan *models.DecisionEvent, broadcastQueue),
		done:    make(chan struct{}),
	}
}

// Run dispatches events to subscribers until ctx is canceled.
func (h *DecisionHub) Run(ctx context.Context) {
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case ev := <-h.events:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- ev:
				default:
					// slow consumer, drop it rather than stall the hub
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Record queues an event for broadcast; it never blocks the session.
func (h *DecisionHub) Record(_ context.Context, event *models.DecisionEvent) error {
	select {
	case h.events <- event:
	default:
		h.log.Debug("decision broadcast queue full, dropping event")
	}
	return nil
}

// Close stops the dispatcher and disconnects all subscribers.
func (h *DecisionHub) Close() error {
	h.once.Do(func() { close(h.done) })
	return nil
}

// Serve upgrades the request and streams decision events until the peer
// goes away.
func (h *DecisionHub) Serve(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &wsClient{conn: conn, send: make(chan *models.DecisionEvent, clientBuffer)}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(client)
	h.readLoop(client)
	return nil
}

func (h *DecisionHub) writeLoop(c *wsClient) {
	for ev := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(ev); err != nil {
			h.log.Debug("websocket write failed", logger.Error(err))
			break
		}
	}
	_ = c.conn.Close()
}

// readLoop discards inbound frames; its exit signals disconnect.
func (h *DecisionHub) readLoop(c *wsClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(c)
}

func (h *DecisionHub) drop(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *DecisionHub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		_ = c.conn.Close()
	}
	h.mu.Unlock()
}
