// Package realtime fans community progress events out to websocket
// subscribers.
//
// The Hub owns the subscriber set. Connections are not added directly: they
// go through the register channel and Run adds them one at a time, and
// unregister does the opposite. Publish puts an event on the broadcast
// channel and Run writes it to every subscriber's send buffer.
package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"goTheNineAPI/internal/metrics"
	"goTheNineAPI/pkg/logger"
)

const EventProgressUpdated = "progress_updated"

type Event struct {
	Type           string    `json:"type"`
	UserID         uuid.UUID `json:"user_id"`
	DisplayName    string    `json:"display_name"`
	AvatarURL      *string   `json:"avatar_url,omitempty"`
	Date           string    `json:"date"`
	DayNumber      int       `json:"day_number"`
	TasksCompleted int       `json:"tasks_completed"`
	IsComplete     bool      `json:"is_complete"`
	At             time.Time `json:"at"`
}

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	count      chan chan int
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		count:      make(chan chan int),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is done, then closes every subscriber.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for c := range h.clients {
			close(c.send)
			delete(h.clients, c)
		}
		metrics.RealtimeSubscribers.Set(0)
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c] = true
			metrics.RealtimeSubscribers.Set(float64(len(h.clients)))
			logger.Log.Debug("Realtime subscriber connected", zap.String("clerk_id", c.clerkID), zap.Int("count", len(h.clients)))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				metrics.RealtimeSubscribers.Set(float64(len(h.clients)))
			}

		case reply := <-h.count:
			reply <- len(h.clients)

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// slow subscriber
					close(c.send)
					delete(h.clients, c)
				}
			}
			metrics.RealtimeSubscribers.Set(float64(len(h.clients)))
		}
	}
}

// Publish queues ev for every subscriber. It never blocks the caller: when
// the broadcast buffer is full the event is dropped.
func (h *Hub) Publish(ev Event) {
	if ev.Type == "" {
		ev.Type = EventProgressUpdated
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		logger.Log.Error("Failed to encode realtime event", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
		logger.Log.Warn("Realtime broadcast buffer full, dropping event", zap.String("user_id", ev.UserID.String()))
	}
}

// Subscribers returns the current subscriber count, or 0 once stopped.
func (h *Hub) Subscribers() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}
