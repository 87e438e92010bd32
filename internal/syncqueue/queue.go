// Package syncqueue holds client mutations that were made offline and
// replays them against the progress service with bounded retries.
package syncqueue

import (
	"context"
	"errors"
	"sync"
	"time"
)

type Kind string

const (
	KindToggleTask Kind = "toggle_task"
	KindUpdateTask Kind = "update_task"
)

var (
	ErrInvalidItem = errors.New("invalid sync item")
	// ErrCorruptItem is returned by Pop for an entry that was removed but
	// could not be decoded.
	ErrCorruptItem = errors.New("corrupt sync item")
)

// Item is one queued mutation. ClientID is assigned by the client so it can
// match replay results against its own outbox.
type Item struct {
	ClientID        string    `json:"client_id"`
	ClerkID         string    `json:"clerk_id"`
	Kind            Kind      `json:"kind"`
	Date            string    `json:"date"`
	TaskID          string    `json:"task_id"`
	Completed       *bool     `json:"completed,omitempty"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
	Attempts        int       `json:"attempts"`
	EnqueuedAt      time.Time `json:"enqueued_at"`
}

func (it Item) Validate() error {
	if it.ClerkID == "" || it.TaskID == "" {
		return ErrInvalidItem
	}
	switch it.Kind {
	case KindToggleTask:
		if it.Completed == nil {
			return ErrInvalidItem
		}
	case KindUpdateTask:
		if it.DurationMinutes == nil && it.Notes == nil {
			return ErrInvalidItem
		}
	default:
		return ErrInvalidItem
	}
	return nil
}

// Queue is a FIFO of pending items. Pop reports false when empty.
type Queue interface {
	Push(ctx context.Context, item Item) error
	Pop(ctx context.Context) (Item, bool, error)
	Len(ctx context.Context) (int, error)
	Pending(ctx context.Context, clerkID string) (int, error)
}

type MemoryQueue struct {
	mu    sync.Mutex
	items []Item
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Push(_ context.Context, item Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
	return nil
}

func (q *MemoryQueue) Pop(_ context.Context) (Item, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Item{}, false, nil
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true, nil
}

func (q *MemoryQueue) Len(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items), nil
}

func (q *MemoryQueue) Pending(_ context.Context, clerkID string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, it := range q.items {
		if it.ClerkID == clerkID {
			n++
		}
	}
	return n, nil
}
