// Package optimistic implements the apply-locally, confirm-remotely,
// roll-back-on-failure pattern used for task toggles.
package optimistic

import (
	"errors"
	"fmt"
	"sync"
)

// InFlight is a set of keys with a write outstanding. A second write for a
// key that is already in flight is refused, not queued.
type InFlight struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewInFlight() *InFlight {
	return &InFlight{keys: make(map[string]struct{})}
}

// Acquire claims key and reports whether the caller now owns it.
func (f *InFlight) Acquire(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, busy := f.keys[key]; busy {
		return false
	}
	f.keys[key] = struct{}{}
	return true
}

func (f *InFlight) Release(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
}

func (f *InFlight) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.keys)
}

type State string

const (
	Pending    State = "pending"
	Confirmed  State = "confirmed"
	RolledBack State = "rolled_back"
)

var ErrSettled = errors.New("mutation already settled")

// Mutation tracks one optimistic change of an entity of type T. It starts
// pending and settles exactly once, either confirmed or rolled back.
type Mutation[T any] struct {
	mu    sync.Mutex
	state State
	prev  T
	next  T
}

func Begin[T any](prev, next T) *Mutation[T] {
	return &Mutation[T]{state: Pending, prev: prev, next: next}
}

func (m *Mutation[T]) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current is the value the caller should display: next while pending or
// confirmed, prev after a rollback.
func (m *Mutation[T]) Current() T {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == RolledBack {
		return m.prev
	}
	return m.next
}

// Confirm settles with the server's version of the entity.
func (m *Mutation[T]) Confirm(server T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Pending {
		return fmt.Errorf("confirm %s mutation: %w", m.state, ErrSettled)
	}
	m.state = Confirmed
	m.next = server
	return nil
}

// Rollback settles as failed and returns the pre-mutation value.
func (m *Mutation[T]) Rollback() (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Pending {
		var zero T
		return zero, fmt.Errorf("rollback %s mutation: %w", m.state, ErrSettled)
	}
	m.state = RolledBack
	return m.prev, nil
}
