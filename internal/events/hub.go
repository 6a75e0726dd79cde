// Package events fans job events out to the push-channel connections of
// their owners.
package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"woovideo/internal/domain"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 16

// ErrHubClosed is returned by Publish after Close.
var ErrHubClosed = errors.New("events: hub closed")

// Publisher announces a job message to its owner's push channels.
type Publisher interface {
	Publish(ctx context.Context, msg domain.JobMessage) error
}

// Subscriber is one open push-channel connection.
type Subscriber struct {
	UserID int64

	ch   chan domain.JobMessage
	hub  *Hub
	once sync.Once
}

// C delivers messages for the subscriber's user. It is closed when the
// subscriber or the hub is closed.
func (s *Subscriber) C() <-chan domain.JobMessage { return s.ch }

// Close detaches the subscriber from the hub.
func (s *Subscriber) Close() {
	s.hub.remove(s)
}

// Hub keeps the open connections of every user.
type Hub struct {
	logger zerolog.Logger
	buffer int

	mu     sync.RWMutex
	subs   map[int64]map[*Subscriber]struct{}
	closed bool

	dropped atomic.Int64
}

// NewHub returns an empty hub. buffer <= 0 selects DefaultBuffer.
func NewHub(logger zerolog.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		logger: logger,
		buffer: buffer,
		subs:   make(map[int64]map[*Subscriber]struct{}),
	}
}

// Subscribe registers a connection for userID.
func (h *Hub) Subscribe(userID int64) *Subscriber {
	s := &Subscriber{UserID: userID, ch: make(chan domain.JobMessage, h.buffer), hub: h}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.once.Do(func() { close(s.ch) })
		return s
	}
	set, ok := h.subs[userID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.subs[userID] = set
	}
	set[s] = struct{}{}
	return s
}

func (h *Hub) remove(s *Subscriber) {
	h.mu.Lock()
	if set, ok := h.subs[s.UserID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.UserID)
		}
	}
	h.mu.Unlock()
	s.once.Do(func() { close(s.ch) })
}

// Publish dispatches msg in-process.
func (h *Hub) Publish(_ context.Context, msg domain.JobMessage) error {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return ErrHubClosed
	}
	h.Dispatch(msg)
	return nil
}

// Dispatch delivers msg to every connection of msg.UserID without blocking
// and returns the number of connections reached. Full queues drop the message.
func (h *Hub) Dispatch(msg domain.JobMessage) int {
	if msg.UserID <= 0 {
		h.logger.Warn().Str("job_id", msg.JobID).Msg("events: message without owner dropped")
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for s := range h.subs[msg.UserID] {
		select {
		case s.ch <- msg:
			delivered++
		default:
			h.dropped.Add(1)
			h.logger.Warn().Int64("user_id", msg.UserID).Str("job_id", msg.JobID).Msg("events: subscriber queue full, message dropped")
		}
	}
	return delivered
}

// Subscribers returns the number of open connections for userID.
func (h *Hub) Subscribers(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// Connections returns the number of open connections across all users.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.subs {
		n += len(set)
	}
	return n
}

// Dropped returns the number of messages discarded for slow subscribers.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// Closed reports whether Close has been called.
func (h *Hub) Closed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := h.subs
	h.subs = make(map[int64]map[*Subscriber]struct{})
	h.mu.Unlock()
	for _, set := range subs {
		for s := range set {
			s.once.Do(func() { close(s.ch) })
		}
	}
}

var _ Publisher = (*Hub)(nil)
