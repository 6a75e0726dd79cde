// Package notifier observes one video generation job until the backend
// reports it completed or failed, preferring the push channel and falling
// back to polling the status endpoint.
package notifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"woovideo/internal/domain"
)

var (
	ErrEmptyJobID        = errors.New("notifier: job id is required")
	ErrInvalidOwner      = errors.New("notifier: owner user id is required")
	ErrNilHandler        = errors.New("notifier: event handler is required")
	ErrAlreadySubscribed = errors.New("notifier: job already has an active subscription")
	ErrNoStatusFetcher   = errors.New("notifier: status fetcher is required")
)

// State is the lifecycle state of a subscription.
type State int

const (
	StateListening State = iota
	StatePolling
	StateDone
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StatePolling:
		return "polling"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Notifier creates subscriptions against one push channel and one status fetcher.
type Notifier struct {
	push   PushChannel
	pull   StatusFetcher
	clock  Clock
	policy Policy
	logger zerolog.Logger

	mu     sync.Mutex
	active map[string]*Subscription
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(n *Notifier) {
		if c != nil {
			n.clock = c
		}
	}
}

// WithPolicy replaces the default pull policy.
func WithPolicy(p Policy) Option {
	return func(n *Notifier) { n.policy = p.normalized() }
}

// WithLogger sets the logger used for transport diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(n *Notifier) { n.logger = l }
}

// New returns a Notifier. push may be nil, in which case subscriptions poll immediately.
func New(push PushChannel, pull StatusFetcher, opts ...Option) *Notifier {
	n := &Notifier{
		push:   push,
		pull:   pull,
		clock:  SystemClock,
		policy: DefaultPolicy(),
		logger: zerolog.Nop(),
		active: make(map[string]*Subscription),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Subscribe observes jobID for ownerUserID and calls onEvent at most once
// with the job's terminal event. onEvent runs on whichever goroutine
// observed the terminal status.
func (n *Notifier) Subscribe(jobID string, ownerUserID int64, onEvent func(domain.JobEvent)) (*Subscription, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, ErrEmptyJobID
	}
	if ownerUserID <= 0 {
		return nil, ErrInvalidOwner
	}
	if onEvent == nil {
		return nil, ErrNilHandler
	}
	if n.pull == nil {
		return nil, ErrNoStatusFetcher
	}

	n.mu.Lock()
	if _, ok := n.active[jobID]; ok {
		n.mu.Unlock()
		return nil, ErrAlreadySubscribed
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Subscription{
		n:       n,
		jobID:   jobID,
		owner:   ownerUserID,
		onEvent: onEvent,
		ctx:     ctx,
		cancel:  cancel,
		logger:  n.logger.With().Str("job_id", jobID).Int64("user_id", ownerUserID).Logger(),
	}
	n.active[jobID] = s
	n.mu.Unlock()

	s.start()
	return s, nil
}

// Active reports the number of subscriptions that have not reached Done.
func (n *Notifier) Active() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.active)
}

func (n *Notifier) release(s *Subscription) {
	n.mu.Lock()
	if n.active[s.jobID] == s {
		delete(n.active, s.jobID)
	}
	n.mu.Unlock()
}

// Subscription is one observed job. Cancel it when the caller loses interest.
type Subscription struct {
	n       *Notifier
	jobID   string
	owner   int64
	onEvent func(domain.JobEvent)
	ctx     context.Context
	cancel  context.CancelFunc
	logger  zerolog.Logger

	mu           sync.Mutex
	state        State
	delivered    bool
	invoking     bool
	cancelled    bool
	stream       Stream
	pollTimer    Timer
	graceTimer   Timer
	backoff      backoff.BackOff
	attempts     int
	pollingSince time.Time
}

// JobID returns the observed job.
func (s *Subscription) JobID() string { return s.jobID }

// State returns the current lifecycle state.
func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Attempts returns the number of pull requests issued so far.
func (s *Subscription) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Cancel closes the push channel and stops polling. No event is delivered
// once Cancel has returned, including a terminal event that was observed
// but not yet handed to onEvent. Calling Cancel more than once, or from
// inside onEvent, is a no-op.
func (s *Subscription) Cancel() {
	s.mu.Lock()
	if s.state == StateDone {
		if s.delivered && !s.invoking {
			s.cancelled = true
		}
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	closeStream := s.teardownLocked()
	s.mu.Unlock()
	closeStream()
	s.logger.Debug().Msg("notifier: subscription cancelled")
}

func (s *Subscription) start() {
	if s.n.push == nil {
		s.mu.Lock()
		stalled := s.beginPollingLocked()
		s.mu.Unlock()
		if stalled {
			s.stall()
		}
		return
	}

	stream, err := s.n.push.Open(s.ctx, s.owner, s.handleMessage, s.handlePushError)
	if err != nil {
		s.logger.Debug().Err(err).Msg("notifier: push channel unavailable, polling")
		s.mu.Lock()
		stalled := false
		if s.state == StateListening {
			stalled = s.beginPollingLocked()
		}
		s.mu.Unlock()
		if stalled {
			s.stall()
		}
		return
	}

	s.mu.Lock()
	if s.state == StateDone || s.state == StatePolling {
		// Finished or already fell back while Open was in flight.
		s.mu.Unlock()
		if stream != nil {
			_ = stream.Close()
		}
		return
	}
	s.stream = stream
	if grace := s.n.policy.PushGrace; grace > 0 {
		s.graceTimer = s.n.clock.AfterFunc(grace, s.graceExpired)
	}
	s.mu.Unlock()
	s.logger.Debug().Msg("notifier: listening on push channel")
}

func (s *Subscription) handleMessage(msg domain.JobMessage) {
	if msg.JobID != s.jobID {
		return
	}
	ev, ok := msg.Event()
	if !ok {
		return
	}
	s.deliver(ev, "push")
}

func (s *Subscription) handlePushError(err error) {
	s.mu.Lock()
	if s.state == StateDone {
		s.mu.Unlock()
		return
	}
	stream := s.stream
	s.stream = nil
	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}
	stalled := false
	if s.state == StateListening {
		stalled = s.beginPollingLocked()
	}
	s.mu.Unlock()

	if stream != nil {
		_ = stream.Close()
	}
	s.logger.Debug().Err(err).Msg("notifier: push channel closed, falling back to polling")
	if stalled {
		s.stall()
	}
}

// graceExpired checks the status of a job whose push channel stayed silent.
// The grace period stands in for the first poll delay, so later polls follow
// the regular schedule. The push channel stays open meanwhile.
func (s *Subscription) graceExpired() {
	s.mu.Lock()
	s.graceTimer = nil
	if s.state != StateListening {
		s.mu.Unlock()
		return
	}
	s.state = StatePolling
	s.pollingSince = s.n.clock.Now()
	s.backoff = s.n.policy.BackOff()
	exhausted := s.backoff.NextBackOff() == backoff.Stop
	s.mu.Unlock()

	s.logger.Debug().Msg("notifier: push channel silent, checking status")
	if exhausted {
		s.stall()
		return
	}
	s.poll()
}

// beginPollingLocked moves to Polling and schedules the first attempt. It
// reports true when the policy allows no attempt at all.
func (s *Subscription) beginPollingLocked() bool {
	s.state = StatePolling
	s.pollingSince = s.n.clock.Now()
	s.backoff = s.n.policy.BackOff()
	return !s.scheduleLocked()
}

func (s *Subscription) scheduleLocked() bool {
	delay := s.backoff.NextBackOff()
	if delay == backoff.Stop {
		return false
	}
	if maxWait := s.n.policy.MaxWait; maxWait > 0 {
		if s.n.clock.Now().Sub(s.pollingSince)+delay > maxWait {
			return false
		}
	}
	s.pollTimer = s.n.clock.AfterFunc(delay, s.poll)
	return true
}

func (s *Subscription) poll() {
	s.mu.Lock()
	if s.state != StatePolling {
		s.mu.Unlock()
		return
	}
	s.pollTimer = nil
	s.attempts++
	attempt := s.attempts
	ctx := s.ctx
	s.mu.Unlock()

	report, err := s.n.pull.FetchStatus(ctx, s.jobID, s.owner)

	s.mu.Lock()
	if s.state != StatePolling {
		// Cancelled or delivered by push while the request was in flight.
		s.mu.Unlock()
		return
	}
	if err == nil {
		if ev, ok := report.Event(s.jobID); ok {
			s.mu.Unlock()
			s.deliver(ev, "pull")
			return
		}
	}
	scheduled := s.scheduleLocked()
	s.mu.Unlock()

	if err != nil {
		s.logger.Debug().Err(err).Int("attempt", attempt).Msg("notifier: status request failed, retrying")
	}
	if !scheduled {
		s.stall()
	}
}

func (s *Subscription) stall() {
	s.mu.Lock()
	attempts := s.attempts
	s.mu.Unlock()
	s.deliver(domain.JobEvent{
		Kind:     domain.EventVideoStalled,
		JobID:    s.jobID,
		Attempts: attempts,
	}, "policy")
}

// deliver claims the delivered flag and hands ev to the caller exactly once.
// A Cancel that lands while the stream is being closed wins over delivery.
func (s *Subscription) deliver(ev domain.JobEvent, source string) {
	s.mu.Lock()
	if s.delivered || s.state == StateDone {
		s.mu.Unlock()
		return
	}
	s.delivered = true
	closeStream := s.teardownLocked()
	s.mu.Unlock()

	closeStream()

	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		s.logger.Debug().Str("kind", string(ev.Kind)).Msg("notifier: terminal event discarded after cancel")
		return
	}
	s.invoking = true
	s.mu.Unlock()

	s.logger.Debug().Str("kind", string(ev.Kind)).Str("source", source).Msg("notifier: terminal event")
	s.onEvent(ev)
}

// teardownLocked moves to Done and stops timers. The returned func closes
// the push stream and must run without s.mu held.
func (s *Subscription) teardownLocked() func() {
	s.state = StateDone
	if s.pollTimer != nil {
		s.pollTimer.Stop()
		s.pollTimer = nil
	}
	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}
	s.cancel()
	s.n.release(s)
	stream := s.stream
	s.stream = nil
	return func() {
		if stream != nil {
			_ = stream.Close()
		}
	}
}
