package notifier

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultInitialDelay = 5 * time.Second
	DefaultDelayStep    = 5 * time.Second
	DefaultMaxDelay     = 60 * time.Second
)

// Policy controls the pull loop.
//
// MaxAttempts and MaxWait are zero by default, which keeps polling until a
// terminal status or cancellation. When either bound is reached the
// subscription ends with a single EventVideoStalled event.
//
// PushGrace bounds how long an open but silent push channel is trusted. When
// it expires the status is checked at once and polling continues on the
// regular schedule while the push channel stays open. Zero selects
// InitialDelay; a negative value waits on the push channel indefinitely.
type Policy struct {
	InitialDelay time.Duration
	DelayStep    time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
	MaxWait      time.Duration
	PushGrace    time.Duration
}

// DefaultPolicy polls after 5s, 10s, 15s ... capped at 60s, without limit.
func DefaultPolicy() Policy {
	return Policy{
		InitialDelay: DefaultInitialDelay,
		DelayStep:    DefaultDelayStep,
		MaxDelay:     DefaultMaxDelay,
		PushGrace:    DefaultInitialDelay,
	}
}

func (p Policy) normalized() Policy {
	if p.InitialDelay <= 0 {
		p.InitialDelay = DefaultInitialDelay
	}
	if p.DelayStep <= 0 {
		p.DelayStep = DefaultDelayStep
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.MaxAttempts < 0 {
		p.MaxAttempts = 0
	}
	if p.PushGrace == 0 {
		p.PushGrace = p.InitialDelay
	}
	return p
}

// BackOff returns a fresh delay schedule for one pull loop.
func (p Policy) BackOff() backoff.BackOff {
	p = p.normalized()
	var b backoff.BackOff = &LinearBackOff{
		Initial: p.InitialDelay,
		Step:    p.DelayStep,
		Max:     p.MaxDelay,
	}
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts))
	}
	return b
}

// LinearBackOff grows the delay by Step after every call, capped at Max.
type LinearBackOff struct {
	Initial time.Duration
	Step    time.Duration
	Max     time.Duration

	current time.Duration
	started bool
}

// NextBackOff returns the delay before the next attempt.
func (b *LinearBackOff) NextBackOff() time.Duration {
	if !b.started {
		b.started = true
		b.current = b.Initial
	} else {
		b.current += b.Step
	}
	if b.Max > 0 && b.current > b.Max {
		b.current = b.Max
	}
	return b.current
}

// Reset restarts the schedule at Initial.
func (b *LinearBackOff) Reset() {
	b.started = false
	b.current = 0
}

var _ backoff.BackOff = (*LinearBackOff)(nil)
