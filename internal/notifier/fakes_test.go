package notifier

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"woovideo/internal/domain"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward, firing due timers in order on the calling goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.fired || t.stopped || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.at
		next.fired = true
		c.mu.Unlock()
		next.f()
	}
}

// Pending returns the remaining delay of every armed timer.
func (c *fakeClock) Pending() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []time.Duration
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			out = append(out, t.at.Sub(c.now))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type fakePush struct {
	mu        sync.Mutex
	openErr   error
	opened    int
	closed    int
	onMessage func(domain.JobMessage)
	onError   func(error)

	// closing is signalled when Close starts; Close then waits for closeGate.
	closing   chan struct{}
	closeGate chan struct{}
}

type fakeStream struct{ push *fakePush }

func (s fakeStream) Close() error {
	s.push.mu.Lock()
	s.push.closed++
	closing, gate := s.push.closing, s.push.closeGate
	s.push.mu.Unlock()
	if closing != nil {
		closing <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return nil
}

func (p *fakePush) Open(_ context.Context, _ int64, onMessage func(domain.JobMessage), onError func(error)) (Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.openErr != nil {
		return nil, p.openErr
	}
	p.opened++
	p.onMessage = onMessage
	p.onError = onError
	return fakeStream{push: p}, nil
}

func (p *fakePush) emit(msg domain.JobMessage) {
	p.mu.Lock()
	fn := p.onMessage
	p.mu.Unlock()
	fn(msg)
}

func (p *fakePush) fail(err error) {
	p.mu.Lock()
	fn := p.onError
	p.mu.Unlock()
	fn(err)
}

func (p *fakePush) closes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type fetchResult struct {
	report domain.StatusReport
	err    error
}

type fakeFetcher struct {
	mu       sync.Mutex
	clock    *fakeClock
	script   []fetchResult
	fallback fetchResult
	calls    []time.Time
	ctxs     []context.Context
	block    chan struct{}
	started  chan struct{}
}

func (f *fakeFetcher) FetchStatus(ctx context.Context, jobID string, owner int64) (domain.StatusReport, error) {
	f.mu.Lock()
	f.calls = append(f.calls, f.clock.Now())
	f.ctxs = append(f.ctxs, ctx)
	res := f.fallback
	if len(f.script) > 0 {
		res = f.script[0]
		f.script = f.script[1:]
	}
	block, started := f.block, f.started
	f.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return res.report, res.err
}

func (f *fakeFetcher) callTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.calls...)
}

type recorder struct {
	mu     sync.Mutex
	events []domain.JobEvent
}

func (r *recorder) handle(ev domain.JobEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) all() []domain.JobEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.JobEvent(nil), r.events...)
}

var errStreamReset = errors.New("stream reset")

func pending() fetchResult {
	return fetchResult{report: domain.StatusReport{Status: domain.JobStatusPending}}
}

func completed(videoURL string, balance, deducted int64) fetchResult {
	return fetchResult{report: domain.StatusReport{
		Status:         domain.JobStatusCompleted,
		VideoURL:       videoURL,
		NewBalance:     &balance,
		PointsDeducted: deducted,
	}}
}
