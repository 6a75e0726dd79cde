package notifier

import (
	"context"
	"time"

	"woovideo/internal/domain"
)

// Stream is an open push channel.
type Stream interface {
	Close() error
}

// PushChannel opens a server-to-client event stream scoped to one owner.
//
// Implementations call onMessage for every decoded message and call onError
// at most once when the stream ends for any reason other than Close,
// including a clean end of stream or a malformed job message.
type PushChannel interface {
	Open(ctx context.Context, ownerUserID int64, onMessage func(domain.JobMessage), onError func(error)) (Stream, error)
}

// StatusFetcher queries the current status of one job.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, jobID string, ownerUserID int64) (domain.StatusReport, error)
}

// Timer is a scheduled callback.
type Timer interface {
	Stop() bool
}

// Clock abstracts time so the state machine can be driven by tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}
