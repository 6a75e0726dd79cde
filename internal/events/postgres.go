package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"woovideo/internal/domain"
	"woovideo/internal/infra"
	"woovideo/internal/sqlinline"
)

// Channel is the Postgres NOTIFY channel carrying job messages.
const Channel = "video_events"

// PGPublisher publishes messages with pg_notify so every API instance sees them.
type PGPublisher struct {
	sql     infra.SQLExecutor
	channel string
}

// NewPGPublisher returns a publisher on Channel.
func NewPGPublisher(sql infra.SQLExecutor) *PGPublisher {
	return &PGPublisher{sql: sql, channel: Channel}
}

// Publish sends msg through pg_notify.
func (p *PGPublisher) Publish(ctx context.Context, msg domain.JobMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("events: encode message: %w", err)
	}
	if _, err := p.sql.Exec(ctx, sqlinline.QNotifyVideoEvent, p.channel, string(raw)); err != nil {
		return fmt.Errorf("events: notify: %w", err)
	}
	return nil
}

// Dispatcher receives decoded messages from the listener.
type Dispatcher interface {
	Dispatch(msg domain.JobMessage) int
}

// PGListener forwards NOTIFY payloads from Postgres to a Dispatcher.
type PGListener struct {
	dsn          string
	channel      string
	target       Dispatcher
	logger       zerolog.Logger
	minReconnect time.Duration
	maxReconnect time.Duration
	pingInterval time.Duration
}

// NewPGListener returns a listener on Channel.
func NewPGListener(dsn string, target Dispatcher, logger zerolog.Logger) *PGListener {
	return &PGListener{
		dsn:          dsn,
		channel:      Channel,
		target:       target,
		logger:       logger,
		minReconnect: 2 * time.Second,
		maxReconnect: time.Minute,
		pingInterval: 90 * time.Second,
	}
}

// Run listens until ctx is cancelled. lib/pq reconnects on its own; a nil
// notification marks a reconnect, after which messages may have been missed
// and clients recover them through the status endpoint.
func (l *PGListener) Run(ctx context.Context) error {
	listener := pq.NewListener(l.dsn, l.minReconnect, l.maxReconnect, l.onEvent)
	defer listener.Close()

	if err := listener.Listen(l.channel); err != nil {
		return fmt.Errorf("events: listen %s: %w", l.channel, err)
	}
	l.logger.Info().Str("channel", l.channel).Msg("events: listening")

	ping := time.NewTicker(l.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			if n == nil {
				l.logger.Warn().Msg("events: listener reconnected")
				continue
			}
			if err := l.Forward(n.Extra); err != nil {
				l.logger.Warn().Err(err).Msg("events: dropping notification")
			}
		case <-ping.C:
			go func() {
				if err := listener.Ping(); err != nil {
					l.logger.Debug().Err(err).Msg("events: listener ping failed")
				}
			}()
		}
	}
}

// Forward decodes one payload and dispatches it.
func (l *PGListener) Forward(payload string) error {
	var msg domain.JobMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return fmt.Errorf("events: decode payload: %w", err)
	}
	if msg.Type == "" || msg.JobID == "" {
		return fmt.Errorf("events: incomplete payload")
	}
	delivered := l.target.Dispatch(msg)
	l.logger.Debug().Str("job_id", msg.JobID).Str("type", string(msg.Type)).Int("delivered", delivered).Msg("events: dispatched")
	return nil
}

func (l *PGListener) onEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnected:
		l.logger.Debug().Msg("events: listener connected")
	case pq.ListenerEventDisconnected:
		l.logger.Warn().Err(err).Msg("events: listener disconnected")
	case pq.ListenerEventReconnected:
		l.logger.Info().Msg("events: listener reconnected")
	case pq.ListenerEventConnectionAttemptFailed:
		l.logger.Warn().Err(err).Msg("events: listener connection attempt failed")
	}
}
