package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"woovideo/internal/domain"
	"woovideo/internal/notifier"
	"woovideo/internal/sse"
)

// ErrStreamEnded is reported when the server closes a push stream.
var ErrStreamEnded = errors.New("client: event stream ended")

// ErrMalformedMessage is reported for a job message that cannot be decoded.
var ErrMalformedMessage = errors.New("client: malformed job message")

// decodeJobMessage parses one push payload. Payloads announcing a job event
// must decode cleanly; anything else is passed through for the caller to ignore.
func decodeJobMessage(eventName string, data []byte) (domain.JobMessage, error) {
	var msg domain.JobMessage
	err := json.Unmarshal(data, &msg)
	if msg.Type == "" {
		msg.Type = domain.EventKind(eventName)
	}
	isJob := strings.HasPrefix(string(msg.Type), "video_")
	if err != nil {
		if isJob || strings.HasPrefix(eventName, "video_") {
			return domain.JobMessage{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		return msg, nil
	}
	if isJob && msg.JobID == "" {
		return domain.JobMessage{}, fmt.Errorf("%w: missing job_id", ErrMalformedMessage)
	}
	return msg, nil
}

// EventStream is the server-sent events push channel.
type EventStream struct {
	client *Client
}

// Events returns the SSE push channel of c.
func (c *Client) Events() *EventStream {
	return &EventStream{client: c}
}

// Open connects to /api/events. It returns an error when the server refuses
// the stream so callers can fall back right away.
func (e *EventStream) Open(ctx context.Context, _ int64, onMessage func(domain.JobMessage), onError func(error)) (notifier.Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	req, err := e.client.newRequest(ctx, http.MethodGet, "/api/events", nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", sse.ContentType)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := e.client.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("client: open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		cancel()
		return nil, decodeAPIError(resp)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, sse.ContentType) {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("client: unexpected content type %q", ct)
	}

	s := &pushStream{cancel: cancel, body: resp.Body}
	go s.readSSE(resp.Body, onMessage, onError)
	return s, nil
}

// pushStream is one open push connection shared by both transports.
type pushStream struct {
	cancel context.CancelFunc
	body   io.Closer

	once   sync.Once
	mu     sync.Mutex
	closed bool
}

// Close stops the stream without waiting for the reader, so it is safe to
// call from inside a callback.
func (s *pushStream) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.cancel()
		_ = s.body.Close()
	})
	return nil
}

func (s *pushStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fail reports err unless the stream was closed by its owner.
func (s *pushStream) fail(onError func(error), err error) {
	if s.isClosed() {
		return
	}
	_ = s.Close()
	if onError != nil {
		onError(err)
	}
}

func (s *pushStream) readSSE(r io.Reader, onMessage func(domain.JobMessage), onError func(error)) {
	dec := sse.NewDecoder(r)
	for {
		frame, err := dec.Decode()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = ErrStreamEnded
			}
			s.fail(onError, err)
			return
		}
		msg, err := decodeJobMessage(frame.Event, []byte(frame.Data))
		if err != nil {
			s.fail(onError, err)
			return
		}
		if s.isClosed() {
			return
		}
		onMessage(msg)
	}
}

var _ notifier.PushChannel = (*EventStream)(nil)
