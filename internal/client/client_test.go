package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"woovideo/internal/domain"
	"woovideo/internal/notifier"
	"woovideo/internal/sse"
)

const testToken = "token-1"

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(Options{BaseURL: srv.URL + "/", Token: testToken, RequestTimeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return c
}

func authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+testToken
}

func TestNewValidatesBaseURL(t *testing.T) {
	for _, base := range []string{"", "localhost:8080", "ftp://api.test"} {
		if _, err := New(Options{BaseURL: base}); err == nil {
			t.Fatalf("expected error for %q", base)
		}
	}
}

func TestMeAndAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/api/me":
			_, _ = w.Write([]byte(`{"id":7,"email":"owner@shop.test","points_balance":120}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":"not_found","message":"job not found"}}`))
		}
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	me, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("Me error: %v", err)
	}
	if me.ID != 7 || me.PointsBalance != 120 {
		t.Fatalf("unexpected me: %#v", me)
	}

	_, err = c.FetchStatus(context.Background(), "job-x", 7)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "not_found" || apiErr.Message != "job not found" {
		t.Fatalf("unexpected api error: %#v", err)
	}
}

func TestGenerateVideo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/videos/generate" || !authorized(r) {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req GenerateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.ProductName == "Insufficient" {
			w.WriteHeader(http.StatusPaymentRequired)
			_, _ = w.Write([]byte(`{"error":{"code":"insufficient_points","message":"not enough"}}`))
			return
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"job_id":"job-42","status":"pending","points_cost":10}`))
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	res, err := c.GenerateVideo(context.Background(), GenerateRequest{ProductName: "Mug"})
	if err != nil {
		t.Fatalf("GenerateVideo error: %v", err)
	}
	if res.JobID != "job-42" || res.Status != domain.JobStatusPending || res.PointsCost != 10 {
		t.Fatalf("unexpected result: %#v", res)
	}

	_, err = c.GenerateVideo(context.Background(), GenerateRequest{ProductName: "Insufficient"})
	if !errors.Is(err, domain.ErrInsufficientPoints) {
		t.Fatalf("expected ErrInsufficientPoints, got %v", err)
	}
}

// fakeAPI serves an event stream fed by the test and a scripted status endpoint.
type fakeAPI struct {
	frames       chan sse.Frame
	refuseStream bool
	statuses     []string
	statusCalls  atomic.Int32
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	switch {
	case r.URL.Path == "/api/events":
		if f.refuseStream {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		enc, err := sse.NewEncoder(w)
		if err != nil {
			return
		}
		_ = enc.Encode(sse.Frame{Event: "connected", Data: `{"type":"connected","user_id":7}`})
		for {
			select {
			case <-r.Context().Done():
				return
			case frame, ok := <-f.frames:
				if !ok {
					return
				}
				_ = enc.Encode(frame)
			}
		}
	case strings.HasPrefix(r.URL.Path, "/api/videos/status/"):
		n := int(f.statusCalls.Add(1)) - 1
		body := f.statuses[len(f.statuses)-1]
		if n < len(f.statuses) {
			body = f.statuses[n]
		}
		_, _ = w.Write([]byte(body))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func waitEvent(t *testing.T, events <-chan domain.JobEvent) domain.JobEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return domain.JobEvent{}
	}
}

func TestNotifierCompletesOverEventStream(t *testing.T) {
	api := &fakeAPI{frames: make(chan sse.Frame, 4), statuses: []string{`{"status":"pending"}`}}
	srv := httptest.NewServer(api)
	defer srv.Close()
	defer close(api.frames)
	c := newTestClient(t, srv)

	events := make(chan domain.JobEvent, 2)
	n := notifier.New(c.Events(), c, notifier.WithPolicy(notifier.Policy{PushGrace: time.Minute}))
	sub, err := n.Subscribe("job-42", 7, func(ev domain.JobEvent) { events <- ev })
	if err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	defer sub.Cancel()

	api.frames <- sse.Frame{Event: "video_completed", Data: `{"type":"video_completed","job_id":"job-other","video_url":"https://x/o.mp4"}`}
	api.frames <- sse.Frame{Event: "video_completed", ID: "job-42", Data: `{"type":"video_completed","job_id":"job-42","video_id":"job-42","video_url":"https://x/v.mp4","new_balance":90,"points_deducted":10}`}

	ev := waitEvent(t, events)
	if !ev.Completed() || ev.VideoURL != "https://x/v.mp4" || *ev.NewBalance != 90 || ev.PointsDeducted != 10 {
		t.Fatalf("unexpected event: %#v", ev)
	}
	if calls := api.statusCalls.Load(); calls != 0 {
		t.Fatalf("status polled %d times while push was healthy", calls)
	}
	if sub.State() != notifier.StateDone {
		t.Fatalf("state = %s", sub.State())
	}
}

func TestNotifierFallsBackWhenStreamRefused(t *testing.T) {
	api := &fakeAPI{
		refuseStream: true,
		statuses: []string{
			`{"status":"pending"}`,
			`{"status":"failed","video_id":"job-9","message":"render crashed","new_balance":100}`,
		},
	}
	srv := httptest.NewServer(api)
	defer srv.Close()
	c := newTestClient(t, srv)

	events := make(chan domain.JobEvent, 2)
	n := notifier.New(c.Events(), c, notifier.WithPolicy(notifier.Policy{
		InitialDelay: 10 * time.Millisecond,
		DelayStep:    10 * time.Millisecond,
		MaxDelay:     50 * time.Millisecond,
	}))
	if _, err := n.Subscribe("job-9", 7, func(ev domain.JobEvent) { events <- ev }); err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}

	ev := waitEvent(t, events)
	if !ev.Failed() || ev.Message != "render crashed" || *ev.NewBalance != 100 {
		t.Fatalf("unexpected event: %#v", ev)
	}
	if calls := api.statusCalls.Load(); calls != 2 {
		t.Fatalf("status polled %d times, want 2", calls)
	}
}

func TestEventStreamReportsMalformedMessage(t *testing.T) {
	api := &fakeAPI{frames: make(chan sse.Frame, 1)}
	srv := httptest.NewServer(api)
	defer srv.Close()
	defer close(api.frames)
	c := newTestClient(t, srv)

	errs := make(chan error, 1)
	stream, err := c.Events().Open(context.Background(), 7, func(domain.JobMessage) {}, func(err error) { errs <- err })
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer stream.Close()

	api.frames <- sse.Frame{Event: "video_completed", Data: `{"type":"video_completed",`}
	select {
	case err := <-errs:
		if !errors.Is(err, ErrMalformedMessage) {
			t.Fatalf("expected ErrMalformedMessage, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no error reported")
	}
}

func TestEventStreamReportsEndOfStream(t *testing.T) {
	api := &fakeAPI{frames: make(chan sse.Frame)}
	srv := httptest.NewServer(api)
	defer srv.Close()
	c := newTestClient(t, srv)

	errs := make(chan error, 1)
	hello := make(chan domain.JobMessage, 1)
	stream, err := c.Events().Open(context.Background(), 7, func(m domain.JobMessage) { hello <- m }, func(err error) { errs <- err })
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer stream.Close()

	if m := <-hello; m.Type != "connected" {
		t.Fatalf("unexpected first message: %#v", m)
	}
	close(api.frames)
	select {
	case err := <-errs:
		if !errors.Is(err, ErrStreamEnded) {
			t.Fatalf("expected ErrStreamEnded, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no error reported")
	}
}

func TestEventStreamCloseIsSilent(t *testing.T) {
	api := &fakeAPI{frames: make(chan sse.Frame)}
	srv := httptest.NewServer(api)
	defer srv.Close()
	defer close(api.frames)
	c := newTestClient(t, srv)

	var reported atomic.Bool
	stream, err := c.Events().Open(context.Background(), 7, func(domain.JobMessage) {}, func(error) { reported.Store(true) })
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	_ = stream.Close()
	_ = stream.Close()
	time.Sleep(50 * time.Millisecond)
	if reported.Load() {
		t.Fatal("Close must not report an error")
	}
}

func TestEventStreamOpenRefused(t *testing.T) {
	srv := httptest.NewServer(&fakeAPI{refuseStream: true})
	defer srv.Close()
	c := newTestClient(t, srv)
	if _, err := c.Events().Open(context.Background(), 7, func(domain.JobMessage) {}, func(error) {}); err == nil {
		t.Fatal("expected error for refused stream")
	}
}

func TestWebSocketStream(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/events/ws" || !authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(map[string]any{"type": "connected", "user_id": 7})
		_ = conn.WriteJSON(domain.JobMessage{Type: domain.EventVideoCompleted, JobID: "job-1", VideoURL: "https://x/1.mp4"})
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	msgs := make(chan domain.JobMessage, 4)
	errs := make(chan error, 1)
	stream, err := c.WebSocket().Open(context.Background(), 7, func(m domain.JobMessage) { msgs <- m }, func(err error) { errs <- err })
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer stream.Close()

	if m := <-msgs; m.Type != "connected" {
		t.Fatalf("unexpected hello: %#v", m)
	}
	if m := <-msgs; m.JobID != "job-1" || m.VideoURL != "https://x/1.mp4" {
		t.Fatalf("unexpected message: %#v", m)
	}
	select {
	case err := <-errs:
		if !errors.Is(err, ErrStreamEnded) {
			t.Fatalf("expected ErrStreamEnded, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("close not reported")
	}
}

func TestWebSocketURL(t *testing.T) {
	for base, want := range map[string]string{
		"http://localhost:8080": "ws://localhost:8080/api/events/ws",
		"https://api.test":      "wss://api.test/api/events/ws",
	} {
		c, err := New(Options{BaseURL: base})
		if err != nil {
			t.Fatal(err)
		}
		if got := c.WebSocket().url(); got != want {
			t.Fatalf("url(%q) = %q, want %q", base, got, want)
		}
	}
}
