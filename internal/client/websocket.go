package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"woovideo/internal/domain"
	"woovideo/internal/notifier"
)

// WebSocketStream is the WebSocket push channel.
type WebSocketStream struct {
	client *Client
	dialer *websocket.Dialer
}

// WebSocket returns the WebSocket push channel of c.
func (c *Client) WebSocket() *WebSocketStream {
	return &WebSocketStream{
		client: c,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: c.timeout,
		},
	}
}

func (w *WebSocketStream) url() string {
	u := w.client.baseURL + "/api/events/ws"
	if strings.HasPrefix(u, "https://") {
		return "wss://" + strings.TrimPrefix(u, "https://")
	}
	return "ws://" + strings.TrimPrefix(u, "http://")
}

// Open dials /api/events/ws.
func (w *WebSocketStream) Open(ctx context.Context, _ int64, onMessage func(domain.JobMessage), onError func(error)) (notifier.Stream, error) {
	header := http.Header{}
	if w.client.token != "" {
		header.Set("Authorization", "Bearer "+w.client.token)
	}
	conn, resp, err := w.dialer.DialContext(ctx, w.url(), header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, decodeAPIError(resp)
		}
		return nil, fmt.Errorf("client: dial websocket: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &pushStream{cancel: cancel, body: conn}
	conn.SetPingHandler(func(data string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(10*time.Second))
	})
	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()
	go s.readWS(conn, onMessage, onError)
	return s, nil
}

func (s *pushStream) readWS(conn *websocket.Conn, onMessage func(domain.JobMessage), onError func(error)) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = ErrStreamEnded
			}
			s.fail(onError, err)
			return
		}
		msg, err := decodeJobMessage("", data)
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

var _ notifier.PushChannel = (*WebSocketStream)(nil)
