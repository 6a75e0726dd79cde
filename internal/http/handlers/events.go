package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"woovideo/internal/domain"
	"woovideo/internal/sse"
)

// EventConnected is the first message on every push connection.
const EventConnected = "connected"

type helloMessage struct {
	Type   string `json:"type"`
	UserID int64  `json:"user_id"`
}

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

func (a *App) heartbeat() time.Duration {
	if a.Config != nil && a.Config.SSEHeartbeat > 0 {
		return a.Config.SSEHeartbeat
	}
	return 25 * time.Second
}

// Events streams the caller's job messages as server-sent events.
func (a *App) Events(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == 0 {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	// the server write timeout would cut long-lived streams
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	enc, err := sse.NewEncoder(w)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}
	sub := a.Hub.Subscribe(userID)
	defer sub.Close()

	hello, _ := json.Marshal(helloMessage{Type: EventConnected, UserID: userID})
	if err := enc.Encode(sse.Frame{Event: EventConnected, Data: string(hello)}); err != nil {
		return
	}
	a.log(r).Debug().Msg("event stream opened")

	ticker := time.NewTicker(a.heartbeat())
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			if err := enc.Encode(jobFrame(msg)); err != nil {
				a.log(r).Debug().Err(err).Msg("event stream write")
				return
			}
		case <-ticker.C:
			if err := enc.Comment("ping"); err != nil {
				return
			}
		}
	}
}

func jobFrame(msg domain.JobMessage) sse.Frame {
	data, _ := json.Marshal(msg)
	return sse.Frame{Event: string(msg.Type), ID: msg.JobID, Data: string(data)}
}

// EventsWS carries the same messages as Events over a WebSocket.
func (a *App) EventsWS(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == 0 {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	conn, err := a.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client
		a.log(r).Debug().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	sub := a.Hub.Subscribe(userID)
	defer sub.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(v any) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(v)
	}
	if err := write(helloMessage{Type: EventConnected, UserID: userID}); err != nil {
		return
	}

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case msg, ok := <-sub.C():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(wsWriteWait))
				return
			}
			if err := write(msg); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
