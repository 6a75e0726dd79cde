package handlers

import (
	"net/http"
)

type healthBody struct {
	Status string `json:"status"`
	Push   string `json:"push"`
}

// Health reports liveness and whether this instance still accepts push
// connections. A closed hub means clients can only poll, so the instance
// answers 503 and the load balancer drains it.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	switch {
	case a.Hub == nil:
		a.json(w, http.StatusOK, healthBody{Status: "ok", Push: "disabled"})
	case a.Hub.Closed():
		a.json(w, http.StatusServiceUnavailable, healthBody{Status: "draining", Push: "closed"})
	default:
		a.json(w, http.StatusOK, healthBody{Status: "ok", Push: "open"})
	}
}
