package handlers

import (
	"net/http"
)

// Metrics reports push-channel counters of this instance.
func (a *App) Metrics(w http.ResponseWriter, r *http.Request) {
	if a.Hub == nil {
		a.json(w, http.StatusOK, map[string]int64{"push_connections": 0, "push_dropped": 0})
		return
	}
	a.json(w, http.StatusOK, map[string]int64{
		"push_connections": int64(a.Hub.Connections()),
		"push_dropped":     a.Hub.Dropped(),
	})
}
