package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// handleHealth handles GET /healthz. It reports whether the activities API answers.
func (p *Portal) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	upstream := "ok"
	if err := p.api.Health(ctx); err != nil {
		status, code = "degraded", http.StatusServiceUnavailable
		upstream = err.Error()
	}
	writeJSON(w, code, map[string]any{
		"status":          status,
		"activities_api":  upstream,
		"cached_sessions": p.sessions.Len(),
		"active_messages": p.messages.Len(),
	})
}

// handlePerf handles GET /debug/perf?minutes=15&top=10
func (p *Portal) handlePerf(w http.ResponseWriter, r *http.Request) {
	minutes := 15
	if v, err := strconv.Atoi(r.URL.Query().Get("minutes")); err == nil && v > 0 {
		minutes = v
	}
	top := 10
	if v, err := strconv.Atoi(r.URL.Query().Get("top")); err == nil && v > 0 {
		top = v
	}
	since := time.Now().Add(-time.Duration(minutes) * time.Minute)
	writeJSON(w, http.StatusOK, p.collector.Snapshot(since, top))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
