package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Phuc-215/WEBRTC/internal/signaling"
)

type healthResponse struct {
	Status    string          `json:"status"`
	Uptime    float64         `json:"uptime"`
	Timestamp string          `json:"timestamp"`
	Stats     signaling.Stats `json:"stats"`
}

// HealthHandler reports liveness plus a snapshot of room/connection counts
// taken from the hub.
func HealthHandler(hub *signaling.Hub, started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		stats, err := hub.Snapshot(ctx)
		if err != nil {
			slog.Error("health snapshot failed", "err", err)
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(healthResponse{
			Status:    "ok",
			Uptime:    time.Since(started).Seconds(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Stats:     stats,
		})
	}
}
