package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Phuc-215/WEBRTC/internal/config"
	"github.com/Phuc-215/WEBRTC/internal/signaling"
	"github.com/Phuc-215/WEBRTC/internal/turncred"
)

// Configure the websocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024, // 64 KB
	WriteBufferSize: 64 * 1024, // 64 KB

	// All origins are accepted: registration is name-based, not
	// cookie-based, so cross-origin requests carry no ambient authority.
	// Production deployments pin the allowed origin at the fronting proxy.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWs returns an http.HandlerFunc that upgrades the connection and
// hands it to the hub.
func ServeWs(hub *signaling.Hub, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("failed to upgrade connection", "err", err)
			return
		}

		client := signaling.NewClient(hub, conn, cfg.MessagesPerSecond, cfg.MessageBurst)
		hub.Attach(client)

		// One reader and one writer per connection, for the whole
		// connection lifetime.
		go client.WritePump()
		go client.ReadPump()
	}
}

// Routes assembles the full HTTP surface: websocket endpoint, liveness,
// ICE configuration for browser peers and Prometheus metrics.
func Routes(hub *signaling.Hub, cfg *config.Config, turn *turncred.Generator, started time.Time) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", ServeWs(hub, cfg))
	mux.HandleFunc("/health", HealthHandler(hub, started))
	mux.HandleFunc("/ice", ICEHandler(cfg, turn))
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("WebRTC signaling server\n"))
	})

	return mux
}
