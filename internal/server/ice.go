package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pion/webrtc/v4"

	"github.com/Phuc-215/WEBRTC/internal/config"
	"github.com/Phuc-215/WEBRTC/internal/turncred"
)

type iceResponse struct {
	ICEServers []webrtc.ICEServer `json:"iceServers"`
}

// ICEHandler returns the ICE server list browser peers plug into their
// RTCPeerConnection. When a TURN REST generator is configured, TURN entries
// get per-request ephemeral credentials instead of the static ones.
func ICEHandler(cfg *config.Config, turn *turncred.Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		servers := cfg.StaticICEServers()

		if turn != nil {
			creds, err := turn.GenerateRandom()
			if err != nil {
				slog.Error("turn credential generation failed", "err", err)
				http.Error(w, "credential generation failed", http.StatusInternalServerError)
				return
			}
			for i := range servers {
				if hasTURN(servers[i].URLs) {
					servers[i].Username = creds.Username
					servers[i].Credential = creds.Credential
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		json.NewEncoder(w).Encode(iceResponse{ICEServers: servers})
	}
}

func hasTURN(urls []string) bool {
	for _, u := range urls {
		if strings.HasPrefix(u, "turn:") || strings.HasPrefix(u, "turns:") {
			return true
		}
	}
	return false
}
