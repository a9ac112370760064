package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Phuc-215/WEBRTC/internal/config"
	"github.com/Phuc-215/WEBRTC/internal/signaling"
	"github.com/Phuc-215/WEBRTC/internal/turncred"
)

func runHub(t *testing.T) *signaling.Hub {
	t.Helper()
	hub := signaling.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func TestHealthHandler(t *testing.T) {
	hub := runHub(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	HealthHandler(hub, time.Now().Add(-time.Minute))(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Status string          `json:"status"`
		Uptime float64         `json:"uptime"`
		Stats  signaling.Stats `json:"stats"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" {
		t.Fatalf("status = %q, want ok", body.Status)
	}
	if body.Uptime < 59 {
		t.Fatalf("uptime = %f, want about a minute", body.Uptime)
	}
	if body.Stats.Connections != 0 || len(body.Stats.Rooms) != 0 {
		t.Fatalf("stats = %+v, want an empty hub", body.Stats)
	}
}

type iceBody struct {
	ICEServers []struct {
		URLs       []string `json:"urls"`
		Username   string   `json:"username"`
		Credential string   `json:"credential"`
	} `json:"iceServers"`
}

func TestICEHandlerStaticCredentials(t *testing.T) {
	cfg := &config.Config{
		STUNURLs:     []string{"stun:stun.example.com:3478"},
		TURNURLs:     []string{"turn:turn.example.com:3478"},
		TURNUsername: "user",
		TURNPassword: "pass",
	}

	rec := httptest.NewRecorder()
	ICEHandler(cfg, nil)(rec, httptest.NewRequest(http.MethodGet, "/ice", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
		t.Fatalf("Cache-Control = %q, want no-store", cc)
	}
	var body iceBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.ICEServers) != 2 {
		t.Fatalf("got %d servers, want 2", len(body.ICEServers))
	}
	turn := body.ICEServers[1]
	if turn.Username != "user" || turn.Credential != "pass" {
		t.Fatalf("TURN entry = %+v, want the static credentials", turn)
	}
}

func TestICEHandlerEphemeralCredentials(t *testing.T) {
	cfg := &config.Config{
		STUNURLs:     []string{"stun:stun.example.com:3478"},
		TURNURLs:     []string{"turn:turn.example.com:3478"},
		TURNUsername: "static-user",
		TURNPassword: "static-pass",
	}
	gen, err := turncred.New("s3cret", 600, "meshcall", nil)
	if err != nil {
		t.Fatalf("turncred.New: %v", err)
	}

	rec := httptest.NewRecorder()
	ICEHandler(cfg, gen)(rec, httptest.NewRequest(http.MethodGet, "/ice", nil))

	var body iceBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.ICEServers) != 2 {
		t.Fatalf("got %d servers, want 2", len(body.ICEServers))
	}

	stun := body.ICEServers[0]
	if stun.Username != "" {
		t.Fatalf("STUN entry must stay credential-free, got %+v", stun)
	}
	turn := body.ICEServers[1]
	if turn.Username == "static-user" {
		t.Fatal("TURN entry must not expose the static username")
	}
	if !strings.Contains(turn.Username, ":meshcall:") {
		t.Fatalf("TURN username %q is not an ephemeral one", turn.Username)
	}
	if turn.Credential == "" || turn.Credential == "static-pass" {
		t.Fatalf("TURN credential %q is not an ephemeral one", turn.Credential)
	}
}

func TestRoutesRootAndNotFound(t *testing.T) {
	hub := runHub(t)
	cfg := &config.Config{MessagesPerSecond: 10, MessageBurst: 10}
	mux := Routes(hub, cfg, nil, time.Now())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET /nope status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d, want 200", rec.Code)
	}
}

func startWsServer(t *testing.T) string {
	t.Helper()
	hub := runHub(t)
	cfg := &config.Config{MessagesPerSecond: 1000, MessageBurst: 1000}
	ts := httptest.NewServer(ServeWs(hub, cfg))
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

// awaitRegistered reads frames until the registration ack for name arrives.
func awaitRegistered(conn *websocket.Conn, name string) error {
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var env signaling.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if env.Type != signaling.KindRegistered {
			continue
		}
		if env.Name != name || !env.Success {
			return fmt.Errorf("registered ack = %+v, want success for %q", env, name)
		}
		return nil
	}
}

func TestMalformedFrameKeepsConnectionOpen(t *testing.T) {
	url := startWsServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{this is not json")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if err := conn.WriteJSON(&signaling.Envelope{Type: signaling.KindRegister, Name: "alice"}); err != nil {
		t.Fatalf("write register: %v", err)
	}

	// The malformed frame is dropped per-message; the same connection must
	// still complete registration.
	if err := awaitRegistered(conn, "alice"); err != nil {
		t.Fatalf("connection did not survive the malformed frame: %v", err)
	}
}

func TestConcurrentRegistersWithGarbageFrames(t *testing.T) {
	url := startWsServer(t)

	const sessions = 20
	var wg sync.WaitGroup
	errs := make(chan error, sessions)

	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("peer-%02d", i)

			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			if err != nil {
				errs <- fmt.Errorf("%s: dial: %w", name, err)
				return
			}
			defer conn.Close()

			conn.WriteMessage(websocket.TextMessage, []byte("%%%"))
			if err := conn.WriteJSON(&signaling.Envelope{Type: signaling.KindRegister, Name: name}); err != nil {
				errs <- fmt.Errorf("%s: write register: %w", name, err)
				return
			}
			conn.WriteMessage(websocket.TextMessage, []byte("{broken"))

			if err := awaitRegistered(conn, name); err != nil {
				errs <- fmt.Errorf("%s: %w", name, err)
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
