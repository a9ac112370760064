package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pion/webrtc/v4"
	"golang.org/x/time/rate"
)

// Run modes. Production expects a fronting proxy to terminate TLS; in
// development the server terminates TLS itself when certificates exist.
type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
)

// Defaults.
const (
	DefaultPort            = "3000"
	DefaultHost            = "0.0.0.0"
	DefaultCertFile        = "certs/cert.pem"
	DefaultKeyFile         = "certs/key.pem"
	DefaultMessagesPerSec  = 50
	DefaultMessageBurst    = 100
	DefaultShutdownTimeout = 15 * time.Second
	DefaultTurnRESTTTL     = 3600
	DefaultTurnRESTPrefix  = "meshcall"
)

// Config holds the server configuration, loaded from a .env file (if
// present) and environment variables. Environment variables win over .env
// values.
type Config struct {
	Port string
	Host string
	Mode Mode

	// TLS material for dev mode. Missing files downgrade to plain HTTP.
	CertFile string
	KeyFile  string

	ShutdownTimeout time.Duration

	// Per-connection inbound message rate limit.
	MessagesPerSecond rate.Limit
	MessageBurst      int

	// ICE configuration handed to browser peers via /ice.
	STUNURLs     []string
	TURNURLs     []string
	TURNUsername string
	TURNPassword string

	// TURN REST ephemeral credentials (coturn-compatible). Static TURN
	// credentials above are ignored for signing when a secret is set.
	TurnRESTSecret string
	TurnRESTTTL    int64
	TurnRESTPrefix string
}

// Load reads configuration with env vars taking precedence over .env.
func Load() (*Config, error) {
	// godotenv.Load does not overwrite existing env vars
	_ = godotenv.Load()

	cfg := &Config{
		Port:              envOr("PORT", DefaultPort),
		Host:              envOr("HOST", DefaultHost),
		CertFile:          envOr("CERT_FILE", DefaultCertFile),
		KeyFile:           envOr("KEY_FILE", DefaultKeyFile),
		ShutdownTimeout:   DefaultShutdownTimeout,
		MessagesPerSecond: DefaultMessagesPerSec,
		MessageBurst:      DefaultMessageBurst,
		STUNURLs:          splitList(envOr("STUN_URLS", "stun:stun.l.google.com:19302,stun:stun1.l.google.com:19302")),
		TURNURLs:          splitList(os.Getenv("TURN_URLS")),
		TURNUsername:      os.Getenv("TURN_USERNAME"),
		TURNPassword:      os.Getenv("TURN_PASSWORD"),
		TurnRESTSecret:    os.Getenv("TURN_REST_SECRET"),
		TurnRESTTTL:       DefaultTurnRESTTTL,
		TurnRESTPrefix:    envOr("TURN_REST_PREFIX", DefaultTurnRESTPrefix),
	}

	switch m := envOr("MODE", envOr("NODE_ENV", string(ModeDev))); m {
	case "dev", "development":
		cfg.Mode = ModeDev
	case "prod", "production":
		cfg.Mode = ModeProd
	default:
		return nil, fmt.Errorf("invalid MODE %q: want dev or prod", m)
	}

	if raw := os.Getenv("SHUTDOWN_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT %q: %w", raw, err)
		}
		cfg.ShutdownTimeout = d
	}

	if raw := os.Getenv("MESSAGES_PER_SECOND"); raw != "" {
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid MESSAGES_PER_SECOND %q", raw)
		}
		cfg.MessagesPerSecond = rate.Limit(n)
	}

	if raw := os.Getenv("MESSAGE_BURST"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid MESSAGE_BURST %q", raw)
		}
		cfg.MessageBurst = n
	}

	if raw := os.Getenv("TURN_REST_TTL_SECONDS"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid TURN_REST_TTL_SECONDS %q", raw)
		}
		cfg.TurnRESTTTL = n
	}

	return cfg, nil
}

// Addr returns the host:port the HTTP server binds to.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// StaticICEServers returns the STUN/TURN list from static configuration.
// TURN entries carry the static credentials; when TURN REST is enabled the
// /ice handler replaces them with ephemeral ones.
func (c *Config) StaticICEServers() []webrtc.ICEServer {
	servers := make([]webrtc.ICEServer, 0, 2)
	if len(c.STUNURLs) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: c.STUNURLs})
	}
	if len(c.TURNURLs) > 0 {
		servers = append(servers, webrtc.ICEServer{
			URLs:       c.TURNURLs,
			Username:   c.TURNUsername,
			Credential: c.TURNPassword,
		})
	}
	return servers
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
