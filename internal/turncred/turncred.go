// Package turncred issues coturn-compatible TURN REST credentials
// (draft-uberti-behave-turn-rest):
//
//	username   = <unix_expiry>:<prefix>:<session_id>
//	credential = base64(hmac_sha1(shared_secret, username))
//
// Browser peers fetch these from /ice so TURN access expires on its own
// instead of shipping a static password to every visitor.
package turncred

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Generator struct {
	sharedSecret []byte
	ttlSeconds   int64
	prefix       string
	now          func() time.Time
}

// Credentials is one ephemeral username/credential pair.
type Credentials struct {
	Username   string
	Credential string
	ExpiryUnix int64
}

// New builds a generator. now may be nil, in which case time.Now is used;
// tests inject a fixed clock.
func New(secret string, ttlSeconds int64, prefix string, now func() time.Time) (*Generator, error) {
	if secret == "" {
		return nil, errors.New("shared secret is required")
	}
	if ttlSeconds <= 0 {
		return nil, errors.New("ttl must be > 0")
	}
	if prefix == "" || strings.Contains(prefix, ":") {
		return nil, errors.New("prefix must be non-empty and must not contain ':'")
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{
		sharedSecret: []byte(secret),
		ttlSeconds:   ttlSeconds,
		prefix:       prefix,
		now:          now,
	}, nil
}

// Generate signs credentials bound to the given session ID.
func (g *Generator) Generate(sessionID string) (Credentials, error) {
	if sessionID == "" || strings.Contains(sessionID, ":") {
		return Credentials{}, errors.New("session id must be non-empty and must not contain ':'")
	}
	expiry := g.now().UTC().Unix() + g.ttlSeconds
	username := fmt.Sprintf("%d:%s:%s", expiry, g.prefix, sessionID)
	mac := hmac.New(sha1.New, g.sharedSecret)
	mac.Write([]byte(username))
	return Credentials{
		Username:   username,
		Credential: base64.StdEncoding.EncodeToString(mac.Sum(nil)),
		ExpiryUnix: expiry,
	}, nil
}

// GenerateRandom signs credentials for a random session ID; used when the
// caller has no session identity of its own yet.
func (g *Generator) GenerateRandom() (Credentials, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return Credentials{}, err
	}
	return g.Generate(hex.EncodeToString(b[:]))
}
