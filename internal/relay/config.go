// Package relay implements the rendezvous server shared bills travel
// through. It stores opaque encrypted blobs keyed by share ID and
// enforces ownership of updates with signed tokens; it never sees bill
// plaintext or encryption keys.
package relay

import (
	"os"
	"strconv"
	"time"
)

// Config holds the relay server settings, loaded from the environment.
type Config struct {
	// Port is the HTTP listen port.
	Port int
	// DBPath is the SQLite database file backing share storage.
	DBPath string
	// TokenSecret signs update tokens. When empty a random secret is
	// generated at startup, which invalidates outstanding tokens on
	// restart.
	TokenSecret string
	// TokenTTL is how long an update token stays valid. Tokens are
	// reissued on every successful update, so an actively shared bill
	// never goes stale.
	TokenTTL time.Duration
	// ShareTTL is how long a share survives without updates before the
	// sweeper removes it.
	ShareTTL time.Duration
	// MaxBodyBytes caps accepted request bodies. Encrypted payloads
	// beyond this are rejected with 413.
	MaxBodyBytes int64
	// SweepInterval is how often expired shares are purged.
	SweepInterval time.Duration
}

// LoadConfig reads the relay configuration from the environment,
// falling back to defaults suitable for local use.
func LoadConfig() Config {
	return Config{
		Port:          getEnvInt("RELAY_PORT", 8080),
		DBPath:        getEnv("RELAY_DB_PATH", "./data/relay.db"),
		TokenSecret:   getEnv("RELAY_TOKEN_SECRET", ""),
		TokenTTL:      getEnvDuration("RELAY_TOKEN_TTL", 720*time.Hour),
		ShareTTL:      getEnvDuration("RELAY_SHARE_TTL", 720*time.Hour),
		MaxBodyBytes:  int64(getEnvInt("RELAY_MAX_BODY_BYTES", 256*1024)),
		SweepInterval: getEnvDuration("RELAY_SWEEP_INTERVAL", time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
