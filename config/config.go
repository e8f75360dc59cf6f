/*
Package config loads server configuration from the environment.

SOURCES (later wins):
  1. Defaults below
  2. A .env file in the working directory, if present
  3. Process environment
  4. Command-line flags (applied by cmd/server)

VARIABLES:
  PORT            HTTP port (default 8080)
  DB_PATH         SQLite path, ":memory:" for a throwaway database (default booking.db)
  TOKEN_SECRET    Secret mixed into public tokens
  TOKEN_LENGTH    Hex length of public tokens (default 32, minimum 12)
  GUEST_BASE_URL  Base of the guest contract form links
  CORS_ORIGINS    Comma-separated allowed origins (default *)
  TRUST_PROXY     Take client addresses from proxy headers (default false)
*/
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/trevio/booking-engine/booking"
)

type Config struct {
	Port         int
	DBPath       string
	TokenSecret  string
	TokenLength  int
	GuestBaseURL string
	CORSOrigins  []string
	TrustProxy   bool
}

func Default() Config {
	return Config{
		Port:         8080,
		DBPath:       "booking.db",
		TokenLength:  booking.DefaultTokenLength,
		GuestBaseURL: "http://localhost:3000",
		CORSOrigins:  []string{"*"},
	}
}

// Load reads .env (if any) and the environment on top of the defaults.
func Load() (Config, error) {
	_ = godotenv.Load()
	cfg, err := FromEnv(os.Getenv)
	if err != nil {
		return cfg, err
	}
	for _, w := range cfg.Warnings() {
		log.Printf("[Config] warning: %s", w)
	}
	return cfg, nil
}

// FromEnv builds a Config from a lookup function such as os.Getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()

	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return cfg, fmt.Errorf("invalid PORT %q", v)
		}
		cfg.Port = port
	}
	if v := getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	cfg.TokenSecret = getenv("TOKEN_SECRET")
	if v := getenv("TOKEN_LENGTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid TOKEN_LENGTH %q", v)
		}
		cfg.TokenLength = n
	}
	if v := getenv("GUEST_BASE_URL"); v != "" {
		cfg.GuestBaseURL = v
	}
	if v := getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	if v := getenv("TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid TRUST_PROXY %q", v)
		}
		cfg.TrustProxy = trust
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.TokenLength < booking.MinTokenLength || c.TokenLength > 64 {
		return fmt.Errorf("TOKEN_LENGTH must be between %d and 64, got %d", booking.MinTokenLength, c.TokenLength)
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH must not be empty")
	}
	return nil
}

// Warnings lists settings that are valid but probably unintended.
func (c Config) Warnings() []string {
	var out []string
	if c.TokenSecret == "" {
		out = append(out, "TOKEN_SECRET is not set, public tokens are hashed without a shared secret")
	}
	return out
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
