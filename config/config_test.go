package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "booking.db", cfg.DBPath)
	assert.Equal(t, 32, cfg.TokenLength)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"PORT":           "9090",
		"DB_PATH":        ":memory:",
		"TOKEN_SECRET":   "s3cret",
		"TOKEN_LENGTH":   "16",
		"GUEST_BASE_URL": "https://guest.example.com/",
		"CORS_ORIGINS":   "https://a.example.com, https://b.example.com,",
		"TRUST_PROXY":    "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, ":memory:", cfg.DBPath)
	assert.Equal(t, "s3cret", cfg.TokenSecret)
	assert.Equal(t, 16, cfg.TokenLength)
	assert.Equal(t, "https://guest.example.com/", cfg.GuestBaseURL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	assert.True(t, cfg.TrustProxy)
	assert.Empty(t, cfg.Warnings())
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"non-numeric port", map[string]string{"PORT": "http"}},
		{"port out of range", map[string]string{"PORT": "70000"}},
		{"token too short", map[string]string{"TOKEN_LENGTH": "8"}},
		{"token not a number", map[string]string{"TOKEN_LENGTH": "long"}},
		{"trust proxy not a bool", map[string]string{"TRUST_PROXY": "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(envMap(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestWarnings_MissingTokenSecret(t *testing.T) {
	// GIVEN: no TOKEN_SECRET in the environment
	cfg, err := FromEnv(envMap(nil))
	require.NoError(t, err)

	// THEN: the config is usable but flagged
	assert.False(t, cfg.TrustProxy)
	warnings := cfg.Warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "TOKEN_SECRET")
}
