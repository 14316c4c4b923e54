package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoreparse/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 24*time.Hour, cfg.Session.Retention)
	assert.Equal(t, 50, cfg.Enrich.MaxConcurrency)
	assert.Equal(t, 2, cfg.Reasoning.MaxRetries)
	assert.Equal(t, 800*time.Millisecond, cfg.Reasoning.BaseBackoff)
	assert.Equal(t, 8*time.Second, cfg.Reasoning.MaxBackoff)
	assert.Equal(t, "high", cfg.Reasoning.ReasoningEffort)
	assert.Equal(t, "pgx", cfg.DB.Driver)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SCOREPARSE_REASONING_SECONDARY_URL", "https://backup.example.com/openai/v1/responses")
	t.Setenv("SCOREPARSE_REASONING_SECONDARY_KEY", "sk-backup")
	t.Setenv("SCOREPARSE_ENRICH_MAX_CONCURRENCY", "8")
	t.Setenv("SCOREPARSE_ENRICH_MODEL", "gpt-analysis")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.True(t, cfg.Reasoning.SecondaryConfigured())
	assert.Equal(t, 8, cfg.Enrich.MaxConcurrency)
	assert.Equal(t, "gpt-analysis", cfg.Reasoning.Model)
}

func TestReasoningConfig_ResolveURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.ReasoningConfig
		want string
	}{
		{"explicit url wins", config.ReasoningConfig{ResponsesURL: "https://x/custom", Endpoint: "https://y"}, "https://x/custom"},
		{"bare endpoint", config.ReasoningConfig{Endpoint: "https://aoai.example.com/"}, "https://aoai.example.com/openai/v1/responses"},
		{"v1 endpoint", config.ReasoningConfig{Endpoint: "https://aoai.example.com/openai/v1"}, "https://aoai.example.com/openai/v1/responses"},
		{"full endpoint", config.ReasoningConfig{Endpoint: "https://aoai.example.com/openai/v1/responses"}, "https://aoai.example.com/openai/v1/responses"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.ResolveURL()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := (&config.ReasoningConfig{}).ResolveURL()
	assert.Error(t, err)
}

func TestReasoningConfig_SecondaryConfigured_RequiresBoth(t *testing.T) {
	assert.False(t, (&config.ReasoningConfig{SecondaryURL: "https://b"}).SecondaryConfigured())
	assert.False(t, (&config.ReasoningConfig{SecondaryKey: "k"}).SecondaryConfigured())
	assert.True(t, (&config.ReasoningConfig{SecondaryURL: "https://b", SecondaryKey: "k"}).SecondaryConfigured())
}

func TestDBConfig_DSN(t *testing.T) {
	pg := config.DBConfig{Driver: "pgx", User: "u", Password: "p", Host: "h", Port: 5432, Name: "n", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/n?sslmode=disable", pg.DSN())

	lite := config.DBConfig{Driver: "sqlite", SQLitePath: "/tmp/s.db"}
	assert.Equal(t, "/tmp/s.db", lite.DSN())
}
