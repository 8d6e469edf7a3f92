package liftbot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("LLM_BACKEND", "mock")
	t.Setenv("SESSION_TTL", "30m")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "mock", cfg.Model.Backend)
	assert.Equal(t, 0.0, cfg.Model.ExtractTemperature)
	assert.Equal(t, 0.7, cfg.Model.RecommendTemperature)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "#liftbot-alerts", cfg.Alert.SlackChannel)
	assert.NoError(t, cfg.Model.Validate())
}

func TestLoadBotConfigRequiresToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	_, err := LoadBotConfig()
	assert.Error(t, err)

	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	cfg, err := LoadBotConfig()
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.HistoryLimit)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "groq without key", err: ModelConfig{Backend: "groq"}.Validate(), wantErr: true},
		{name: "groq with key", err: ModelConfig{Backend: "groq", GroqAPIKey: "k"}.Validate()},
		{name: "unknown backend", err: ModelConfig{Backend: "x"}.Validate(), wantErr: true},
		{name: "pgx with dsn", err: StoreConfig{Driver: "pgx", Connection: "postgres://u:p@db:5432/liftbot"}.Validate()},
		{name: "pgx with sqlite dsn", err: StoreConfig{Driver: "pgx", Connection: "./data/liftbot.db"}.Validate(), wantErr: true},
		{name: "unknown driver", err: StoreConfig{Driver: "mysql"}.Validate(), wantErr: true},
		{name: "redis without url", err: SessionConfig{Backend: "redis"}.Validate(), wantErr: true},
		{name: "redis with url", err: SessionConfig{Backend: "redis", RedisURL: "redis://localhost:6379/0"}.Validate()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantErr {
				assert.Error(t, tt.err)
			} else {
				assert.NoError(t, tt.err)
			}
		})
	}
}
