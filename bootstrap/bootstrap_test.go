package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"liftbot"
	"liftbot/conversation"
	"liftbot/lift"
	"liftbot/slack"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCompleter(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		cfg     liftbot.ModelConfig
		wantErr bool
	}{
		{name: "mock", cfg: liftbot.ModelConfig{Backend: "mock"}},
		{name: "groq", cfg: liftbot.ModelConfig{Backend: "groq", GroqAPIKey: "k", ModelID: "llama-3.3-70b-versatile"}},
		{name: "ollama", cfg: liftbot.ModelConfig{Backend: "ollama", ModelID: "llama3.2", BaseOllamaEndpoint: "http://localhost:11434"}},
		{name: "groq without key", cfg: liftbot.ModelConfig{Backend: "groq"}, wantErr: true},
		{name: "unknown backend", cfg: liftbot.ModelConfig{Backend: "gpt-in-a-box"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCompleter(ctx, tt.cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestNewCompleterMockRecordsExchanges(t *testing.T) {
	logger := liftbot.NewFileExchangeLogger(nil)
	c, err := NewCompleter(context.Background(), liftbot.ModelConfig{Backend: "mock"}, logger)
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), liftbot.CompletionRequest{Operation: "recommend", Prompt: "p", Temperature: 0.7})
	require.NoError(t, err)
	assert.Contains(t, out, "Squat")
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	for _, cfg := range []liftbot.StoreConfig{
		{Driver: "memory"},
		{Driver: "sqlite", Connection: filepath.Join(t.TempDir(), "data", "liftbot.db")},
	} {
		t.Run(cfg.Driver, func(t *testing.T) {
			store, closeFn, err := NewStore(cfg)
			require.NoError(t, err)
			defer closeFn()

			require.NoError(t, store.UpsertUser(ctx, 1, "ann", "Ann"))
			require.NoError(t, store.InsertLift(ctx, 1, lift.Candidate{Exercise: "Squat", Sets: 3, Reps: 5, Weight: 225}, ""))
			records, err := store.Lifts(ctx, 1, 10)
			require.NoError(t, err)
			assert.Len(t, records, 1)
		})
	}

	_, _, err := NewStore(liftbot.StoreConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestNewSessions(t *testing.T) {
	s, closeFn, err := NewSessions(context.Background(), liftbot.SessionConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.NoError(t, closeFn())
	assert.NotNil(t, s)

	_, _, err = NewSessions(context.Background(), liftbot.SessionConfig{Backend: "redis"})
	assert.Error(t, err, "redis without a URL")
}

func TestNewAlerter(t *testing.T) {
	assert.IsType(t, slack.LogAlerter{}, NewAlerter(liftbot.AlertConfig{}))
	assert.IsType(t, &slack.Alerter{}, NewAlerter(liftbot.AlertConfig{SlackWebhookURL: "https://hooks.slack.test/x", SlackChannel: "#ops"}))
}

func TestNewServiceUsesConfiguredTemperatures(t *testing.T) {
	ctx := context.Background()
	store, _, err := NewStore(liftbot.StoreConfig{Driver: "memory"})
	require.NoError(t, err)
	sessions, _, err := NewSessions(ctx, liftbot.SessionConfig{Backend: "memory"})
	require.NoError(t, err)

	rec := &recordingCompleter{}
	svc := NewService(
		liftbot.BotConfig{HistoryLimit: 100, ViewLimit: 100},
		liftbot.ModelConfig{ExtractTemperature: 0, RecommendTemperature: 0.7},
		store, sessions, rec, slack.LogAlerter{}, nil,
	)

	u := conversation.User{ID: 9}
	svc.Track(ctx, u)
	svc.Text(ctx, u, "bench 3x5 135")
	svc.Recommend(ctx, u, "")

	require.Len(t, rec.reqs, 2)
	assert.Equal(t, 0.0, rec.reqs[0].Temperature)
	assert.Equal(t, 0.7, rec.reqs[1].Temperature)
}

type recordingCompleter struct{ reqs []liftbot.CompletionRequest }

func (r *recordingCompleter) Complete(_ context.Context, req liftbot.CompletionRequest) (string, error) {
	r.reqs = append(r.reqs, req)
	return "[]", nil
}
