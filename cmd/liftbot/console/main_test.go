package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"liftbot"
	"liftbot/bootstrap"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestREPL(t *testing.T) {
	ctx := context.Background()

	completer, err := bootstrap.NewCompleter(ctx, liftbot.ModelConfig{Backend: "mock"}, nil)
	require.NoError(t, err)
	store, _, err := bootstrap.NewStore(liftbot.StoreConfig{Driver: "memory"})
	require.NoError(t, err)
	sessions, _, err := bootstrap.NewSessions(ctx, liftbot.SessionConfig{Backend: "memory"})
	require.NoError(t, err)

	svc := bootstrap.NewService(liftbot.BotConfig{}, liftbot.ModelConfig{RecommendTemperature: 0.7}, store, sessions, completer, nil, nil)

	in := strings.NewReader(strings.Join([]string{
		"/track",
		"Squat 3x5 225",
		":session",
		":confirm",
		"/view",
		"/dance",
		":quit",
	}, "\n"))
	var out bytes.Buffer
	repl(ctx, in, &out, svc, sessions)

	got := out.String()
	assert.Contains(t, got, "Save 1 lift(s)?")
	assert.Contains(t, got, "[✓ Confirm] [✗ Cancel]")
	assert.Contains(t, got, "Saved: *Squat: 3x5 @ 225 lbs*")
	assert.Contains(t, got, "Squat: 3x5 @ 225 lbs")
	assert.Contains(t, got, "unknown command /dance")

	records, err := store.Lifts(ctx, user.ID, 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
