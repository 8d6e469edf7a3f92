package llm

import (
	"context"
	"errors"
	"testing"

	"liftbot"
	"liftbot/llm/mock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

type recordingLogger struct{ entries []liftbot.ExchangeLog }

func (r *recordingLogger) LogExchange(e liftbot.ExchangeLog) error {
	r.entries = append(r.entries, e)
	return nil
}

func TestInstrumentPassesThrough(t *testing.T) {
	inner := mock.NewLLMClient(mock.Reply{Content: "ok"}, mock.Reply{Err: errors.New("down")})
	c := Instrument(inner, "mock", tracenoop.NewTracerProvider().Tracer("test"), metricnoop.NewMeterProvider().Meter("test"))
	ctx := context.Background()

	out, err := c.Complete(ctx, liftbot.CompletionRequest{Operation: "recommend", Prompt: "p", Temperature: 0.7})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	_, err = c.Complete(ctx, liftbot.CompletionRequest{Operation: "extract_lifts", Prompt: "p"})
	assert.EqualError(t, err, "down")

	reqs := inner.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, 0.7, reqs[0].Temperature)
}

func TestWithExchangeLog(t *testing.T) {
	inner := mock.NewLLMClient(mock.Reply{Content: "[]"}, mock.Reply{Err: errors.New("timeout")})
	logger := &recordingLogger{}
	c := WithExchangeLog(inner, logger)
	ctx := context.Background()

	out, err := c.Complete(ctx, liftbot.CompletionRequest{Operation: "extract_lifts", Prompt: "bench", Temperature: 0})
	require.NoError(t, err)
	assert.Equal(t, "[]", out)

	_, err = c.Complete(ctx, liftbot.CompletionRequest{Operation: "refine", Prompt: "shorter", Temperature: 0.7})
	require.Error(t, err)

	require.Len(t, logger.entries, 2)
	assert.Equal(t, "extract_lifts", logger.entries[0].Operation)
	assert.Equal(t, "[]", logger.entries[0].Output)
	assert.Empty(t, logger.entries[0].Error)
	assert.NotEmpty(t, logger.entries[0].ID)
	assert.NotEqual(t, logger.entries[0].ID, logger.entries[1].ID)
	assert.Equal(t, "timeout", logger.entries[1].Error)
	assert.Equal(t, 0.7, logger.entries[1].Temperature)
}
