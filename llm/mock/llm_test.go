package mock

import (
	"context"
	"errors"
	"testing"

	"liftbot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMClient_Complete(t *testing.T) {
	ctx := context.Background()

	t.Run("scripted replies are consumed in order", func(t *testing.T) {
		llm := NewLLMClient(Reply{Content: "first"}, Reply{Err: errors.New("boom")})

		out, err := llm.Complete(ctx, liftbot.CompletionRequest{Operation: "recommend", Prompt: "a"})
		require.NoError(t, err)
		assert.Equal(t, "first", out)

		_, err = llm.Complete(ctx, liftbot.CompletionRequest{Operation: "recommend", Prompt: "b", Temperature: 0.7})
		assert.EqualError(t, err, "boom")

		reqs := llm.Requests()
		require.Len(t, reqs, 2)
		assert.Equal(t, "b", reqs[1].Prompt)
		assert.Equal(t, 0.7, reqs[1].Temperature)
	})

	t.Run("canned extraction", func(t *testing.T) {
		llm := NewLLMClient()

		out, err := llm.Complete(ctx, liftbot.CompletionRequest{
			Operation: "extract_lifts",
			Prompt:    "instructions... User input: Bench 3x5 135, Squat 5x5 @ 225.5, Deadlift",
		})
		require.NoError(t, err)
		assert.Equal(t, "```json\n"+
			`[{"exercise":"Bench","reps":5,"sets":3,"weight":135},`+
			`{"exercise":"Squat","reps":5,"sets":5,"weight":225.5},`+
			`{"exercise":"Deadlift","reps":null,"sets":null,"weight":null}]`+
			"\n```", out)
	})

	t.Run("canned workout", func(t *testing.T) {
		out, err := NewLLMClient().Complete(ctx, liftbot.CompletionRequest{Operation: "refine"})
		require.NoError(t, err)
		assert.Contains(t, out, "Squat")
	})

	t.Run("unknown operation", func(t *testing.T) {
		_, err := NewLLMClient().Complete(ctx, liftbot.CompletionRequest{Operation: "summarize"})
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := NewLLMClient(Reply{Content: "x"}).Complete(cctx, liftbot.CompletionRequest{Operation: "recommend"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
