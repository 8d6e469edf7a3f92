package recommend_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"liftbot/lift"
	"liftbot/llm/mock"
	"liftbot/recommend"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records(n int) []lift.Record {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	out := make([]lift.Record, 0, n)
	for i := 0; i < n; i++ {
		// newest first
		out = append(out, lift.Record{
			ID:        fmt.Sprintf("id-%d", i),
			Exercise:  fmt.Sprintf("Lift %d", i),
			Sets:      3,
			Reps:      5,
			Weight:    100,
			CreatedAt: base.Add(-time.Duration(i) * time.Hour),
		})
	}
	return out
}

func TestRecommend(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		goal        string
		history     []lift.Record
		request     string
		contains    []string
		notContains []string
	}{
		{
			name:     "defaults",
			contains: []string{"Recommend a workout for today.", "The user's fitness goal: Not set", "No past lifts recorded."},
		},
		{
			name:     "goal and request",
			goal:     "Bench 225",
			request:  "  upper body only ",
			history:  records(1),
			contains: []string{`The user has requested: "upper body only".`, "The user's fitness goal: Bench 225", `"exercise": "Lift 0"`},
			notContains: []string{
				"Recommend a workout for today.",
				"No past lifts recorded.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := mock.NewLLMClient(mock.Reply{Content: "\n• *Squat* — 5x5\n"})
			r := recommend.NewRecommender(llm, 0.7)

			out := r.Recommend(ctx, tt.goal, tt.history, tt.request)
			assert.Equal(t, "• *Squat* — 5x5", out)

			reqs := llm.Requests()
			require.Len(t, reqs, 1)
			assert.Equal(t, recommend.OperationRecommend, reqs[0].Operation)
			assert.Equal(t, 0.7, reqs[0].Temperature)
			for _, s := range tt.contains {
				assert.Contains(t, reqs[0].Prompt, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, reqs[0].Prompt, s)
			}
		})
	}
}

func TestRecommendFailure(t *testing.T) {
	llm := mock.NewLLMClient(mock.Reply{Err: errors.New("rate limited")})
	r := recommend.NewRecommender(llm, 0.7)

	out := r.Recommend(context.Background(), "", nil, "")
	assert.Equal(t, "Sorry, I couldn't generate a recommendation right now: rate limited", out)
}

func TestRefine(t *testing.T) {
	llm := mock.NewLLMClient(mock.Reply{Content: "shorter workout"}, mock.Reply{Err: errors.New("timeout")})
	r := recommend.NewRecommender(llm, 0.7)
	ctx := context.Background()

	out := r.Refine(ctx, "Get strong", records(2), "PREVIOUS TEXT", "make it shorter")
	assert.Equal(t, "shorter workout", out)

	req := llm.Requests()[0]
	assert.Equal(t, recommend.OperationRefine, req.Operation)
	assert.Contains(t, req.Prompt, "Previous recommendation:\nPREVIOUS TEXT")
	assert.Contains(t, req.Prompt, `User's feedback/request: "make it shorter"`)
	assert.Contains(t, req.Prompt, "The user's goal: Get strong")

	out = r.Refine(ctx, "", nil, "PREVIOUS TEXT", "again")
	assert.Equal(t, "Sorry, I couldn't generate a recommendation right now: timeout", out)
}

func TestHistoryText(t *testing.T) {
	assert.Equal(t, "No past lifts recorded.", recommend.HistoryText(nil))

	notes := "felt easy"
	h := records(25)
	h[0].Notes = &notes

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(recommend.HistoryText(h)), &decoded))
	require.Len(t, decoded, recommend.HistoryLimit)

	// the newest records are kept
	assert.Equal(t, "Lift 0", decoded[0]["exercise"])
	assert.Equal(t, "Lift 19", decoded[19]["exercise"])
	assert.Equal(t, "felt easy", decoded[0]["notes"])
	assert.Nil(t, decoded[1]["notes"])
	assert.Equal(t, "2026-03-01T12:00:00Z", decoded[0]["created_at"])
}
