// Package recommend builds workout recommendation and refinement requests.
package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"liftbot"
	"liftbot/lift"
)

const (
	OperationRecommend = "recommend"
	OperationRefine    = "refine"

	// HistoryLimit is how many of the most recent records are shown to the model.
	HistoryLimit = 20
)

type Recommender struct {
	llm         liftbot.Completer
	temperature float64
}

func NewRecommender(llm liftbot.Completer, temperature float64) *Recommender {
	return &Recommender{llm: llm, temperature: temperature}
}

// Recommend returns display text. Failures come back as an apology, never an error.
func (r *Recommender) Recommend(ctx context.Context, goal string, history []lift.Record, request string) string {
	ask := defaultAsk
	if request = strings.TrimSpace(request); request != "" {
		ask = fmt.Sprintf(requestAsk, request)
	}

	prompt := fmt.Sprintf(recommendTemplate, ask, goalText(goal), HistoryText(history))
	return r.complete(ctx, OperationRecommend, prompt)
}

// Refine adjusts previous using the user's feedback verbatim.
func (r *Recommender) Refine(ctx context.Context, goal string, history []lift.Record, previous, feedback string) string {
	prompt := fmt.Sprintf(refineTemplate, previous, feedback, goalText(goal), HistoryText(history))
	return r.complete(ctx, OperationRefine, prompt)
}

func (r *Recommender) complete(ctx context.Context, op, prompt string) string {
	out, err := r.llm.Complete(ctx, liftbot.CompletionRequest{
		Operation:   op,
		Prompt:      prompt,
		Temperature: r.temperature,
	})
	if err != nil {
		slog.Warn("RECOMMEND: completion failed", "operation", op, "error", err)
		return fmt.Sprintf(errorMessage, err)
	}
	return strings.TrimSpace(out)
}

func goalText(goal string) string {
	if strings.TrimSpace(goal) == "" {
		return goalNotSet
	}
	return goal
}

type historyEntry struct {
	Exercise  string  `json:"exercise"`
	Sets      int     `json:"sets"`
	Reps      int     `json:"reps"`
	Weight    float64 `json:"weight"`
	Notes     *string `json:"notes"`
	CreatedAt string  `json:"created_at"`
}

// HistoryText renders the newest HistoryLimit records as indented JSON.
// history must be ordered newest first.
func HistoryText(history []lift.Record) string {
	if len(history) == 0 {
		return historyEmpty
	}
	if len(history) > HistoryLimit {
		history = history[:HistoryLimit]
	}

	entries := make([]historyEntry, 0, len(history))
	for _, h := range history {
		entries = append(entries, historyEntry{
			Exercise:  h.Exercise,
			Sets:      h.Sets,
			Reps:      h.Reps,
			Weight:    h.Weight,
			Notes:     h.Notes,
			CreatedAt: h.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		slog.Error("RECOMMEND: failed to marshal history", "error", err)
		return historyEmpty
	}
	return string(b)
}
