package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"liftbot"
)

// Reply is one scripted answer. A non-nil Err makes Complete fail.
type Reply struct {
	Content string
	Err     error
}

// LLMClient is a deterministic completer. Scripted replies are consumed in
// order; once exhausted it falls back to canned behaviour per operation so the
// console can run offline.
type LLMClient struct {
	mu       sync.Mutex
	replies  []Reply
	requests []liftbot.CompletionRequest
}

func NewLLMClient(replies ...Reply) *LLMClient {
	return &LLMClient{replies: replies}
}

// Script appends replies to the queue.
func (m *LLMClient) Script(replies ...Reply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, replies...)
}

// Requests returns every request seen so far.
func (m *LLMClient) Requests() []liftbot.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]liftbot.CompletionRequest(nil), m.requests...)
}

func (m *LLMClient) Complete(ctx context.Context, req liftbot.CompletionRequest) (string, error) {
	slog.Info("LLM_CLIENT: Invoked", "operation", req.Operation, "prompt_length", len(req.Prompt))

	m.mu.Lock()
	m.requests = append(m.requests, req)
	var next *Reply
	if len(m.replies) > 0 {
		next = &m.replies[0]
		m.replies = m.replies[1:]
	}
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if next != nil {
		slog.Info("LLM_CLIENT: Returning scripted reply", "operation", req.Operation)
		return next.Content, next.Err
	}

	switch req.Operation {
	case "extract_lifts":
		return cannedExtraction(req.Prompt), nil
	case "recommend", "refine":
		slog.Info("LLM_CLIENT: Returning canned workout")
		return cannedWorkout, nil
	default:
		return "", fmt.Errorf("mock: no reply for operation %q", req.Operation)
	}
}

const cannedWorkout = `• *Squat* — 4 sets × 5 reps @ 225 lbs
• *Bench Press* — 4 sets × 5 reps @ 155 lbs
• *Barbell Row* — 3 sets × 8 reps @ 135 lbs`

// "Bench 3x5 135" or "Bench 3x5 @ 135 lbs"
var liftPattern = regexp.MustCompile(`(?i)^\s*([a-z][a-z ]*?)\s+(\d+)\s*x\s*(\d+)(?:\s*@?\s*(\d+(?:\.\d+)?))?`)

// cannedExtraction understands the simple "name SETSxREPS WEIGHT" shape for
// each comma separated entry after the "User input: " marker.
func cannedExtraction(prompt string) string {
	input := prompt
	if i := strings.LastIndex(prompt, "User input: "); i >= 0 {
		input = prompt[i+len("User input: "):]
	}

	var items []map[string]any
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		m := liftPattern.FindStringSubmatch(part)
		if m == nil {
			items = append(items, map[string]any{"exercise": part, "sets": nil, "reps": nil, "weight": nil})
			continue
		}
		item := map[string]any{"exercise": strings.TrimSpace(m[1]), "sets": atoi(m[2]), "reps": atoi(m[3]), "weight": nil}
		if m[4] != "" {
			w, _ := strconv.ParseFloat(m[4], 64)
			item["weight"] = w
		}
		items = append(items, item)
	}

	b, err := json.Marshal(items)
	if err != nil {
		slog.Error("Failed to marshal extraction", "error", err)
		return ""
	}
	return "```json\n" + string(b) + "\n```"
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
