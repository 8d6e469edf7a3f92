// Package extract turns free-form lift text into raw candidate mappings with a
// single language-model call.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"liftbot"
	"liftbot/lift"
)

const Operation = "extract_lifts"

var ErrUnexpectedShape = errors.New("response is neither a JSON object nor an array")

type Extractor struct {
	llm         liftbot.Completer
	temperature float64
}

// NewExtractor returns an Extractor sampling at temperature. Callers normally pass 0.
func NewExtractor(llm liftbot.Completer, temperature float64) *Extractor {
	return &Extractor{llm: llm, temperature: temperature}
}

// Extract asks the model to structure text. It never fails: transport errors and
// malformed answers both yield an empty slice.
func (e *Extractor) Extract(ctx context.Context, text string) []map[string]any {
	content, err := e.llm.Complete(ctx, liftbot.CompletionRequest{
		Operation:   Operation,
		Prompt:      Prompt(text),
		Temperature: e.temperature,
	})
	if err != nil {
		slog.Warn("EXTRACT: completion failed", "error", err)
		return nil
	}

	items, err := Decode(content)
	if err != nil {
		slog.Info("EXTRACT: discarding malformed response", "error", err, "content_length", len(content))
		return nil
	}

	slog.Debug("EXTRACT: decoded response", "items", len(items))
	return items
}

// Decode is the structural phase: strip fences, decode a generic tree and
// normalize it to a sequence of objects. Non-object array elements are dropped.
func Decode(content string) ([]map[string]any, error) {
	content = StripFences(content)
	if content == "" {
		return nil, errors.New("empty response")
	}

	var tree any
	if err := json.Unmarshal([]byte(content), &tree); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	switch v := tree.(type) {
	case map[string]any:
		return []map[string]any{v}, nil
	case []any:
		items := make([]map[string]any, 0, len(v))
		for _, el := range v {
			if obj, ok := el.(map[string]any); ok {
				items = append(items, obj)
			}
		}
		return items, nil
	default:
		return nil, ErrUnexpectedShape
	}
}

// StripFences removes a surrounding markdown code fence and its language tag,
// whatever its case.
func StripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	content = strings.TrimPrefix(content, "```")
	if end := strings.Index(content, "```"); end >= 0 {
		content = content[:end]
	}
	// language tag: json, JSON, javascript...
	content = strings.TrimLeftFunc(content, unicode.IsLetter)

	return strings.TrimSpace(content)
}

// Candidates is the typed phase: every item is run through the validator and
// incomplete ones are dropped without affecting the rest.
func Candidates(items []map[string]any) []lift.Candidate {
	var out []lift.Candidate
	for _, item := range items {
		if c, ok := lift.Validate(item); ok {
			out = append(out, c)
		}
	}
	return out
}
