package liftbot

import (
	"context"
	"net/http"

	"liftbot/lift"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// CompletionRequest is a single-turn prompt sent to a language model.
type CompletionRequest struct {
	// Operation labels the request in logs and metrics (e.g. "extract_lifts").
	Operation   string  `json:"operation"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
}

// Completer is the language-model collaborator. Implementations return the text of the first
// completion choice or an error; they never stream.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Store persists users, their preferences and their lift records.
type Store interface {
	UpsertUser(ctx context.Context, userID int64, username, firstName string) error
	Goal(ctx context.Context, userID int64) (string, error)
	SetGoal(ctx context.Context, userID int64, goal string) error
	Unit(ctx context.Context, userID int64) (lift.Unit, error)
	SetUnit(ctx context.Context, userID int64, unit lift.Unit) error
	InsertLift(ctx context.Context, userID int64, c lift.Candidate, notes string) error
	// Lifts returns the user's records newest first, at most limit of them.
	Lifts(ctx context.Context, userID int64, limit int) ([]lift.Record, error)
}

type SlackClient interface {
	PostMessage(ctx context.Context, channel string, message string) error
}

// Alerter notifies operators about conditions users are not told about in detail.
type Alerter interface {
	Alert(ctx context.Context, message string) error
}
