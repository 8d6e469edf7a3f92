package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"liftbot/lift"
)

// SQLStore implements liftbot.Store on sqlite or Postgres.
type SQLStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

// WithClock replaces the clock used for created_at.
func (s *SQLStore) WithClock(now func() time.Time) *SQLStore {
	s.now = now
	return s
}

func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// UpsertUser records display names without touching goal or unit.
func (s *SQLStore) UpsertUser(ctx context.Context, userID int64, username, firstName string) error {
	query := `INSERT INTO users (id, username, first_name) VALUES ($1, $2, $3)
	          ON CONFLICT (id) DO UPDATE SET username = excluded.username, first_name = excluded.first_name`

	_, err := s.db.ExecContext(ctx, query, userID, nullString(username), nullString(firstName))
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *SQLStore) Goal(ctx context.Context, userID int64) (string, error) {
	var goal sql.NullString
	err := s.db.GetContext(ctx, &goal, `SELECT goal FROM users WHERE id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get goal: %w", err)
	}
	return goal.String, nil
}

func (s *SQLStore) SetGoal(ctx context.Context, userID int64, goal string) error {
	query := `INSERT INTO users (id, goal) VALUES ($1, $2)
	          ON CONFLICT (id) DO UPDATE SET goal = excluded.goal`

	if _, err := s.db.ExecContext(ctx, query, userID, goal); err != nil {
		return fmt.Errorf("set goal: %w", err)
	}
	return nil
}

// Unit defaults to pounds for unknown users and unrecognized values.
func (s *SQLStore) Unit(ctx context.Context, userID int64) (lift.Unit, error) {
	var unit string
	err := s.db.GetContext(ctx, &unit, `SELECT weight_unit FROM users WHERE id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return lift.Pounds, nil
	}
	if err != nil {
		return lift.Pounds, fmt.Errorf("get unit: %w", err)
	}
	if u, ok := lift.ParseUnit(unit); ok {
		return u, nil
	}
	return lift.Pounds, nil
}

func (s *SQLStore) SetUnit(ctx context.Context, userID int64, unit lift.Unit) error {
	if _, ok := lift.ParseUnit(string(unit)); !ok {
		return fmt.Errorf("set unit: unsupported unit %q", unit)
	}

	query := `INSERT INTO users (id, weight_unit) VALUES ($1, $2)
	          ON CONFLICT (id) DO UPDATE SET weight_unit = excluded.weight_unit`

	if _, err := s.db.ExecContext(ctx, query, userID, string(unit)); err != nil {
		return fmt.Errorf("set unit: %w", err)
	}
	return nil
}

func (s *SQLStore) InsertLift(ctx context.Context, userID int64, c lift.Candidate, notes string) error {
	query := `INSERT INTO lifts (id, user_id, exercise, sets, reps, weight, notes, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query,
		uuid.NewString(),
		userID,
		c.Exercise,
		c.Sets,
		c.Reps,
		c.Weight,
		nullString(notes),
		s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert lift: %w", err)
	}
	return nil
}

// Lifts returns at most limit records, newest first.
func (s *SQLStore) Lifts(ctx context.Context, userID int64, limit int) ([]lift.Record, error) {
	var records []lift.Record
	query := `SELECT id, user_id, exercise, sets, reps, weight, notes, created_at
	          FROM lifts WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	if err := s.db.SelectContext(ctx, &records, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list lifts: %w", err)
	}
	return records, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
