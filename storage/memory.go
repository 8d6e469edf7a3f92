package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"liftbot/lift"
)

type memoryUser struct {
	username  string
	firstName string
	goal      string
	unit      lift.Unit
}

// Memory is an in-process liftbot.Store for tests and the console.
type Memory struct {
	mu    sync.Mutex
	users map[int64]*memoryUser
	lifts []lift.Record
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{users: make(map[int64]*memoryUser), now: time.Now}
}

// WithClock replaces the clock used for created_at.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) user(userID int64) *memoryUser {
	u, ok := m.users[userID]
	if !ok {
		u = &memoryUser{unit: lift.Pounds}
		m.users[userID] = u
	}
	return u
}

func (m *Memory) UpsertUser(_ context.Context, userID int64, username, firstName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := m.user(userID)
	u.username = username
	u.firstName = firstName
	return nil
}

func (m *Memory) Goal(_ context.Context, userID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[userID]; ok {
		return u.goal, nil
	}
	return "", nil
}

func (m *Memory) SetGoal(_ context.Context, userID int64, goal string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.user(userID).goal = goal
	return nil
}

func (m *Memory) Unit(_ context.Context, userID int64) (lift.Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[userID]; ok {
		return u.unit, nil
	}
	return lift.Pounds, nil
}

func (m *Memory) SetUnit(_ context.Context, userID int64, unit lift.Unit) error {
	if _, ok := lift.ParseUnit(string(unit)); !ok {
		return fmt.Errorf("set unit: unsupported unit %q", unit)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.user(userID).unit = unit
	return nil
}

func (m *Memory) InsertLift(_ context.Context, userID int64, c lift.Candidate, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := lift.Record{
		ID:        uuid.NewString(),
		UserID:    userID,
		Exercise:  c.Exercise,
		Sets:      c.Sets,
		Reps:      c.Reps,
		Weight:    c.Weight,
		CreatedAt: m.now().UTC(),
	}
	if notes != "" {
		r.Notes = &notes
	}
	m.lifts = append(m.lifts, r)
	return nil
}

// Lifts returns at most limit records, newest first. Equal timestamps keep
// reverse insertion order.
func (m *Memory) Lifts(_ context.Context, userID int64, limit int) ([]lift.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []lift.Record
	for i := len(m.lifts) - 1; i >= 0; i-- {
		if m.lifts[i].UserID == userID {
			out = append(out, m.lifts[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
