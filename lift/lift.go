// Package lift holds the lift record types, their validation rules and weight display.
package lift

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	MinSets   = 1
	MaxSets   = 100
	MinReps   = 1
	MaxReps   = 100
	MaxWeight = 2000.0
)

var (
	ErrWrongType  = errors.New("wrong type")
	ErrOutOfRange = errors.New("out of range")
)

// Candidate is an unpersisted lift. Weight is always in pounds.
type Candidate struct {
	Exercise string  `json:"exercise"`
	Sets     int     `json:"sets"`
	Reps     int     `json:"reps"`
	Weight   float64 `json:"weight"`
}

// Record is a persisted lift.
type Record struct {
	ID        string    `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Exercise  string    `db:"exercise" json:"exercise"`
	Sets      int       `db:"sets" json:"sets"`
	Reps      int       `db:"reps" json:"reps"`
	Weight    float64   `db:"weight" json:"weight"`
	Notes     *string   `db:"notes" json:"notes"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (r Record) Candidate() Candidate {
	return Candidate{Exercise: r.Exercise, Sets: r.Sets, Reps: r.Reps, Weight: r.Weight}
}

// Field names one slot of a candidate.
type Field string

const (
	FieldExercise Field = "exercise"
	FieldSets     Field = "sets"
	FieldReps     Field = "reps"
	FieldWeight   Field = "weight"
)

// Fields lists every field in the order they are collected.
var Fields = []Field{FieldExercise, FieldSets, FieldReps, FieldWeight}

// FieldError is returned by ParseField. Err is ErrWrongType or ErrOutOfRange.
type FieldError struct {
	Field Field
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Validate turns a loosely typed mapping into a complete candidate.
// It reports false when any field is missing, has the wrong shape or is out of bounds.
func Validate(raw map[string]any) (Candidate, bool) {
	if raw == nil {
		return Candidate{}, false
	}

	exercise, ok := CoerceExercise(raw["exercise"])
	if !ok {
		return Candidate{}, false
	}
	sets, ok := CoerceInt(raw["sets"])
	if !ok || !SetsInRange(sets) {
		return Candidate{}, false
	}
	reps, ok := CoerceInt(raw["reps"])
	if !ok || !RepsInRange(reps) {
		return Candidate{}, false
	}
	weight, ok := CoerceWeight(raw["weight"])
	if !ok || !WeightInRange(weight) {
		return Candidate{}, false
	}

	return Candidate{Exercise: exercise, Sets: sets, Reps: reps, Weight: weight}, true
}

// CoerceExercise accepts non-empty text and returns it trimmed.
func CoerceExercise(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// CoerceInt accepts JSON numbers (truncated toward zero) and integer strings.
func CoerceInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || math.Abs(n) > math.MaxInt32 {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// CoerceWeight accepts finite JSON numbers and numeric strings.
func CoerceWeight(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func SetsInRange(n int) bool { return n >= MinSets && n <= MaxSets }

func RepsInRange(n int) bool { return n >= MinReps && n <= MaxReps }

func WeightInRange(w float64) bool { return w > 0 && w <= MaxWeight }

// ParseField parses user-typed text for one field. The value is a string for
// FieldExercise, an int for sets and reps, and a float64 for weight.
func ParseField(field Field, text string) (any, error) {
	text = strings.TrimSpace(text)

	switch field {
	case FieldExercise:
		if text == "" {
			return nil, &FieldError{Field: field, Err: ErrOutOfRange}
		}
		return text, nil

	case FieldSets, FieldReps:
		n, err := strconv.Atoi(text)
		if err != nil {
			return nil, &FieldError{Field: field, Err: ErrWrongType}
		}
		if (field == FieldSets && !SetsInRange(n)) || (field == FieldReps && !RepsInRange(n)) {
			return nil, &FieldError{Field: field, Err: ErrOutOfRange}
		}
		return n, nil

	case FieldWeight:
		w, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, &FieldError{Field: field, Err: ErrWrongType}
		}
		if math.IsNaN(w) || math.IsInf(w, 0) || !WeightInRange(w) {
			return nil, &FieldError{Field: field, Err: ErrOutOfRange}
		}
		return w, nil

	default:
		return nil, fmt.Errorf("unknown field %q", field)
	}
}
