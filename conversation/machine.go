package conversation

import (
	"liftbot/extract"
	"liftbot/lift"
)

// Begin decides where the dialog goes after extraction. Complete candidates
// skip straight to Confirming; otherwise the first item seeds a Filling state.
func Begin(items []map[string]any) State {
	if complete := extract.Candidates(items); len(complete) > 0 {
		c, _ := NewConfirming(complete)
		return c
	}

	var first map[string]any
	if len(items) > 0 {
		first = items[0]
	}

	draft, missing := seed(first)
	if len(missing) == 0 {
		c, _ := NewConfirming([]lift.Candidate{draft})
		return c
	}

	return Filling{Draft: draft, Missing: missing, Index: 0}
}

// seed keeps every individually valid field of raw and reports the rest as
// missing, in collection order.
func seed(raw map[string]any) (lift.Candidate, []lift.Field) {
	var (
		draft   lift.Candidate
		missing []lift.Field
	)

	if v, ok := lift.CoerceExercise(raw["exercise"]); ok {
		draft.Exercise = v
	} else {
		missing = append(missing, lift.FieldExercise)
	}

	if v, ok := lift.CoerceInt(raw["sets"]); ok && lift.SetsInRange(v) {
		draft.Sets = v
	} else {
		missing = append(missing, lift.FieldSets)
	}

	if v, ok := lift.CoerceInt(raw["reps"]); ok && lift.RepsInRange(v) {
		draft.Reps = v
	} else {
		missing = append(missing, lift.FieldReps)
	}

	if v, ok := lift.CoerceWeight(raw["weight"]); ok && lift.WeightInRange(v) {
		draft.Weight = v
	} else {
		missing = append(missing, lift.FieldWeight)
	}

	return draft, missing
}

// Accept applies text to the current field. On a validation error the
// returned state is f unchanged.
func (f Filling) Accept(text string) (State, error) {
	field := f.Field()

	v, err := lift.ParseField(field, text)
	if err != nil {
		return f, err
	}

	draft := f.Draft
	switch field {
	case lift.FieldExercise:
		draft.Exercise = v.(string)
	case lift.FieldSets:
		draft.Sets = v.(int)
	case lift.FieldReps:
		draft.Reps = v.(int)
	case lift.FieldWeight:
		draft.Weight = v.(float64)
	}

	if next := f.Index + 1; next < len(f.Missing) {
		return Filling{Draft: draft, Missing: f.Missing, Index: next}, nil
	}

	c, _ := NewConfirming([]lift.Candidate{draft})
	return c, nil
}
