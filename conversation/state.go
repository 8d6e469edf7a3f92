package conversation

import (
	"encoding/json"
	"errors"
	"fmt"

	"liftbot/lift"
)

// State is one step of the /track dialog. The set of implementations is closed.
type State interface {
	Name() string
	isState()
}

const (
	StateAwaitingFreeform = "awaiting_freeform"
	StateConfirming       = "confirming"
	stateFillingPrefix    = "filling_"
)

// AwaitingFreeform waits for free-form lift text.
type AwaitingFreeform struct{}

func (AwaitingFreeform) Name() string { return StateAwaitingFreeform }
func (AwaitingFreeform) isState()     {}

// Filling collects the Missing fields of Draft one at a time. Index points at
// the field currently being asked for.
type Filling struct {
	Draft   lift.Candidate
	Missing []lift.Field
	Index   int
}

func (f Filling) Field() lift.Field { return f.Missing[f.Index] }
func (f Filling) Name() string      { return stateFillingPrefix + string(f.Field()) }
func (Filling) isState()            {}

var ErrNoCandidates = errors.New("confirming requires at least one candidate")

// Confirming holds the lifts awaiting a save or cancel decision.
type Confirming struct {
	candidates []lift.Candidate
}

func NewConfirming(candidates []lift.Candidate) (Confirming, error) {
	if len(candidates) == 0 {
		return Confirming{}, ErrNoCandidates
	}
	return Confirming{candidates: append([]lift.Candidate(nil), candidates...)}, nil
}

func (c Confirming) Candidates() []lift.Candidate {
	return append([]lift.Candidate(nil), c.candidates...)
}

func (Confirming) Name() string { return StateConfirming }
func (Confirming) isState()     {}

// Followup caches what is needed to refine the last recommendation.
type Followup struct {
	Goal               string        `json:"goal"`
	History            []lift.Record `json:"history"`
	LastRecommendation string        `json:"last_recommendation"`
}

// Session is the transient per-user state. A nil Dialog means no /track dialog
// is open; a nil Followup means follow-up mode is off.
type Session struct {
	Dialog   State
	Followup *Followup
}

func (s Session) IsZero() bool { return s.Dialog == nil && s.Followup == nil }

type sessionJSON struct {
	State    string           `json:"state,omitempty"`
	Draft    *lift.Candidate  `json:"draft,omitempty"`
	Missing  []lift.Field     `json:"missing,omitempty"`
	Index    int              `json:"missing_idx,omitempty"`
	Pending  []lift.Candidate `json:"pending_lifts,omitempty"`
	Followup *Followup        `json:"followup,omitempty"`
}

func (s Session) MarshalJSON() ([]byte, error) {
	out := sessionJSON{Followup: s.Followup}

	switch st := s.Dialog.(type) {
	case nil:
	case AwaitingFreeform:
		out.State = st.Name()
	case Filling:
		out.State = st.Name()
		out.Draft = &st.Draft
		out.Missing = st.Missing
		out.Index = st.Index
	case Confirming:
		out.State = st.Name()
		out.Pending = st.candidates
	default:
		return nil, fmt.Errorf("unknown state %T", st)
	}

	return json.Marshal(out)
}

func (s *Session) UnmarshalJSON(b []byte) error {
	var in sessionJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}

	s.Followup = in.Followup
	s.Dialog = nil

	switch {
	case in.State == "":
	case in.State == StateAwaitingFreeform:
		s.Dialog = AwaitingFreeform{}
	case in.State == StateConfirming:
		c, err := NewConfirming(in.Pending)
		if err != nil {
			return err
		}
		s.Dialog = c
	default:
		if in.Index < 0 || in.Index >= len(in.Missing) {
			return fmt.Errorf("state %q: cursor %d outside missing fields", in.State, in.Index)
		}
		f := Filling{Missing: in.Missing, Index: in.Index}
		if in.Draft != nil {
			f.Draft = *in.Draft
		}
		if f.Name() != in.State {
			return fmt.Errorf("state %q does not match cursor field %q", in.State, f.Field())
		}
		s.Dialog = f
	}

	return nil
}
