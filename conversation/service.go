// Package conversation drives every user turn: the /track slot-filling dialog,
// recommendation follow-ups and the remaining commands.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"liftbot"
	"liftbot/lift"
)

type Extractor interface {
	Extract(ctx context.Context, text string) []map[string]any
}

type Recommender interface {
	Recommend(ctx context.Context, goal string, history []lift.Record, request string) string
	Refine(ctx context.Context, goal string, history []lift.Record, previous, feedback string) string
}

// SessionStore keeps encoded sessions keyed by user.
type SessionStore interface {
	Get(ctx context.Context, userID int64) ([]byte, bool, error)
	Put(ctx context.Context, userID int64, data []byte) error
	Delete(ctx context.Context, userID int64) error
}

// User is the chat platform identity of the sender.
type User struct {
	ID        int64
	Username  string
	FirstName string
}

type Button struct {
	Label string
	Data  string
}

// Reply is one outgoing message. ReplacePrompt asks the transport to edit the
// message that carried the pressed button instead of sending a new one.
type Reply struct {
	Text          string
	Markdown      bool
	Buttons       []Button
	ReplacePrompt bool
}

type ServiceOptions struct {
	HistoryLimit int
	ViewLimit    int
	Alerter      liftbot.Alerter
	Tracer       trace.Tracer

	// Notify, when set, delivers progress notices immediately instead of
	// returning them with the rest of the turn's replies.
	Notify func(ctx context.Context, u User, r Reply)
}

type Service struct {
	store       liftbot.Store
	sessions    SessionStore
	extractor   Extractor
	recommender Recommender
	opts        ServiceOptions
	locks       *userLocks
}

func NewService(store liftbot.Store, sessions SessionStore, ex Extractor, rec Recommender, opts ServiceOptions) *Service {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 100
	}
	if opts.ViewLimit <= 0 {
		opts.ViewLimit = 100
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(liftbot.TracerNameConversation)
	}

	return &Service{
		store:       store,
		sessions:    sessions,
		extractor:   ex,
		recommender: rec,
		opts:        opts,
		locks:       newUserLocks(),
	}
}

// turn serializes work for one user and wraps it in a span.
func (s *Service) turn(ctx context.Context, u User, name string, fn func(ctx context.Context) []Reply) []Reply {
	unlock := s.locks.lock(u.ID)
	defer unlock()

	ctx, span := s.opts.Tracer.Start(ctx, "Service."+name)
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", u.ID))

	replies := fn(ctx)

	slog.Debug("CONVERSATION: turn complete", "entry", name, "user_id", u.ID, "replies", len(replies))
	span.SetAttributes(attribute.Int("replies", len(replies)))
	return replies
}

func (s *Service) Start(ctx context.Context, u User) []Reply {
	return s.turn(ctx, u, "Start", func(ctx context.Context) []Reply {
		s.upsertUser(ctx, u)
		s.clearSession(ctx, u.ID)
		return []Reply{{Text: msgStart, Markdown: true}}
	})
}

func (s *Service) Help(ctx context.Context, u User) []Reply {
	return s.turn(ctx, u, "Help", func(ctx context.Context) []Reply {
		s.upsertUser(ctx, u)
		s.clearSession(ctx, u.ID)
		return []Reply{{Text: msgHelp, Markdown: true}}
	})
}

// SetGoal stores args as the goal. Without args it shows an example.
func (s *Service) SetGoal(ctx context.Context, u User, args string) []Reply {
	return s.turn(ctx, u, "SetGoal", func(ctx context.Context) []Reply {
		s.upsertUser(ctx, u)
		s.clearSession(ctx, u.ID)

		goal := strings.Join(strings.Fields(args), " ")
		if goal == "" {
			return []Reply{{Text: msgSetGoalExample, Markdown: true}}
		}

		if err := s.store.SetGoal(ctx, u.ID, goal); err != nil {
			slog.Error("CONVERSATION: failed to set goal", "user_id", u.ID, "error", err)
			return []Reply{{Text: msgFailure}}
		}
		return []Reply{{Text: fmt.Sprintf(msgSetGoalUpdated, goal), Markdown: true}}
	})
}

// SetUnit sets the display unit from the first argument.
func (s *Service) SetUnit(ctx context.Context, u User, args string) []Reply {
	return s.turn(ctx, u, "SetUnit", func(ctx context.Context) []Reply {
		s.upsertUser(ctx, u)
		s.clearSession(ctx, u.ID)

		fields := strings.Fields(args)
		if len(fields) == 0 {
			return []Reply{{Text: msgSetUnitUsage, Markdown: true}}
		}
		unit, ok := lift.ParseUnit(fields[0])
		if !ok {
			return []Reply{{Text: msgSetUnitUsage, Markdown: true}}
		}

		if err := s.store.SetUnit(ctx, u.ID, unit); err != nil {
			slog.Error("CONVERSATION: failed to set unit", "user_id", u.ID, "error", err)
			return []Reply{{Text: msgFailure}}
		}
		return []Reply{{Text: fmt.Sprintf(msgSetUnitUpdated, unit), Markdown: true}}
	})
}

// Track opens a fresh dialog, discarding any previous session state.
func (s *Service) Track(ctx context.Context, u User) []Reply {
	return s.turn(ctx, u, "Track", func(ctx context.Context) []Reply {
		s.upsertUser(ctx, u)
		s.saveSession(ctx, u.ID, Session{Dialog: AwaitingFreeform{}})
		return []Reply{{Text: msgTrackStart}}
	})
}

// Recommend produces a recommendation and enters follow-up mode.
func (s *Service) Recommend(ctx context.Context, u User, args string) []Reply {
	return s.turn(ctx, u, "Recommend", func(ctx context.Context) []Reply {
		s.upsertUser(ctx, u)

		goal := s.goal(ctx, u.ID)
		history := s.history(ctx, u.ID, s.opts.HistoryLimit)

		replies := s.notify(ctx, u, Reply{Text: msgRecommendLoading})
		rec := s.recommender.Recommend(ctx, goal, history, strings.TrimSpace(args))

		s.saveSession(ctx, u.ID, Session{Followup: &Followup{
			Goal:               goal,
			History:            history,
			LastRecommendation: rec,
		}})

		return append(replies,
			Reply{Text: rec, Markdown: true},
			Reply{Text: msgRefinePrompt},
		)
	})
}

func (s *Service) View(ctx context.Context, u User) []Reply {
	return s.turn(ctx, u, "View", func(ctx context.Context) []Reply {
		s.upsertUser(ctx, u)
		s.clearSession(ctx, u.ID)

		records := s.history(ctx, u.ID, s.opts.ViewLimit)
		if len(records) == 0 {
			return []Reply{{Text: msgViewEmpty}}
		}
		return []Reply{{Text: RenderHistory(records, s.unit(ctx, u.ID)), Markdown: true}}
	})
}

// Cancel clears everything, whatever state the user is in.
func (s *Service) Cancel(ctx context.Context, u User) []Reply {
	return s.turn(ctx, u, "Cancel", func(ctx context.Context) []Reply {
		s.clearSession(ctx, u.ID)
		return []Reply{{Text: msgCancel}}
	})
}

// Text handles a message that is not a command. Inside a dialog it drives the
// state machine; otherwise it may refine the last recommendation.
func (s *Service) Text(ctx context.Context, u User, text string) []Reply {
	return s.turn(ctx, u, "Text", func(ctx context.Context) []Reply {
		sess := s.loadSession(ctx, u.ID)

		switch st := sess.Dialog.(type) {
		case AwaitingFreeform:
			return s.freeform(ctx, u, text)
		case Filling:
			return s.fill(ctx, u, st, text)
		case Confirming:
			return nil
		}

		return s.followup(ctx, u, sess.Followup, text)
	})
}

// Button handles an inline button press. Presses outside Confirming are stale.
func (s *Service) Button(ctx context.Context, u User, data string) []Reply {
	return s.turn(ctx, u, "Button", func(ctx context.Context) []Reply {
		sess := s.loadSession(ctx, u.ID)

		st, ok := sess.Dialog.(Confirming)
		if !ok {
			slog.Debug("CONVERSATION: ignoring stale button", "user_id", u.ID, "data", data)
			return nil
		}

		switch data {
		case DataConfirmCancel:
			s.clearSession(ctx, u.ID)
			return []Reply{{Text: msgTrackCancelled, ReplacePrompt: true}}
		case DataConfirmSave:
			return s.save(ctx, u, st)
		default:
			return nil
		}
	})
}

func (s *Service) freeform(ctx context.Context, u User, text string) []Reply {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	next := Begin(s.extractor.Extract(ctx, text))
	s.saveSession(ctx, u.ID, Session{Dialog: next})

	slog.Info("CONVERSATION: extraction routed", "user_id", u.ID, "state", next.Name())
	return s.prompt(ctx, u, next)
}

func (s *Service) fill(ctx context.Context, u User, st Filling, text string) []Reply {
	next, err := st.Accept(text)
	if err != nil {
		return []Reply{{Text: fieldErrorMessage(st.Field(), err)}}
	}

	s.saveSession(ctx, u.ID, Session{Dialog: next})
	return s.prompt(ctx, u, next)
}

// prompt asks for whatever state wants next.
func (s *Service) prompt(ctx context.Context, u User, st State) []Reply {
	switch st := st.(type) {
	case Filling:
		return []Reply{{Text: fillPrompts[st.Field()]}}
	case Confirming:
		unit := s.unit(ctx, u.ID)
		candidates := st.Candidates()
		lines := make([]string, 0, len(candidates))
		for _, c := range candidates {
			lines = append(lines, lift.FormatLift(c, unit))
		}
		return []Reply{{
			Text:     fmt.Sprintf(msgConfirmQuestion, len(candidates), strings.Join(lines, "\n")),
			Markdown: true,
			Buttons: []Button{
				{Label: labelConfirm, Data: DataConfirmSave},
				{Label: labelCancel, Data: DataConfirmCancel},
			},
		}}
	}
	return nil
}

// save persists every candidate in order. A failure stops at the failing
// candidate; records already written stay written.
func (s *Service) save(ctx context.Context, u User, st Confirming) []Reply {
	candidates := st.Candidates()

	for i, c := range candidates {
		if err := s.store.InsertLift(ctx, u.ID, c, ""); err != nil {
			slog.Error("CONVERSATION: failed to save lift",
				"user_id", u.ID,
				"saved", i,
				"total", len(candidates),
				"error", err,
			)
			s.alert(ctx, fmt.Sprintf("liftbot: save failed for user %d after %d of %d lifts were written: %v", u.ID, i, len(candidates), err))
			s.clearSession(ctx, u.ID)
			return []Reply{{Text: msgSaveFailed, ReplacePrompt: true}}
		}
	}

	s.saveSession(ctx, u.ID, Session{Dialog: AwaitingFreeform{}})

	unit := s.unit(ctx, u.ID)
	saved := fmt.Sprintf(msgSaved, lift.FormatLift(candidates[0], unit))
	if len(candidates) > 1 {
		saved = fmt.Sprintf(msgSavedMulti, len(candidates))
	}

	slog.Info("CONVERSATION: lifts saved", "user_id", u.ID, "count", len(candidates))
	return []Reply{
		{Text: saved, Markdown: true, ReplacePrompt: true},
		{Text: msgContinue},
	}
}

func (s *Service) followup(ctx context.Context, u User, f *Followup, text string) []Reply {
	if f == nil {
		return nil
	}
	feedback := strings.TrimSpace(text)
	if feedback == "" {
		return nil
	}

	replies := s.notify(ctx, u, Reply{Text: msgRecommendLoading})
	rec := s.recommender.Refine(ctx, f.Goal, f.History, f.LastRecommendation, feedback)

	next := *f
	next.LastRecommendation = rec
	s.saveSession(ctx, u.ID, Session{Followup: &next})

	return append(replies,
		Reply{Text: rec, Markdown: true},
		Reply{Text: msgRefinePrompt},
	)
}

func (s *Service) notify(ctx context.Context, u User, r Reply) []Reply {
	if s.opts.Notify == nil {
		return []Reply{r}
	}
	s.opts.Notify(ctx, u, r)
	return nil
}

func fieldErrorMessage(field lift.Field, err error) string {
	if errors.Is(err, lift.ErrWrongType) {
		hint := "a number"
		if field == lift.FieldExercise {
			hint = "text"
		}
		return fmt.Sprintf(msgInvalidType, hint)
	}

	switch field {
	case lift.FieldExercise:
		return msgInvalidExercise
	case lift.FieldWeight:
		return msgInvalidWeight
	default:
		return msgInvalidCount
	}
}

func (s *Service) upsertUser(ctx context.Context, u User) {
	if err := s.store.UpsertUser(ctx, u.ID, u.Username, u.FirstName); err != nil {
		slog.Warn("CONVERSATION: failed to upsert user", "user_id", u.ID, "error", err)
	}
}

func (s *Service) goal(ctx context.Context, userID int64) string {
	goal, err := s.store.Goal(ctx, userID)
	if err != nil {
		slog.Warn("CONVERSATION: failed to read goal", "user_id", userID, "error", err)
		return ""
	}
	return goal
}

func (s *Service) unit(ctx context.Context, userID int64) lift.Unit {
	unit, err := s.store.Unit(ctx, userID)
	if err != nil || unit == "" {
		if err != nil {
			slog.Warn("CONVERSATION: failed to read unit", "user_id", userID, "error", err)
		}
		return lift.Pounds
	}
	return unit
}

func (s *Service) history(ctx context.Context, userID int64, limit int) []lift.Record {
	records, err := s.store.Lifts(ctx, userID, limit)
	if err != nil {
		slog.Warn("CONVERSATION: failed to read lifts", "user_id", userID, "error", err)
		return nil
	}
	return records
}

func (s *Service) alert(ctx context.Context, msg string) {
	if s.opts.Alerter == nil {
		return
	}
	if err := s.opts.Alerter.Alert(ctx, msg); err != nil {
		slog.Error("CONVERSATION: failed to send alert", "error", err)
	}
}

func (s *Service) loadSession(ctx context.Context, userID int64) Session {
	b, ok, err := s.sessions.Get(ctx, userID)
	if err != nil {
		slog.Error("SESSION: failed to load", "user_id", userID, "error", err)
		return Session{}
	}
	if !ok {
		return Session{}
	}

	var sess Session
	if err := json.Unmarshal(b, &sess); err != nil {
		slog.Error("SESSION: discarding undecodable session", "user_id", userID, "error", err)
		return Session{}
	}
	return sess
}

func (s *Service) saveSession(ctx context.Context, userID int64, sess Session) {
	if sess.IsZero() {
		s.clearSession(ctx, userID)
		return
	}

	b, err := json.Marshal(sess)
	if err != nil {
		slog.Error("SESSION: failed to encode", "user_id", userID, "error", err)
		return
	}
	if err := s.sessions.Put(ctx, userID, b); err != nil {
		slog.Error("SESSION: failed to store", "user_id", userID, "error", err)
	}
}

func (s *Service) clearSession(ctx context.Context, userID int64) {
	if err := s.sessions.Delete(ctx, userID); err != nil {
		slog.Error("SESSION: failed to delete", "user_id", userID, "error", err)
	}
}

// userLocks hands out one mutex per user, dropped when nobody holds it.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[int64]*userLock)}
}

func (l *userLocks) lock(userID int64) (unlock func()) {
	l.mu.Lock()
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()

	return func() {
		ul.mu.Unlock()

		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
