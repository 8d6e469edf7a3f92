package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"liftbot/conversation"
	"liftbot/extract"
	"liftbot/llm/mock"
	"liftbot/recommend"
	"liftbot/session"
	"liftbot/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userID int64 = 4242

// fakeAPI records everything sent. rejectMarkdown fails the first n sends
// that carry a parse mode.
type fakeAPI struct {
	mu             sync.Mutex
	sent           []tgbotapi.Chattable
	requests       []tgbotapi.Chattable
	rejectMarkdown int
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.rejectMarkdown > 0 {
		if m, ok := c.(tgbotapi.MessageConfig); ok && m.ParseMode != "" {
			f.rejectMarkdown--
			return tgbotapi.Message{}, errors.New("Bad Request: can't parse entities")
		}
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) messages(t *testing.T) []tgbotapi.MessageConfig {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeAPI) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent, f.requests = nil, nil
}

type fixture struct {
	api   *fakeAPI
	llm   *mock.LLMClient
	store *storage.Memory
	d     *Dispatcher
}

func newFixture(t *testing.T, replies ...mock.Reply) *fixture {
	t.Helper()

	f := &fixture{
		api:   &fakeAPI{},
		llm:   mock.NewLLMClient(replies...),
		store: storage.NewMemory(),
	}
	svc := conversation.NewService(
		f.store,
		session.NewMemory(),
		extract.NewExtractor(f.llm, 0),
		recommend.NewRecommender(f.llm, 0.7),
		conversation.ServiceOptions{Notify: Notifier(f.api)},
	)
	f.d = NewDispatcher(f.api, svc)
	return f
}

func command(text string) tgbotapi.Update {
	name := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: userID, UserName: "ann", FirstName: "Ann"},
		Chat:     &tgbotapi.Chat{ID: userID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func text(s string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID, FirstName: "Ann"},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: s,
	}}
}

func press(data string, messageID int) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: userID, FirstName: "Ann"},
		Message: &tgbotapi.Message{MessageID: messageID, Chat: &tgbotapi.Chat{ID: userID}},
		Data:    data,
	}}
}

func TestHandleStart(t *testing.T) {
	f := newFixture(t)
	f.d.Handle(context.Background(), command("/start"))

	msgs := f.api.messages(t)
	require.Len(t, msgs, 1)
	assert.Equal(t, userID, msgs[0].ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdown, msgs[0].ParseMode)
	assert.Contains(t, msgs[0].Text, "LiftBot")
}

func TestHandleUnknownCommandIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.d.Handle(context.Background(), command("/dance now"))
	assert.Empty(t, f.api.messages(t))
}

func TestHandleCommandArguments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.d.Handle(ctx, command("/setgoal Bench 225 by June"))
	goal, err := f.store.Goal(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Bench 225 by June", goal)

	f.d.Handle(ctx, command("/setunit kg"))
	unit, err := f.store.Unit(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, "kg", unit)
}

func TestTrackConfirmFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.d.Handle(ctx, command("/track"))
	f.api.reset()

	f.d.Handle(ctx, text("Bench 3x5 135"))
	msgs := f.api.messages(t)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Save 1 lift(s)?")

	markup, ok := msgs[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	require.Len(t, markup.InlineKeyboard[0], 2)
	require.NotNil(t, markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, conversation.DataConfirmSave, *markup.InlineKeyboard[0][0].CallbackData)

	f.api.reset()
	f.d.Handle(ctx, press(conversation.DataConfirmSave, 77))

	require.Len(t, f.api.requests, 1)
	_, answered := f.api.requests[0].(tgbotapi.CallbackConfig)
	assert.True(t, answered)

	require.Len(t, f.api.sent, 2)
	edit, ok := f.api.sent[0].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, 77, edit.MessageID)
	assert.Contains(t, edit.Text, "Saved")

	records, err := f.store.Lifts(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Bench", records[0].Exercise)
}

func TestStaleButtonIsAnsweredButIgnored(t *testing.T) {
	f := newFixture(t)
	f.d.Handle(context.Background(), press(conversation.DataConfirmSave, 5))

	assert.Len(t, f.api.requests, 1)
	assert.Empty(t, f.api.sent)
}

func TestMarkdownFallback(t *testing.T) {
	f := newFixture(t)
	f.api.rejectMarkdown = 1

	f.d.Handle(context.Background(), command("/help"))

	msgs := f.api.messages(t)
	require.Len(t, msgs, 1)
	assert.Empty(t, msgs[0].ParseMode)
	assert.Contains(t, msgs[0].Text, "LiftBot")
}

func TestRecommendSendsLoadingNoticeFirst(t *testing.T) {
	f := newFixture(t, mock.Reply{Content: "• *Squat* 3x5"})

	f.d.Handle(context.Background(), command("/recommend"))

	msgs := f.api.messages(t)
	require.Len(t, msgs, 3)
	assert.Equal(t, "Generating recommendation...", msgs[0].Text)
	assert.Equal(t, "• *Squat* 3x5", msgs[1].Text)
	assert.Contains(t, msgs[2].Text, "Send feedback")
}

func TestRegisterCommands(t *testing.T) {
	api := &fakeAPI{}
	require.NoError(t, RegisterCommands(api))

	require.Len(t, api.requests, 1)
	cfg, ok := api.requests[0].(tgbotapi.SetMyCommandsConfig)
	require.True(t, ok)
	assert.Len(t, cfg.Commands, len(Commands))

	var names []string
	for _, c := range cfg.Commands {
		names = append(names, c.Command)
	}
	assert.Equal(t, []string{"start", "track", "recommend", "view", "setgoal", "setunit", "help", "cancel"}, names)
}

func TestLanesKeepPerUserOrder(t *testing.T) {
	var mu sync.Mutex
	seen := map[int64][]int{}

	l := newLanes(func(_ context.Context, u tgbotapi.Update) {
		time.Sleep(time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		id := u.Message.From.ID
		seen[id] = append(seen[id], u.UpdateID)
	})

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		for _, id := range []int64{1, 2, 3} {
			u := text("x")
			u.UpdateID = i
			u.Message.From = &tgbotapi.User{ID: id}
			l.push(ctx, id, u)
		}
	}
	l.wait()

	for _, id := range []int64{1, 2, 3} {
		require.Len(t, seen[id], 20)
		for i, got := range seen[id] {
			assert.Equal(t, i, got, "user %d", id)
		}
	}
	assert.Empty(t, l.pending)
}

func TestRunStopsWhenUpdatesClose(t *testing.T) {
	f := newFixture(t)
	updates := make(chan tgbotapi.Update, 2)
	updates <- command("/start")
	updates <- command("/help")
	close(updates)

	f.d.Run(context.Background(), updates)
	assert.Len(t, f.api.messages(t), 2)
}
