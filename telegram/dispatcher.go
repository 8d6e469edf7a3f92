// Package telegram adapts Telegram bot updates to the conversation service.
package telegram

import (
	"context"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"liftbot"
	"liftbot/conversation"
)

// API is the subset of *tgbotapi.BotAPI the dispatcher needs.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Conversation is implemented by *conversation.Service.
type Conversation interface {
	Start(ctx context.Context, u conversation.User) []conversation.Reply
	Help(ctx context.Context, u conversation.User) []conversation.Reply
	SetGoal(ctx context.Context, u conversation.User, args string) []conversation.Reply
	SetUnit(ctx context.Context, u conversation.User, args string) []conversation.Reply
	Track(ctx context.Context, u conversation.User) []conversation.Reply
	Recommend(ctx context.Context, u conversation.User, args string) []conversation.Reply
	View(ctx context.Context, u conversation.User) []conversation.Reply
	Cancel(ctx context.Context, u conversation.User) []conversation.Reply
	Text(ctx context.Context, u conversation.User, text string) []conversation.Reply
	Button(ctx context.Context, u conversation.User, data string) []conversation.Reply
}

type Dispatcher struct {
	api    API
	conv   Conversation
	tracer trace.Tracer
}

func NewDispatcher(api API, conv Conversation) *Dispatcher {
	return &Dispatcher{
		api:    api,
		conv:   conv,
		tracer: otel.Tracer(liftbot.TracerNameTelegram),
	}
}

type chatKey struct{}

func withChat(ctx context.Context, chatID int64) context.Context {
	return context.WithValue(ctx, chatKey{}, chatID)
}

// chatFrom falls back to the user id, which is the chat id of a private chat.
func chatFrom(ctx context.Context, userID int64) int64 {
	if id, ok := ctx.Value(chatKey{}).(int64); ok {
		return id
	}
	return userID
}

// Handle processes one update to completion.
func (d *Dispatcher) Handle(ctx context.Context, update tgbotapi.Update) {
	ctx, span := d.tracer.Start(ctx, "Dispatcher.Handle")
	defer span.End()
	span.SetAttributes(attribute.Int("update.id", update.UpdateID))

	switch {
	case update.CallbackQuery != nil:
		span.SetAttributes(attribute.String("update.kind", "callback"))
		d.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		span.SetAttributes(attribute.String("update.kind", "message"))
		d.handleMessage(ctx, update.Message)
	default:
		slog.Debug("TELEGRAM: ignoring update", "update_id", update.UpdateID)
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	if msg.Text == "" {
		slog.Debug("TELEGRAM: ignoring non-text message", "user_id", msg.From.ID)
		return
	}

	u := userFrom(msg.From)
	ctx = withChat(ctx, msg.Chat.ID)

	var replies []conversation.Reply
	if msg.IsCommand() {
		args := msg.CommandArguments()
		switch msg.Command() {
		case "start":
			replies = d.conv.Start(ctx, u)
		case "help":
			replies = d.conv.Help(ctx, u)
		case "setgoal":
			replies = d.conv.SetGoal(ctx, u, args)
		case "setunit":
			replies = d.conv.SetUnit(ctx, u, args)
		case "track":
			replies = d.conv.Track(ctx, u)
		case "recommend":
			replies = d.conv.Recommend(ctx, u, args)
		case "view":
			replies = d.conv.View(ctx, u)
		case "cancel":
			replies = d.conv.Cancel(ctx, u)
		default:
			slog.Debug("TELEGRAM: unknown command", "user_id", u.ID, "command", msg.Command())
			return
		}
	} else {
		replies = d.conv.Text(ctx, u, msg.Text)
	}

	for _, r := range replies {
		d.send(ctx, msg.Chat.ID, r)
	}
}

func (d *Dispatcher) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	// Clears the loading spinner on the pressed button.
	if _, err := d.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		slog.Warn("TELEGRAM: failed to answer callback", "callback_id", cq.ID, "error", err)
	}

	if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil {
		return
	}

	chatID := cq.Message.Chat.ID
	ctx = withChat(ctx, chatID)

	for _, r := range d.conv.Button(ctx, userFrom(cq.From), cq.Data) {
		if r.ReplacePrompt {
			d.edit(ctx, chatID, cq.Message.MessageID, r)
			continue
		}
		d.send(ctx, chatID, r)
	}
}

// Notifier returns a conversation.ServiceOptions.Notify hook that sends each
// reply right away to the chat the current update came from.
func Notifier(api API) func(ctx context.Context, u conversation.User, r conversation.Reply) {
	d := &Dispatcher{api: api}
	return func(ctx context.Context, u conversation.User, r conversation.Reply) {
		d.send(ctx, chatFrom(ctx, u.ID), r)
	}
}

func (d *Dispatcher) send(ctx context.Context, chatID int64, r conversation.Reply) {
	if strings.TrimSpace(r.Text) == "" {
		return
	}

	msg := tgbotapi.NewMessage(chatID, r.Text)
	if r.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	if len(r.Buttons) > 0 {
		msg.ReplyMarkup = keyboard(r.Buttons)
	}

	_, err := d.api.Send(msg)
	if err != nil && r.Markdown {
		// Model output is not guaranteed to be valid Telegram Markdown.
		slog.Warn("TELEGRAM: markdown rejected, resending as plain text", "chat_id", chatID, "error", err)
		msg.ParseMode = ""
		_, err = d.api.Send(msg)
	}
	if err != nil {
		slog.ErrorContext(ctx, "TELEGRAM: failed to send message", "chat_id", chatID, "error", err)
	}
}

// edit replaces the text of the message that carried the buttons, dropping its keyboard.
func (d *Dispatcher) edit(ctx context.Context, chatID int64, messageID int, r conversation.Reply) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, r.Text)
	if r.Markdown {
		edit.ParseMode = tgbotapi.ModeMarkdown
	}

	_, err := d.api.Send(edit)
	if err != nil && r.Markdown {
		edit.ParseMode = ""
		_, err = d.api.Send(edit)
	}
	if err != nil {
		slog.Warn("TELEGRAM: failed to edit prompt, sending instead", "chat_id", chatID, "message_id", messageID, "error", err)
		r.ReplacePrompt = false
		d.send(ctx, chatID, r)
	}
}

func keyboard(buttons []conversation.Button) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
	}
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(row...))
}

func userFrom(u *tgbotapi.User) conversation.User {
	return conversation.User{ID: u.ID, Username: u.UserName, FirstName: u.FirstName}
}

// Commands is the menu published to Telegram.
var Commands = []tgbotapi.BotCommand{
	{Command: "start", Description: "Start the bot"},
	{Command: "track", Description: "Log a lift"},
	{Command: "recommend", Description: "Get a workout suggestion"},
	{Command: "view", Description: "View your past lifts"},
	{Command: "setgoal", Description: "Set or change your fitness goal"},
	{Command: "setunit", Description: "Set weight display (lbs or kg)"},
	{Command: "help", Description: "Show help"},
	{Command: "cancel", Description: "Cancel current action"},
}

func RegisterCommands(api API) error {
	_, err := api.Request(tgbotapi.NewSetMyCommands(Commands...))
	return err
}
