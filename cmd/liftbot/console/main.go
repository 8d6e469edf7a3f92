// Command console runs the conversation on stdin and stdout, without Telegram.
//
//	LLM_BACKEND=mock DB_DRIVER=memory go run ./cmd/liftbot/console
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"liftbot"
	"liftbot/bootstrap"
	"liftbot/conversation"
)

var user = conversation.User{ID: 1, Username: "console", FirstName: "Console"}

func main() {
	ctx := context.Background()

	cfg, err := liftbot.LoadConfig()
	if err != nil {
		log.Fatalf("SETUP: %s", err)
	}
	liftbot.InitLogging(cfg.Log)

	completer, err := bootstrap.NewCompleter(ctx, cfg.Model, nil)
	if err != nil {
		slog.Error("SETUP: Failed to create language model client", "error", err)
		return
	}
	store, closeStore, err := bootstrap.NewStore(cfg.Store)
	if err != nil {
		slog.Error("SETUP: Failed to open store", "error", err)
		return
	}
	defer closeStore()
	sessions, closeSessions, err := bootstrap.NewSessions(ctx, cfg.Session)
	if err != nil {
		slog.Error("SETUP: Failed to open session store", "error", err)
		return
	}
	defer closeSessions()

	svc := bootstrap.NewService(liftbot.BotConfig{}, cfg.Model, store, sessions, completer,
		bootstrap.NewAlerter(cfg.Alert), nil)

	fmt.Printf("LiftBot console (%s backend). Try /track, /recommend or /help. :confirm, :cancel, :session, :quit\n", cfg.Model.Backend)
	repl(ctx, os.Stdin, os.Stdout, svc, sessions)
}

func repl(ctx context.Context, in io.Reader, out io.Writer, svc *conversation.Service, sessions conversation.SessionStore) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()

		var replies []conversation.Reply
		switch {
		case line == ":quit":
			return
		case line == ":confirm":
			replies = svc.Button(ctx, user, conversation.DataConfirmSave)
		case line == ":cancel":
			replies = svc.Button(ctx, user, conversation.DataConfirmCancel)
		case line == ":session":
			dumpSession(ctx, out, sessions)
			continue
		case strings.HasPrefix(line, "/"):
			replies = command(ctx, svc, line)
		default:
			replies = svc.Text(ctx, user, line)
		}

		for _, r := range replies {
			printReply(out, r)
		}
	}
}

func command(ctx context.Context, svc *conversation.Service, line string) []conversation.Reply {
	name, args, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	switch name {
	case "start":
		return svc.Start(ctx, user)
	case "help":
		return svc.Help(ctx, user)
	case "setgoal":
		return svc.SetGoal(ctx, user, args)
	case "setunit":
		return svc.SetUnit(ctx, user, args)
	case "track":
		return svc.Track(ctx, user)
	case "recommend":
		return svc.Recommend(ctx, user, args)
	case "view":
		return svc.View(ctx, user)
	case "cancel":
		return svc.Cancel(ctx, user)
	}
	return []conversation.Reply{{Text: "unknown command /" + name}}
}

func printReply(out io.Writer, r conversation.Reply) {
	fmt.Fprintln(out, r.Text)
	if len(r.Buttons) == 0 {
		return
	}
	labels := make([]string, 0, len(r.Buttons))
	for _, b := range r.Buttons {
		labels = append(labels, "["+b.Label+"]")
	}
	fmt.Fprintln(out, strings.Join(labels, " "), "(:confirm / :cancel)")
}

func dumpSession(ctx context.Context, out io.Writer, sessions conversation.SessionStore) {
	b, ok, err := sessions.Get(ctx, user.ID)
	switch {
	case err != nil:
		fmt.Fprintln(out, "session error:", err)
		return
	case !ok:
		fmt.Fprintln(out, "no session")
		return
	}

	var s conversation.Session
	if err := json.Unmarshal(b, &s); err != nil {
		fmt.Fprintln(out, "undecodable session:", err)
		return
	}
	liftbot.Dump(out, s)
}
