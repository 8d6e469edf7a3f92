package telegram

import (
	"context"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Run handles updates until ctx is done or updates is closed. Each user's
// updates are handled one at a time in arrival order; users run in parallel.
// Run waits for in-flight updates before returning.
func (d *Dispatcher) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	l := newLanes(d.Handle)
	defer l.wait()

	for {
		select {
		case <-ctx.Done():
			slog.Info("TELEGRAM: stopping", "reason", ctx.Err())
			return
		case u, ok := <-updates:
			if !ok {
				slog.Info("TELEGRAM: update channel closed")
				return
			}
			l.push(ctx, senderID(u), u)
		}
	}
}

func senderID(u tgbotapi.Update) int64 {
	switch {
	case u.Message != nil && u.Message.From != nil:
		return u.Message.From.ID
	case u.CallbackQuery != nil && u.CallbackQuery.From != nil:
		return u.CallbackQuery.From.ID
	}
	return 0
}

// lanes queues updates per user. A user's lane exists only while it has work.
type lanes struct {
	handle func(context.Context, tgbotapi.Update)

	mu      sync.Mutex
	pending map[int64][]tgbotapi.Update
	wg      sync.WaitGroup
}

func newLanes(handle func(context.Context, tgbotapi.Update)) *lanes {
	return &lanes{handle: handle, pending: make(map[int64][]tgbotapi.Update)}
}

func (l *lanes) push(ctx context.Context, userID int64, u tgbotapi.Update) {
	l.mu.Lock()
	q, running := l.pending[userID]
	l.pending[userID] = append(q, u)
	l.mu.Unlock()

	if running {
		return
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.drain(ctx, userID)
	}()
}

func (l *lanes) drain(ctx context.Context, userID int64) {
	for {
		l.mu.Lock()
		q := l.pending[userID]
		if len(q) == 0 {
			delete(l.pending, userID)
			l.mu.Unlock()
			return
		}
		u := q[0]
		l.pending[userID] = q[1:]
		l.mu.Unlock()

		l.handle(ctx, u)
	}
}

func (l *lanes) wait() { l.wg.Wait() }
