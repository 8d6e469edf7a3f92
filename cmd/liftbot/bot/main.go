package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"liftbot"
	"liftbot/bootstrap"
	"liftbot/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		log.Fatalf("SETUP: %s", err)
	}
}

// run blocks until ctx is cancelled. Any setup failure is returned so the
// process exits non-zero.
func run(ctx context.Context) error {
	cfg, err := liftbot.LoadConfig()
	if err != nil {
		return err
	}
	botCfg, err := liftbot.LoadBotConfig()
	if err != nil {
		return err
	}

	liftbot.InitLogging(cfg.Log)

	otelShutdown, err := liftbot.InitOtel(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	exchangeLogger, cleanup, err := newExchangeLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create exchange logger: %w", err)
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("SETUP: Failed to flush exchange log", "error", err)
		}
	}()

	completer, err := bootstrap.NewCompleter(ctx, cfg.Model, exchangeLogger)
	if err != nil {
		return fmt.Errorf("failed to create language model client: %w", err)
	}

	store, closeStore, err := bootstrap.NewStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer closeStore()

	sessions, closeSessions, err := bootstrap.NewSessions(ctx, cfg.Session)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer closeSessions()

	api, err := tgbotapi.NewBotAPI(botCfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("failed to create Telegram client: %w", err)
	}
	slog.Info("SETUP: Authorized on Telegram", "username", api.Self.UserName)

	if err := telegram.RegisterCommands(api); err != nil {
		slog.Warn("SETUP: Failed to register bot commands", "error", err)
	}

	svc := bootstrap.NewService(botCfg, cfg.Model, store, sessions, completer,
		bootstrap.NewAlerter(cfg.Alert), telegram.Notifier(api))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = botCfg.PollTimeout
	updates := api.GetUpdatesChan(u)

	slog.Info("SETUP: Bot is running", "llm_backend", cfg.Model.Backend, "db_driver", cfg.Store.Driver, "sessions", cfg.Session.Backend)
	telegram.NewDispatcher(api, svc).Run(ctx, updates)
	api.StopReceivingUpdates()
	return nil
}

// newExchangeLogger writes exchanges to ./logs in development and to stdout elsewhere.
func newExchangeLogger(cfg liftbot.Config) (liftbot.ExchangeLogger, func() error, error) {
	if !cfg.Log.IsDev() {
		return liftbot.NewStdoutExchangeLogger(), func() error { return nil }, nil
	}

	if err := os.MkdirAll("./logs", 0755); err != nil {
		return nil, nil, err
	}
	logFile, err := os.OpenFile(liftbot.NewExchangeLogFilePath(cfg.Model.ModelID), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, nil, err
	}

	logger := liftbot.NewFileExchangeLogger(logFile)
	cleanup := func() error {
		return errors.Join(logger.Flush(), logFile.Close())
	}
	return logger, cleanup, nil
}
