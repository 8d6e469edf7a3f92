// Package bootstrap builds the bot's collaborators from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.opentelemetry.io/otel"

	"liftbot"
	"liftbot/conversation"
	"liftbot/extract"
	"liftbot/llm"
	"liftbot/llm/bedrock"
	"liftbot/llm/groq"
	"liftbot/llm/mock"
	"liftbot/llm/ollama"
	"liftbot/recommend"
	"liftbot/session"
	"liftbot/slack"
	"liftbot/storage"
)

// NewCompleter builds the configured backend, instrumented and, when logger
// is non-nil, recording every exchange.
func NewCompleter(ctx context.Context, cfg liftbot.ModelConfig, logger liftbot.ExchangeLogger) (liftbot.Completer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var c liftbot.Completer
	switch cfg.Backend {
	case "groq":
		client := groq.NewClient(cfg.GroqAPIKey, cfg.GroqBaseURL)
		c = groq.NewLLMClient(&client.Chat.Completions, groq.LLMOptions{
			ModelID:   cfg.ModelID,
			MaxTokens: cfg.MaxTokens,
			TopP:      cfg.TopP,
		})

	case "bedrock":
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		c = bedrock.NewLLMClient(bedrockruntime.NewFromConfig(awsCfg), bedrock.LLMOptions{
			ModelID:   cfg.ModelID,
			MaxTokens: cfg.MaxTokens,
			TopP:      cfg.TopP,
		})

	case "ollama":
		oc, err := ollama.NewClient(ollama.ClientOpts{
			BaseEndpoint: cfg.BaseOllamaEndpoint,
			ModelID:      cfg.ModelID,
			HTTPClient:   &http.Client{Timeout: 2 * time.Minute},
		})
		if err != nil {
			return nil, err
		}
		c = oc

	case "mock":
		c = mock.NewLLMClient()
	}

	slog.Info("SETUP: language model ready", "backend", cfg.Backend, "model", cfg.ModelID)

	c = llm.Instrument(c, cfg.Backend,
		otel.Tracer(liftbot.TracerNameLLM),
		otel.Meter(liftbot.TracerNameLLM))
	if logger != nil {
		c = llm.WithExchangeLog(c, logger)
	}
	return c, nil
}

// NewStore opens the configured store. The returned func releases it.
func NewStore(cfg liftbot.StoreConfig) (liftbot.Store, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	if cfg.Driver == "memory" {
		slog.Warn("SETUP: using in-memory store; lifts are lost on exit")
		return storage.NewMemory(), func() error { return nil }, nil
	}

	db, err := storage.Open(cfg.Driver, cfg.Connection)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	s := storage.NewSQLStore(db)
	return s, s.Close, nil
}

// NewSessions returns the configured session store. The returned func releases it.
func NewSessions(ctx context.Context, cfg liftbot.SessionConfig) (conversation.SessionStore, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	if cfg.Backend == "memory" {
		return session.NewMemory(), func() error { return nil }, nil
	}

	store, client, err := session.DialRedis(ctx, cfg.RedisURL, cfg.TTL)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("SETUP: redis session store connected", "ttl", cfg.TTL)
	return store, client.Close, nil
}

// NewAlerter posts to Slack when a webhook is configured and logs otherwise.
func NewAlerter(cfg liftbot.AlertConfig) liftbot.Alerter {
	if cfg.SlackWebhookURL == "" {
		return slack.LogAlerter{}
	}
	client := slack.NewClient(cfg.SlackWebhookURL, &http.Client{Timeout: 10 * time.Second})
	return slack.NewAlerter(client, cfg.SlackChannel)
}

// NewService assembles the conversation service around c.
func NewService(
	bot liftbot.BotConfig,
	model liftbot.ModelConfig,
	store liftbot.Store,
	sessions conversation.SessionStore,
	c liftbot.Completer,
	alerter liftbot.Alerter,
	notify func(context.Context, conversation.User, conversation.Reply),
) *conversation.Service {
	return conversation.NewService(
		store,
		sessions,
		extract.NewExtractor(c, model.ExtractTemperature),
		recommend.NewRecommender(c, model.RecommendTemperature),
		conversation.ServiceOptions{
			HistoryLimit: bot.HistoryLimit,
			ViewLimit:    bot.ViewLimit,
			Alerter:      alerter,
			Notify:       notify,
		},
	)
}
