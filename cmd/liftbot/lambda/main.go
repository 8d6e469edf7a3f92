package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"liftbot"
	"liftbot/bootstrap"
	"liftbot/conversation"
	"liftbot/llm"
	"liftbot/storage"
	"liftbot/telegram"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

type handler struct {
	cfg       liftbot.Config
	bot       liftbot.BotConfig
	api       *tgbotapi.BotAPI
	completer liftbot.Completer
	store     liftbot.Store
	sessions  conversation.SessionStore
	alerter   liftbot.Alerter
	s3        *s3.Client
}

func main() {
	ctx := context.Background()

	cfg, err := liftbot.LoadConfig()
	if err != nil {
		log.Fatalf("SETUP: %s", err)
	}
	botCfg, err := liftbot.LoadBotConfig()
	if err != nil {
		log.Fatalf("SETUP: %s", err)
	}

	if err := validateLambdaConfig(cfg); err != nil {
		log.Fatalf("SETUP: %s", err)
	}

	liftbot.InitLogging(cfg.Log)

	// Providers live as long as the container; lambda.Start never returns.
	if _, err := liftbot.InitOtel(ctx); err != nil {
		log.Fatalf("SETUP: Failed to initialize OpenTelemetry: %s", err)
	}

	h := &handler{cfg: cfg, bot: botCfg, alerter: bootstrap.NewAlerter(cfg.Alert)}

	// Exchange logging is attached per invocation in handle.
	if h.completer, err = bootstrap.NewCompleter(ctx, cfg.Model, nil); err != nil {
		log.Fatalf("SETUP: Failed to create language model client: %s", err)
	}
	if h.store, _, err = bootstrap.NewStore(cfg.Store); err != nil {
		log.Fatalf("SETUP: Failed to open store: %s", err)
	}
	if h.sessions, _, err = bootstrap.NewSessions(ctx, cfg.Session); err != nil {
		log.Fatalf("SETUP: Failed to open session store: %s", err)
	}
	if h.api, err = tgbotapi.NewBotAPI(botCfg.TelegramToken); err != nil {
		log.Fatalf("SETUP: Failed to create Telegram client: %s", err)
	}

	if cfg.Archive.S3Bucket != "" {
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			log.Fatalf("SETUP: Failed to load AWS config: %s", err)
		}
		h.s3 = s3.NewFromConfig(awsCfg)
	}

	slog.Info("SETUP: Lambda ready", "llm_backend", cfg.Model.Backend, "db_driver", cfg.Store.Driver, "archive_bucket", cfg.Archive.S3Bucket)
	lambda.Start(h.handle)
}

// validateLambdaConfig rejects backends that keep state inside one container.
// Sessions and lifts must survive across invocations, and the function's
// filesystem is read-only apart from /tmp.
func validateLambdaConfig(cfg liftbot.Config) error {
	var errs []error
	if cfg.Session.Backend != "redis" {
		errs = append(errs, fmt.Errorf("SESSION_BACKEND=%q is not supported on Lambda; set SESSION_BACKEND=redis and REDIS_URL", cfg.Session.Backend))
	}
	if cfg.Store.Driver != "pgx" {
		errs = append(errs, fmt.Errorf("DB_DRIVER=%q is not supported on Lambda; set DB_DRIVER=pgx and DB_CONNECTION", cfg.Store.Driver))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return errors.Join(cfg.Session.Validate(), cfg.Store.Validate())
}

// handle processes one Telegram webhook call synchronously. Malformed updates
// are acknowledged so Telegram does not redeliver them.
func (h *handler) handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if h.bot.WebhookSecret != "" && header(req.Headers, secretHeader) != h.bot.WebhookSecret {
		slog.Warn("TELEGRAM: rejected webhook call with bad secret")
		return events.APIGatewayProxyResponse{StatusCode: http.StatusUnauthorized}, nil
	}

	var update tgbotapi.Update
	if err := json.Unmarshal([]byte(req.Body), &update); err != nil {
		slog.Error("TELEGRAM: undecodable update", "error", err)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK}, nil
	}

	exchangeLogger, flush := h.exchangeLogger(ctx, update.UpdateID)
	defer func() {
		if err := flush(); err != nil {
			slog.Error("SETUP: Failed to archive exchange log", "error", err)
		}
	}()

	svc := bootstrap.NewService(h.bot, h.cfg.Model, h.store, h.sessions,
		llm.WithExchangeLog(h.completer, exchangeLogger), h.alerter, telegram.Notifier(h.api))
	telegram.NewDispatcher(h.api, svc).Handle(ctx, update)

	return events.APIGatewayProxyResponse{StatusCode: http.StatusOK}, nil
}

// exchangeLogger archives this invocation's exchanges to S3 when a bucket is
// configured and prints them to stdout otherwise.
func (h *handler) exchangeLogger(ctx context.Context, updateID int) (liftbot.ExchangeLogger, func() error) {
	if h.s3 == nil {
		return liftbot.NewStdoutExchangeLogger(), func() error { return nil }
	}

	name := fmt.Sprintf("%s/%d.%d.%s.json",
		time.Now().UTC().Format("2006-01-02"),
		updateID,
		time.Now().Unix(),
		liftbot.NewExchangeLogName(h.cfg.Model.ModelID+"-"+uuid.NewString()[:8]),
	)
	w := storage.NewS3Writer(ctx, h.s3, h.cfg.Archive.S3Bucket, h.cfg.Archive.S3Prefix, name)
	logger := liftbot.NewFileExchangeLogger(w)

	return logger, func() error {
		if logger.Len() == 0 {
			return nil
		}
		return errors.Join(logger.Flush(), w.Close())
	}
}

func header(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
