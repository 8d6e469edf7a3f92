// Package llm holds decorators shared by every language-model backend.
package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"liftbot"
)

// InstrumentedCompleter wraps a Completer with a span and metrics per request.
type InstrumentedCompleter struct {
	next    liftbot.Completer
	backend string
	tracer  trace.Tracer

	requests     metric.Int64Counter
	failures     metric.Int64Counter
	responseTime metric.Float64Histogram
	responseLen  metric.Int64Histogram
}

func Instrument(next liftbot.Completer, backend string, tracer trace.Tracer, meter metric.Meter) *InstrumentedCompleter {
	requests, _ := meter.Int64Counter("llm_requests_total",
		metric.WithDescription("Total number of completion requests"))
	failures, _ := meter.Int64Counter("llm_requests_failed_total",
		metric.WithDescription("Total number of completion requests that failed"))
	responseTime, _ := meter.Float64Histogram("llm_response_time_seconds",
		metric.WithDescription("Time taken to receive a completion in seconds"))
	responseLen, _ := meter.Int64Histogram("llm_response_length",
		metric.WithDescription("Length of the completion text"))

	return &InstrumentedCompleter{
		next:         next,
		backend:      backend,
		tracer:       tracer,
		requests:     requests,
		failures:     failures,
		responseTime: responseTime,
		responseLen:  responseLen,
	}
}

func (c *InstrumentedCompleter) Complete(ctx context.Context, req liftbot.CompletionRequest) (string, error) {
	ctx, span := c.tracer.Start(ctx, "Completer.Complete")
	defer span.End()

	attrs := metric.WithAttributes(
		attribute.String("operation", req.Operation),
		attribute.String("backend", c.backend),
	)
	span.SetAttributes(
		attribute.String("operation", req.Operation),
		attribute.String("backend", c.backend),
		attribute.Float64("temperature", req.Temperature),
		attribute.Int("prompt_size_bytes", len(req.Prompt)),
	)

	c.requests.Add(ctx, 1, attrs)

	start := time.Now()
	out, err := c.next.Complete(ctx, req)
	elapsed := time.Since(start)
	c.responseTime.Record(ctx, elapsed.Seconds(), attrs)

	if err != nil {
		c.failures.Add(ctx, 1, attrs)
		span.SetStatus(codes.Error, "completion failed")
		span.RecordError(err)
		return "", err
	}

	c.responseLen.Record(ctx, int64(len(out)), attrs)
	span.AddEvent("completion received", trace.WithAttributes(
		attribute.Int("response_content_length", len(out)),
		attribute.Float64("llm_response_time_seconds", elapsed.Seconds()),
	))

	return out, nil
}

// LoggedCompleter records every exchange through an ExchangeLogger.
type LoggedCompleter struct {
	next   liftbot.Completer
	logger liftbot.ExchangeLogger
	now    func() time.Time
}

func WithExchangeLog(next liftbot.Completer, logger liftbot.ExchangeLogger) *LoggedCompleter {
	return &LoggedCompleter{next: next, logger: logger, now: time.Now}
}

func (c *LoggedCompleter) Complete(ctx context.Context, req liftbot.CompletionRequest) (string, error) {
	start := c.now()
	out, err := c.next.Complete(ctx, req)

	entry := liftbot.ExchangeLog{
		ID:          uuid.NewString(),
		Operation:   req.Operation,
		Timestamp:   start,
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
		Output:      out,
		LatencyMs:   c.now().Sub(start).Milliseconds(),
	}
	if err != nil {
		entry.Error = err.Error()
	}

	if lerr := c.logger.LogExchange(entry); lerr != nil {
		slog.Error("LLM_CLIENT: failed to log exchange", "error", lerr)
	}

	return out, err
}
