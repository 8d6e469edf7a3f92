package liftbot

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ExchangeLogger records language-model exchanges.
type ExchangeLogger interface {
	LogExchange(exchange ExchangeLog) error
}

// NewExchangeLogFilePath returns a file path based on a cleaned up model name or id to make it easier to identify logs produced with various models.
func NewExchangeLogFilePath(model string) string {
	return fmt.Sprintf(
		"./logs/%d.%s.json",
		time.Now().Unix(),
		NewExchangeLogName(model),
	)
}

// NewExchangeLogName cleans a model id for use in file names and object keys.
func NewExchangeLogName(model string) string {
	r := strings.NewReplacer(":", "_", "/", "_")
	return r.Replace(strings.ToLower(model))
}

// ExchangeLog represents a single prompt/response round trip with a language model
type ExchangeLog struct {
	ID          string    `json:"id"`
	Operation   string    `json:"operation"`
	Timestamp   time.Time `json:"timestamp"`
	Prompt      string    `json:"prompt,omitempty"`
	Temperature float64   `json:"temperature"`
	Output      string    `json:"output,omitempty"`
	LatencyMs   int64     `json:"latency_ms"`
	Error       string    `json:"error,omitempty"`
}

// FileExchangeLogger accumulates exchanges and writes them out on Flush
type FileExchangeLogger struct {
	mu        sync.Mutex
	exchanges []ExchangeLog
	writer    io.Writer
}

// NewFileExchangeLogger creates a new buffered exchange logger
func NewFileExchangeLogger(writer io.Writer) *FileExchangeLogger {
	return &FileExchangeLogger{
		exchanges: make([]ExchangeLog, 0),
		writer:    writer,
	}
}

// LogExchange appends the exchange to the buffer (does not flush immediately)
func (l *FileExchangeLogger) LogExchange(exchange ExchangeLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.exchanges = append(l.exchanges, exchange)
	return nil
}

// Len reports how many exchanges are waiting to be flushed.
func (l *FileExchangeLogger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.exchanges)
}

// Flush writes all accumulated exchanges to the writer
func (l *FileExchangeLogger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"exchange_session": map[string]any{
			"timestamp": time.Now(),
			"exchanges": l.exchanges,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal exchange log: %w", err)
	}

	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write exchange log: %w", err)
	}

	l.exchanges = l.exchanges[:0]
	return nil
}

// NoOpExchangeLogger discards all exchanges
type NoOpExchangeLogger struct{}

func NewNoOpExchangeLogger() *NoOpExchangeLogger {
	return &NoOpExchangeLogger{}
}

func (nop *NoOpExchangeLogger) LogExchange(exchange ExchangeLog) error {
	return nil
}

// StdoutExchangeLogger writes each exchange as a JSON line (for Lambda/CloudWatch)
type StdoutExchangeLogger struct {
	out io.Writer
}

func NewStdoutExchangeLogger() *StdoutExchangeLogger {
	return &StdoutExchangeLogger{out: os.Stdout}
}

func (l *StdoutExchangeLogger) LogExchange(exchange ExchangeLog) error {
	data, err := json.Marshal(exchange)
	if err != nil {
		return err
	}
	fmt.Fprintln(l.out, string(data))
	return nil
}
