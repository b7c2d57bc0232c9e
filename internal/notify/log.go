package notify

import (
	"context"
	"log/slog"
)

// LogDispatcher only logs messages. Used for local development.
type LogDispatcher struct {
	logger *slog.Logger
}

// NewLogDispatcher returns a LogDispatcher writing to logger (slog.Default if nil).
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger.With("dispatcher", DriverLog)}
}

// Send logs msg and reports every token as delivered.
func (d *LogDispatcher) Send(ctx context.Context, msg Message) (Result, error) {
	if len(msg.Tokens) == 0 {
		return Result{}, ErrNoTokens
	}
	d.logger.InfoContext(ctx, "Push notification",
		"title", msg.Title,
		"body", msg.Body,
		"data", msg.Data,
		"tokens", len(msg.Tokens),
	)
	return Result{Sent: len(msg.Tokens)}, nil
}
