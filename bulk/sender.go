package bulk

import (
	"context"
	"log/slog"
)

// Outcome is a provider's answer to one send.
type Outcome struct {
	Success     bool
	ProviderRef string
	Error       string
}

// Sender delivers one message to one normalized recipient. A returned
// error and an unsuccessful Outcome are both treated as a failed attempt.
type Sender interface {
	Send(ctx context.Context, recipient, message string) (Outcome, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, recipient, message string) (Outcome, error)

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, recipient, message string) (Outcome, error) {
	return f(ctx, recipient, message)
}

// LogSender logs messages instead of delivering them. It backs dry-run
// deployments where no provider is configured.
type LogSender struct {
	Logger *slog.Logger
}

// Send implements Sender.
func (s LogSender) Send(_ context.Context, recipient, message string) (Outcome, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("dry-run send",
		slog.String("recipient", recipient),
		slog.Int("message_len", len(message)),
	)
	return Outcome{Success: true, ProviderRef: "dry-run"}, nil
}
