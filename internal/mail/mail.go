// Package mail delivers the verification and password reset messages.
package mail

import (
	"context"
	"fmt"
	"log/slog"

	"identity/internal/domain"
)

// LogMailer writes messages to the log instead of sending them. Use it in
// development only: the body contains a live token.
type LogMailer struct {
	Logger *slog.Logger
}

func NewLogMailer(l *slog.Logger) *LogMailer {
	if l == nil {
		l = slog.Default()
	}
	return &LogMailer{Logger: l}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("%w: empty recipient", domain.ErrDelivery)
	}
	m.Logger.InfoContext(ctx, "mail not sent (log driver)", "to", to, "subject", subject, "body", body)
	return nil
}
