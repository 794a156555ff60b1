package service

import "context"

// Mailer delivers a plain text message to an address. Implementations wrap
// transport failures with domain.ErrDelivery.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}
