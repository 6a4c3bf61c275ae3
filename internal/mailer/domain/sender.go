package domain

import "context"

// Sender delivers a rendered message. Implementations live under
// internal/providers/email.
type Sender interface {
	SendHTML(ctx context.Context, to, subject, htmlBody string) error
}
