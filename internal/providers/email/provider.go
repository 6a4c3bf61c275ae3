package email

import "context"

// Provider delivers rendered HTML mail.
type Provider interface {
	SendHTML(ctx context.Context, to, subject, htmlBody string) error
}

// NoOpProvider swallows all mail. Used when SMTP is not configured, and in
// tests.
type NoOpProvider struct{}

func (p *NoOpProvider) SendHTML(ctx context.Context, to, subject, htmlBody string) error {
	return nil
}
