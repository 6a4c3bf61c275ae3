package domain

import (
	"context"
	"errors"

	orderdomain "github.com/influmarkt/influmarkt/internal/order/domain"
	profiledomain "github.com/influmarkt/influmarkt/internal/profile/domain"
)

// Service renders localized templates and hands them to the email provider.
// Profile-addressed sends honor the recipient's emails_disabled preference.
type Service interface {
	orderdomain.Mailer

	// SendToAddress emails an explicit address, bypassing profile
	// preferences. Used for the platform dispute inbox.
	SendToAddress(ctx context.Context, action, to string, locale profiledomain.Locale, params map[string]string) error
}

var (
	ErrUnknownAction    = errors.New("unknown_email_action")
	ErrUnknownRecipient = errors.New("unknown_recipient")
)
