package domain

import "errors"

var (
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrUnknownProvider       = errors.New("unknown_provider")
	ErrUnknownEventType      = errors.New("unknown_event_type")
	ErrIntentNotFound        = errors.New("payment_intent_not_found")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	ErrPaymentExists         = errors.New("payment_already_exists")
)
