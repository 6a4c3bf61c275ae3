// Package payment hosts the outbound funds-transfer provider.
package payment

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

var ErrMissingDestination = errors.New("missing_destination_account")

// LoggingTransferrer stands in for a real connected-account transfer API.
// It validates the request and records the transfer in the log.
type LoggingTransferrer struct {
	log *zap.Logger
}

func NewLoggingTransferrer(log *zap.Logger) *LoggingTransferrer {
	return &LoggingTransferrer{log: log.Named("providers.payment")}
}

func (t *LoggingTransferrer) Transfer(ctx context.Context, amountCents int64, currency, destinationAccountID string) error {
	_ = ctx
	if destinationAccountID == "" {
		return ErrMissingDestination
	}
	t.log.Info("funds transfer",
		zap.Int64("amount_cents", amountCents),
		zap.String("currency", currency),
		zap.String("destination", destinationAccountID))
	return nil
}
