package payment

import (
	paymentdomain "github.com/influmarkt/influmarkt/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.payment",
	fx.Provide(newTransferrer),
)

func newTransferrer(log *zap.Logger) paymentdomain.Transferrer {
	return NewLoggingTransferrer(log)
}
