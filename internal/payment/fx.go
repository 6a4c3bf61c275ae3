package payment

import (
	"github.com/influmarkt/influmarkt/internal/config"
	"github.com/influmarkt/influmarkt/internal/payment/adapters"
	"github.com/influmarkt/influmarkt/internal/payment/adapters/influpay"
	"github.com/influmarkt/influmarkt/internal/payment/repository"
	"github.com/influmarkt/influmarkt/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment",
	fx.Provide(newRegistry),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

func newRegistry(cfg config.Config) *adapters.Registry {
	return adapters.NewRegistry(
		influpay.New(cfg.PaymentWebhookSecret, ""),
	)
}
