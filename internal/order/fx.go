package order

import (
	"github.com/influmarkt/influmarkt/internal/order/repository"
	"github.com/influmarkt/influmarkt/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
