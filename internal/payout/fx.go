package payout

import (
	"github.com/influmarkt/influmarkt/internal/payout/repository"
	"github.com/influmarkt/influmarkt/internal/payout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payout",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
