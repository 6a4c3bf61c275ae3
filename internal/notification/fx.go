package notification

import (
	"github.com/influmarkt/influmarkt/internal/notification/repository"
	"github.com/influmarkt/influmarkt/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(service.AsDispatcher),
	fx.Provide(service.AsService),
)
