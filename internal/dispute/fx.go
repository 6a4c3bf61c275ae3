package dispute

import (
	"github.com/influmarkt/influmarkt/internal/dispute/repository"
	"github.com/influmarkt/influmarkt/internal/dispute/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dispute",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
