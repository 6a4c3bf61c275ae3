package profile

import (
	"github.com/influmarkt/influmarkt/internal/profile/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("profile",
	fx.Provide(repository.Provide),
)
