package mailer

import (
	"github.com/influmarkt/influmarkt/internal/mailer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("mailer",
	fx.Provide(service.New),
	fx.Provide(service.AsService),
	fx.Provide(service.AsMailer),
)
