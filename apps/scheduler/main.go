package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/influmarkt/influmarkt/internal/clock"
	"github.com/influmarkt/influmarkt/internal/config"
	"github.com/influmarkt/influmarkt/internal/invoice"
	"github.com/influmarkt/influmarkt/internal/logger"
	"github.com/influmarkt/influmarkt/internal/mailer"
	"github.com/influmarkt/influmarkt/internal/notification"
	"github.com/influmarkt/influmarkt/internal/observability"
	"github.com/influmarkt/influmarkt/internal/order"
	"github.com/influmarkt/influmarkt/internal/payout"
	"github.com/influmarkt/influmarkt/internal/profile"
	"github.com/influmarkt/influmarkt/internal/providers"
	"github.com/influmarkt/influmarkt/internal/scheduler"
	"github.com/influmarkt/influmarkt/internal/settlement"
	"github.com/influmarkt/influmarkt/pkg/db"
	"go.uber.org/fx"
)

// Sweep-only binary. No HTTP server; migrations are owned by the api
// deployment.
func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		profile.Module,
		order.Module,
		invoice.Module,
		payout.Module,
		settlement.Module,
		notification.Module,
		mailer.Module,
		providers.Module,

		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
