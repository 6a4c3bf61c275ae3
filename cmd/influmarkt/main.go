package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/influmarkt/influmarkt/internal/authorization"
	"github.com/influmarkt/influmarkt/internal/clock"
	"github.com/influmarkt/influmarkt/internal/config"
	"github.com/influmarkt/influmarkt/internal/dispute"
	"github.com/influmarkt/influmarkt/internal/invoice"
	"github.com/influmarkt/influmarkt/internal/logger"
	"github.com/influmarkt/influmarkt/internal/mailer"
	"github.com/influmarkt/influmarkt/internal/migration"
	"github.com/influmarkt/influmarkt/internal/notification"
	"github.com/influmarkt/influmarkt/internal/observability"
	"github.com/influmarkt/influmarkt/internal/order"
	"github.com/influmarkt/influmarkt/internal/payment"
	"github.com/influmarkt/influmarkt/internal/payout"
	"github.com/influmarkt/influmarkt/internal/profile"
	"github.com/influmarkt/influmarkt/internal/providers"
	"github.com/influmarkt/influmarkt/internal/scheduler"
	"github.com/influmarkt/influmarkt/internal/server"
	"github.com/influmarkt/influmarkt/internal/settlement"
	"github.com/influmarkt/influmarkt/pkg/db"
	"go.uber.org/fx"
)

// Monolith: API, webhooks and the sweep scheduler in one process.
func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		profile.Module,
		order.Module,
		payment.Module,
		dispute.Module,
		invoice.Module,
		payout.Module,
		settlement.Module,
		notification.Module,
		mailer.Module,
		providers.Module,
		authorization.Module,

		scheduler.Module,
		server.Module,
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
