package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/influmarkt/influmarkt/internal/authorization"
	"github.com/influmarkt/influmarkt/internal/clock"
	"github.com/influmarkt/influmarkt/internal/config"
	disputedomain "github.com/influmarkt/influmarkt/internal/dispute/domain"
	notificationdomain "github.com/influmarkt/influmarkt/internal/notification/domain"
	"github.com/influmarkt/influmarkt/internal/observability"
	obsmetrics "github.com/influmarkt/influmarkt/internal/observability/metrics"
	obstracing "github.com/influmarkt/influmarkt/internal/observability/tracing"
	orderdomain "github.com/influmarkt/influmarkt/internal/order/domain"
	paymentdomain "github.com/influmarkt/influmarkt/internal/payment/domain"
	payoutdomain "github.com/influmarkt/influmarkt/internal/payout/domain"
	profiledomain "github.com/influmarkt/influmarkt/internal/profile/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, log *zap.Logger) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log.Named("http")))
	r.Use(obstracing.GinMiddleware(obsCfg.ServiceName))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, log *zap.Logger) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics, log)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	authzSvc        authorization.Service
	orderSvc        orderdomain.Service
	paymentSvc      paymentdomain.Service
	disputeSvc      disputedomain.Service
	payoutSvc       payoutdomain.Service
	notificationSvc notificationdomain.Service
	profileRepo     profiledomain.Repository
	clock           clock.Clock
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	AuthzSvc        authorization.Service
	OrderSvc        orderdomain.Service
	PaymentSvc      paymentdomain.Service
	DisputeSvc      disputedomain.Service
	PayoutSvc       payoutdomain.Service
	NotificationSvc notificationdomain.Service
	ProfileRepo     profiledomain.Repository
	Clock           clock.Clock
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		log:             p.Log.Named("server"),
		genID:           p.GenID,
		authzSvc:        p.AuthzSvc,
		orderSvc:        p.OrderSvc,
		paymentSvc:      p.PaymentSvc,
		disputeSvc:      p.DisputeSvc,
		payoutSvc:       p.PayoutSvc,
		notificationSvc: p.NotificationSvc,
		profileRepo:     p.ProfileRepo,
		clock:           p.Clock,
	}

	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()
	svc.registerInternalRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.ActorRequired())

	api.POST("/profiles", s.CreateProfile)
	api.GET("/profiles/:id", s.GetProfile)

	api.POST("/orders", s.CreateOrder)
	api.GET("/orders", s.ListOrders)
	api.GET("/orders/:id", s.GetOrder)
	api.POST("/orders/:id/checkout", s.StartCheckout)
	api.POST("/orders/:id/accept", s.AcceptOrder)
	api.POST("/orders/:id/reject", s.RejectOrder)
	api.POST("/orders/:id/deliver", s.SubmitDelivery)
	api.POST("/orders/:id/confirm", s.ConfirmOrder)
	api.POST("/orders/:id/cancel", s.CancelOrderOnHold)

	api.POST("/disputes", s.OpenDispute)
	api.GET("/orders/:id/dispute", s.GetDispute)
	api.POST("/disputes/:id/claim", s.ClaimDispute)
	api.POST("/disputes/:id/resolve", s.ResolveDispute)

	api.POST("/payout-invoices", s.SubmitPayoutInvoice)
	api.GET("/payout-invoices/:id", s.GetPayoutInvoice)
	api.POST("/payout-invoices/:id/claim", s.ClaimPayoutInvoice)
	api.POST("/payout-invoices/:id/accept", s.AcceptPayoutInvoice)
	api.POST("/payout-invoices/:id/reject", s.RejectPayoutInvoice)
	api.GET("/payout-invoices/:id/receipt.pdf", s.PayoutInvoiceReceipt)

	api.GET("/notifications", s.ListNotifications)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/payments/:provider", s.PaymentWebhook)
}

func (s *Server) registerInternalRoutes() {
	s.engine.POST("/internal/sweeps/:job", s.TriggerSweep)
}
