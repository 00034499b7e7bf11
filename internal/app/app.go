// Package app は設定から全部品を組み立てる。
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"storefront/internal/config"
	"storefront/internal/event"
	"storefront/internal/fulfillment"
	"storefront/internal/handler"
	"storefront/internal/infra/db"
	"storefront/internal/infra/mail"
	"storefront/internal/infra/memstore"
	"storefront/internal/infra/mongostore"
	"storefront/internal/infra/payment"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/infra/storage"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/notify"
	repo "storefront/internal/repository"
	"storefront/internal/server"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
)

// Store はドライバごとのリポジトリ一式
type Store interface {
	Products() repo.ProductRepository
	Orders() repo.OrderRepository
	Users() repo.UserRepository
	Addresses() repo.AddressRepository
	AuditLogs() repo.AuditLogRepository
	Ping(ctx context.Context) error
}

// gormStore はpostgres用のStore
type gormStore struct {
	db *gorm.DB
}

func (s gormStore) Products() repo.ProductRepository {
	return infraRepo.NewProductGormRepository(s.db)
}
func (s gormStore) Orders() repo.OrderRepository { return infraRepo.NewOrderGormRepository(s.db) }
func (s gormStore) Users() repo.UserRepository   { return infraRepo.NewUserGormRepository(s.db) }
func (s gormStore) Addresses() repo.AddressRepository {
	return infraRepo.NewAddressGormRepository(s.db)
}
func (s gormStore) AuditLogs() repo.AuditLogRepository {
	return infraRepo.NewAuditLogGormRepository(s.db)
}

func (s gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// App はプロセスで共有する部品を持つ
type App struct {
	cfg    config.Config
	logger *slog.Logger

	registry *prometheus.Registry
	metrics  *metrics.Collector

	store     Store
	publisher event.Publisher
	// memoryバスの時だけ。サーバーと同じプロセスで配送する
	bus      *event.MemoryBus
	notifier *notify.Notifier
	hub      *notify.DashboardHub

	closers []func(ctx context.Context) error
}

// New は設定に従って永続化・イベント・通知を組み立てる
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &App{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		metrics:  metrics.NewCollector(reg),
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.store = store

	switch cfg.EventBus {
	case config.BusKafka:
		p := event.NewKafkaPublisher(cfg.KafkaBrokers)
		a.publisher = p
		a.closers = append(a.closers, func(context.Context) error { return p.Close() })
	default:
		a.bus = event.NewMemoryBus(256)
		a.publisher = a.bus
	}

	var sender mail.Sender = mail.LogSender{}
	if cfg.SMTPAddr != "" {
		sender = mail.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPFrom, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	a.hub = notify.NewDashboardHub()
	a.notifier = notify.New(10*time.Second, a.metrics,
		notify.NewBusSink(a.publisher),
		a.hub,
		notify.NewMailSink(store.Users(), sender),
	)

	return a, nil
}

func (a *App) openStore(ctx context.Context) (Store, error) {
	switch a.cfg.StoreDriver {
	case config.StoreMemory:
		a.logger.Warn("using in-memory store; data is lost on restart")
		return memstore.New(), nil

	case config.StorePostgres:
		gormDB, err := db.Connect(a.cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error {
			sqlDB, err := gormDB.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
		return gormStore{db: gormDB}, nil

	default:
		pool := mongostore.NewPool(mongostore.Config{
			URI:            a.cfg.MongoURI,
			Database:       a.cfg.MongoDatabase,
			ConnectTimeout: a.cfg.MongoConnectTimeout,
			SocketTimeout:  a.cfg.MongoSocketTimeout,
		})
		a.closers = append(a.closers, pool.Close)
		// 起動時にDBが落ちていてもサーバーは上げる（管理者はallowlistで入れる）
		if err := pool.EnsureIndexes(ctx); err != nil {
			a.logger.Warn("mongo indexes not ensured", slog.String("error", err.Error()))
		}
		return mongostore.NewStore(pool), nil
	}
}

func (a *App) runner() *fulfillment.Runner {
	return fulfillment.NewRunner(fulfillment.RetryPolicy{
		MaxAttempts:    a.cfg.FulfillmentMaxAttempts,
		InitialBackoff: a.cfg.FulfillmentInitialBackoff,
		MaxBackoff:     time.Minute,
	}, a.metrics)
}

// registerWorkers は注文処理と確認通知のハンドラを登録する
func (a *App) registerWorkers(c event.Consumer) {
	r := a.runner()
	fulfillment.NewPipeline(a.store.Orders(), a.store.Products(), a.publisher, r, a.cfg.FulfillmentInventoryDelay).Register(c)
	fulfillment.NewConfirmer(a.notifier, r).Register(c)
}

func (a *App) gateways() payment.Gateways {
	var g payment.Gateways
	if a.cfg.StripeSecretKey != "" {
		g.Stripe = payment.NewStripeClient(a.cfg.StripeSecretKey)
	} else {
		a.logger.Warn("stripe is not configured")
	}
	if a.cfg.RazorpayKeyID != "" && a.cfg.RazorpayKeySecret != "" {
		g.Razorpay = payment.NewRazorpayClient(a.cfg.RazorpayKeyID, a.cfg.RazorpayKeySecret)
	} else {
		a.logger.Warn("razorpay is not configured")
	}
	return g
}

// Router はHTTPルーターとレートリミッターを組み立てる
func (a *App) Router() (*echo.Echo, *middleware.RateLimiter, error) {
	images, err := storage.NewLocalImageStore(a.cfg.UploadDir, a.cfg.UploadBaseURL)
	if err != nil {
		return nil, nil, err
	}

	products := a.store.Products()
	orders := a.store.Orders()
	users := a.store.Users()
	addresses := a.store.Addresses()
	audit := a.store.AuditLogs()

	accessUC := usecase.NewAccessUsecase(users, a.cfg.AdminEmails)
	userUC := usecase.NewUserUsecase(users, audit)
	productUC := usecase.NewProductUsecase(products, audit, a.notifier)
	orderUC := usecase.NewOrderUsecase(orders, products, users, addresses, a.publisher, a.metrics)
	adminOrderUC := usecase.NewAdminOrderUsecase(orders, audit)
	auditUC := usecase.NewAuditUsecase(audit)
	checkoutUC := usecase.NewCheckoutUsecase(products, addresses, a.gateways(), usecase.CheckoutConfig{
		StripeCurrency:   a.cfg.StripeCurrency,
		RazorpayCurrency: a.cfg.RazorpayCurrency,
		RazorpayKeyID:    a.cfg.RazorpayKeyID,
	}, a.metrics)
	cartUC := usecase.NewCartUsecase(users, products)
	addressUC := usecase.NewAddressUsecase(addresses)

	limiter := middleware.NewRateLimiter(middleware.PerMinute(a.cfg.CheckoutRateLimitPerMinute), a.metrics)
	guards := handler.Guards{
		Auth: middleware.AuthJWT(middleware.JWTConfig{
			Secret: a.cfg.IdentityJWTSecret,
			Issuer: a.cfg.IdentityIssuer,
		}),
		User:      middleware.LoadUser(userUC),
		Admin:     middleware.RequireAdmin(accessUC),
		RateLimit: limiter.Middleware(),
	}

	e := server.NewRouter(server.Handlers{
		Product:      handler.NewProductHandler(productUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		Order:        handler.NewOrderHandler(orderUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC),
		Checkout:     handler.NewCheckoutHandler(checkoutUC),
		User:         handler.NewUserHandler(cartUC),
		AdminUser:    handler.NewAdminUserHandler(userUC),
		AdminAudit:   handler.NewAdminAuditHandler(auditUC),
		Address:      handler.NewAddressHandler(addressUC),
		Access:       handler.NewAccessHandler(accessUC),
		Upload:       handler.NewUploadHandler(images),
		Events:       handler.NewEventsHandler(a.hub),
		Webhook:      handler.NewWebhookHandler(userUC, a.cfg.IdentityWebhookSecret),
		Health:       handler.NewHealthHandler(a.store),
	}, guards, server.Options{
		FEURL:          a.cfg.FEURL,
		UploadDir:      images.Dir(),
		UploadBaseURL:  a.cfg.UploadBaseURL,
		Logger:         a.logger,
		Metrics:        a.metrics,
		MetricsHandler: metrics.Handler(a.registry),
	})
	return e, limiter, nil
}

// Serve はHTTPサーバーを動かし、ctxが終わったら順に止める。
// memoryバスの時は注文処理も同じプロセスで動かす。
func (a *App) Serve(ctx context.Context) error {
	e, limiter, err := a.Router()
	if err != nil {
		return err
	}
	defer limiter.Stop()

	bgCtx, cancelBg := context.WithCancel(context.Background())
	busDone := make(chan struct{})
	if a.bus != nil {
		a.registerWorkers(a.bus)
		go func() {
			defer close(busDone)
			if err := a.bus.Run(bgCtx); err != nil {
				a.logger.Error("event bus stopped", slog.String("error", err.Error()))
			}
		}()
	} else {
		close(busDone)
	}

	srv := server.New(e, ":"+a.cfg.Port)
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", slog.String("addr", ":"+a.cfg.Port))
		errCh <- srv.Start()
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown failed", slog.String("error", err.Error()))
	}

	// HTTPが止まってからバスと通知を止める
	cancelBg()
	<-busDone
	a.notifier.Wait()

	return errors.Join(serveErr, a.Close(shutdownCtx))
}

// Worker はkafkaから注文イベントを読んで処理する
func (a *App) Worker(ctx context.Context) error {
	if a.cfg.EventBus != config.BusKafka {
		return fmt.Errorf("worker requires EVENT_BUS=%s", config.BusKafka)
	}
	if err := event.CreateTopics(a.cfg.KafkaBrokers[0], event.Topics()); err != nil {
		a.logger.Warn("kafka topics not created", slog.String("error", err.Error()))
	}

	consumer := event.NewKafkaConsumer(a.cfg.KafkaBrokers, a.cfg.KafkaGroupID)
	a.registerWorkers(consumer)

	a.logger.Info("worker started", slog.Any("topics", event.Topics()))
	runErr := consumer.Run(ctx)
	a.notifier.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return errors.Join(runErr, a.Close(shutdownCtx))
}

// Close は開いた接続を逆順に閉じる
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
