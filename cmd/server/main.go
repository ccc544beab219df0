package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/bike-marketplace/internal/clock"
	"github.com/iliyamo/bike-marketplace/internal/config"
	"github.com/iliyamo/bike-marketplace/internal/database"
	"github.com/iliyamo/bike-marketplace/internal/handler"
	"github.com/iliyamo/bike-marketplace/internal/memstore"
	"github.com/iliyamo/bike-marketplace/internal/metrics"
	"github.com/iliyamo/bike-marketplace/internal/middleware"
	"github.com/iliyamo/bike-marketplace/internal/queue"
	"github.com/iliyamo/bike-marketplace/internal/repository"
	"github.com/iliyamo/bike-marketplace/internal/router"
	"github.com/iliyamo/bike-marketplace/internal/service"
	"github.com/iliyamo/bike-marketplace/internal/storage"
	"github.com/iliyamo/bike-marketplace/internal/usage"
	"github.com/iliyamo/bike-marketplace/internal/utils"
)

func main() {
	cfg := config.Load() // Load environment config

	zl, err := utils.InitLogger(utils.LoggerConfigFromEnv())
	if err != nil {
		panic(err)
	}
	defer func() { _ = zl.Sync() }()
	log := zl.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.Real()

	stores, usageStore, db := openStores(ctx, cfg, log)
	if db != nil {
		defer db.Close()
	}

	backend, err := openBlobs(cfg.Storage)
	if err != nil {
		log.Fatalw("blob store", "backend", cfg.Storage.Backend, "error", err)
	}

	var events queue.Publisher = queue.Nop{}
	if cfg.RabbitURL != "" {
		pub := queue.NewAMQPPublisher(cfg.RabbitURL, log.Named("events"))
		defer pub.Close()
		events = pub
		startAuditConsumer(ctx, cfg, log)
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	} else {
		log.Infow("redis unavailable, using in-process rate limit and no blob cache")
	}
	cacheCfg := config.LoadCacheConfig()

	ledger := usage.NewLedger(usageStore, clk, cfg.Quota)
	blobs := storage.NewAccounted(backend, ledger, log.Named("storage"))
	if inv := middleware.NewBlobCacheInvalidator(cacheCfg, rdb); inv != nil {
		blobs.SetInvalidator(inv)
	}
	gate := service.NewGate(stores.Blocklist, ledger, service.NewTurnstile(cfg.TurnstileSecret, cfg.TurnstileURL, 5*time.Second), utils.NewArgon2Hasher(cfg.IPHashSalt), log.Named("gate"))
	sellers := service.NewSellers(stores.Sellers, utils.NewArgon2Hasher(cfg.TokenHashSalt), clk)
	snapshots := service.NewSnapshots(stores.Listings, blobs, ledger, clk, cfg.PublicBaseURL)
	listings := service.NewListings(service.ListingsDeps{
		Listings:  stores.Listings,
		Contacts:  stores.Contacts,
		Sellers:   sellers,
		Blobs:     blobs,
		Snapshots: snapshots,
		Quota:     gate,
		Clock:     clk,
		Limits:    cfg.Limits,
		TTL:       cfg.TTL,
		Events:    events,
		Log:       log.Named("listings"),
	})
	sweeper := service.NewSweeper(stores, blobs, clk, cfg.TTL, events, log.Named("sweeper"))
	contacts := service.NewContacts(stores.Listings, stores.Contacts, clk, cfg.Limits, cfg.TTL)
	reports := service.NewReports(stores.Listings, stores.Reports, clk, cfg.Limits)
	admin := service.NewAdmin(stores, sellers, gate, ledger, clk, cfg.PublicBaseURL)
	dashboard := service.NewDashboard(sellers, stores, clk, cfg.TTL)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	if cfg.MetricsEnabled {
		e.Use(metrics.Middleware())
	}
	e.Use(middleware.RequestLogger(log.Named("http")))

	health := &handler.HealthHandler{}
	if db != nil {
		health.DB = db
	}
	router.Register(e, router.Handlers{
		Health:  health,
		Public:  handler.NewPublicHandler(blobs, log.Named("public")),
		Listing: handler.NewListingHandler(gate, listings, reports, cfg.Limits, log.Named("listing")),
		Buyer:   handler.NewBuyerHandler(gate, contacts, cfg.Limits, log.Named("buyer")),
		Seller:  handler.NewSellerHandler(gate, dashboard, log.Named("seller")),
		Admin:   handler.NewAdminHandler(admin, listings, reports, cfg.Limits, log.Named("admin")),
	}, router.Middleware{
		CountRequests: middleware.CountAPIRequests(ledger, log),
		RateLimit:     middleware.RateLimit(config.LoadRateLimitConfig(), rdb, log.Named("ratelimit")),
		Sweep:         middleware.Sweep(sweeper),
		Admin: []echo.MiddlewareFunc{
			middleware.AdminIdentity(cfg.AdminJWTSecret),
			middleware.RequireAdmin(cfg.AdminEmails),
		},
		BlobCache: middleware.BlobCache(cacheCfg, rdb),
	}, cfg.MetricsEnabled)

	addr := ":" + cfg.Port // Address string with port
	go func() {
		log.Infow("listening", "addr", addr, "env", cfg.Env, "store", cfg.StoreBackend, "storage", cfg.Storage.Backend)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("http server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warnw("http server shutdown failed", "error", err)
	}
}

// openStores returns the persistence layer for the configured backend.  The
// returned db is nil for the memory backend.
func openStores(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) (service.Stores, usage.Store, *sqlx.DB) {
	if cfg.StoreBackend == "memory" {
		log.Warnw("using in-memory store, data is lost on restart")
		m := memstore.New()
		return service.Stores{Sellers: m, Listings: m, Contacts: m, Reports: m, Blocklist: m}, usage.NewMemoryStore(), nil
	}
	db, err := database.Open(ctx, database.Options{
		User:     cfg.DBUser,
		Password: cfg.DBPass,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Name:     cfg.DBName,
		MaxConns: cfg.DBMaxConns,
	})
	if err != nil {
		log.Fatalw("db open failed", "error", err)
	}
	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Fatalw("schema setup failed", "error", err)
	}
	stores := service.Stores{
		Sellers:   repository.NewSellerRepo(db),
		Listings:  repository.NewListingRepo(db),
		Contacts:  repository.NewContactRepo(db),
		Reports:   repository.NewReportRepo(db),
		Blocklist: repository.NewBlocklistRepo(db),
	}
	return stores, repository.NewUsageRepo(db), db
}

func openBlobs(sc config.StorageConfig) (storage.Store, error) {
	switch sc.Backend {
	case "memory":
		return storage.NewMemory(), nil
	case "s3":
		return storage.NewS3(storage.S3Config{
			Endpoint:  sc.Endpoint,
			Bucket:    sc.Bucket,
			AccessKey: sc.AccessKey,
			SecretKey: sc.SecretKey,
			Region:    sc.Region,
			UseSSL:    sc.UseSSL,
		})
	default:
		return storage.NewFS(sc.Dir)
	}
}

// startAuditConsumer writes one audit line per listing event until ctx is
// cancelled.  A failure to open the audit log only disables the consumer.
func startAuditConsumer(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) {
	audit, err := queue.AuditLogger(cfg.AuditLogDir)
	if err != nil {
		log.Warnw("audit log disabled", "error", err)
		return
	}
	consumer := queue.NewConsumer(cfg.RabbitURL, audit, log.Named("audit"))
	go func() {
		defer func() { _ = audit.Sync() }()
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warnw("audit consumer stopped", "error", err)
		}
	}()
}
