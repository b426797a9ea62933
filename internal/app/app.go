// Package app wires configuration, backends, services and the router into
// a runnable HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"e_store/internal/cache"
	"e_store/internal/config"
	"e_store/internal/database"
	"e_store/internal/handlers"
	"e_store/internal/repositories/repomanager"
	"e_store/internal/routes"
	"e_store/internal/search"
	"e_store/internal/services"
	"e_store/internal/session"
	"e_store/internal/storage"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	cfg    *config.Config
	log    *zap.Logger
	conns  *database.Connections
	server *http.Server
}

// New connects every configured backend, applies migrations and builds the
// router. Optional backends fall back to local or no-op implementations.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	gin.SetMode(gin.ReleaseMode)

	conns, err := database.Connect(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	repos := repomanager.NewSQLRepositoryManager(cfg.DBDriver)
	useMigrationLogger(log)
	if err := repos.RunMigrations(ctx, conns.SQL); err != nil {
		conns.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	var (
		productCache cache.ProductCache = cache.NopProductCache{}
		limiter      cache.Limiter      = cache.NopLimiter{}
		index        search.Index       = search.NopIndex{}
		images       storage.ImageStore
		uploadDir    string
	)
	if conns.Redis != nil {
		productCache = cache.NewRedisProductCache(conns.Redis, cache.ProductCacheTTL)
		limiter = cache.NewRedisLimiter(conns.Redis)
	} else {
		log.Warn("redis not configured, product cache and rate limiting disabled")
	}
	if conns.Elastic != nil {
		index = search.NewElasticIndex(conns.Elastic, "")
	}
	if conns.MinIO != nil {
		store := storage.NewMinIOStore(conns.MinIO, cfg.MinIOBucket, cfg.MinIOPublicURL)
		if err := store.EnsureBucket(ctx, log); err != nil {
			conns.Close()
			return nil, err
		}
		images = store
	} else {
		store, err := storage.NewLocalStore(cfg.UploadDir, "/uploads")
		if err != nil {
			conns.Close()
			return nil, err
		}
		images, uploadDir = store, store.Dir()
		log.Info("storing images locally", zap.String("dir", uploadDir))
	}

	if cfg.SessionSecretGenerated {
		log.Warn("SESSION_SECRET not set, using a random key; sessions end on restart")
	}

	deps := services.Deps{DB: conns.SQL, Repos: repos, Log: log}
	h := &handlers.Handler{
		Auth:           services.NewAuthService(deps),
		Catalog:        services.NewCatalogService(deps, productCache, index),
		Cart:           services.NewCartService(deps),
		Inventory:      services.NewInventoryService(deps, images, productCache, index, cfg.RequireOwnerForQuantityUpdate),
		Health:         conns,
		Log:            log,
		MaxUploadBytes: cfg.MaxUploadBytes(),
	}

	router, err := routes.NewRouter(routes.Options{
		Handler:     h,
		Sessions:    session.NewStore(cfg.SessionSecret, cfg.SessionMaxAge, cfg.CookieSecure),
		Limiter:     limiter,
		Log:         log,
		CORSOrigins: cfg.CORSOrigins,
		UploadDir:   uploadDir,
	})
	if err != nil {
		conns.Close()
		return nil, err
	}

	return &App{
		cfg:   cfg,
		log:   log,
		conns: conns,
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}, nil
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (a *App) Close() error {
	return a.conns.Close()
}

// useMigrationLogger sends goose output to log instead of the standard logger.
func useMigrationLogger(log *zap.Logger) {
	goose.SetLogger(zap.NewStdLog(log.Named("migrations")))
}

// Migrate applies pending migrations and exits.
func Migrate(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	db, err := database.OpenSQL(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	useMigrationLogger(log)
	if err := repomanager.NewSQLRepositoryManager(cfg.DBDriver).RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	log.Info("migrations applied", zap.String("driver", string(cfg.DBDriver)))
	return nil
}
