package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"intervi-api/internal/cache"
	"intervi-api/internal/config"
	"intervi-api/internal/database"
	"intervi-api/internal/event"
	"intervi-api/internal/handler"
	"intervi-api/internal/metrics"
	"intervi-api/internal/middleware"
	"intervi-api/internal/password"
	"intervi-api/internal/repository"
	"intervi-api/internal/repository/memory"
	"intervi-api/internal/revocation"
	"intervi-api/internal/router"
	"intervi-api/internal/service"
	"intervi-api/internal/token"
	"intervi-api/internal/websocket"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

const (
	shutdownTimeout     = 10 * time.Second
	revocationSweepTick = time.Hour
)

type userStore interface {
	service.CredentialStore
	service.StatisticsStore
}

type expiredSweeper interface {
	CleanExpired(ctx context.Context) (int64, error)
}

type App struct {
	server       *http.Server
	hub          *websocket.Hub
	sweeper      expiredSweeper
	cleanupFuncs []func()
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}
	ready := false
	defer func() {
		if !ready {
			a.cleanup()
		}
	}()

	checks := map[string]handler.HealthChecker{}

	var (
		users    userStore
		sessions service.SessionStore
		pool     *pgxpool.Pool
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		slog.Warn("using in-memory store; data is lost on restart")
		users = memory.NewUserStore()
		sessions = memory.NewInterviewStore()
	default:
		slog.Info("connecting to PostgreSQL")
		db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.cleanupFuncs = append(a.cleanupFuncs, db.Close)

		if err := db.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}

		pool = db.Pool
		users = repository.NewUserRepository(db.Pool)
		sessions = repository.NewInterviewRepository(db.Pool)
		checks["database"] = db.Health
		slog.Info("database ready")
	}

	var (
		denylist   revocation.Denylist
		dashboards cache.Cache
	)
	if cfg.RedisURL != "" {
		rdb, err := database.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.cleanupFuncs = append(a.cleanupFuncs, func() { _ = rdb.Close() })

		denylist = revocation.NewRedisDenylist(rdb)
		dashboards = cache.NewRedisCache(rdb)
		checks["redis"] = redisCheck(rdb)
	} else {
		dashboards = cache.NewMemoryCache()
		if pool != nil {
			revocations := repository.NewRevocationRepository(pool)
			denylist = revocations
			a.sweeper = revocations
		} else {
			denylist = revocation.NewMemoryDenylist()
		}
	}

	issuer, err := token.NewIssuer(token.IssuerConfig{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.JWTAccessTTL,
		RefreshTTL:    cfg.JWTRefreshTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token issuer: %w", err)
	}

	hasher, err := password.NewHasher(cfg.BcryptCost, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize password hasher: %w", err)
	}

	m := metrics.New()
	bus := event.NewBus()
	a.hub = websocket.NewHub(bus, m)

	authService := service.NewAuthService(users, hasher, issuer, denylist, m)
	authService.SetAdminEmails(cfg.AdminEmails)
	authMiddleware := middleware.NewAuthMiddleware(issuer, denylist, users)

	questionService, err := service.NewQuestionService()
	if err != nil {
		return nil, fmt.Errorf("failed to load question bank: %w", err)
	}

	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Interview: handler.NewInterviewHandler(service.NewInterviewService(sessions, users, bus, dashboards)),
		Analytics: handler.NewAnalyticsHandler(service.NewAnalyticsService(users, sessions, dashboards, cfg.AnalyticsCacheTTL)),
		Question:  handler.NewQuestionHandler(questionService),
		Realtime:  handler.NewRealtimeHandler(service.NewRealtimeService(cfg.RealtimeTicketTTL), a.hub, cfg.CORSOrigins),
		System:    handler.NewSystemHandler(cfg.AppEnv, Version, checks),
	}, m)

	a.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	ready = true
	return a, nil
}

// Handler exposes the fully wired router.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

func redisCheck(rdb *redis.Client) handler.HealthChecker {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}

// Run serves until ctx is cancelled or the listener fails, then drains
// in-flight requests and releases every resource.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(gctx)
		return nil
	})

	if a.sweeper != nil {
		g.Go(func() error {
			a.sweepRevocations(gctx)
			return nil
		})
	}

	g.Go(func() error {
		slog.Info("server starting", "addr", a.server.Addr, "version", Version)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("server stopped")
	return nil
}

func (a *App) sweepRevocations(ctx context.Context) {
	ticker := time.NewTicker(revocationSweepTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := a.sweeper.CleanExpired(ctx)
			if err != nil {
				slog.Warn("revocation sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.Debug("revocation sweep", "removed", removed)
			}
		}
	}
}

func (a *App) cleanup() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
}
