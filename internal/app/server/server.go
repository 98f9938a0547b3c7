package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"concedii/internal/domain/audit"
	"concedii/internal/domain/auth"
	"concedii/internal/domain/entitlement"
	"concedii/internal/domain/leave"
	"concedii/internal/domain/reports"
	"concedii/internal/platform/config"
	"concedii/internal/platform/db"
	"concedii/internal/platform/metrics"
	audithandler "concedii/internal/transport/http/handlers/audit"
	authhandler "concedii/internal/transport/http/handlers/auth"
	balancehandler "concedii/internal/transport/http/handlers/balance"
	leavehandler "concedii/internal/transport/http/handlers/leave"
	metricshandler "concedii/internal/transport/http/handlers/metrics"
	reportshandler "concedii/internal/transport/http/handlers/reports"
	"concedii/internal/transport/http/middleware"
)

type App struct {
	Config config.Config
	Pool   *pgxpool.Pool
	Router http.Handler
}

// New connects, migrates, seeds and wires the whole service. The
// returned App owns the pool; callers close it via Close.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	collector := metrics.New()

	userStore := auth.NewStore(pool)
	auditSvc := audit.New(pool)

	entitlementSvc := entitlement.NewService(entitlement.NewStore(pool), collector)
	leaveSvc := leave.NewService(
		leave.NewStore(pool),
		entitlementSvc,
		db.NewRunner(pool),
		leave.NewAuthz(userStore, cfg.DirectorUsername),
		collector,
	)
	reportsSvc := reports.NewService(reports.NewStore(pool))

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(collector))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(1 << 20))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.RateLimit(600, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(40, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(userStore, auditSvc, cfg.JWTSecret, cfg.JWTTTL, cfg.DirectorUsername).RegisterRoutes(r)
		leavehandler.NewHandler(leaveSvc, auditSvc).RegisterRoutes(r)
		balancehandler.NewHandler(entitlementSvc, userStore, auditSvc).RegisterRoutes(r)
		reportshandler.NewHandler(reportsSvc).RegisterRoutes(r)
		audithandler.NewHandler(auditSvc).RegisterRoutes(r)
		metricshandler.NewHandler(collector).RegisterRoutes(r)
	})

	return &App{Config: cfg, Pool: pool, Router: router}, nil
}

func (a *App) Close() {
	a.Pool.Close()
}

// Run serves until the listener fails.
func (a *App) Run() error {
	slog.Info("server listening", "addr", a.Config.Addr, "env", a.Config.Environment)
	return http.ListenAndServe(a.Config.Addr, a.Router)
}

// Start is the process entrypoint used by cmd/server.
func Start() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := config.Load()
	app, err := New(context.Background(), cfg)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Run(); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}
