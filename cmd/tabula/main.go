// Package main is the entry point for the tabula table service.
// It wires all dependencies together and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pitabwire/tabula/internal/bulk"
	"github.com/pitabwire/tabula/internal/capability"
	"github.com/pitabwire/tabula/internal/config"
	"github.com/pitabwire/tabula/internal/definition"
	"github.com/pitabwire/tabula/internal/metadata"
	"github.com/pitabwire/tabula/internal/observability"
	"github.com/pitabwire/tabula/internal/session"
	"github.com/pitabwire/tabula/internal/store"
	"github.com/pitabwire/tabula/internal/transport"
	"github.com/pitabwire/tabula/model"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

// rowBackend is the row store together with its optional seeding, health
// check and shutdown hooks.
type rowBackend struct {
	rows   store.RowStore
	seed   func(ctx context.Context, collection string, rows []model.Row) error
	health observability.HealthChecker
	close  func()
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, "tabula", version)
	if err != nil {
		logger.Error("tracing initialization failed", zap.Error(err))
		return 1
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.InitMetrics(reg)

	backend, err := buildRowStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("row store initialization failed", zap.Error(err))
		return 1
	}
	if backend.close != nil {
		defer backend.close()
	}

	handlers := bulk.NewHandlerRegistry()
	bulk.RegisterBuiltins(handlers, backend.rows, logger)

	registry, err := loadCatalogs(cfg.Catalog, handlers.Names(), logger)
	if err != nil {
		logger.Error("catalog loading failed", zap.Error(err))
		return 1
	}
	metrics.SetCatalogTablesLoaded(len(registry.Tables()))

	if cfg.Store.Seed {
		if err := seedRows(ctx, registry, backend, logger); err != nil {
			logger.Error("seeding rows failed", zap.Error(err))
			return 1
		}
	}

	idempotency, idempotencyHealth, idempotencyClose, err := buildIdempotencyStore(ctx, cfg.Bulk.Idempotency, logger)
	if err != nil {
		logger.Error("idempotency store initialization failed", zap.Error(err))
		return 1
	}
	if idempotencyClose != nil {
		defer idempotencyClose()
	}

	dispatchOpts := []bulk.DispatcherOption{
		bulk.WithLogger(logger),
		bulk.WithObserver(bulk.NewMetricsObserver(metrics)),
		bulk.WithObserver(bulk.NewLogObserver(logger)),
	}
	if idempotency != nil {
		dispatchOpts = append(dispatchOpts, bulk.WithIdempotencyStore(idempotency, cfg.Bulk.Idempotency.DefaultTTL))
	}
	dispatcher := bulk.NewDispatcher(handlers, dispatchOpts...)

	policy, authenticate, err := buildIdentity(cfg.Identity, logger)
	if err != nil {
		logger.Error("identity initialization failed", zap.Error(err))
		return 1
	}
	resolver := capability.NewResolver(policy, cfg.Identity.CapabilityCacheTTL)

	sessions := session.NewManager(backend.rows, session.Options{
		Policy:          model.ColumnPolicy(cfg.Table.ColumnPolicy),
		IdleTimeout:     cfg.Session.IdleTimeout,
		AbsoluteTimeout: cfg.Session.AbsoluteTimeout,
		MaxSessions:     cfg.Session.MaxSessions,
	}, session.WithLogger(logger), session.WithMetrics(metrics))

	router := transport.NewRouter(transport.Dependencies{
		Config:       cfg,
		Logger:       logger,
		Authenticate: authenticate,
		Resolver:     resolver,
		Tables:       metadata.NewTableProvider(registry),
		Sessions:     sessions,
		Rows:         backend.rows,
		Bulk:         dispatcher,
		Metrics:      metrics,
		Gatherer:     reg,
		Readiness: observability.ReadinessChecks{
			CatalogLoaded:    func() bool { return len(registry.Tables()) > 0 },
			RowStore:         backend.health,
			IdempotencyStore: idempotencyHealth,
		},
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	bgCtx, bgCancel := context.WithCancel(ctx)
	defer bgCancel()

	go sessions.Run(bgCtx, cfg.Session.SweepInterval)
	go watchReload(bgCtx, cfg, registry, handlers.Names(), policy, resolver, metrics, logger)

	logger.Info("server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.String("commit", commit),
		zap.Int("tables", len(registry.Tables())),
		zap.String("store", cfg.Store.Driver),
		zap.Bool("auth", cfg.Identity.Enabled),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return 1
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	bgCancel()

	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return 0
}

// loadCatalogs loads, validates and indexes the catalog files.
func loadCatalogs(cfg config.CatalogConfig, handlerNames []string, logger *zap.Logger) (*definition.Registry, error) {
	defs, err := readCatalogs(cfg, handlerNames, logger)
	if err != nil {
		return nil, err
	}
	return definition.NewRegistry(defs), nil
}

func readCatalogs(cfg config.CatalogConfig, handlerNames []string, logger *zap.Logger) ([]model.CatalogDefinition, error) {
	defs, err := definition.NewLoader().LoadAll(cfg.Directories)
	if err != nil {
		return nil, err
	}

	validator, err := definition.NewValidator(handlerNames...)
	if err != nil {
		return nil, err
	}
	if verrs := validator.Validate(defs); len(verrs) > 0 {
		for _, ve := range verrs {
			logger.Error("catalog validation error",
				zap.String("path", ve.Path),
				zap.String("code", ve.Code),
				zap.String("message", ve.Message),
			)
		}
		return nil, fmt.Errorf("%d catalog validation errors", len(verrs))
	}
	return defs, nil
}

// seedRows writes the seed fixtures of every table into the row store.
func seedRows(ctx context.Context, registry *definition.Registry, backend rowBackend, logger *zap.Logger) error {
	for _, def := range registry.Tables() {
		if len(def.Seed) == 0 {
			continue
		}
		rows, err := definition.SeedRows(def)
		if err != nil {
			return err
		}
		if err := backend.seed(ctx, def.Source, rows); err != nil {
			return err
		}
		logger.Info("seeded rows", zap.String("table_id", def.ID), zap.Int("rows", len(rows)))
	}
	return nil
}

// buildRowStore creates the row store selected by config.
func buildRowStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (rowBackend, error) {
	switch cfg.Driver {
	case "memory", "":
		logger.Info("using in-memory row store")
		mem := store.NewMemoryRowStore()
		return rowBackend{
			rows: mem,
			seed: func(_ context.Context, collection string, rows []model.Row) error {
				if mem.Len(collection) == 0 {
					mem.Seed(collection, rows)
				}
				return nil
			},
		}, nil
	case "postgres":
		poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			return rowBackend{}, fmt.Errorf("row store: parse DSN: %w", err)
		}
		if cfg.MaxConns > 0 {
			poolCfg.MaxConns = cfg.MaxConns
		}

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return rowBackend{}, fmt.Errorf("row store: connect: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return rowBackend{}, fmt.Errorf("row store: ping: %w", err)
		}

		pg := store.NewPgRowStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return rowBackend{}, fmt.Errorf("row store: %w", err)
		}
		logger.Info("using postgres row store")
		return rowBackend{rows: pg, seed: pg.Seed, health: pg, close: pool.Close}, nil
	default:
		return rowBackend{}, fmt.Errorf("unsupported row store driver: %q", cfg.Driver)
	}
}

// buildIdempotencyStore creates the bulk idempotency store based on config.
// A nil store disables replay protection.
func buildIdempotencyStore(ctx context.Context, cfg config.IdempotencyConfig, logger *zap.Logger) (bulk.IdempotencyStore, observability.HealthChecker, func(), error) {
	if !cfg.Enabled {
		return nil, nil, nil, nil
	}

	switch cfg.Driver {
	case "memory", "":
		logger.Info("using in-memory idempotency store")
		return bulk.NewMemoryIdempotencyStore(), nil, nil, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Addr, DB: cfg.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, nil, fmt.Errorf("idempotency store: ping %s: %w", cfg.Addr, err)
		}
		logger.Info("using redis idempotency store", zap.String("addr", cfg.Addr))
		s := bulk.NewRedisIdempotencyStore(client)
		return s, s, func() { client.Close() }, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported idempotency store driver: %q", cfg.Driver)
	}
}

// buildIdentity returns the role policy and the authentication middleware.
// With identity disabled every request runs as a local administrator.
func buildIdentity(cfg config.IdentityConfig, logger *zap.Logger) (capability.Policy, func(http.Handler) http.Handler, error) {
	if !cfg.Enabled {
		logger.Warn("authentication disabled, all requests act as a local administrator")
		return capability.AllowAll{}, transport.DevIdentity("local-admin", "admin"), nil
	}

	var policy capability.Policy = capability.AllowAll{}
	if cfg.PolicyFile != "" {
		p, err := capability.NewStaticPolicy(cfg.PolicyFile)
		if err != nil {
			return nil, nil, fmt.Errorf("static policy: %w", err)
		}
		policy = p
	} else {
		logger.Warn("no identity.policy_file configured, every authenticated caller is granted all capabilities")
	}

	var jwks *transport.JWKSClient
	if cfg.SigningKey == "" {
		jwks = transport.NewJWKSClient(cfg.JWKSURL, cfg.JWKSCacheTTL, logger)
	}
	return policy, transport.JWTAuthenticator(cfg, jwks), nil
}

// watchReload reloads the catalogs and the role policy on SIGHUP. A reload
// that fails validation keeps the current catalogs.
func watchReload(
	ctx context.Context,
	cfg *config.Config,
	registry *definition.Registry,
	handlerNames []string,
	policy capability.Policy,
	resolver *capability.Resolver,
	metrics *observability.Metrics,
	logger *zap.Logger,
) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			defs, err := readCatalogs(cfg.Catalog, handlerNames, logger)
			if err != nil {
				logger.Error("catalog reload failed", zap.Error(err))
			} else {
				registry.Replace(defs)
				metrics.SetCatalogTablesLoaded(len(registry.Tables()))
			}

			if sp, ok := policy.(*capability.StaticPolicy); ok {
				if err := sp.Reload(); err != nil {
					logger.Error("policy reload failed", zap.Error(err))
				}
			}
			resolver.Invalidate()
			logger.Info("reload complete", zap.Int("tables", len(registry.Tables())))
		}
	}
}
