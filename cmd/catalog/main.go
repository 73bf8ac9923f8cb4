package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"CatalogStore/internal/auth"
	"CatalogStore/internal/catalog"
	"CatalogStore/internal/config"
	"CatalogStore/pkg/kit"
)

const service = "catalog"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("catalog stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	store, closeStore, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mgr, err := catalog.NewManager(ctx, store,
		catalog.WithLogger(log),
		catalog.WithMetrics(catalog.NewMetrics(reg)),
		catalog.WithStrictLoad(cfg.StrictLoad),
	)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	fields := []zap.Field{zap.Int("products", mgr.Len()), zap.String("driver", cfg.StorageDriver)}
	if fs, ok := store.(*catalog.FileStore); ok {
		fields = append(fields, zap.String("file", fs.Path()))
	}
	log.Info("catalog loaded", fields...)

	if cfg.SeedFile != "" {
		drafts, err := catalog.LoadSeed(cfg.SeedFile)
		if err != nil {
			return err
		}
		n, err := catalog.Seed(ctx, mgr, drafts, log)
		if err != nil {
			return err
		}
		log.Info("catalog seeded", zap.Int("created", n), zap.String("file", cfg.SeedFile))
	}

	s := &catalog.Server{Catalog: mgr, Log: log}
	deps := catalog.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsToken:   cfg.MetricsToken,
	}

	if cfg.AdminEnabled() {
		users := auth.NewMemStore()
		if _, err := users.Create(cfg.AdminEmail, cfg.AdminPassword, auth.RoleAdmin); err != nil {
			return fmt.Errorf("create admin: %w", err)
		}

		tm := auth.NewTokenMaker(cfg.JWTSecret)
		as := &auth.Server{
			Log:            log,
			Store:          users,
			JWT:            tm,
			TokenTTL:       cfg.TokenTTL,
			TrustedProxies: cfg.TrustedProxies,
		}

		s.Guard = auth.Admin(tm, auth.RoleAdmin, log)
		deps.Extra = func(r chi.Router) { as.Mount(r) }
	} else {
		log.Info("admin routes disabled: JWT_SECRET or ADMIN_PASSWORD not set")
	}

	return kit.RunHTTPServer(ctx, ":"+cfg.Port, catalog.NewHandler(s, deps), log)
}

func openStorage(ctx context.Context, cfg config.Config) (catalog.Storage, func(), error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}

		ps := catalog.NewPostgresStore(db, cfg.SnapshotName)
		if err := ps.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return ps, func() { _ = db.Close() }, nil
	case config.DriverMemory:
		return catalog.NewMemStore(), func() {}, nil
	default:
		return catalog.NewFileStore(cfg.ProductsFile), func() {}, nil
	}
}
