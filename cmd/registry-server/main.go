// Package main provides the configuration registry server entry point.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang/glog"

	"github.com/otforge/config-registry/internal/config"
	"github.com/otforge/config-registry/internal/db"
	"github.com/otforge/config-registry/pkg/audit"
	"github.com/otforge/config-registry/pkg/authz"
	"github.com/otforge/config-registry/pkg/cache"
	"github.com/otforge/config-registry/pkg/content"
	"github.com/otforge/config-registry/pkg/ha"
	"github.com/otforge/config-registry/pkg/jobs"
	"github.com/otforge/config-registry/pkg/registry"
	"github.com/otforge/config-registry/pkg/site"
)

func main() {
	var (
		configPath string
		listenAddr string
	)
	flag.StringVar(&configPath, "config", "", "Path to registry config file (optional)")
	flag.StringVar(&listenAddr, "listen", "", "Address to listen on (overrides config)")
	flag.Parse()

	_ = flag.Set("logtostderr", "true")

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		glog.Fatalf("Failed to load config: %v", err)
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}

	logger.Info("starting registry server",
		"listen", cfg.Listen,
		"dbType", cfg.Database.Type,
		"contentDir", cfg.Content.Dir,
		"siteMode", cfg.Site.Mode,
		"authMode", cfg.Auth.Mode,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	gormDB, err := db.Open(db.Config{
		Type:         cfg.Database.Type,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		LogQueries:   cfg.Database.LogQueries,
	})
	if err != nil {
		glog.Fatalf("Failed to connect to database: %v", err)
	}

	blobs, err := content.NewStore(cfg.Content.Dir)
	if err != nil {
		glog.Fatalf("Failed to open content store: %v", err)
	}

	policyWatcher, err := content.NewPolicyWatcher(cfg.Content.PolicyPath, logger)
	if err != nil {
		glog.Fatalf("Failed to load import policy: %v", err)
	}
	if cfg.Content.WatchPolicy && cfg.Content.PolicyPath != "" {
		go func() {
			if err := policyWatcher.Watch(ctx); err != nil {
				logger.Error("policy watcher stopped", "error", err)
			}
		}()
	}

	haCfg := ha.HAConfigFromEnv()

	svc := registry.NewService(gormDB, blobs, policyWatcher)
	svc.Cache = cache.NewManager(cache.CacheConfigFromEnv())

	auditStore := audit.NewStore(gormDB)
	auditCfg := audit.ConfigFromEnv()
	jobStore := jobs.NewJobStore(gormDB)

	migrate := func() error {
		if err := svc.AutoMigrate(); err != nil {
			return err
		}
		if err := auditStore.AutoMigrate(); err != nil {
			return err
		}
		return jobStore.AutoMigrate()
	}
	lockDB := gormDB
	if !haCfg.MigrationLockEnabled {
		// NewMigrationLocker returns a pass-through locker for a nil database.
		lockDB = nil
	}
	if err := ha.NewMigrationLocker(lockDB).WithLock(ctx, migrate); err != nil {
		glog.Fatalf("Failed to migrate database tables: %v", err)
	}

	roleExtract, err := authz.NewRoleExtractor(buildAuthzConfig(cfg), logger)
	if err != nil {
		glog.Fatalf("Failed to configure authorization: %v", err)
	}

	var resolver site.Resolver = site.SingleSiteResolver{}
	if cfg.Site.Mode == "multi" {
		resolver = site.HeaderSiteResolver{}
	}

	apiRouter := registry.NewRouter(svc, registry.RouterConfig{
		SiteResolver: resolver,
		RoleExtract:  roleExtract,
		AccessAudit:  auditStore,
		AuditConfig:  auditCfg,
		ScanJobs:     jobStore,
		Logger:       logger,
	})

	root := chi.NewRouter()
	root.Mount("/api/registry/v1alpha1", apiRouter)
	root.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Background workers. With leader election enabled only the elected
	// replica runs them; otherwise every instance does.
	scanCfg := jobs.JobConfigFromEnv()
	scanner := registry.NewIntegrityScanner(gormDB, blobs)
	pool := jobs.NewWorkerPool(jobStore, scanner, scanCfg, logger)
	retention := audit.NewRetentionWorker(auditStore, auditCfg.RetentionDays, logger)

	runWorkers := func(ctx context.Context) {
		go pool.Run(ctx)
		go retention.Run(ctx)
	}
	if haCfg.LeaderElectionEnabled {
		elector := ha.NewLeaderElector(haCfg, gormDB, haCfg.Identity, logger)
		if err := elector.AutoMigrate(); err != nil {
			glog.Fatalf("Failed to migrate leader lease table: %v", err)
		}
		elector.OnStartLeading(runWorkers)
		go elector.Run(ctx)
	} else {
		runWorkers(ctx)
	}

	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: root,
	}

	go func() {
		logger.Info("registry server ready", "listen", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("registry server stopped")
}

func buildAuthzConfig(cfg *config.Config) authz.Config {
	out := authz.Config{Mode: authz.Mode(cfg.Auth.Mode)}
	if len(cfg.Auth.GroupRoles) > 0 {
		out.GroupRoles = make(map[string]authz.Role, len(cfg.Auth.GroupRoles))
		for group, role := range cfg.Auth.GroupRoles {
			out.GroupRoles[group] = authz.Role(role)
		}
	}
	out.JWT = authz.JWTConfig{
		RoleClaim:     cfg.Auth.JWT.RoleClaim,
		ApproverValue: cfg.Auth.JWT.ApproverValue,
		OperatorValue: cfg.Auth.JWT.OperatorValue,
		PublicKeyPath: cfg.Auth.JWT.PublicKeyPath,
		Issuer:        cfg.Auth.JWT.Issuer,
		Audience:      cfg.Auth.JWT.Audience,
	}
	return out
}
