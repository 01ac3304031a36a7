package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haukened/dns-acl/internal/acl/common/clock"
	"github.com/haukened/dns-acl/internal/acl/common/log"
	"github.com/haukened/dns-acl/internal/acl/common/metrics"
	"github.com/haukened/dns-acl/internal/acl/config"
	"github.com/haukened/dns-acl/internal/acl/repos/aclcache/memory"
	"github.com/haukened/dns-acl/internal/acl/repos/decision"
	"github.com/haukened/dns-acl/internal/acl/repos/policystore"
	"github.com/haukened/dns-acl/internal/acl/services/policies"
	"github.com/haukened/dns-acl/internal/acl/services/syncer"
)

const (
	version = "0.1.0-dev"
	appName = "dns-acld"

	shutdownTimeout = 10 * time.Second
)

// Application holds the wired components of the ACL engine. The policy and
// group services are the surface an embedding API layer consumes.
type Application struct {
	config *config.AppConfig
	store  *policystore.Store
	syncer *syncer.Syncer
	reader *decision.Reader

	Policies      *policies.PolicyService
	AddressGroups *policies.AddressGroupService
	DomainGroups  *policies.DomainGroupService
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	if err := log.Configure(cfg.Env, cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":          version,
		"env":              cfg.Env,
		"log_level":        cfg.LogLevel,
		"db_path":          cfg.DBPath,
		"rebuild_interval": cfg.RebuildInterval,
		"cache_ttl":        cfg.CacheTTL,
		"metrics_addr":     cfg.MetricsAddr,
	}, "Starting DNS ACL engine")

	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
		cancel()
	}()

	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err}, "Engine failed")
	}

	log.Info(nil, "DNS ACL engine stopped gracefully")
}

// buildApplication constructs all components and wires them together.
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	clk := clock.RealClock{}
	logger := log.GetLogger()

	store, err := policystore.Open(cfg.DBPath, clk)
	if err != nil {
		return nil, fmt.Errorf("failed to open policy store: %w", err)
	}

	cache := memory.New(cfg.CacheSize, time.Duration(cfg.CacheTTL)*time.Second)
	reader := decision.New(cache, cfg.BloomFPRate)

	sync := syncer.New(syncer.Options{
		Store:     store,
		Cache:     cache,
		Refresher: reader,
		Logger:    logger,
		Clock:     clk,
		Interval:  time.Duration(cfg.RebuildInterval) * time.Second,
	})

	metrics.Register()

	return &Application{
		config:        cfg,
		store:         store,
		syncer:        sync,
		reader:        reader,
		Policies:      policies.NewPolicyService(store, sync),
		AddressGroups: policies.NewAddressGroupService(store, sync),
		DomainGroups:  policies.NewDomainGroupService(store, sync),
	}, nil
}

// Run starts the metrics endpoint and the rebuild scheduler, and blocks
// until the context is cancelled.
func (app *Application) Run(ctx context.Context) error {
	metricsSrv := &http.Server{
		Addr:    app.config.MetricsAddr,
		Handler: metrics.Handler(),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(map[string]any{"error": err}, "Metrics endpoint failed")
		}
	}()

	app.syncer.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn(map[string]any{"error": err}, "Metrics endpoint shutdown failed")
	}

	return app.store.Close()
}
