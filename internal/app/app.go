// Package app wires the widget runtime together: config, logging, the
// durable cache, the transport client and the synchronizer itself.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tpchat/internal/retention"
	"tpchat/pkg/config"
	"tpchat/pkg/logger"
	"tpchat/pkg/models"
	"tpchat/pkg/store"
	"tpchat/pkg/transport"
	"tpchat/pkg/widget"
)

// App encapsulates the widget runtime and its lifecycle.
type App struct {
	cfg     *config.Config
	version string

	sync            *widget.Synchronizer
	stopRetention   context.CancelFunc
	metricsListener *http.Server
}

// New validates the config and opens the durable cache; it does not
// touch the network. Call Run to initialize the synchronizer and block
// until shutdown.
func New(cfg *config.Config, version string, hooks widget.Hooks) (*App, error) {
	_ = godotenv.Load(".env")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	if err := store.Open(cfg.Storage.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", cfg.Storage.DBPath, err)
	}
	store.SetMaxStored(cfg.Conversations.MaxStored)

	tp := transport.New(transport.Options{
		APIBase:    cfg.APIBase,
		AppID:      cfg.AppID,
		TeamSlug:   cfg.TeamSlug,
		UserJWT:    cfg.UserJWT,
		MaxRetries: cfg.Transport.MaxRetries,
		BaseDelay:  cfg.Transport.BaseDelay.Std(),
		RPS:        cfg.Transport.RateLimit.RPS,
		Burst:      cfg.Transport.RateLimit.Burst,
	})

	a := &App{
		cfg:     cfg,
		version: version,
		sync: widget.New(widget.Options{
			Config:    cfg,
			Transport: tp,
			Hooks:     hooks,
		}),
	}
	return a, nil
}

// Synchronizer exposes the widget core for embedding hosts.
func (a *App) Synchronizer() *widget.Synchronizer { return a.sync }

// Run initializes the synchronizer, starts retention and the optional
// metrics listener, and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.sync.Initialize(ctx); err != nil {
		return err
	}

	stopRetention, err := retention.Start(ctx, a.cfg)
	if err != nil {
		return err
	}
	a.stopRetention = stopRetention

	if addr := a.cfg.Metrics.Addr; addr != "" {
		a.startMetrics(addr)
	}

	<-ctx.Done()
	a.Close()
	return nil
}

// Identify upgrades the running widget to an identified user.
func (a *App) Identify(ctx context.Context, u models.UserIdentity) error {
	return a.sync.Identify(ctx, u)
}

// Close tears everything down: synchronizer, retention, metrics
// listener and the durable cache.
func (a *App) Close() {
	a.sync.Destroy()
	if a.stopRetention != nil {
		a.stopRetention()
		a.stopRetention = nil
	}
	if a.metricsListener != nil {
		_ = a.metricsListener.Close()
		a.metricsListener = nil
	}
	if err := store.Close(); err != nil {
		logger.Warn("store_close_failed", "error", err)
	}
}

func (a *App) startMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !store.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("{\"status\":\"degraded\"}"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{\"status\":\"ok\"}"))
	})
	a.metricsListener = &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Info("metrics_listener_started", "addr", addr)
		if err := a.metricsListener.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics_listener_failed", "error", err)
		}
	}()
}
