package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portal/internal/adapters/activities"
	web "portal/internal/adapters/http"
	"portal/internal/adapters/http/middleware"
	"portal/internal/adapters/http/perf"
	"portal/internal/config"
	"portal/internal/domain/message"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	// Performance instrumentation: requests and upstream calls share one collector
	collector := perf.NewCollector(perf.DefaultRingSize)
	api := activities.New(cfg.APIURL, cfg.APITimeout)
	api.Collector = collector

	portal := web.New(web.Deps{
		API:            api,
		Messages:       message.NewBoard(cfg.MessageTTL),
		Sessions:       middleware.NewSessionCache(middleware.DefaultSessionTTL),
		Collector:      collector,
		CSRFKey:        cfg.CSRFKey,
		SecureCookies:  cfg.IsProduction(),
		TrustedOrigins: cfg.TrustedOrigin,
		RateLimit:      cfg.RateLimit,
	})
	defer portal.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           portal,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.APITimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Activity portal %s starting on %s (env=%s, api=%s)", version, cfg.Addr, cfg.Env, cfg.APIURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown_started")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown_failed", "error", err.Error())
	}
}
