package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"topomap/engine-go/internal/backend"
	"topomap/engine-go/internal/config"
	"topomap/engine-go/internal/enrichment/names"
	"topomap/engine-go/internal/enrichment/snmp"
	"topomap/engine-go/internal/httpapi"
	"topomap/engine-go/internal/metrics"
	"topomap/engine-go/internal/poller"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLogger := httpapi.NewLogger("info")
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}

	logger := httpapi.NewLogger(cfg.LogLevel)
	if err := config.Validate(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	client := backend.NewHTTPClient(backend.Options{
		BaseURL: cfg.Upstream.BaseURL,
		Token:   cfg.Upstream.Token,
		Timeout: cfg.UpstreamTimeout(),
	})

	sessions := httpapi.NewSessionManager(ctx, logger, client, m, poller.Options{
		Interval:   cfg.RefreshInterval(),
		BackoffCap: cfg.BackoffCap(),
	})
	defer sessions.Close()

	suggest := httpapi.NewSuggestService(logger,
		snmp.NewClient(snmp.Config{
			Community: cfg.Probe.SNMPCommunity,
			Version:   cfg.Probe.SNMPVersion,
		}),
		names.NewResolver(names.Config{Server: cfg.Probe.DNSServer}),
	)

	h := httpapi.NewHandler(logger, sessions, suggest, m)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("engine-go listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	sessions.Close()
	logger.Info().Msg("shutdown complete")
}
