// Package main implements the plotviz data-plot-visualizer service.
// It renders numeric series posted as JSON into PNG line plots, stores them
// and serves them back by identifier over HTTP.
package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/HatiCode/plotviz/cmd/plotviz/blobs"
	"github.com/HatiCode/plotviz/cmd/plotviz/config"
	"github.com/HatiCode/plotviz/cmd/plotviz/logger"
	"github.com/HatiCode/plotviz/cmd/plotviz/metrics"
	"github.com/HatiCode/plotviz/cmd/plotviz/probe"
	"github.com/HatiCode/plotviz/cmd/plotviz/router"
	"github.com/HatiCode/plotviz/pkg/httpx"
	"github.com/HatiCode/plotviz/pkg/plotstore"
	"github.com/HatiCode/plotviz/pkg/render"
)

func main() {
	cfg := config.ParseFlags()

	logger := logger.New(cfg)
	slog.SetDefault(logger)

	logger.Info("starting plotviz",
		"version", "v0.1.0",
		"listen", cfg.Listen(),
		"blob_backend", cfg.BlobBackend,
		"max_points", cfg.MaxPoints,
		"rate_limit", cfg.RateLimit,
	)

	blobStore, err := blobs.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialize blob storage", "error", err)
		os.Exit(1)
	}
	if closer, ok := blobStore.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	plots := plotstore.New(blobStore)
	renderer := render.NewRenderer(cfg.MaxPoints, cfg.Width, cfg.Height)
	m := metrics.New(prometheus.DefaultRegisterer)

	var handler http.Handler = router.SetupRoutes(plots, renderer, m, logger)
	if cfg.RateLimit > 0 {
		handler = router.WithPlotRateLimit(handler, rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst), m)
	}
	handler = httpx.Wrap(handler, logger)
	httpServer := httpx.NewServer(cfg.Listen(), handler, logger)

	serverErr := make(chan error, 2)
	go func() {
		serverErr <- httpServer.Start()
	}()

	var hp *probe.Probe
	if cfg.GRPCHealthListen != "" {
		lis, err := net.Listen("tcp", cfg.GRPCHealthListen)
		if err != nil {
			logger.Error("failed to listen for grpc health probe", "error", err)
			os.Exit(1)
		}
		hp = probe.New(logger)
		hp.SetServing(true)
		go func() {
			serverErr <- hp.Serve(lis)
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	exitCode := 0
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			logger.Error("server failed", "error", err)
			exitCode = 1
		}
	}

	logger.Info("shutting down", "stored_plots", plots.Count())

	if hp != nil {
		hp.Stop()
	}
	if err := httpServer.Stop(10 * time.Second); err != nil {
		logger.Error("server shutdown failed", "error", err)
		exitCode = 1
	}

	logger.Info("shutdown complete")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
