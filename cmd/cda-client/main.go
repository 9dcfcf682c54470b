package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sushil-thasale/cda-client/internal/config"
	"github.com/sushil-thasale/cda-client/internal/engine"
	"github.com/sushil-thasale/cda-client/internal/logging"
	"github.com/sushil-thasale/cda-client/internal/manifest"
	"github.com/sushil-thasale/cda-client/internal/metrics"
	"github.com/sushil-thasale/cda-client/internal/savepoint"
	"github.com/sushil-thasale/cda-client/internal/sink"
	"github.com/sushil-thasale/cda-client/internal/store"
)

// Version information (set via ldflags)
var (
	Version = "v0.1.0"
	GitSHA  = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Setup(logging.Config{Format: cfg.Log.Format, Level: cfg.Log.Level})
	log := logging.Component("main")
	log.Info("cda-client starting", "version", Version, "git_sha", GitSHA)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown handler
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-ch
		log.Info("shutdown signal received", "signal", sig.String())
		cancel()
	}()

	if cfg.Metrics.Enabled {
		metrics.Init("cda_client")
		go func() {
			if err := metrics.StartServer(cfg.Metrics.Address); err != nil {
				log.Error("metrics server exited", "error", err)
			}
		}()
	}

	provider, cleanup, err := newManifestProvider(ctx, cfg.Manifest)
	if err != nil {
		log.Error("failed to create manifest provider", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	savepoints, err := savepoint.NewStore(savepoint.Config{
		Enabled: cfg.Savepoints.Enabled && !cfg.Copy.DryRun,
		Dir:     cfg.Savepoints.Dir,
	})
	if err != nil {
		log.Error("failed to create savepoint store", "error", err)
		os.Exit(1)
	}

	objects, err := store.NewBlobStore(ctx, cfg.Source.BucketURL, cfg.Source.ReadRetries)
	if err != nil {
		log.Error("failed to open source store", "error", err)
		os.Exit(1)
	}
	defer objects.Close()

	out, err := sink.NewBlobSink(ctx, sink.Config{
		BucketURL:   cfg.Sink.BucketURL,
		Prefix:      cfg.Sink.Prefix,
		Compression: cfg.Sink.Compression,
	})
	if err != nil {
		log.Error("failed to open sink", "error", err)
		os.Exit(1)
	}
	defer out.Close()

	eng := engine.New(provider, savepoints, objects, out, engine.Options{
		JobConcurrency:   cfg.Copy.JobConcurrency,
		FetchConcurrency: cfg.Copy.FetchConcurrency,
		DryRun:           cfg.Copy.DryRun,
	})

	report, err := eng.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			log.Info("shutdown complete")
			return
		}
		log.Error("run failed", "error", err)
		os.Exit(1)
	}

	if report.JobErrors != nil {
		log.Warn("some jobs failed and will be retried next run", "error", report.JobErrors)
	}
	log.Info("cda-client stopped cleanly",
		"jobs_completed", report.JobsCompleted,
		"jobs_failed", report.JobsFailed,
	)
}

// newManifestProvider builds a file or blob manifest provider from config.
func newManifestProvider(ctx context.Context, cfg config.ManifestConfig) (manifest.Provider, func(), error) {
	if cfg.Path != "" {
		return manifest.NewFileProvider(cfg.Path), func() {}, nil
	}
	p, err := manifest.NewBlobProvider(ctx, cfg.BucketURL, cfg.Key)
	if err != nil {
		return nil, nil, err
	}
	return p, func() { p.Close() }, nil
}
