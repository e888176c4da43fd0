// Command ghostd runs the completion telemetry daemon: it tracks served
// completions through acceptance and editing, aggregates the outcomes, and
// serves everything over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wilhg/ghostd/pkg/api"
	"github.com/wilhg/ghostd/pkg/config"
	"github.com/wilhg/ghostd/pkg/logging"
	"github.com/wilhg/ghostd/pkg/metrics"
	"github.com/wilhg/ghostd/pkg/otel"
	"github.com/wilhg/ghostd/pkg/snippet"
	"github.com/wilhg/ghostd/pkg/telemetry"
	"github.com/wilhg/ghostd/pkg/telemetry/archive"
	"github.com/wilhg/ghostd/pkg/tokenizer"
	"github.com/wilhg/ghostd/pkg/watch"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	var showVersion bool
	var configPath string

	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.StringVar(&configPath, "config", getEnv("GHOSTD_CONFIG", ""), "path to TOML config file")
	flag.Parse()

	if showVersion {
		fmt.Printf("ghostd %s (commit=%s, date=%s)\n", version, commit, date)
		return
	}

	if err := run(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "ghostd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logging.New(logging.Config{
		Level:   cfg.Log.Level,
		JSON:    cfg.Log.JSON,
		Service: "ghostd",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, otel.Config{
		ServiceName:    "ghostd",
		ServiceVersion: version,
		UseStdout:      cfg.Trace.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	m := metrics.New()
	store := snippet.NewStore()
	robotHuman := telemetry.NewRobotHuman()
	completions := telemetry.NewCompCounters()

	opts := []snippet.TrackerOption{
		snippet.WithFinalizedSink(robotHuman),
		snippet.WithFinalizedSink(completions),
		snippet.WithChangeSink(robotHuman),
		snippet.WithChangeSink(completions),
		snippet.WithObserver(m),
		snippet.WithLogger(log),
	}

	if cfg.DatabaseURL != "" {
		arch, err := archive.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer arch.Close()
		if err := arch.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate archive: %w", err)
		}
		opts = append(opts, snippet.WithFinalizedSink(archive.NewRecorder(arch, log)))
		go rollupLoop(ctx, arch, robotHuman, log)
		log.Info("telemetry archive enabled")
	}

	tracker := snippet.NewTracker(store, opts...)
	tokens := tokenizer.NewCache(cfg.Tokenizer.Rewrites)

	if cfg.Watch.Enabled {
		w, err := watch.New(cfg.Watch.Paths,
			time.Duration(cfg.Watch.DebounceMS)*time.Millisecond,
			func(uri, text string) {
				tracker.FileChanged(uri, text)
				m.FileChanges.Inc()
			}, log)
		if err != nil {
			return fmt.Errorf("init watcher: %w", err)
		}
		if err := w.Start(); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		defer func() { _ = w.Stop() }()
		log.Info("workspace watcher enabled", "paths", cfg.Watch.Paths)
	}

	srv := api.NewServer(tracker, store, tokens, robotHuman, completions,
		api.WithMetrics(m),
		api.WithAPILogger(log),
	)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Addr, "version", version)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(sctx)
}

// rollupLoop snapshots the robot/human counters into the archive until the
// context is canceled.
func rollupLoop(ctx context.Context, arch *archive.Store, rh *telemetry.RobotHuman, log *slog.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			wctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := arch.AppendRollups(wctx, rh.Stats()); err != nil {
				log.Warn("rollup write failed", "error", err)
			}
			cancel()
		}
	}
}

func getEnv(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
