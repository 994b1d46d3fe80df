package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/realtime-client/internal/config"
	"github.com/rickgao/realtime-client/internal/database"
	"github.com/rickgao/realtime-client/internal/events"
	"github.com/rickgao/realtime-client/internal/journal"
	"github.com/rickgao/realtime-client/internal/metrics"
	"github.com/rickgao/realtime-client/internal/realtime"
	"github.com/rickgao/realtime-client/internal/version"
)

var errReconnectExhausted = errors.New("reconnect attempts exhausted")

func main() {
	configPath := flag.String("config", "configs/realtime.example.yaml", "path to config file")
	subscribe := flag.String("subscribe", "", "comma-separated channels to join (post:42,campaign:7)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "config", *configPath)
		os.Exit(1)
	}

	// Set up structured logging
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Client.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting realtime client",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	if err := run(cfg, splitChannels(*subscribe), logger); err != nil {
		logger.Error("realtime client exited", "error", err)
		os.Exit(1)
	}
	logger.Info("realtime client stopped")
}

func run(cfg *config.Config, channels []string, logger *slog.Logger) error {
	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	client, err := realtime.New(*cfg, realtime.WithLogger(logger), realtime.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer client.Close()

	exhausted := make(chan struct{})
	var exhaustedOnce sync.Once
	logEvents(client.Events(), logger, func() { exhaustedOnce.Do(func() { close(exhausted) }) })

	// Optional event journal
	var pool *pgxpool.Pool
	if cfg.Journal.Enabled {
		pool, err = database.Connect(ctx, cfg.Journal.Database)
		if err != nil {
			return fmt.Errorf("connect journal database: %w", err)
		}
		defer pool.Close()

		writer := journal.NewWriter(journal.Config{
			Table:         cfg.Journal.Table,
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
			BufferSize:    cfg.Journal.BufferSize,
		}, pool, logger, m)
		if err := writer.EnsureSchema(ctx); err != nil {
			return err
		}
		writer.Attach(client.Events())
		writer.Start(ctx)
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			writer.Stop(stopCtx)
		}()
	}

	for _, ch := range channels {
		if err := client.SubscribeToChannel(ch); err != nil {
			return fmt.Errorf("subscribe %s: %w", ch, err)
		}
	}

	var db pinger
	if pool != nil {
		db = pool
	}
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           newHandler(client, db, reg, cfg.Metrics.Path),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := client.Connect(gctx); err != nil && gctx.Err() == nil {
			// The reconnect scheduler keeps trying in the background.
			logger.Warn("initial connect failed", "endpoint", client.Endpoint(), "error", err)
		}
		select {
		case <-gctx.Done():
			return nil
		case <-exhausted:
			return errReconnectExhausted
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// logEvents logs every lifecycle and domain event. onExhausted runs once when
// the reconnect budget is spent.
func logEvents(bus *events.Bus, logger *slog.Logger, onExhausted func()) {
	bus.OnConnected(func(e events.Connected) {
		logger.Info("realtime connected", "url", e.URL)
	})
	bus.OnDisconnected(func(e events.Disconnected) {
		logger.Info("realtime disconnected", "code", e.Code, "reason", e.Reason)
	})
	bus.OnError(func(e events.Error) {
		logger.Warn("realtime error", "error", e.Err)
	})
	bus.OnReconnecting(func(e events.Reconnecting) {
		logger.Info("realtime reconnecting", "attempt", e.Attempt, "delay", e.Delay)
	})
	bus.OnMaxReconnectAttemptsReached(func(e events.MaxReconnectAttemptsReached) {
		logger.Error("realtime gave up reconnecting", "attempts", e.Attempts)
		onExhausted()
	})
	bus.OnScheduleNotification(func(e events.ScheduleNotification) {
		logger.Info("schedule notification",
			"post_id", e.PostID,
			"type", e.Type,
			"urgency", e.Urgency,
			"message", e.Message,
		)
	})
	bus.OnPipelineUpdate(func(e events.PipelineUpdate) {
		logger.Info("pipeline update",
			"post_id", e.PostID,
			"agent_type", e.AgentType,
			"status", e.Status,
		)
	})
	bus.OnSystemAlert(func(e events.SystemAlert) {
		logger.Info("system alert", "alert_type", e.AlertType, "level", e.Level, "message", e.Message)
	})
	bus.OnMessage(func(e events.Message) {
		logger.Debug("realtime message", "type", e.Envelope.Type, "size", len(e.Envelope.Data))
	})
}

func splitChannels(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
