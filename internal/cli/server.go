package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bembido/video-to-quiz/internal/app"
	"github.com/bembido/video-to-quiz/internal/config"
	"github.com/bembido/video-to-quiz/internal/infra/memory"
	redisledger "github.com/bembido/video-to-quiz/internal/infra/redis"
	"github.com/bembido/video-to-quiz/internal/metrics"
	transport "github.com/bembido/video-to-quiz/internal/transport/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if cfg.Log.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var ledger app.ProgressLedger
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis not reachable at startup", "addr", cfg.Redis.Addr, "error", err)
		}
		ledger = redisledger.NewProgressLedger(redisClient, config.Duration(cfg.Redis.TTL, 24*time.Hour))
		logger.Info("using redis progress ledger", "addr", cfg.Redis.Addr)
	} else {
		ledger = memory.NewProgressLedger()
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	catalog := memory.NewCatalog(cfg.Segmentation.TargetSeconds, cfg.Segmentation.DefaultDurationSeconds, cfg.Segmentation.MaxDurationSeconds)
	service := app.NewGateService(catalog, ledger, app.WithRecorder(m))
	handler := transport.NewHandler(service, transport.Options{
		UploadDir:   cfg.Server.UploadDir,
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      logger,
		Metrics:     m,
		Gatherer:    registry,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  config.Duration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.Duration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	go func() {
		logger.Info("starting server", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
