package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/iliyamo/dormitory-occupancy/internal/config"
	"github.com/iliyamo/dormitory-occupancy/internal/database"
	"github.com/iliyamo/dormitory-occupancy/internal/handler"
	"github.com/iliyamo/dormitory-occupancy/internal/metrics"
	"github.com/iliyamo/dormitory-occupancy/internal/middleware"
	"github.com/iliyamo/dormitory-occupancy/internal/model"
	"github.com/iliyamo/dormitory-occupancy/internal/queue"
	"github.com/iliyamo/dormitory-occupancy/internal/repository"
	"github.com/iliyamo/dormitory-occupancy/internal/repository/memory"
	"github.com/iliyamo/dormitory-occupancy/internal/router"
	"github.com/iliyamo/dormitory-occupancy/internal/service"
	"github.com/iliyamo/dormitory-occupancy/internal/utils"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, newLogger(cfg))
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded MySQL schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.StorageDriver != config.DriverMySQL {
				return fmt.Errorf("migrate needs STORAGE_DRIVER=mysql, got %q", cfg.StorageDriver)
			}
			db, err := database.Open(cmd.Context(), cfg.DSN())
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()
			if err := database.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d statements\n", len(database.Statements()))
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token <user-id> <role>",
		Short: "Mint a development access token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || id == 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			role := strings.ToLower(args[1])
			if !model.ValidRole(role) {
				return fmt.Errorf("unknown role %q", args[1])
			}
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if ttl <= 0 {
				ttl = time.Duration(cfg.AccessTTLMin) * time.Minute
			}
			tok, err := utils.NewAccessToken(cfg.JWTSecret, id, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
			return nil
		},
	}
	cmd.Flags().Duration("ttl", 0, "token lifetime (defaults to ACCESS_TOKEN_TTL_MIN)")
	return cmd
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.LogFormat == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(h).With("service", "dormitory", "env", cfg.Env)
}

// openStore returns the unit of work for the configured driver and a
// cleanup func.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (repository.UnitOfWork, func(), error) {
	if cfg.StorageDriver == config.DriverMemory {
		s := memory.NewStore()
		if cfg.SeedDemo {
			memory.SeedDemo(s)
			logger.Info("memory store seeded with demo data")
		}
		return s, func() {}, nil
	}
	db, err := database.Open(ctx, cfg.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return repository.NewStore(db), func() { closeDB(db, logger) }, nil
}

func closeDB(db *sql.DB, logger *slog.Logger) {
	if err := db.Close(); err != nil {
		logger.Warn("close database", "err", err)
	}
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	uow, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithMetrics(metrics.New(reg)),
	}
	if cfg.AMQPURL != "" {
		opts = append(opts, service.WithPublisher(queue.NewPublisher(cfg.AMQPURL, logger)))
		if cfg.AuditConsumer {
			consumer := queue.NewAuditConsumer(cfg.AMQPURL, cfg.AuditLogDir, logger)
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("audit consumer stopped", "err", err)
				}
			}()
		}
	} else {
		logger.Info("AMQP_URL not set, domain events are not published")
	}
	svc := service.New(uow, opts...)
	if err := svc.Rooms.SyncResidents(ctx); err != nil {
		logger.Warn("residents gauge not primed", "err", err)
	}

	var limit echo.MiddlewareFunc
	if rdb := config.NewRedisClient(ctx, config.LoadRedisConfig()); rdb != nil {
		defer rdb.Close()
		limit = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger)
	} else {
		logger.Warn("redis unreachable, rate limiting disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover(), echomw.RequestID())
	router.Register(e, handler.New(svc, logger), router.Config{
		JWTSecret: cfg.JWTSecret,
		Limit:     limit,
		Gatherer:  reg,
	})

	addr := ":" + cfg.Port
	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "storage", cfg.StorageDriver)
		errc <- e.Start(addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
