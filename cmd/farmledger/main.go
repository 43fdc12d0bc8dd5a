package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"farmledger/internal/amqp"
	"farmledger/internal/backend"
	"farmledger/internal/cache"
	"farmledger/internal/cli"
	"farmledger/internal/config"
	"farmledger/internal/core"
	apphttp "farmledger/internal/http"
	"farmledger/internal/ledger"
	"farmledger/internal/log"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := cli.MustLoadConfig((*config.Config).Validate)
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server exited with error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn("Failed to close backend", log.FieldError, err.Error())
		}
	}()

	opts := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithStoreTimeout(cfg.StoreTimeout),
	}
	if cfg.AMQPURL != "" {
		pub, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			return err
		}
		defer pub.Close()
		opts = append(opts, ledger.WithPublisher(pub))
		logger.Info("Publishing expense changes", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP_URL not set, change events disabled")
	}
	gw := ledger.New(res.Backend, opts...)

	// A failed first load is retried by the first request that needs data.
	if err := gw.Load(ctx); err != nil {
		logger.Warn("Initial load failed", log.FieldError, err.Error())
	}

	stats, cleaner, closeCache, err := cache.New[core.DashboardStats](cache.Config{
		Backend:  cfg.CacheBackend,
		RedisURL: cfg.RedisURL,
		TTL:      cfg.CacheTTL,
		MaxSize:  64,
		Prefix:   "farmledger",
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer closeCache()
	manager := cache.NewManager(logger)
	manager.Register(cleaner)
	manager.StartCleanup(time.Minute)
	defer manager.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:             gw,
		Health:             res.Backend,
		StatsCache:         stats,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting farmledger server",
			"port", cfg.Port,
			log.FieldBackend, res.Type.String(),
			"cache", cfg.CacheBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
