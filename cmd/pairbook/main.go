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

	"github.com/mvance/pairbook/internal/config"
	"github.com/mvance/pairbook/internal/domain"
	"github.com/mvance/pairbook/internal/engine"
	"github.com/mvance/pairbook/internal/handler"
	"github.com/mvance/pairbook/internal/ledger"
	"github.com/mvance/pairbook/internal/marketdata"
	"github.com/mvance/pairbook/internal/service"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Collaborators: pair registry and the value-transfer ledger. The demo
	// binary runs against the in-memory ledger; a deployment would wire a
	// real one behind the same interface.
	pairs := domain.NewPairRegistry()
	lgr := ledger.NewInMemory()
	tape := marketdata.NewTape()

	// Engine.
	eng := engine.NewEngine(pairs, lgr, tape, cfg.MinNotional)

	// Services.
	pairSvc := service.NewPairService(pairs)
	orderSvc := service.NewOrderService(eng)
	marketSvc := service.NewMarketService(eng, tape, 5*time.Minute)
	accountSvc := service.NewAccountService(eng)

	// Expiry sweep.
	expiryMgr := engine.NewExpiryManager(cfg.ExpiryInterval, eng, logger)

	// Router.
	router := handler.NewRouter(pairSvc, orderSvc, marketSvc, accountSvc, logger)

	// Start expiry goroutine with cancellable context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	expiryMgr.Start(ctx)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown: stop HTTP server, cancel context (stops expiry goroutine).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	logger.Info("server stopped")
}
