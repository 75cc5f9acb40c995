package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/avolkoff/pixbatch/internal/config"
	httpHandler "github.com/avolkoff/pixbatch/internal/handler/http"
	"github.com/avolkoff/pixbatch/internal/handler/middleware"
	"github.com/avolkoff/pixbatch/internal/infrastructure/processor"
	"github.com/avolkoff/pixbatch/internal/usecase"
	"github.com/avolkoff/pixbatch/internal/validate"
	"github.com/avolkoff/pixbatch/internal/worker"
)

func main() {
	zlog.Init()
	zlog.Logger.Info().Msg("Starting pixbatch server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load("")
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to load config")
	}

	validator := validate.NewBatchValidator(&cfg.Limits)
	engine := processor.NewEngine(&cfg.Processing, &cfg.Limits)
	pool := worker.NewPool(cfg.Processing.Workers)

	store := usecase.NewBatchStore(time.Duration(cfg.Processing.BatchTTLMin) * time.Minute)
	store.StartJanitor(ctx)

	batchUsecase := usecase.NewBatchUsecase(validator, engine, pool, store)

	ginEngine := ginext.New("api")
	ginEngine.Use(
		middleware.ErrorHandlerMiddleware(),
		middleware.LoggerMiddleware(),
		middleware.CORSMiddleware(),
	)

	ginEngine.GET("/health", func(c *ginext.Context) {
		c.JSON(http.StatusOK, ginext.H{"status": "ok"})
	})

	batchHandler := httpHandler.NewBatchHandler(batchUsecase, &cfg.Processing)
	batchHandler.RegisterRoutes(ginEngine)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      ginEngine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
	}

	go func() {
		zlog.Logger.Info().Str("addr", cfg.Server.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Logger.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	<-ctx.Done()
	zlog.Logger.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("HTTP server shutdown failed")
	} else {
		zlog.Logger.Info().Msg("HTTP server stopped gracefully")
	}

	zlog.Logger.Info().Msg("Shutdown complete")
}
