package main

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"financas/internal/cli"
	"financas/internal/config"
	"financas/internal/log"
	"financas/internal/services"
	"financas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("info")
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	logger.Info("Starting financas-worker", log.FieldOperation, log.OpStartup)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}

	<-done
	logger.Info("financas-worker shutdown complete")
}

func run(ctx context.Context, logger *log.Logger, cfg *config.Config) error {
	app, err := cli.Bootstrap(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to release resources", log.FieldError, err)
		}
	}()

	processor := services.NewCycleProcessor(app.Finance, services.CycleProcessorConfig{Interval: cfg.CycleInterval})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := processor.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return processor.Stop(stopCtx)
	})

	if app.Backend.AMQP != nil {
		payments := worker.NewPaymentWorker(app.Backend.AMQP, app.Finance)
		g.Go(func() error {
			return payments.Run(gctx)
		})
	} else {
		logger.Warn("AMQP disabled - debt payment events will not be consumed")
	}

	return g.Wait()
}
