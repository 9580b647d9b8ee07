package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/umalmyha/customer-records/internal/config"
	"github.com/umalmyha/customer-records/internal/infra"
	"github.com/umalmyha/customer-records/internal/service"
)

// @title       Customer records API
// @version     1.0
// @description Create, list, update and delete customer records
// @host        localhost:3000
// @BasePath    /
func main() {
	cfg, err := config.Build()
	if err != nil {
		logrus.Fatalf("failed to build config - %v", err)
	}

	logger, err := infra.Logger(cfg.LogCfg)
	if err != nil {
		logrus.Fatalf("failed to configure logger - %v", err)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal(err)
	}
}

func run(cfg config.Config, logger *logrus.Logger) error {
	ctx := context.Background()
	reg := infra.MetricsRegistry()

	logger.Infof("connecting to %s store...", cfg.StoreDriver)
	store, err := infra.CustomerStore(ctx, cfg, reg, logger)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPCfg.ShutdownTimeout)
		defer cancel()

		if err := store.Close(ctx); err != nil {
			logger.Errorf("failed to gracefully close store connection - %v", err)
		}
	}()

	customerCache, closeCache, err := infra.CustomerCache(ctx, cfg.RedisCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeCache(); err != nil {
			logger.Errorf("failed to gracefully close connection to redis - %v", err)
		}
	}()

	customerSvc := service.NewCustomerService(store.Transactor, store.Repository, customerCache, logger)

	app, err := infra.Router(cfg.HTTPCfg, customerSvc, reg, logger)
	if err != nil {
		return fmt.Errorf("failed to build router - %w", err)
	}

	shutdownCh := make(chan os.Signal, 1)
	errorCh := make(chan error, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Infof("server is listening on port %d", cfg.HTTPCfg.Port)
		errorCh <- app.Start(fmt.Sprintf(":%d", cfg.HTTPCfg.Port))
	}()

	select {
	case <-shutdownCh:
		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPCfg.ShutdownTimeout)
		defer cancel()

		logger.Info("shutdown signal has been sent, stopping the server...")
		if err := app.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to stop server gracefully - %w", err)
		}
	case err := <-errorCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("shutting down the server, unexpected error occurred - %w", err)
		}
	}
	return nil
}
