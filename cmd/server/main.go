package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/Orchestrator/backend/internal/config"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/infrastructure/server"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Flags override the environment.
	flagSet := pflag.NewFlagSet("server", pflag.ContinueOnError)
	flagSet.StringVar(&cfg.Home.Dir, "home", cfg.Home.Dir, "home directory holding the items directory")
	flagSet.StringVarP(&cfg.Server.Port, "port", "p", cfg.Server.Port, "HTTP port")
	flagSet.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "development logging")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Development: cfg.Logging.Development})
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	srv, err := server.NewServerWithLogger(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Boot(ctx); err != nil {
		logger.Error("Boot failed", zap.String("home", cfg.Home.Dir), zap.Error(err))
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	// SIGHUP reloads items from disk.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-hup:
			_ = srv.Reload(ctx)
		case <-ctx.Done():
			logger.Info("Shutting down gracefully...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errChan:
			return err
		}
	}
}
