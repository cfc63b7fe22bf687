package main

import (
	"context"
	"fmt"
	"os"
	"taskManager/internal/app"
	"taskManager/internal/config"
	"taskManager/internal/logger"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	application := app.New(cfg)
	if _, err := application.Init(ctx); err != nil {
		logger.Error("Failed to start application", err)
		_ = application.Shutdown(ctx)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		logger.Error("Failed to start server", err)
		_ = application.Shutdown(ctx)
		os.Exit(1)
	}

	logger.Info("Server is running", zap.String("addr", application.Addr()), zap.String("store", cfg.Store.Type))

	wait := gfshutdown.GracefulShutdown(
		ctx,
		cfg.HTTP.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				logger.Info("Graceful shutdown initiated")
				return application.Shutdown(ctx)
			},
		},
	)

	exitCode := <-wait
	os.Exit(exitCode)
}
