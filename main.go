package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/glbter/distributed-systems/admin-service/cmd"
	"github.com/glbter/distributed-systems/admin-service/config"
)

func main() {
	cfg, err := config.Load(os.Getenv("ADMIN_CONFIG"))
	if err != nil {
		log.Fatalln("Failed to load configuration", err)
	}

	logger := cmd.InitLogger(cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cfg.Mode {
	case config.ModeWorker:
		err = cmd.ExecuteWorker(ctx, cfg, logger)
	default:
		err = cmd.ExecuteServer(ctx, cfg, logger)
	}

	if err != nil {
		logger.Fatal("admin service stopped", zap.Error(err), zap.String("mode", cfg.Mode))
	}
}
