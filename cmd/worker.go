package cmd

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/glbter/distributed-systems/admin-service/config"
	"github.com/glbter/distributed-systems/admin-service/report/worker/rabbit"
)

// ExecuteWorker serves report requests from RabbitMQ until ctx is cancelled.
func ExecuteWorker(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.Rabbit.URL == "" {
		return errors.New("rabbit url is empty")
	}

	conn, err := amqp.Dial(cfg.Rabbit.URL)
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open a channel: %w", err)
	}
	defer ch.Close()

	if err := rabbit.InitQueues(ch); err != nil {
		return err
	}

	msgs, err := rabbit.Consume(ch)
	if err != nil {
		return err
	}

	service, cleanup := NewAggregator(cfg, logger)
	defer cleanup()

	logger.Info("report worker is starting", zap.String("queue", rabbit.REPORT_QUEUE_REQ))
	rabbit.NewWorker(ch, service, logger).Run(ctx, msgs)
	logger.Info("report worker stopped")

	return nil
}
