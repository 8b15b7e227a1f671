package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/glbter/distributed-systems/admin-service/entities"
)

const (
	REPORT_QUEUE_REQ  = "admin_report_req"
	REPORT_QUEUE_RESP = "admin_report_resp"
)

type ReportGenerator interface {
	GenerateReport(ctx context.Context) ([]entities.HoldingValue, error)
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Worker serves report requests arriving on REPORT_QUEUE_REQ and replies on the
// request's ReplyTo queue with the same correlation id.
type Worker struct {
	channel   publisher
	generator ReportGenerator
	logger    *zap.Logger
}

func NewWorker(channel publisher, generator ReportGenerator, logger *zap.Logger) *Worker {
	return &Worker{
		channel:   channel,
		generator: generator,
		logger:    logger.With(zap.String("caller", "ReportWorker")),
	}
}

func InitQueues(ch *amqp.Channel) error {
	if _, err := ch.QueueDeclare(
		REPORT_QUEUE_REQ, // name
		false,            // durable
		false,            // delete when unused
		false,            // exclusive
		false,            // noWait
		nil,              // arguments
	); err != nil {
		return fmt.Errorf("declare a queue for report request: %w", err)
	}

	if _, err := ch.QueueDeclare(
		REPORT_QUEUE_RESP, // name
		false,             // durable
		false,             // delete when unused
		false,             // exclusive
		false,             // noWait
		nil,               // arguments
	); err != nil {
		return fmt.Errorf("declare a queue for report response: %w", err)
	}

	return nil
}

func Consume(ch *amqp.Channel) (<-chan amqp.Delivery, error) {
	msgs, err := ch.Consume(
		REPORT_QUEUE_REQ, // queue
		"",               // consumer
		false,            // auto-ack
		false,            // exclusive
		false,            // no-local
		false,            // no-wait
		nil,              // args
	)
	if err != nil {
		return nil, fmt.Errorf("initialize a consumer: %w", err)
	}

	return msgs, nil
}

// Run handles deliveries until msgs is closed or ctx is done, then waits for
// the deliveries in flight to be answered. Cancelling ctx stops consumption
// only; accepted deliveries still get their reply.
func (w *Worker) Run(ctx context.Context, msgs <-chan amqp.Delivery) {
	var wg sync.WaitGroup
	defer wg.Wait()

	handleCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			wg.Add(1)
			go func(msg amqp.Delivery) {
				defer wg.Done()
				w.Handle(handleCtx, msg)
			}(msg)
		}
	}
}

func (w *Worker) Handle(ctx context.Context, msg amqp.Delivery) {
	var (
		start = time.Now()
		cid   = msg.CorrelationId
	)
	if cid == "" {
		cid = uuid.New().String()
	}
	logger := w.logger.With(zap.String("cid", cid))

	logger.Info("start processing of report request")

	rows, err := w.generator.GenerateReport(ctx)
	if err != nil {
		logger.Error(fmt.Errorf("generate report: %w", err).Error())
		if err := w.reply(ctx, msg, cid, entities.ReportReply{Error: err.Error()}); err != nil {
			logger.Error(fmt.Errorf("respond with error: %w", err).Error())
		}
		if err := msg.Reject(false); err != nil {
			logger.Error(fmt.Errorf("reject request: %w", err).Error())
		}
		return
	}

	if err := w.reply(ctx, msg, cid, entities.ReportReply{Rows: rows}); err != nil {
		logger.Error(fmt.Errorf("publish report: %w", err).Error())
		if err := msg.Reject(false); err != nil {
			logger.Error(fmt.Errorf("reject request: %w", err).Error())
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		logger.Error(fmt.Errorf("acknowledge request: %w", err).Error())
		return
	}

	logger.Info("finish", zap.Int("rows", len(rows)), zap.Duration("duration", time.Since(start)))
}

func (w *Worker) reply(ctx context.Context, msg amqp.Delivery, cid string, reply entities.ReportReply) error {
	body, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}

	replyTo := msg.ReplyTo
	if replyTo == "" {
		replyTo = REPORT_QUEUE_RESP
	}

	return w.channel.PublishWithContext(ctx,
		"", // exchange
		replyTo,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: cid,
			Body:          body,
			Priority:      msg.Priority,
		})
}
