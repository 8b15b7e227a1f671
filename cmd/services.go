package cmd

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/glbter/distributed-systems/admin-service/aggregator"
	companiesHttp "github.com/glbter/distributed-systems/admin-service/companies/client/http"
	"github.com/glbter/distributed-systems/admin-service/config"
	"github.com/glbter/distributed-systems/admin-service/events/kafka"
	investmentsHttp "github.com/glbter/distributed-systems/admin-service/investments/client/http"
	"github.com/glbter/distributed-systems/admin-service/remote"
)

// NewAggregator wires the upstream clients into the aggregation service. The
// returned cleanup closes the event producer, if one was created.
func NewAggregator(cfg *config.Config, logger *zap.Logger) (*aggregator.Service, func()) {
	client := &http.Client{Timeout: cfg.Upstream.GetTimeout()}
	limit := remote.WithRateLimit(cfg.Upstream.RateLimit)

	investments := investmentsHttp.NewClient(
		remote.New(client, cfg.Upstream.InvestmentsURL, logger, limit),
		remote.New(client, cfg.Upstream.ExportBaseURL(), logger, limit),
	)
	companies := companiesHttp.NewClient(remote.New(client, cfg.Upstream.FinancialCompaniesURL, logger, limit))

	opts := []aggregator.Option{aggregator.WithLookupConcurrency(cfg.Upstream.LookupConcurrency)}
	cleanup := func() {}

	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		opts = append(opts, aggregator.WithReportPublisher(producer))
		cleanup = func() {
			if err := producer.Close(); err != nil {
				logger.Error(err.Error())
			}
		}
		logger.Info("report events enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	return aggregator.NewService(investments, companies, logger, opts...), cleanup
}
