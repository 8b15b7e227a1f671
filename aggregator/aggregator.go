// Package aggregator joins investments with their holding accounts and derives
// the per-holding values shown to admins and sent to the export sink.
package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/glbter/distributed-systems/admin-service/entities"
)

// ErrUpstream marks failures of the services the aggregate is built from.
var ErrUpstream = errors.New("upstream request failed")

type InvestmentsRepo interface {
	ListInvestments(ctx context.Context) ([]entities.Investment, error)
	GetInvestment(ctx context.Context, id string) ([]entities.Investment, error)
	GetInvestmentRaw(ctx context.Context, id string) (json.RawMessage, error)
	ExportHoldingValues(ctx context.Context, rows []entities.HoldingValue) error
}

type CompaniesRepo interface {
	GetCompany(ctx context.Context, id string) (entities.Company, error)
}

type ReportPublisher interface {
	PublishReportExported(ctx context.Context, reportID string, rows []entities.HoldingValue) error
}

type Service struct {
	investments       InvestmentsRepo
	companies         CompaniesRepo
	publisher         ReportPublisher
	lookupConcurrency int
	logger            *zap.Logger
}

type Option func(*Service)

// WithLookupConcurrency bounds the concurrent company lookups of one investment.
func WithLookupConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.lookupConcurrency = n
		}
	}
}

// WithReportPublisher announces every exported report.
func WithReportPublisher(p ReportPublisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func NewService(investments InvestmentsRepo, companies CompaniesRepo, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		investments:       investments,
		companies:         companies,
		lookupConcurrency: 4,
		logger:            logger.With(zap.String("caller", "AggregatorService")),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) ListInvestments(ctx context.Context) ([]entities.Investment, error) {
	investments, err := s.investments.ListInvestments(ctx)
	if err != nil {
		return nil, upstream(err)
	}
	return investments, nil
}

// GetInvestment returns zero or one investments for id, as the investments service does.
func (s *Service) GetInvestment(ctx context.Context, id string) ([]entities.Investment, error) {
	investments, err := s.investments.GetInvestment(ctx, id)
	if err != nil {
		return nil, upstream(err)
	}
	return investments, nil
}

// GetInvestmentRaw returns the investments service response for id unaggregated and undecoded.
func (s *Service) GetInvestmentRaw(ctx context.Context, id string) (json.RawMessage, error) {
	body, err := s.investments.GetInvestmentRaw(ctx, id)
	if err != nil {
		return nil, upstream(err)
	}
	return body, nil
}

func (s *Service) GetCompany(ctx context.Context, id string) (entities.Company, error) {
	company, err := s.companies.GetCompany(ctx, id)
	if err != nil {
		return entities.Company{}, upstream(err)
	}
	return company, nil
}

// RowsForInvestment resolves every holding's company and emits one row per
// holding, in holding order.
func (s *Service) RowsForInvestment(ctx context.Context, investment entities.Investment) ([]entities.HoldingValue, error) {
	companies := make([]entities.Company, len(investment.Holdings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.lookupConcurrency)

	for i, holding := range investment.Holdings {
		g.Go(func() error {
			company, err := s.GetCompany(gctx, string(holding.ID))
			if err != nil {
				return err
			}
			companies[i] = company
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve holdings of investment %s: %w", investment.ID, err)
	}

	total := decimal.NewFromFloat(investment.InvestmentTotal)
	rows := make([]entities.HoldingValue, 0, len(investment.Holdings))
	for i, holding := range investment.Holdings {
		rows = append(rows, entities.HoldingValue{
			UserID:    investment.UserID,
			FirstName: investment.FirstName,
			LastName:  investment.LastName,
			Date:      investment.Date,
			Holding:   companies[i].Name,
			Value:     total.Mul(decimal.NewFromFloat(holding.InvestmentPercentage)).InexactFloat64(),
		})
	}

	return rows, nil
}

// AllRows computes the rows of every investment, in listing order.
func (s *Service) AllRows(ctx context.Context) ([]entities.HoldingValue, error) {
	investments, err := s.ListInvestments(ctx)
	if err != nil {
		return nil, err
	}

	rows := []entities.HoldingValue{}
	for _, investment := range investments {
		investmentRows, err := s.RowsForInvestment(ctx, investment)
		if err != nil {
			return nil, err
		}
		rows = append(rows, investmentRows...)
	}

	return rows, nil
}

// RowsForInvestmentID computes the rows of one investment. An unknown id yields no rows.
func (s *Service) RowsForInvestmentID(ctx context.Context, id string) ([]entities.HoldingValue, error) {
	investments, err := s.GetInvestment(ctx, id)
	if err != nil {
		return nil, err
	}

	if len(investments) == 0 {
		return []entities.HoldingValue{}, nil
	}

	return s.RowsForInvestment(ctx, investments[0])
}

// GenerateReport computes all rows and hands them to the export sink. An empty
// aggregate is returned without being exported.
func (s *Service) GenerateReport(ctx context.Context) ([]entities.HoldingValue, error) {
	logger := s.logger.With(zap.String("method", "GenerateReport"))

	rows, err := s.AllRows(ctx)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		logger.Info("no holding values to export")
		return rows, nil
	}

	start := time.Now()
	if err := s.investments.ExportHoldingValues(ctx, rows); err != nil {
		return nil, upstream(err)
	}

	reportID := uuid.New().String()
	logger.Info("report exported",
		zap.String("report_id", reportID),
		zap.Int("rows", len(rows)),
		zap.Duration("duration", time.Since(start)),
	)

	if s.publisher != nil {
		if err := s.publisher.PublishReportExported(ctx, reportID, rows); err != nil {
			logger.Warn(fmt.Errorf("publish report event: %w", err).Error(), zap.String("report_id", reportID))
		}
	}

	return rows, nil
}

func upstream(err error) error {
	if errors.Is(err, ErrUpstream) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}
