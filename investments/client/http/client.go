package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/glbter/distributed-systems/admin-service/entities"
	"github.com/glbter/distributed-systems/admin-service/remote"
)

// InvestmentsClient talks to the investments service and its export sink.
type InvestmentsClient struct {
	investments *remote.Client
	export      *remote.Client
}

func NewClient(investments, export *remote.Client) *InvestmentsClient {
	return &InvestmentsClient{
		investments: investments,
		export:      export,
	}
}

func (ic *InvestmentsClient) ListInvestments(ctx context.Context) ([]entities.Investment, error) {
	var investments []entities.Investment
	if err := ic.investments.GetJSON(ctx, "/investments", &investments); err != nil {
		return nil, fmt.Errorf("get investments: %w", err)
	}

	return nonNil(investments), nil
}

// GetInvestment returns the upstream array for id; it is empty when the id is unknown.
func (ic *InvestmentsClient) GetInvestment(ctx context.Context, id string) ([]entities.Investment, error) {
	var investments []entities.Investment
	if err := ic.investments.GetJSON(ctx, "/investments/"+url.PathEscape(id), &investments); err != nil {
		return nil, fmt.Errorf("get investment %s: %w", id, err)
	}

	return nonNil(investments), nil
}

// GetInvestmentRaw returns the investments service body for id without decoding it.
func (ic *InvestmentsClient) GetInvestmentRaw(ctx context.Context, id string) (json.RawMessage, error) {
	body, err := ic.investments.GetRaw(ctx, "/investments/"+url.PathEscape(id))
	if err != nil {
		return nil, fmt.Errorf("get investment %s: %w", id, err)
	}

	return body, nil
}

// ExportHoldingValues posts rows to the export sink, which acknowledges with 204.
func (ic *InvestmentsClient) ExportHoldingValues(ctx context.Context, rows []entities.HoldingValue) error {
	if err := ic.export.PostJSON(ctx, "/investments/export", rows, http.StatusNoContent); err != nil {
		return fmt.Errorf("export holding values: %w", err)
	}

	return nil
}

func nonNil(investments []entities.Investment) []entities.Investment {
	if investments == nil {
		return []entities.Investment{}
	}
	return investments
}
