package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/glbter/distributed-systems/admin-service/aggregator"
	"github.com/glbter/distributed-systems/admin-service/entities"
)

type Aggregator interface {
	GetInvestmentRaw(ctx context.Context, id string) (json.RawMessage, error)
	AllRows(ctx context.Context) ([]entities.HoldingValue, error)
	RowsForInvestmentID(ctx context.Context, id string) ([]entities.HoldingValue, error)
	GenerateReport(ctx context.Context) ([]entities.HoldingValue, error)
}

type AdminHandler struct {
	Logger     *zap.Logger
	Aggregator Aggregator
}

// GetInvestment passes the investments service response for one id through unaggregated.
func (h AdminHandler) GetInvestment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	logger := h.Logger.With(zap.String("method", "GetInvestment"), zap.String("id", id))

	body, err := h.Aggregator.GetInvestmentRaw(r.Context(), id)
	if err != nil {
		h.respondWithError(w, logger, fmt.Errorf("get investment: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logger.Error(fmt.Errorf("write response: %w", err).Error())
	}
}

func (h AdminHandler) GetAllHoldingValues(w http.ResponseWriter, r *http.Request) {
	logger := h.Logger.With(zap.String("method", "GetAllHoldingValues"))

	rows, err := h.Aggregator.AllRows(r.Context())
	if err != nil {
		h.respondWithError(w, logger, fmt.Errorf("compute holding values: %w", err))
		return
	}

	h.respondJSON(w, logger, http.StatusOK, rows)
}

func (h AdminHandler) GetHoldingValues(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	logger := h.Logger.With(zap.String("method", "GetHoldingValues"), zap.String("id", id))

	rows, err := h.Aggregator.RowsForInvestmentID(r.Context(), id)
	if err != nil {
		h.respondWithError(w, logger, fmt.Errorf("compute holding values: %w", err))
		return
	}

	h.respondJSON(w, logger, http.StatusOK, rows)
}

func (h AdminHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	logger := h.Logger.With(zap.String("method", "GenerateReport"))

	rows, err := h.Aggregator.GenerateReport(r.Context())
	if err != nil {
		h.respondWithError(w, logger, fmt.Errorf("generate report: %w", err))
		return
	}

	h.respondJSON(w, logger, http.StatusOK, rows)
}

func (h AdminHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, h.Logger, http.StatusOK, map[string]string{"status": "healthy"})
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h AdminHandler) respondWithError(w http.ResponseWriter, logger *zap.Logger, err error) {
	logger.Error(err.Error())

	if errors.Is(err, aggregator.ErrUpstream) {
		h.respondJSON(w, logger, http.StatusBadGateway, errorBody{Error: errorDetail{
			Code:    "UPSTREAM_ERROR",
			Message: "An upstream service request failed",
		}})
		return
	}

	h.respondJSON(w, logger, http.StatusInternalServerError, errorBody{Error: errorDetail{
		Code:    "INTERNAL_ERROR",
		Message: "An internal error occurred",
	}})
}

func (h AdminHandler) respondJSON(w http.ResponseWriter, logger *zap.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error(fmt.Errorf("encode response: %w", err).Error())
	}
}
