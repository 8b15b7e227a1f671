package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/glbter/distributed-systems/admin-service/config"
	"github.com/glbter/distributed-systems/admin-service/entities"
	adminHttp "github.com/glbter/distributed-systems/admin-service/http"
)

const investmentsFixture = `[
	{"id": "1", "userId": "1", "firstName": "Billy", "lastName": "Bob", "investmentTotal": 1400,
	 "date": "2020-01-01", "holdings": [{"id": "2", "investmentPercentage": 1}]},
	{"id": "4", "userId": "2", "firstName": "Sheila", "lastName": "Aussie", "investmentTotal": 22000,
	 "date": "2020-02-01", "holdings": [{"id": "1", "investmentPercentage": 0.5}, {"id": "2", "investmentPercentage": 0.5}]}
]`

var companiesFixture = map[string]string{
	"1": `{"id": "1", "name": "The Big Investment Company", "postcode": "SW1A1AA"}`,
	"2": `{"id": "2", "name": "The Small Investment Company", "postcode": "SW18UD"}`,
}

type upstreams struct {
	investments *httptest.Server
	companies   *httptest.Server
	exports     atomic.Int32
	exported    []entities.HoldingValue
}

func newUpstreams(t *testing.T) *upstreams {
	t.Helper()
	u := &upstreams{}

	inv := chi.NewRouter()
	inv.Get("/investments", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(investmentsFixture))
	})
	inv.Get("/investments/{id}", func(w http.ResponseWriter, r *http.Request) {
		var all []json.RawMessage
		assert.NoError(t, json.Unmarshal([]byte(investmentsFixture), &all))
		if chi.URLParam(r, "id") == "1" {
			w.Write([]byte("[" + string(all[0]) + "]"))
			return
		}
		w.Write([]byte(`[]`))
	})
	inv.Post("/investments/export", func(w http.ResponseWriter, r *http.Request) {
		u.exports.Add(1)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&u.exported))
		w.WriteHeader(http.StatusNoContent)
	})
	u.investments = httptest.NewServer(inv)
	t.Cleanup(u.investments.Close)

	comp := chi.NewRouter()
	comp.Get("/companies/{id}", func(w http.ResponseWriter, r *http.Request) {
		body, ok := companiesFixture[chi.URLParam(r, "id")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	})
	u.companies = httptest.NewServer(comp)
	t.Cleanup(u.companies.Close)

	return u
}

func testConfig(u *upstreams) *config.Config {
	return &config.Config{
		Upstream: config.UpstreamConfig{
			InvestmentsURL:        u.investments.URL,
			FinancialCompaniesURL: u.companies.URL,
			Timeout:               "5s",
			LookupConcurrency:     2,
		},
	}
}

func TestNewAggregator_RowsForInvestmentID(t *testing.T) {
	u := newUpstreams(t)
	service, cleanup := NewAggregator(testConfig(u), zap.NewNop())
	defer cleanup()

	rows, err := service.RowsForInvestmentID(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Billy", rows[0].FirstName)
	assert.Equal(t, 1400.0, rows[0].Value)
	assert.Equal(t, "The Small Investment Company", rows[0].Holding)

	rows, err = service.RowsForInvestmentID(context.Background(), "10")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestInvestmentRoute_KeepsUpstreamBody(t *testing.T) {
	upstreamBody := `[{"id":7,"userId":3,"investmentTotal":100,"holdings":[{"id":2,"investmentPercentage":1}],"currency":"GBP"}]`
	inv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/investments/7", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(upstreamBody))
	}))
	defer inv.Close()

	u := newUpstreams(t)
	cfg := testConfig(u)
	cfg.Upstream.InvestmentsURL = inv.URL

	service, cleanup := NewAggregator(cfg, zap.NewNop())
	defer cleanup()

	router := adminHttp.NewRouter(adminHttp.AdminHandler{Logger: zap.NewNop(), Aggregator: service}, 5*time.Second)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/investments/7", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, upstreamBody, rec.Body.String())
}

func TestNewAggregator_GenerateReport(t *testing.T) {
	u := newUpstreams(t)
	service, cleanup := NewAggregator(testConfig(u), zap.NewNop())
	defer cleanup()

	rows, err := service.GenerateReport(context.Background())
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, int32(1), u.exports.Load())
	assert.Equal(t, rows, u.exported)
	assert.Equal(t, 11000.0, rows[1].Value)
	assert.Equal(t, 11000.0, rows[2].Value)
}

func TestNewAggregator_SeparateExportSink(t *testing.T) {
	u := newUpstreams(t)

	var sinkCalls atomic.Int32
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sinkCalls.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer sink.Close()

	cfg := testConfig(u)
	cfg.Upstream.ExportURL = sink.URL

	service, cleanup := NewAggregator(cfg, zap.NewNop())
	defer cleanup()

	_, err := service.GenerateReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), sinkCalls.Load())
	assert.Equal(t, int32(0), u.exports.Load())
}

func TestInitLogger_UnknownLevelFallsBack(t *testing.T) {
	logger := InitLogger("verbose")
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))

	assert.True(t, InitLogger("debug").Core().Enabled(zap.DebugLevel))
}
