package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type payload struct {
	Name string `json:"name"`
}

func TestGetJSON_DecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/companies/2", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name": "The Small Investment Company"}`))
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, zap.NewNop())

	var out payload
	require.NoError(t, c.GetJSON(context.Background(), "/companies/2", &out))
	assert.Equal(t, "The Small Investment Company", out.Name)
}

func TestGetJSON_UnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, zap.NewNop())

	var out payload
	err := c.GetJSON(context.Background(), "/investments", &out)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "boom", apiErr.Body)
	assert.Equal(t, "/investments", apiErr.Endpoint)
}

func TestGetJSON_InvalidBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, zap.NewNop())

	var out payload
	err := c.GetJSON(context.Background(), "/investments", &out)
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestGetJSON_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(&http.Client{Timeout: time.Second}, url, zap.NewNop())

	var out payload
	assert.Error(t, c.GetJSON(context.Background(), "/investments", &out))
}

func TestPostJSON_SendsBody(t *testing.T) {
	var received []payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/investments/export", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, zap.NewNop())

	body := []payload{{Name: "a"}, {Name: "b"}}
	require.NoError(t, c.PostJSON(context.Background(), "/investments/export", body, http.StatusNoContent))
	assert.Equal(t, body, received)
}

func TestPostJSON_WrongStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, zap.NewNop())

	err := c.PostJSON(context.Background(), "/investments/export", []payload{}, http.StatusNoContent)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusOK, apiErr.StatusCode)
}

func TestRateLimit_CancelledContext(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, zap.NewNop(), WithRateLimit(1))

	var out payload
	require.NoError(t, c.GetJSON(context.Background(), "/a", &out))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, c.GetJSON(ctx, "/b", &out))
	assert.Equal(t, 1, calls)
}

func TestGetRaw_ReturnsBodyUnchanged(t *testing.T) {
	body := `[{"id":1,"userId":1,"holdings":[{"id":2,"investmentPercentage":1}],"currency":"GBP"}]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body + "\n"))
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, zap.NewNop())

	raw, err := c.GetRaw(context.Background(), "/investments/1")
	require.NoError(t, err)
	assert.Equal(t, body, string(raw))
}

func TestGetRaw_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, zap.NewNop())

	_, err := c.GetRaw(context.Background(), "/investments/1")
	assert.Error(t, err)
}

func TestDo_DotSegmentsNotResolved(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RawPath
		if gotPath == "" {
			gotPath = r.URL.Path
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL+"/", zap.NewNop())

	var out payload
	require.NoError(t, c.GetJSON(context.Background(), "/companies/..", &out))
	assert.Equal(t, "/companies/..", gotPath)
}
