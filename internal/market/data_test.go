package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/finadvisor-poc/server/internal/core/error"
)

func newDataClient(holdings, funds, broker string) *DataClient {
	return NewDataClient(Config{
		HoldingsBaseURL: holdings,
		FundsBaseURL:    funds,
		BrokerBaseURL:   broker,
		Timeout:         5,
	})
}

func TestAggregatedHoldings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/holdings/aggregate/", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []any{"u1"}, body["users"])
		assert.Equal(t, []any{"asset_type"}, body["group_by"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"equity": {"current_value": 120000}, "debt": {"current_value": 40000}}`))
	}))
	defer srv.Close()

	c := newDataClient(srv.URL, srv.URL, srv.URL)
	out, err := c.AggregatedHoldings(context.Background(), "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "equity")
	assert.Contains(t, out, "debt")
}

func TestInvestedFundsKeyedByName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/users/u1/portfolio/funds/", r.URL.Path)
		w.Write([]byte(`{
			"success": true,
			"data": {"funds": [
				{"fundDetails": {"name": "Nifty 50 Index Fund"}, "returns": {"1y": 0.14}},
				{"fundDetails": {"name": "Liquid Fund"}, "returns": {"1y": 0.06}},
				{"fundDetails": {}, "returns": {}}
			]}
		}`))
	}))
	defer srv.Close()

	c := newDataClient(srv.URL, srv.URL, srv.URL)
	funds, err := c.InvestedFunds(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, funds, 2)
	assert.Contains(t, funds, "Nifty 50 Index Fund")
	assert.Contains(t, funds, "Liquid Fund")
}

func TestInvestedFundsUnsuccessful(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false}`))
	}))
	defer srv.Close()

	c := newDataClient(srv.URL, srv.URL, srv.URL)
	_, err := c.InvestedFunds(context.Background(), "u1")
	assert.ErrorIs(t, err, errx.ErrExternalData)
}

func TestStockPortfolioFoldsBrokers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/internal/portfolio/broker-summary", r.URL.Path)
		assert.Equal(t, "u1", r.URL.Query().Get("user_id"))
		w.Write([]byte(`{
			"summary": [
				{"broker_asset_summary": {
					"holdings_summary": {"current_value": 50000},
					"scrip_details": [{"symbol": "INFY"}, {"symbol": "TCS"}]
				}},
				{"broker_asset_summary": {"holdings_summary": {}, "scrip_details": []}}
			]
		}`))
	}))
	defer srv.Close()

	c := newDataClient(srv.URL, srv.URL, srv.URL)
	p, err := c.StockPortfolio(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, p.Investments, 2)
	assert.Equal(t, float64(50000), p.Summary["current_value"])
}

func TestStockPortfolioEmptyIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"summary": []}`))
	}))
	defer srv.Close()

	c := newDataClient(srv.URL, srv.URL, srv.URL)
	p, err := c.StockPortfolio(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, p.Investments)
}

func TestDataClientNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newDataClient(srv.URL, srv.URL, srv.URL)
	_, err := c.AggregatedHoldings(context.Background(), "u1")
	assert.ErrorIs(t, err, errx.ErrExternalData)
}
