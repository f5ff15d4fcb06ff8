// Package market wraps the external account-data and market-insight
// providers. All calls are fallible by design: handlers fold failures into
// reduced model context instead of aborting a turn.
package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	errx "github.com/finadvisor-poc/server/internal/core/error"
	logx "github.com/finadvisor-poc/server/pkg/logger"
)

// Config points at the account-data provider endpoints.
type Config struct {
	HoldingsBaseURL string `envconfig:"DATA_HOLDINGS_BASE_URL" default:"https://ind-memory.example.in"`
	FundsBaseURL    string `envconfig:"DATA_FUNDS_BASE_URL" default:"https://mf-tracking.example.in"`
	BrokerBaseURL   string `envconfig:"DATA_BROKER_BASE_URL" default:"http://stock-broker.internal.example.in"`
	Timeout         int    `envconfig:"DATA_TIMEOUT" default:"10"`
}

// StockPortfolio is a user's equity holdings folded across brokers.
type StockPortfolio struct {
	Summary     map[string]any   `json:"summary"`
	Investments []map[string]any `json:"investments"`
}

// FundHolding is one mutual-fund position with its returns payload, keyed
// upstream by fund name.
type FundHolding = map[string]any

// DataClient fetches holdings, fund and stock data keyed by user id.
type DataClient struct {
	cfg  Config
	http *http.Client
}

func NewDataClient(cfg Config) *DataClient {
	return &DataClient{
		cfg:  cfg,
		http: &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}
}

func (c *DataClient) postJSON(ctx context.Context, url string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: marshal request: %v", errx.ErrExternalData, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("%w: %v", errx.ErrExternalData, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *DataClient) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", errx.ErrExternalData, err)
	}
	return c.do(req, out)
}

func (c *DataClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		logx.Warn().Err(err).Str("url", req.URL.String()).Msg("data provider call failed")
		return fmt.Errorf("%w: %v", errx.ErrExternalData, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logx.Warn().Int("status", resp.StatusCode).Str("url", req.URL.String()).Msg("data provider returned non-200")
		return fmt.Errorf("%w: status %d from %s", errx.ErrExternalData, resp.StatusCode, req.URL.Host)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", errx.ErrExternalData, err)
	}
	return nil
}

// AggregatedHoldings returns the user's holdings grouped by asset type.
func (c *DataClient) AggregatedHoldings(ctx context.Context, userID string) (map[string]any, error) {
	var out map[string]any
	err := c.postJSON(ctx, c.cfg.HoldingsBaseURL+"/v1/holdings/aggregate/", map[string]any{
		"users":    []string{userID},
		"group_by": []string{"asset_type"},
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// InvestedFunds returns the user's mutual-fund positions keyed by fund name,
// including time-wise returns and benchmark data.
func (c *DataClient) InvestedFunds(ctx context.Context, userID string) (map[string]FundHolding, error) {
	// funds decode as raw maps so the full per-fund payload survives for
	// the model prompt; only the name is pulled out for keying
	var raw struct {
		Success bool `json:"success"`
		Data    struct {
			Funds []map[string]any `json:"funds"`
		} `json:"data"`
	}

	url := fmt.Sprintf("%s/v2/users/%s/portfolio/funds/?response_format=json", c.cfg.FundsBaseURL, userID)
	if err := c.getJSON(ctx, url, &raw); err != nil {
		return nil, err
	}

	if !raw.Success {
		return nil, fmt.Errorf("%w: fund holdings lookup unsuccessful for user %s", errx.ErrExternalData, userID)
	}

	funds := make(map[string]FundHolding, len(raw.Data.Funds))
	for _, fund := range raw.Data.Funds {
		name := ""
		if details, ok := fund["fundDetails"].(map[string]any); ok {
			name, _ = details["name"].(string)
		}
		if name == "" {
			continue
		}
		funds[name] = fund
	}
	return funds, nil
}

// StockPortfolio returns the user's equity investments with per-scrip
// detail, folded across broker accounts. An empty portfolio is not an error.
func (c *DataClient) StockPortfolio(ctx context.Context, userID string) (*StockPortfolio, error) {
	var raw struct {
		Summary []struct {
			BrokerAssetSummary struct {
				HoldingsSummary map[string]any   `json:"holdings_summary"`
				ScripDetails    []map[string]any `json:"scrip_details"`
			} `json:"broker_asset_summary"`
		} `json:"summary"`
	}

	url := fmt.Sprintf("%s/internal/portfolio/broker-summary?segment=cash&response_format=json&user_id=%s", c.cfg.BrokerBaseURL, userID)
	if err := c.getJSON(ctx, url, &raw); err != nil {
		return nil, err
	}

	out := &StockPortfolio{}
	for _, broker := range raw.Summary {
		if len(broker.BrokerAssetSummary.HoldingsSummary) == 0 {
			continue
		}
		out.Summary = broker.BrokerAssetSummary.HoldingsSummary
		out.Investments = append(out.Investments, broker.BrokerAssetSummary.ScripDetails...)
	}
	return out, nil
}
