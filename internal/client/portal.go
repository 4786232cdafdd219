// Package client provides an HTTP client for the portal pipeline API used by
// the price oracle.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

// APIKeyHeader carries the shared pipeline secret.
const APIKeyHeader = "X-API-Key"

// PricingTarget is a Live position returned by the pipeline API.
type PricingTarget struct {
	PositionID string `json:"position_id"`
	Ticker     string `json:"ticker"`
}

// PriceEntry is one market price submitted to the pipeline API.
type PriceEntry struct {
	PositionID string          `json:"position_id"`
	Price      decimal.Decimal `json:"price"`
}

// Rejection is a price entry the portal refused.
type Rejection struct {
	PositionID string `json:"position_id"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// RecordResult is the portal's answer to a price batch.
type RecordResult struct {
	Updated int         `json:"updated"`
	Failed  []Rejection `json:"failed"`
}

// PortalClient communicates with the portal pipeline API.
type PortalClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewPortalClient creates a new pipeline API client.
func NewPortalClient(baseURL, apiKey string, httpClient *http.Client) *PortalClient {
	return &PortalClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// GetPricingTargets fetches the Live positions that carry a ticker.
func (c *PortalClient) GetPricingTargets(ctx context.Context) ([]PricingTarget, error) {
	var result struct {
		Targets []PricingTarget `json:"targets"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/pipeline/positions", nil, &result); err != nil {
		return nil, fmt.Errorf("fetching pricing targets: %w", err)
	}
	return result.Targets, nil
}

// RecordPrices submits a batch of market prices.
func (c *PortalClient) RecordPrices(ctx context.Context, prices []PriceEntry) (*RecordResult, error) {
	body := struct {
		Prices []PriceEntry `json:"prices"`
	}{Prices: prices}

	var result RecordResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/pipeline/prices", body, &result); err != nil {
		return nil, fmt.Errorf("recording prices: %w", err)
	}
	return &result, nil
}

func (c *PortalClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(APIKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
