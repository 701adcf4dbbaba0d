// src/brokerage/client.go
package brokerage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/username/folioledger/src/logger"
	"github.com/username/folioledger/src/models"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// --- API Response Structs ---

type tradesResponse struct {
	Trades []models.RawTrade `json:"trades"`
}

type cashFlowsResponse struct {
	CashFlows []models.RawCashFlow `json:"cash_flows"`
}

type fundUnitOpsResponse struct {
	Operations []models.RawFundUnitOp `json:"fund_unit_operations"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client is the typed HTTP client for the upstream brokerage API. It is the
// fetch boundary of the aggregator: every method performs exactly one network
// call, returns the raw records as-is, and propagates every transport or
// authorization error to the caller. Failure containment happens one layer
// up, in the ledger service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a brokerage API client. The limiter paces requests
// against the upstream so a wide fan-out does not trip its throttling.
func NewClient(baseURL, apiKey string, timeout time.Duration, reqPerSec float64, burst int) *Client {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(reqPerSec), burst),
	}
}

// ListTrades returns the raw trade executions recorded for one portfolio.
func (c *Client) ListTrades(ctx context.Context, portfolioID string) ([]models.RawTrade, error) {
	var payload tradesResponse
	if err := c.get(ctx, fmt.Sprintf("/v1/portfolios/%s/trades", portfolioID), portfolioID, &payload); err != nil {
		return nil, err
	}
	return payload.Trades, nil
}

// ListCashFlows returns the raw cash movements recorded for one portfolio.
func (c *Client) ListCashFlows(ctx context.Context, portfolioID string) ([]models.RawCashFlow, error) {
	var payload cashFlowsResponse
	if err := c.get(ctx, fmt.Sprintf("/v1/portfolios/%s/cash-flows", portfolioID), portfolioID, &payload); err != nil {
		return nil, err
	}
	return payload.CashFlows, nil
}

// ListFundUnitOps returns the raw fund-unit subscriptions and redemptions
// recorded for one portfolio.
func (c *Client) ListFundUnitOps(ctx context.Context, portfolioID string) ([]models.RawFundUnitOp, error) {
	var payload fundUnitOpsResponse
	if err := c.get(ctx, fmt.Sprintf("/v1/portfolios/%s/fund-units", portfolioID), portfolioID, &payload); err != nil {
		return nil, err
	}
	return payload.Operations, nil
}

func (c *Client) get(ctx context.Context, path, portfolioID string, out any) error {
	if portfolioID == "" {
		return fmt.Errorf("portfolio id must not be empty")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait aborted: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build brokerage request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("brokerage API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr apiError
		if json.Unmarshal(bodyBytes, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("brokerage API returned status %d: %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("brokerage API returned non-OK status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode brokerage response: %w", err)
	}
	return nil
}
