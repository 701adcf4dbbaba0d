package brokerage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/folioledger/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func newTestClient(serverURL string) *Client {
	return NewClient(serverURL, "test-key", 5*time.Second, 100, 10)
}

func TestListTrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/portfolios/pf-1/trades", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"trades":[
			{"id":"t-1","symbol":"AAPL","side":"BUY","quantity":"5","unit_price":"200","total_value":"1000","trade_date":"2025-06-02T10:00:00Z"},
			{"id":"t-2","symbol":"MSFT","side":"SELL","quantity":"2","total_value":"800","trade_date":"2025-06-03"}
		]}`))
	}))
	defer server.Close()

	trades, err := newTestClient(server.URL).ListTrades(context.Background(), "pf-1")
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "t-1", trades[0].ID)
	assert.Equal(t, "AAPL", trades[0].Symbol)
	assert.Equal(t, "800", trades[1].TotalValue)
}

func TestListCashFlows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/portfolios/pf-1/cash-flows", r.URL.Path)
		w.Write([]byte(`{"cash_flows":[{"id":"cf-1","flow_type":"DEPOSIT","amount":"500","flow_date":"2025-06-01"}]}`))
	}))
	defer server.Close()

	flows, err := newTestClient(server.URL).ListCashFlows(context.Background(), "pf-1")
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, "DEPOSIT", flows[0].FlowType)
}

func TestListFundUnitOps(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/portfolios/pf-1/fund-units", r.URL.Path)
		w.Write([]byte(`{"fund_unit_operations":[{"id":"fu-1","fund_name":"Bond Fund","op_type":"SUBSCRIPTION","units":"10","amount":"100","op_date":"2025-06-01"}]}`))
	}))
	defer server.Close()

	ops, err := newTestClient(server.URL).ListFundUnitOps(context.Background(), "pf-1")
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "SUBSCRIPTION", ops[0].OpType)
}

func TestListTradesPropagatesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"code":"THROTTLED","message":"too many requests"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ListTrades(context.Background(), "pf-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "too many requests")
}

func TestListTradesPropagatesOpaqueErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal server error"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ListTrades(context.Background(), "pf-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestGetRejectsEmptyPortfolioID(t *testing.T) {
	_, err := newTestClient("http://unused.invalid").ListTrades(context.Background(), "")
	assert.Error(t, err)
}

func TestGetHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient("http://unused.invalid").ListTrades(ctx, "pf-1")
	assert.Error(t, err)
}
