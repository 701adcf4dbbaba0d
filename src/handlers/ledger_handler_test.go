package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/folioledger/src/logger"
	"github.com/username/folioledger/src/models"
	"github.com/username/folioledger/src/services"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

type stubLedgerService struct {
	snap         *services.LedgerSnapshot
	err          error
	refreshCalls int
	ledgerCalls  int
}

func (s *stubLedgerService) Ledger(ctx context.Context, userID int64) (*services.LedgerSnapshot, error) {
	s.ledgerCalls++
	return s.snap, s.err
}

func (s *stubLedgerService) Refresh(ctx context.Context, userID int64) (*services.LedgerSnapshot, error) {
	s.refreshCalls++
	return s.snap, s.err
}

func authedRequest(method, target string) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	ctx := context.WithValue(r.Context(), userIDContextKey, int64(1))
	return r.WithContext(ctx)
}

func readySnapshot() *services.LedgerSnapshot {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	return &services.LedgerSnapshot{
		Status:      services.StatusReady,
		RefreshedAt: now,
		Failures:    []models.FetchFailure{},
		Transactions: []models.Transaction{
			{
				ID: "t-1", Kind: models.KindTrade, PortfolioID: "pf-a", PortfolioName: "Growth",
				OccurredAt: now.Add(-24 * time.Hour), Amount: decimal.NewFromInt(1000),
				Currency: "EUR", Description: "BUY 5 AAPL",
			},
			{
				ID: "cf-1", Kind: models.KindCashFlow, PortfolioID: "pf-b", PortfolioName: "Savings",
				OccurredAt: now.Add(-48 * time.Hour), Amount: decimal.NewFromInt(500),
				Currency: "EUR", Description: "Monthly deposit",
			},
		},
	}
}

func TestHandleGetLedgerReturnsSnapshot(t *testing.T) {
	svc := &stubLedgerService{snap: readySnapshot()}
	h := NewLedgerHandler(svc)

	rr := httptest.NewRecorder()
	h.HandleGetLedger(rr, authedRequest(http.MethodGet, "/api/ledger"))

	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Status       services.LedgerStatus `json:"status"`
		Transactions []models.Transaction  `json:"transactions"`
		Failures     []models.FetchFailure `json:"failures"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, services.StatusReady, resp.Status)
	require.Len(t, resp.Transactions, 2)
	assert.Equal(t, "t-1", resp.Transactions[0].ID)
	assert.Equal(t, 1, svc.ledgerCalls)
}

func TestHandleGetLedgerAppliesFilters(t *testing.T) {
	h := NewLedgerHandler(&stubLedgerService{snap: readySnapshot()})

	rr := httptest.NewRecorder()
	h.HandleGetLedger(rr, authedRequest(http.MethodGet, "/api/ledger?kind=CASH_FLOW&portfolio=pf-b"))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Transactions []models.Transaction `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Transactions, 1)
	assert.Equal(t, "cf-1", resp.Transactions[0].ID)
}

func TestHandleGetLedgerRejectsBadParams(t *testing.T) {
	h := NewLedgerHandler(&stubLedgerService{snap: readySnapshot()})

	for _, target := range []string{
		"/api/ledger?kind=DIVIDEND",
		"/api/ledger?window=14D",
	} {
		rr := httptest.NewRecorder()
		h.HandleGetLedger(rr, authedRequest(http.MethodGet, target))
		assert.Equal(t, http.StatusBadRequest, rr.Code, "target %s", target)
	}
}

func TestHandleGetLedgerRequiresAuthContext(t *testing.T) {
	h := NewLedgerHandler(&stubLedgerService{snap: readySnapshot()})

	rr := httptest.NewRecorder()
	h.HandleGetLedger(rr, httptest.NewRequest(http.MethodGet, "/api/ledger", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandleGetLedgerSurfacesAggregationError(t *testing.T) {
	svc := &stubLedgerService{
		snap: &services.LedgerSnapshot{
			Status:      services.StatusError,
			RefreshedAt: time.Now(),
			Error:       "could not load transactions from any portfolio",
		},
		err: fmt.Errorf("%w: all 6 requests failed", services.ErrAggregationFailed),
	}
	h := NewLedgerHandler(svc)

	rr := httptest.NewRecorder()
	h.HandleGetLedger(rr, authedRequest(http.MethodGet, "/api/ledger"))

	require.Equal(t, http.StatusBadGateway, rr.Code)
	var resp struct {
		Status services.LedgerStatus `json:"status"`
		Error  string                `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, services.StatusError, resp.Status)
	assert.NotEmpty(t, resp.Error)
}

func TestHandleGetLedgerSummary(t *testing.T) {
	h := NewLedgerHandler(&stubLedgerService{snap: readySnapshot()})

	rr := httptest.NewRecorder()
	h.HandleGetLedgerSummary(rr, authedRequest(http.MethodGet, "/api/ledger/summary?kind=TRADE"))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Summary models.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Summary.TotalCount)
	assert.Equal(t, 1, resp.Summary.CountByKind[models.KindTrade])
	assert.True(t, resp.Summary.GrossVolume.Equal(decimal.NewFromInt(1000)))
}

func TestHandleRefreshLedger(t *testing.T) {
	svc := &stubLedgerService{snap: readySnapshot()}
	h := NewLedgerHandler(svc)

	rr := httptest.NewRecorder()
	h.HandleRefreshLedger(rr, authedRequest(http.MethodPost, "/api/ledger/refresh"))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, svc.refreshCalls)
	assert.Equal(t, 0, svc.ledgerCalls)
}

func TestHandleRefreshLedgerSurfacesError(t *testing.T) {
	svc := &stubLedgerService{
		snap: &services.LedgerSnapshot{Status: services.StatusError, RefreshedAt: time.Now(), Error: "boom"},
		err:  errors.New("boom"),
	}
	h := NewLedgerHandler(svc)

	rr := httptest.NewRecorder()
	h.HandleRefreshLedger(rr, authedRequest(http.MethodPost, "/api/ledger/refresh"))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}
