package services

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/folioledger/src/logger"
	"github.com/username/folioledger/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

type stubIdentity struct {
	portfolios []models.Portfolio
	err        error
}

func (s *stubIdentity) AccessiblePortfolios(ctx context.Context, userID int64) ([]models.Portfolio, error) {
	return s.portfolios, s.err
}

func (s *stubIdentity) CreatePortfolio(ctx context.Context, userID int64, name, currency string, isDefault bool) (*models.Portfolio, error) {
	panic("not used in these tests")
}

func (s *stubIdentity) DeletePortfolio(ctx context.Context, userID int64, portfolioID string) error {
	panic("not used in these tests")
}

// stubBrokerage serves canned records per portfolio and can fail individual
// (kind, portfolio) requests. It counts calls so cache behavior is observable.
type stubBrokerage struct {
	mu        sync.Mutex
	calls     int
	trades    map[string][]models.RawTrade
	cashFlows map[string][]models.RawCashFlow
	fundOps   map[string][]models.RawFundUnitOp
	failures  map[string]error // keyed kind + ":" + portfolioID
}

func (s *stubBrokerage) record(kind models.TransactionKind, portfolioID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.failures[string(kind)+":"+portfolioID]
}

func (s *stubBrokerage) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubBrokerage) ListTrades(ctx context.Context, portfolioID string) ([]models.RawTrade, error) {
	if err := s.record(models.KindTrade, portfolioID); err != nil {
		return nil, err
	}
	return s.trades[portfolioID], nil
}

func (s *stubBrokerage) ListCashFlows(ctx context.Context, portfolioID string) ([]models.RawCashFlow, error) {
	if err := s.record(models.KindCashFlow, portfolioID); err != nil {
		return nil, err
	}
	return s.cashFlows[portfolioID], nil
}

func (s *stubBrokerage) ListFundUnitOps(ctx context.Context, portfolioID string) ([]models.RawFundUnitOp, error) {
	if err := s.record(models.KindFundUnit, portfolioID); err != nil {
		return nil, err
	}
	return s.fundOps[portfolioID], nil
}

func newTestService(brokerage BrokerageClient, identity IdentityService) LedgerService {
	return NewLedgerService(brokerage, identity, cache.New(time.Minute, time.Minute), time.Minute)
}

func twoPortfolios() []models.Portfolio {
	return []models.Portfolio{
		{ID: "pf-a", UserID: 1, Name: "Growth", Currency: "EUR"},
		{ID: "pf-b", UserID: 1, Name: "Savings", Currency: "EUR"},
	}
}

func TestRefreshMergesAcrossPortfoliosWithPartialFailure(t *testing.T) {
	brokerage := &stubBrokerage{
		trades: map[string][]models.RawTrade{
			"pf-a": {
				{ID: "t-1", Symbol: "AAPL", Side: "BUY", Quantity: "5", TotalValue: "1000", TradeDate: "2025-06-02T10:00:00Z"},
				{ID: "t-2", Symbol: "MSFT", Side: "SELL", Quantity: "2", TotalValue: "800", TradeDate: "2025-06-03T10:00:00Z"},
			},
		},
		cashFlows: map[string][]models.RawCashFlow{
			"pf-b": {
				{ID: "cf-1", FlowType: "DEPOSIT", Amount: "500", FlowDate: "2025-06-01T10:00:00Z"},
			},
		},
		failures: map[string]error{
			string(models.KindTrade) + ":pf-b": errors.New("upstream 503"),
		},
	}
	svc := newTestService(brokerage, &stubIdentity{portfolios: twoPortfolios()})

	snap, err := svc.Refresh(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, StatusReady, snap.Status)
	require.Len(t, snap.Transactions, 3)
	require.Len(t, snap.Failures, 1)
	assert.Equal(t, "pf-b", snap.Failures[0].PortfolioID)
	assert.Equal(t, models.KindTrade, snap.Failures[0].Kind)
	assert.Contains(t, snap.Failures[0].Error, "upstream 503")

	// Newest first across portfolios.
	assert.Equal(t, "t-2", snap.Transactions[0].ID)
	assert.Equal(t, "t-1", snap.Transactions[1].ID)
	assert.Equal(t, "cf-1", snap.Transactions[2].ID)
}

func TestRefreshFailsWhenEveryRequestFails(t *testing.T) {
	upstreamDown := errors.New("connection refused")
	brokerage := &stubBrokerage{
		failures: map[string]error{
			string(models.KindTrade) + ":pf-a":    upstreamDown,
			string(models.KindCashFlow) + ":pf-a": upstreamDown,
			string(models.KindFundUnit) + ":pf-a": upstreamDown,
		},
	}
	identity := &stubIdentity{portfolios: []models.Portfolio{{ID: "pf-a", UserID: 1, Name: "Growth", Currency: "EUR"}}}
	svc := newTestService(brokerage, identity)

	snap, err := svc.Refresh(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAggregationFailed)
	require.NotNil(t, snap)
	assert.Equal(t, StatusError, snap.Status)
	assert.Len(t, snap.Failures, 3)
}

func TestRefreshFailsWhenPortfoliosCannotBeResolved(t *testing.T) {
	svc := newTestService(&stubBrokerage{}, &stubIdentity{err: errors.New("db locked")})

	snap, err := svc.Refresh(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAggregationFailed)
	require.NotNil(t, snap)
	assert.Equal(t, StatusError, snap.Status)
}

func TestRefreshWithZeroPortfoliosYieldsEmptyReadyLedger(t *testing.T) {
	brokerage := &stubBrokerage{}
	svc := newTestService(brokerage, &stubIdentity{portfolios: []models.Portfolio{}})

	snap, err := svc.Refresh(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, snap.Status)
	assert.NotNil(t, snap.Transactions)
	assert.Empty(t, snap.Transactions)
	assert.NotNil(t, snap.Failures)
	assert.Empty(t, snap.Failures)
	assert.Zero(t, brokerage.callCount())
}

func TestRefreshDropsMalformedRecordsWithoutFailingTheRequest(t *testing.T) {
	brokerage := &stubBrokerage{
		trades: map[string][]models.RawTrade{
			"pf-a": {
				{ID: "t-good", Symbol: "AAPL", Side: "BUY", Quantity: "1", TotalValue: "100", TradeDate: "2025-06-02T10:00:00Z"},
				{ID: "t-bad", Symbol: "AAPL", Side: "HOLD", Quantity: "1", TotalValue: "100", TradeDate: "2025-06-02T10:00:00Z"},
			},
		},
	}
	identity := &stubIdentity{portfolios: []models.Portfolio{{ID: "pf-a", UserID: 1, Name: "Growth", Currency: "EUR"}}}
	svc := newTestService(brokerage, identity)

	snap, err := svc.Refresh(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, snap.Transactions, 1)
	assert.Equal(t, "t-good", snap.Transactions[0].ID)
	assert.Empty(t, snap.Failures)
}

func TestRefreshOrderIsDeterministicAcrossPasses(t *testing.T) {
	// Every record shares one event time and creation time, so ordering falls
	// through to insertion order, which must not depend on goroutine timing.
	sameInstant := "2025-06-02T10:00:00Z"
	brokerage := &stubBrokerage{
		trades: map[string][]models.RawTrade{
			"pf-a": {{ID: "t-a", Symbol: "AAPL", Side: "BUY", Quantity: "1", TotalValue: "100", TradeDate: sameInstant, CreatedAt: sameInstant}},
			"pf-b": {{ID: "t-b", Symbol: "MSFT", Side: "BUY", Quantity: "1", TotalValue: "100", TradeDate: sameInstant, CreatedAt: sameInstant}},
		},
		cashFlows: map[string][]models.RawCashFlow{
			"pf-a": {{ID: "cf-a", FlowType: "DEPOSIT", Amount: "10", FlowDate: sameInstant, CreatedAt: sameInstant}},
			"pf-b": {{ID: "cf-b", FlowType: "DEPOSIT", Amount: "10", FlowDate: sameInstant, CreatedAt: sameInstant}},
		},
	}
	svc := newTestService(brokerage, &stubIdentity{portfolios: twoPortfolios()})

	first, err := svc.Refresh(context.Background(), 1)
	require.NoError(t, err)

	wantOrder := []string{"t-a", "cf-a", "t-b", "cf-b"}
	for pass := 0; pass < 10; pass++ {
		snap, err := svc.Refresh(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, snap.Transactions, len(first.Transactions))
		for i, tx := range snap.Transactions {
			assert.Equal(t, wantOrder[i], tx.ID, "pass %d position %d", pass, i)
		}
	}
}

func TestLedgerServesCachedSnapshotUntilRefresh(t *testing.T) {
	brokerage := &stubBrokerage{
		trades: map[string][]models.RawTrade{
			"pf-a": {{ID: "t-1", Symbol: "AAPL", Side: "BUY", Quantity: "1", TotalValue: "100", TradeDate: "2025-06-02T10:00:00Z"}},
		},
	}
	identity := &stubIdentity{portfolios: []models.Portfolio{{ID: "pf-a", UserID: 1, Name: "Growth", Currency: "EUR"}}}
	svc := newTestService(brokerage, identity)

	first, err := svc.Ledger(context.Background(), 1)
	require.NoError(t, err)
	callsAfterFirst := brokerage.callCount()
	assert.Equal(t, 3, callsAfterFirst, "one request per record kind")

	second, err := svc.Ledger(context.Background(), 1)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, callsAfterFirst, brokerage.callCount(), "cache hit must not touch the brokerage")

	refreshed, err := svc.Refresh(context.Background(), 1)
	require.NoError(t, err)
	assert.NotSame(t, first, refreshed)
	assert.Greater(t, brokerage.callCount(), callsAfterFirst)
}

func TestCommitDiscardsSupersededPass(t *testing.T) {
	svc := newTestService(&stubBrokerage{}, &stubIdentity{}).(*ledgerServiceImpl)

	older := svc.beginPass(1)
	newer := svc.beginPass(1)

	stale := &LedgerSnapshot{Status: StatusReady}
	assert.False(t, svc.commit(1, older, stale), "superseded pass must not commit")
	_, found := svc.snapshots.Get(snapshotCacheKey(1))
	assert.False(t, found)

	fresh := &LedgerSnapshot{Status: StatusReady}
	assert.True(t, svc.commit(1, newer, fresh))
	cached, found := svc.snapshots.Get(snapshotCacheKey(1))
	require.True(t, found)
	assert.Same(t, fresh, cached.(*LedgerSnapshot))
}

func TestSnapshotsAreCachedPerUser(t *testing.T) {
	brokerage := &stubBrokerage{
		trades: map[string][]models.RawTrade{
			"pf-a": {{ID: "t-1", Symbol: "AAPL", Side: "BUY", Quantity: "1", TotalValue: "100", TradeDate: "2025-06-02T10:00:00Z"}},
		},
	}
	identity := &stubIdentity{portfolios: []models.Portfolio{{ID: "pf-a", UserID: 1, Name: "Growth", Currency: "EUR"}}}
	svc := newTestService(brokerage, identity)

	_, err := svc.Ledger(context.Background(), 1)
	require.NoError(t, err)
	calls := brokerage.callCount()

	_, err = svc.Ledger(context.Background(), 2)
	require.NoError(t, err)
	assert.Greater(t, brokerage.callCount(), calls, "a different user must not share the cached snapshot")
}
