// src/services/ledger_service.go
package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/username/folioledger/src/logger"
	"github.com/username/folioledger/src/models"
	"github.com/username/folioledger/src/processors"
)

const (
	DefaultCacheExpiration = 5 * time.Minute
	CacheCleanupInterval   = 10 * time.Minute
)

// recordKinds is the fixed fan-out order per portfolio. Keeping it fixed
// makes the accumulator's insertion order independent of network timing.
var recordKinds = []models.TransactionKind{models.KindTrade, models.KindCashFlow, models.KindFundUnit}

type ledgerServiceImpl struct {
	brokerage BrokerageClient
	identity  IdentityService
	snapshots *cache.Cache
	ttl       time.Duration

	mu          sync.Mutex
	latestPass  map[int64]uint64
	passCounter uint64
}

// NewLedgerService creates the aggregator. Snapshots are cached per user
// with the given TTL; Refresh bypasses and replaces the cached value.
func NewLedgerService(brokerage BrokerageClient, identity IdentityService, snapshots *cache.Cache, ttl time.Duration) LedgerService {
	if ttl <= 0 {
		ttl = DefaultCacheExpiration
	}
	return &ledgerServiceImpl{
		brokerage:  brokerage,
		identity:   identity,
		snapshots:  snapshots,
		ttl:        ttl,
		latestPass: make(map[int64]uint64),
	}
}

func snapshotCacheKey(userID int64) string {
	return fmt.Sprintf("ledger-%d", userID)
}

func (s *ledgerServiceImpl) Ledger(ctx context.Context, userID int64) (*LedgerSnapshot, error) {
	if cached, found := s.snapshots.Get(snapshotCacheKey(userID)); found {
		return cached.(*LedgerSnapshot), nil
	}
	return s.Refresh(ctx, userID)
}

func (s *ledgerServiceImpl) Refresh(ctx context.Context, userID int64) (*LedgerSnapshot, error) {
	pass := s.beginPass(userID)
	passID := uuid.New().String()
	lg := logger.FromContext(ctx).With("passID", passID, "userID", userID)

	portfolios, err := s.identity.AccessiblePortfolios(ctx, userID)
	if err != nil {
		lg.Error("Could not resolve accessible portfolios", "error", err)
		snap := &LedgerSnapshot{
			Status:      StatusError,
			RefreshedAt: time.Now(),
			Error:       "could not resolve portfolios",
		}
		s.commit(userID, pass, snap)
		return snap, fmt.Errorf("%w: resolving portfolios: %v", ErrAggregationFailed, err)
	}

	// Zero accessible portfolios is a complete, empty ledger, not an error.
	if len(portfolios) == 0 {
		snap := &LedgerSnapshot{
			Status:       StatusReady,
			Transactions: []models.Transaction{},
			Failures:     []models.FetchFailure{},
			RefreshedAt:  time.Now(),
		}
		s.commit(userID, pass, snap)
		return snap, nil
	}

	// Fan out one fetch per (portfolio, record kind). Every outcome settles
	// into its own fixed slot so the accumulation order below never depends
	// on completion order.
	outcomes := make([]fetchOutcome, len(portfolios)*len(recordKinds))
	var wg sync.WaitGroup
	for i, p := range portfolios {
		for j, kind := range recordKinds {
			wg.Add(1)
			go func(slot int, portfolio models.Portfolio, kind models.TransactionKind) {
				defer wg.Done()
				outcomes[slot] = s.fetch(ctx, portfolio, kind)
			}(i*len(recordKinds)+j, p, kind)
		}
	}
	wg.Wait()

	var (
		transactions []models.Transaction
		failures     []models.FetchFailure
		dropped      int
	)
	for _, out := range outcomes {
		if out.err != nil {
			lg.Warn("Ledger fetch failed, excluding from pass",
				"portfolioID", out.portfolioID, "kind", out.kind, "error", out.err)
			failures = append(failures, models.FetchFailure{
				PortfolioID: out.portfolioID,
				Kind:        out.kind,
				Error:       out.err.Error(),
			})
			continue
		}
		transactions = append(transactions, out.transactions...)
		dropped += out.dropped
	}

	// Only a pass in which every single request failed surfaces as an
	// aggregation-level error.
	if len(failures) == len(outcomes) {
		lg.Error("Every ledger fetch failed", "requests", len(outcomes))
		snap := &LedgerSnapshot{
			Status:      StatusError,
			Failures:    failures,
			RefreshedAt: time.Now(),
			Error:       "could not load transactions from any portfolio",
		}
		s.commit(userID, pass, snap)
		return snap, fmt.Errorf("%w: all %d requests failed", ErrAggregationFailed, len(outcomes))
	}

	sortLedger(transactions)
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	if failures == nil {
		failures = []models.FetchFailure{}
	}

	snap := &LedgerSnapshot{
		Status:       StatusReady,
		Transactions: transactions,
		Failures:     failures,
		RefreshedAt:  time.Now(),
	}
	if committed := s.commit(userID, pass, snap); !committed {
		lg.Info("Discarding superseded aggregation pass")
	} else {
		lg.Info("Aggregation pass complete",
			"transactions", len(transactions), "failures", len(failures), "droppedRecords", dropped)
	}
	return snap, nil
}

type fetchOutcome struct {
	portfolioID  string
	kind         models.TransactionKind
	transactions []models.Transaction
	dropped      int
	err          error
}

// fetch performs one per-portfolio, per-kind request and normalizes the
// result. Transport errors settle into the outcome; malformed records are
// dropped with a warning and never produce a partial Transaction.
func (s *ledgerServiceImpl) fetch(ctx context.Context, portfolio models.Portfolio, kind models.TransactionKind) fetchOutcome {
	out := fetchOutcome{portfolioID: portfolio.ID, kind: kind}

	switch kind {
	case models.KindTrade:
		raws, err := s.brokerage.ListTrades(ctx, portfolio.ID)
		if err != nil {
			out.err = err
			return out
		}
		for _, raw := range raws {
			tx, err := processors.NormalizeTrade(raw, portfolio)
			if err != nil {
				logger.FromContext(ctx).Warn("Dropping malformed trade record", "portfolioID", portfolio.ID, "error", err)
				out.dropped++
				continue
			}
			out.transactions = append(out.transactions, tx)
		}
	case models.KindCashFlow:
		raws, err := s.brokerage.ListCashFlows(ctx, portfolio.ID)
		if err != nil {
			out.err = err
			return out
		}
		for _, raw := range raws {
			tx, err := processors.NormalizeCashFlow(raw, portfolio)
			if err != nil {
				logger.FromContext(ctx).Warn("Dropping malformed cash flow record", "portfolioID", portfolio.ID, "error", err)
				out.dropped++
				continue
			}
			out.transactions = append(out.transactions, tx)
		}
	case models.KindFundUnit:
		raws, err := s.brokerage.ListFundUnitOps(ctx, portfolio.ID)
		if err != nil {
			out.err = err
			return out
		}
		for _, raw := range raws {
			tx, err := processors.NormalizeFundUnitOp(raw, portfolio)
			if err != nil {
				logger.FromContext(ctx).Warn("Dropping malformed fund unit record", "portfolioID", portfolio.ID, "error", err)
				out.dropped++
				continue
			}
			out.transactions = append(out.transactions, tx)
		}
	}
	return out
}

// sortLedger orders newest-first by event time, breaking ties by creation
// time and then by insertion order (the stable sort preserves it).
func sortLedger(txs []models.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].OccurredAt.Equal(txs[j].OccurredAt) {
			return txs[i].OccurredAt.After(txs[j].OccurredAt)
		}
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
}

// beginPass allocates the next pass generation and marks it as the latest
// for the user. A superseded pass will see a newer generation at commit time.
func (s *ledgerServiceImpl) beginPass(userID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passCounter++
	s.latestPass[userID] = s.passCounter
	return s.passCounter
}

// commit stores the snapshot unless a newer pass has started for the user,
// in which case the stale result is discarded.
func (s *ledgerServiceImpl) commit(userID int64, pass uint64, snap *LedgerSnapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latestPass[userID] != pass {
		return false
	}
	s.snapshots.Set(snapshotCacheKey(userID), snap, s.ttl)
	return true
}
