// src/services/interfaces.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/username/folioledger/src/models"
)

// Define common service errors
var (
	// ErrAggregationFailed means every fetch in an aggregation pass failed,
	// or the portfolio list itself could not be resolved. It distinguishes
	// "could not load transactions" from "no transactions".
	ErrAggregationFailed = errors.New("ledger aggregation failed")

	ErrPortfolioLimitReached = errors.New("portfolio limit reached")
	ErrPortfolioNotFound     = errors.New("portfolio not found")
)

// LedgerStatus is the consumer-visible state of a user's ledger.
type LedgerStatus string

const (
	StatusLoading LedgerStatus = "loading"
	StatusError   LedgerStatus = "error"
	StatusReady   LedgerStatus = "ready"
)

// LedgerSnapshot is the immutable result of one aggregation pass. Consumers
// never mutate it; a refresh produces a wholly new snapshot that replaces
// the old one atomically.
type LedgerSnapshot struct {
	Status       LedgerStatus          `json:"status"`
	Transactions []models.Transaction  `json:"transactions"`
	Failures     []models.FetchFailure `json:"failures"`
	RefreshedAt  time.Time             `json:"refreshed_at"`
	Error        string                `json:"error,omitempty"`
}

// BrokerageClient is the fetch boundary against the upstream brokerage API.
// Implementations must not swallow errors; containment is the ledger
// service's job.
type BrokerageClient interface {
	ListTrades(ctx context.Context, portfolioID string) ([]models.RawTrade, error)
	ListCashFlows(ctx context.Context, portfolioID string) ([]models.RawCashFlow, error)
	ListFundUnitOps(ctx context.Context, portfolioID string) ([]models.RawFundUnitOp, error)
}

// IdentityService resolves which portfolios the active user may read.
type IdentityService interface {
	AccessiblePortfolios(ctx context.Context, userID int64) ([]models.Portfolio, error)
	CreatePortfolio(ctx context.Context, userID int64, name, currency string, isDefault bool) (*models.Portfolio, error)
	DeletePortfolio(ctx context.Context, userID int64, portfolioID string) error
}

// LedgerService produces the merged, chronologically ordered transaction
// ledger across every portfolio the user can read.
type LedgerService interface {
	// Ledger returns the cached snapshot for the user, running a fresh
	// aggregation pass on a cache miss.
	Ledger(ctx context.Context, userID int64) (*LedgerSnapshot, error)
	// Refresh always runs a fresh aggregation pass, superseding any pass
	// still in flight for the same user.
	Refresh(ctx context.Context, userID int64) (*LedgerSnapshot, error)
}
