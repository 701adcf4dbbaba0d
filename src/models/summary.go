package models

import "github.com/shopspring/decimal"

// Summary holds the aggregate counters derived from one (possibly filtered)
// ledger. GrossVolume sums absolute amounts across every entry regardless of
// currency; VolumeByCurrency keeps the same sums broken out per unit of
// account so mixed-currency ledgers stay interpretable.
type Summary struct {
	TotalCount       int                        `json:"total_count"`
	CountByKind      map[TransactionKind]int    `json:"count_by_kind"`
	GrossVolume      decimal.Decimal            `json:"gross_volume"`
	VolumeByCurrency map[string]decimal.Decimal `json:"volume_by_currency"`
}

// FetchFailure records one contained per-portfolio, per-kind fetch failure
// from an aggregation pass. Failures are reported alongside the ledger; they
// never abort the pass unless every request failed.
type FetchFailure struct {
	PortfolioID string          `json:"portfolio_id"`
	Kind        TransactionKind `json:"kind"`
	Error       string          `json:"error"`
}
