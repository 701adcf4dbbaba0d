// src/services/summary.go
package services

import (
	"github.com/shopspring/decimal"
	"github.com/username/folioledger/src/models"
)

// Summarize reduces a (possibly filtered) ledger to its aggregate counters.
// It is pure and total: an empty ledger yields a zero-valued Summary.
//
// GrossVolume sums absolute amounts across currencies without conversion;
// VolumeByCurrency carries the per-currency breakdown so mixed-currency
// ledgers remain interpretable by the consumer.
func Summarize(ledger []models.Transaction) models.Summary {
	summary := models.Summary{
		TotalCount:       len(ledger),
		CountByKind:      make(map[models.TransactionKind]int),
		GrossVolume:      decimal.Zero,
		VolumeByCurrency: make(map[string]decimal.Decimal),
	}

	for _, tx := range ledger {
		summary.CountByKind[tx.Kind]++
		abs := tx.Amount.Abs()
		summary.GrossVolume = summary.GrossVolume.Add(abs)
		summary.VolumeByCurrency[tx.Currency] = summary.VolumeByCurrency[tx.Currency].Add(abs)
	}
	return summary
}
