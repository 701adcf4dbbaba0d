// src/services/filter.go
package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/username/folioledger/src/models"
)

// DateWindow restricts a ledger to transactions whose event time falls
// within now minus the window. WindowAll disables the restriction.
type DateWindow string

const (
	WindowAll DateWindow = "ALL"
	Window7D  DateWindow = "7D"
	Window30D DateWindow = "30D"
	Window90D DateWindow = "90D"
	Window1Y  DateWindow = "1Y"
)

// Duration returns the window length and whether the window restricts at all.
func (w DateWindow) Duration() (time.Duration, bool) {
	switch w {
	case Window7D:
		return 7 * 24 * time.Hour, true
	case Window30D:
		return 30 * 24 * time.Hour, true
	case Window90D:
		return 90 * 24 * time.Hour, true
	case Window1Y:
		return 365 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// ParseDateWindow maps a query-string value to a DateWindow. The empty
// string means all time.
func ParseDateWindow(s string) (DateWindow, error) {
	switch DateWindow(strings.ToUpper(strings.TrimSpace(s))) {
	case "", WindowAll:
		return WindowAll, nil
	case Window7D:
		return Window7D, nil
	case Window30D:
		return Window30D, nil
	case Window90D:
		return Window90D, nil
	case Window1Y:
		return Window1Y, nil
	default:
		return "", fmt.Errorf("unknown date window %q", s)
	}
}

// FilterCriteria is the composable criteria set applied to a ledger. Zero
// values are all-permissive: an empty criteria set is the identity filter.
// Active criteria combine with logical AND.
type FilterCriteria struct {
	SearchText  string                 // case-insensitive substring, any of description/symbol/symbol name/portfolio name
	Kind        models.TransactionKind // empty matches every kind
	PortfolioID string                 // empty matches every portfolio
	Window      DateWindow             // empty or WindowAll matches all time
	Now         time.Time              // reference instant for Window; zero means time.Now()
}

// FilterTransactions returns the entries of ledger matching every active
// criterion, preserving order. It is pure; the input slice is never mutated.
func FilterTransactions(ledger []models.Transaction, criteria FilterCriteria) []models.Transaction {
	search := strings.ToLower(strings.TrimSpace(criteria.SearchText))

	var cutoff time.Time
	if d, restricts := criteria.Window.Duration(); restricts {
		now := criteria.Now
		if now.IsZero() {
			now = time.Now()
		}
		cutoff = now.Add(-d)
	}

	filtered := make([]models.Transaction, 0, len(ledger))
	for _, tx := range ledger {
		if criteria.Kind != "" && tx.Kind != criteria.Kind {
			continue
		}
		if criteria.PortfolioID != "" && tx.PortfolioID != criteria.PortfolioID {
			continue
		}
		if !cutoff.IsZero() && tx.OccurredAt.Before(cutoff) {
			continue
		}
		if search != "" && !matchesSearch(tx, search) {
			continue
		}
		filtered = append(filtered, tx)
	}
	return filtered
}

func matchesSearch(tx models.Transaction, search string) bool {
	if strings.Contains(strings.ToLower(tx.Description), search) {
		return true
	}
	if tx.Symbol != nil && strings.Contains(strings.ToLower(*tx.Symbol), search) {
		return true
	}
	if tx.SymbolName != nil && strings.Contains(strings.ToLower(*tx.SymbolName), search) {
		return true
	}
	return strings.Contains(strings.ToLower(tx.PortfolioName), search)
}
