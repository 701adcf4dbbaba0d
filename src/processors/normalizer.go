// src/processors/normalizer.go
package processors

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/folioledger/src/models"
	"github.com/username/folioledger/src/security/validation"
)

// The normalizers map one raw brokerage record into one unified Transaction.
// They are pure: no I/O, no shared state. A record that cannot be normalized
// returns an error and is dropped by the caller; a partially-filled
// Transaction is never produced. Optional source fields that are absent stay
// nil on the result instead of being defaulted to zero values.

// NormalizeTrade converts one raw trade execution. The amount is the trade's
// unsigned gross value; direction is carried separately in Side.
func NormalizeTrade(raw models.RawTrade, portfolio models.Portfolio) (models.Transaction, error) {
	if raw.ID == "" {
		return models.Transaction{}, fmt.Errorf("trade record has no id")
	}

	side, err := parseTradeSide(raw.Side)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("trade %s: %w", raw.ID, err)
	}

	quantity, err := decimal.NewFromString(raw.Quantity)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("trade %s: invalid quantity %q: %w", raw.ID, raw.Quantity, err)
	}

	totalValue, err := decimal.NewFromString(raw.TotalValue)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("trade %s: invalid total_value %q: %w", raw.ID, raw.TotalValue, err)
	}

	occurredAt, err := parseEventTime(raw.TradeDate)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("trade %s: invalid trade_date %q: %w", raw.ID, raw.TradeDate, err)
	}

	symbol := validation.SanitizeText(strings.TrimSpace(raw.Symbol))
	symbolName := validation.SanitizeText(strings.TrimSpace(raw.SymbolName))

	instrument := symbol
	if instrument == "" {
		instrument = symbolName
	}
	if instrument == "" {
		instrument = "security"
	}

	tx := models.Transaction{
		ID:            raw.ID,
		Kind:          models.KindTrade,
		PortfolioID:   portfolio.ID,
		PortfolioName: portfolio.Name,
		OccurredAt:    occurredAt,
		Amount:        totalValue.Abs(),
		Currency:      portfolio.Currency,
		Description:   fmt.Sprintf("%s %s %s", side, quantity.String(), instrument),
		CreatedAt:     parseCreatedAt(raw.CreatedAt, occurredAt),
		Side:          &side,
		Quantity:      &quantity,
	}
	if symbol != "" {
		tx.Symbol = &symbol
	}
	if symbolName != "" {
		tx.SymbolName = &symbolName
	}
	if price, ok := parseOptionalDecimal(raw.UnitPrice); ok {
		tx.UnitPrice = &price
	}
	return tx, nil
}

// NormalizeCashFlow converts one raw cash movement. The amount keeps the
// sign the source gave it (deposits positive, withdrawals negative).
func NormalizeCashFlow(raw models.RawCashFlow, portfolio models.Portfolio) (models.Transaction, error) {
	if raw.ID == "" {
		return models.Transaction{}, fmt.Errorf("cash flow record has no id")
	}

	flowType := strings.ToUpper(strings.TrimSpace(raw.FlowType))
	if flowType == "" {
		return models.Transaction{}, fmt.Errorf("cash flow %s: flow_type is missing", raw.ID)
	}

	amount, err := decimal.NewFromString(raw.Amount)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("cash flow %s: invalid amount %q: %w", raw.ID, raw.Amount, err)
	}

	occurredAt, err := parseEventTime(raw.FlowDate)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("cash flow %s: invalid flow_date %q: %w", raw.ID, raw.FlowDate, err)
	}

	description := validation.SanitizeText(strings.TrimSpace(raw.Description))
	if description == "" {
		description = fmt.Sprintf("%s transaction", flowType)
	}

	tx := models.Transaction{
		ID:            raw.ID,
		Kind:          models.KindCashFlow,
		PortfolioID:   portfolio.ID,
		PortfolioName: portfolio.Name,
		OccurredAt:    occurredAt,
		Amount:        amount,
		Currency:      portfolio.Currency,
		Description:   description,
		CreatedAt:     parseCreatedAt(raw.CreatedAt, occurredAt),
		FlowType:      &flowType,
	}
	if src := validation.SanitizeText(strings.TrimSpace(raw.FundingSource)); src != "" {
		tx.FundingSource = &src
	}
	return tx, nil
}

// NormalizeFundUnitOp converts one raw fund-unit subscription or redemption.
// The amount follows the same signed convention as cash flows.
func NormalizeFundUnitOp(raw models.RawFundUnitOp, portfolio models.Portfolio) (models.Transaction, error) {
	if raw.ID == "" {
		return models.Transaction{}, fmt.Errorf("fund unit record has no id")
	}

	opType := strings.ToUpper(strings.TrimSpace(raw.OpType))
	if opType != "SUBSCRIPTION" && opType != "REDEMPTION" {
		return models.Transaction{}, fmt.Errorf("fund unit op %s: unknown op_type %q", raw.ID, raw.OpType)
	}

	amount, err := decimal.NewFromString(raw.Amount)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("fund unit op %s: invalid amount %q: %w", raw.ID, raw.Amount, err)
	}

	occurredAt, err := parseEventTime(raw.OpDate)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("fund unit op %s: invalid op_date %q: %w", raw.ID, raw.OpDate, err)
	}

	fundName := validation.SanitizeText(strings.TrimSpace(raw.FundName))
	fund := fundName
	if fund == "" {
		fund = "fund"
	}

	description := fmt.Sprintf("%s of %s", opType, fund)
	units, hasUnits := parseOptionalDecimal(raw.Units)
	if hasUnits {
		description = fmt.Sprintf("%s %s units of %s", opType, units.String(), fund)
	}

	tx := models.Transaction{
		ID:            raw.ID,
		Kind:          models.KindFundUnit,
		PortfolioID:   portfolio.ID,
		PortfolioName: portfolio.Name,
		OccurredAt:    occurredAt,
		Amount:        amount,
		Currency:      portfolio.Currency,
		Description:   description,
		CreatedAt:     parseCreatedAt(raw.CreatedAt, occurredAt),
	}
	if fundName != "" {
		tx.SymbolName = &fundName
	}
	if hasUnits {
		tx.Units = &units
	}
	if price, ok := parseOptionalDecimal(raw.UnitPrice); ok {
		tx.UnitPrice = &price
	}
	return tx, nil
}

func parseTradeSide(s string) (models.TradeSide, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return models.SideBuy, nil
	case "SELL":
		return models.SideSell, nil
	default:
		return "", fmt.Errorf("unknown trade side %q", s)
	}
}

// parseEventTime accepts full ISO-8601 timestamps and bare dates, which the
// upstream API mixes depending on record age.
func parseEventTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("timestamp is missing")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format")
}

// parseCreatedAt tolerates a missing creation timestamp; it is only a
// tie-breaker, so falling back to the event time is harmless.
func parseCreatedAt(s string, fallback time.Time) time.Time {
	if t, err := parseEventTime(s); err == nil {
		return t
	}
	return fallback
}

func parseOptionalDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
