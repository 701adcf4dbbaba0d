package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind identifies which source record type a unified Transaction
// was normalized from. The enumeration is closed; adding a new kind means
// adding a new normalization rule in the processors package.
type TransactionKind string

const (
	KindTrade    TransactionKind = "TRADE"
	KindCashFlow TransactionKind = "CASH_FLOW"
	KindFundUnit TransactionKind = "FUND_UNIT"
)

// TradeSide is the direction of a trade execution.
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// Transaction is the unified representation of one financial event, built by
// the processors package from one raw brokerage record. It is immutable once
// normalized; a refresh replaces the whole ledger rather than mutating entries.
//
// ID is only unique within (Kind, PortfolioID); use Key() when a globally
// unique identifier is needed.
type Transaction struct {
	ID            string          `json:"id"`
	Kind          TransactionKind `json:"kind"`
	PortfolioID   string          `json:"portfolio_id"`
	PortfolioName string          `json:"portfolio_name"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Amount        decimal.Decimal `json:"amount"` // signed for CASH_FLOW/FUND_UNIT, unsigned for TRADE
	Currency      string          `json:"currency"`
	Description   string          `json:"description"`
	CreatedAt     time.Time       `json:"created_at"` // tie-break only, never primary ordering

	// TRADE fields. Absent optionals stay nil; they are never defaulted to
	// zero values that could be mistaken for real data.
	Side       *TradeSide       `json:"side,omitempty"`
	Symbol     *string          `json:"symbol,omitempty"`
	SymbolName *string          `json:"symbol_name,omitempty"`
	Quantity   *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice  *decimal.Decimal `json:"unit_price,omitempty"` // also set for FUND_UNIT

	// CASH_FLOW fields
	FlowType      *string `json:"flow_type,omitempty"`
	FundingSource *string `json:"funding_source,omitempty"`

	// FUND_UNIT fields
	Units *decimal.Decimal `json:"units,omitempty"`
}

// Key returns the globally unique identifier for this transaction,
// suitable as a list-rendering key across kinds and portfolios.
func (t Transaction) Key() string {
	return string(t.Kind) + ":" + t.PortfolioID + ":" + t.ID
}

// RawTrade is one trade execution as returned by the brokerage API.
// Monetary fields arrive as decimal strings on the wire.
type RawTrade struct {
	ID         string `json:"id"`
	Symbol     string `json:"symbol"`
	SymbolName string `json:"symbol_name"`
	Side       string `json:"side"` // "BUY" or "SELL"
	Quantity   string `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
	TotalValue string `json:"total_value"` // unsigned gross value of the execution
	TradeDate  string `json:"trade_date"`  // ISO-8601
	CreatedAt  string `json:"created_at"`
}

// RawCashFlow is one cash movement as returned by the brokerage API.
// The amount is signed by direction (deposits positive, withdrawals negative).
type RawCashFlow struct {
	ID            string `json:"id"`
	FlowType      string `json:"flow_type"` // e.g. "DEPOSIT", "WITHDRAWAL", "FEE", "INTEREST"
	Amount        string `json:"amount"`
	Description   string `json:"description"`
	FundingSource string `json:"funding_source"`
	FlowDate      string `json:"flow_date"` // ISO-8601
	CreatedAt     string `json:"created_at"`
}

// RawFundUnitOp is one fund-unit subscription or redemption as returned by
// the brokerage API. Amount follows the same signed convention as cash flows.
type RawFundUnitOp struct {
	ID        string `json:"id"`
	FundName  string `json:"fund_name"`
	OpType    string `json:"op_type"` // "SUBSCRIPTION" or "REDEMPTION"
	Units     string `json:"units"`
	UnitPrice string `json:"unit_price"`
	Amount    string `json:"amount"`
	OpDate    string `json:"op_date"` // ISO-8601
	CreatedAt string `json:"created_at"`
}
