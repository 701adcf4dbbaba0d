package models

import "time"

// Portfolio is one investment container a user is authorized to read. It
// scopes ownership of trades, cash flows, and fund-unit operations upstream
// and defines the unit of account for every record it contains.
type Portfolio struct {
	ID        string    `json:"id"` // opaque brokerage-side identifier
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"` // unit of account, inherited by every transaction
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}
