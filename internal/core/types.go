package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InstrumentType identifies the asset class of a trade
type InstrumentType string

const (
	InstrumentForex  InstrumentType = "forex"
	InstrumentStock  InstrumentType = "stock"
	InstrumentCrypto InstrumentType = "crypto"
)

// IsKnown reports whether the engine prices this instrument type.
// Unknown types are stored but contribute zero P&L.
func (i InstrumentType) IsKnown() bool {
	switch i {
	case InstrumentForex, InstrumentStock, InstrumentCrypto:
		return true
	}
	return false
}

// Side is the direction of a trade
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// DefaultStrategy labels trades logged without a strategy.
const DefaultStrategy = "Uncategorized"

// Trade is a single journal entry.
//
// Zero-valued size fields (Lot, Volume, PipDecimal, PipValuePerLot) mean
// "not set" and fall back to their defaults when P&L is computed.
type Trade struct {
	ID             string              `json:"id"`
	Symbol         string              `json:"symbol" validate:"required,max=32"`
	InstrumentType InstrumentType      `json:"instrumentType" validate:"required,oneof=forex stock crypto"`
	Side           Side                `json:"side" validate:"required,oneof=buy sell"`
	Entry          decimal.Decimal     `json:"entry" validate:"gt=0"`
	Exit           decimal.NullDecimal `json:"exit" validate:"omitempty,gt=0"`
	StopLoss       decimal.NullDecimal `json:"sl" validate:"omitempty,gt=0"`
	Lot            decimal.Decimal     `json:"lot" validate:"gte=0"`
	Volume         decimal.Decimal     `json:"volume" validate:"gte=0"`
	PipDecimal     decimal.Decimal     `json:"pipDecimal" validate:"gte=0"`
	PipValuePerLot decimal.Decimal     `json:"pipValuePerLot" validate:"gte=0"`
	Fees           decimal.Decimal     `json:"fees" validate:"gte=0"`
	Timestamp      time.Time           `json:"timestamp" validate:"required"`
	ExitTimestamp  *time.Time          `json:"exitTimestamp,omitempty"`
	Strategy       string              `json:"strategy,omitempty" validate:"max=64"`
	Notes          string              `json:"notes,omitempty"`
}

// Instrument carries per-symbol overrides used when pricing a trade
type Instrument struct {
	Symbol         string          `json:"symbol"`
	PipValuePerLot decimal.Decimal `json:"pipValuePerLot"`
}

// IsClosed returns true if the trade has an exit price
func (t Trade) IsClosed() bool {
	return t.Exit.Valid
}

// HasExitTime returns true if the exit timestamp is recorded
func (t Trade) HasExitTime() bool {
	return t.ExitTimestamp != nil
}

// ClosedAt returns the exit timestamp, falling back to the entry timestamp.
func (t Trade) ClosedAt() time.Time {
	if t.ExitTimestamp != nil {
		return *t.ExitTimestamp
	}
	return t.Timestamp
}

// StrategyLabel returns the strategy name or DefaultStrategy when unset.
func (t Trade) StrategyLabel() string {
	if strings.TrimSpace(t.Strategy) == "" {
		return DefaultStrategy
	}
	return t.Strategy
}
