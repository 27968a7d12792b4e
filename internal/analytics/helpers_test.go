package analytics

import (
	"time"

	"github.com/newthinker/tradelog/internal/core"
	"github.com/newthinker/tradelog/internal/currency"
	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func nullDec(s string) decimal.NullDecimal { return decimal.NewNullDecimal(dec(s)) }

// march returns a pointer to 2024-03-<day> <hour>:<minute> UTC. March 3rd 2024 is a Sunday.
func march(day, hour, minute int) *time.Time {
	t := time.Date(2024, 3, day, hour, minute, 0, 0, time.UTC)
	return &t
}

// stock builds a closed one-share buy whose P&L is exit-entry.
func stock(entry, exit string, exitAt *time.Time) core.Trade {
	t := core.Trade{
		Symbol:         "AAPL",
		InstrumentType: core.InstrumentStock,
		Side:           core.SideBuy,
		Entry:          dec(entry),
		Exit:           nullDec(exit),
		Timestamp:      time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		ExitTimestamp:  exitAt,
	}
	if exitAt != nil {
		t.Timestamp = exitAt.Add(-time.Hour)
	}
	return t
}

// pnlTrade builds a closed stock trade with the given money result.
func pnlTrade(pnl float64, exitAt *time.Time) core.Trade {
	return stock("1000", decimal.NewFromFloat(1000+pnl).String(), exitAt)
}

func openTrade() core.Trade {
	return core.Trade{
		Symbol:         "MSFT",
		InstrumentType: core.InstrumentStock,
		Side:           core.SideBuy,
		Entry:          dec("300"),
		Timestamp:      time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

func newTestEngine(opts ...Option) *Engine {
	cfg := Config{
		AccountCurrency: "USD",
		StartingBalance: 10000,
		Simulations:     500,
		Location:        time.UTC,
	}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(cfg, currency.DefaultRates(), opts...)
}
