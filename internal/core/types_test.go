package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentType_IsKnown(t *testing.T) {
	for _, it := range []InstrumentType{InstrumentForex, InstrumentStock, InstrumentCrypto} {
		assert.True(t, it.IsKnown(), string(it))
	}
	assert.False(t, InstrumentType("option").IsKnown())
	assert.False(t, InstrumentType("").IsKnown())
}

func TestTrade_IsClosed(t *testing.T) {
	open := Trade{Entry: decimal.RequireFromString("1.1")}
	assert.False(t, open.IsClosed())

	closed := open
	closed.Exit = decimal.NewNullDecimal(decimal.RequireFromString("1.2"))
	assert.True(t, closed.IsClosed())
}

func TestTrade_ClosedAt(t *testing.T) {
	entry := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	exit := entry.Add(2 * time.Hour)

	tr := Trade{Timestamp: entry}
	assert.Equal(t, entry, tr.ClosedAt())
	assert.False(t, tr.HasExitTime())

	tr.ExitTimestamp = &exit
	assert.Equal(t, exit, tr.ClosedAt())
	assert.True(t, tr.HasExitTime())
}

func TestTrade_StrategyLabel(t *testing.T) {
	assert.Equal(t, DefaultStrategy, Trade{}.StrategyLabel())
	assert.Equal(t, DefaultStrategy, Trade{Strategy: "  "}.StrategyLabel())
	assert.Equal(t, "breakout", Trade{Strategy: "breakout"}.StrategyLabel())
}

func TestTrade_JSONOptionalFields(t *testing.T) {
	raw := `{
		"symbol": "EURUSD",
		"instrumentType": "forex",
		"side": "buy",
		"entry": 1.1,
		"exit": null,
		"timestamp": "2024-03-01T09:00:00Z"
	}`

	var tr Trade
	require.NoError(t, json.Unmarshal([]byte(raw), &tr))

	assert.Equal(t, InstrumentForex, tr.InstrumentType)
	assert.Equal(t, SideBuy, tr.Side)
	assert.True(t, tr.Entry.Equal(decimal.RequireFromString("1.1")))
	assert.False(t, tr.IsClosed())
	assert.False(t, tr.StopLoss.Valid)
	assert.True(t, tr.Fees.IsZero())
	assert.Nil(t, tr.ExitTimestamp)
}
