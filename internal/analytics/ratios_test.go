package analytics

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/newthinker/tradelog/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfitFactor(t *testing.T) {
	e := newTestEngine()

	tests := []struct {
		name   string
		trades []core.Trade
		want   float64
	}{
		{"mixed", []core.Trade{pnlTrade(300, nil), pnlTrade(100, nil), pnlTrade(-200, nil), openTrade()}, 2},
		{"only wins", []core.Trade{pnlTrade(300, nil), pnlTrade(1, nil)}, math.Inf(1)},
		{"no trades", nil, 0},
		{"only open", []core.Trade{openTrade()}, 0},
		{"break even", []core.Trade{pnlTrade(0, nil)}, 0},
		{"only losses", []core.Trade{pnlTrade(-5, nil)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.ProfitFactor(tt.trades))
		})
	}
}

func TestWinRate(t *testing.T) {
	e := newTestEngine()
	trades := []core.Trade{
		pnlTrade(10, nil),
		pnlTrade(5, nil),
		pnlTrade(0, nil), // break even is not a win
		pnlTrade(-3, nil),
		openTrade(),
	}

	if got := e.WinRate(trades); got != 0.5 {
		t.Errorf("WinRate = %f, want 0.5", got)
	}
	if got := e.WinRate(nil); got != 0 {
		t.Errorf("WinRate(nil) = %f, want 0", got)
	}
	if got := e.WinRate([]core.Trade{openTrade()}); got != 0 {
		t.Errorf("WinRate(open) = %f, want 0", got)
	}
}

func TestAverageWinLoss(t *testing.T) {
	e := newTestEngine()
	trades := []core.Trade{
		pnlTrade(300, nil),
		pnlTrade(100, nil),
		pnlTrade(-200, nil),
		pnlTrade(-100, nil),
		pnlTrade(-0, nil),
	}

	wl := e.AverageWinLoss(trades)
	assert.InDelta(t, 200, wl.AvgWin, 1e-9)
	assert.InDelta(t, 150, wl.AvgLoss, 1e-9)

	assert.Equal(t, WinLoss{}, e.AverageWinLoss(nil))
	assert.Equal(t, WinLoss{AvgWin: 40}, e.AverageWinLoss([]core.Trade{pnlTrade(40, nil)}))
}

func TestAverageRR(t *testing.T) {
	e := newTestEngine()

	withSL := func(entry, exit, sl string) core.Trade {
		tr := stock(entry, exit, nil)
		tr.StopLoss = nullDec(sl)
		return tr
	}
	open := openTrade()
	open.StopLoss = nullDec("290")

	trades := []core.Trade{
		withSL("100", "110", "95"),  // 10 / 5 = 2
		withSL("100", "101", "98"),  // 1 / 2 = 0.5
		withSL("100", "120", "100"), // zero risk, excluded
		withSL("100", "100", "90"),  // zero reward, excluded
		stock("100", "150", nil),    // no stop loss
		open,
	}

	assert.InDelta(t, 1.25, e.AverageRR(trades), 1e-9)
	assert.Equal(t, 0.0, e.AverageRR([]core.Trade{open}))
}

func TestSharpeRatio(t *testing.T) {
	// returns: +10%, +10%, -10%
	points := equityOf(100, 110, 121, 108.9)

	assert.InDelta(t, 1/(2*math.Sqrt2), SharpeRatio(points, 0), 1e-9)
	assert.InDelta(t, (1.0/30-0.01)/(2*math.Sqrt2/30), SharpeRatio(points, 0.01), 1e-9)
}

func TestSharpeRatio_Degenerate(t *testing.T) {
	assert.Equal(t, 0.0, SharpeRatio(nil, 0))
	assert.Equal(t, 0.0, SharpeRatio(equityOf(100), 0))
	assert.Equal(t, 0.0, SharpeRatio(equityOf(100, 100, 100), 0), "zero stddev")
}

func TestSharpeRatio_ZeroBalanceReturn(t *testing.T) {
	// returns: -100%, then 0 because the prior balance is zero
	assert.InDelta(t, -1, SharpeRatio(equityOf(100, 0, 50), 0), 1e-9)
}

func TestSortinoRatio_DividesByAllReturns(t *testing.T) {
	points := equityOf(100, 110, 121, 108.9)

	// downside deviation = sqrt(0.01 / 3), not sqrt(0.01 / 1)
	got := SortinoRatio(points, 0)
	assert.InDelta(t, 1/math.Sqrt(3), got, 1e-9)
	assert.NotEqual(t, 1.0/3, got)
}

func TestSortinoRatio_Degenerate(t *testing.T) {
	assert.Equal(t, 0.0, SortinoRatio(nil, 0))
	assert.Equal(t, 0.0, SortinoRatio(equityOf(100), 0))
	assert.Equal(t, 0.0, SortinoRatio(equityOf(100, 110, 120), 0), "no negative returns")
}

func TestStreaks(t *testing.T) {
	e := newTestEngine()

	noExitTime := pnlTrade(-5, nil)
	noExitTime.Timestamp = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC) // sorts by entry time

	trades := []core.Trade{
		pnlTrade(10, march(6, 9, 0)), // W
		pnlTrade(10, march(1, 9, 0)), // W
		pnlTrade(-1, march(3, 9, 0)), // L
		pnlTrade(20, march(2, 9, 0)), // W
		pnlTrade(0, march(5, 9, 0)),  // break even counts as L
		noExitTime,                   // L
		openTrade(),
	}

	s := e.Streaks(trades)
	assert.Equal(t, Streaks{LongestWin: 2, LongestLoss: 3}, s)
	assert.Equal(t, Streaks{}, e.Streaks(nil))
	assert.Equal(t, Streaks{}, e.Streaks([]core.Trade{openTrade()}))
}

func TestRatio_JSON(t *testing.T) {
	data, err := json.Marshal(map[string]Ratio{"inf": Ratio(math.Inf(1)), "n": 1.5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"inf":"Infinity","n":1.5}`, string(data))

	var back map[string]Ratio
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, math.IsInf(float64(back["inf"]), 1))
	assert.Equal(t, Ratio(1.5), back["n"])

	nan, err := json.Marshal(Ratio(math.NaN()))
	require.NoError(t, err)
	assert.Equal(t, "null", string(nan))
}
