package analytics

import (
	"testing"
	"time"

	"github.com/newthinker/tradelog/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEquityCurve_Empty(t *testing.T) {
	e := newTestEngine()

	points := e.EquityCurve(nil)

	require.Len(t, points, 1)
	assert.Equal(t, fixedNow, points[0].Time)
	assert.Equal(t, 10000.0, points[0].Balance)
}

func TestEquityCurve_OnlyOpenTrades(t *testing.T) {
	e := newTestEngine()
	points := e.EquityCurveFrom([]core.Trade{openTrade()}, 2500)
	require.Len(t, points, 1)
	assert.Equal(t, 2500.0, points[0].Balance)
}

func TestEquityCurve_SortsAndFilters(t *testing.T) {
	e := newTestEngine()

	noExitTime := pnlTrade(1000, nil)
	trades := []core.Trade{
		pnlTrade(100, march(3, 10, 0)),
		noExitTime,
		pnlTrade(-50, march(1, 10, 0)),
		openTrade(),
	}

	points := e.EquityCurveFrom(trades, 1000)

	require.Len(t, points, 3)
	assert.Equal(t, *march(1, 10, 0), points[0].Time, "initial point at earliest exit")
	assert.Equal(t, 1000.0, points[0].Balance)
	assert.Equal(t, 950.0, points[1].Balance)
	assert.Equal(t, *march(3, 10, 0), points[2].Time)
	assert.Equal(t, 1050.0, points[2].Balance)
}

func TestEquityCurve_ClampsAtZero(t *testing.T) {
	e := newTestEngine()
	trades := []core.Trade{
		pnlTrade(-300, march(1, 9, 0)),
		pnlTrade(50, march(2, 9, 0)),
	}

	points := e.EquityCurveFrom(trades, 100)

	require.Len(t, points, 3)
	assert.Equal(t, []float64{100, 0, 50}, balances(points))
	for _, p := range points {
		assert.GreaterOrEqual(t, p.Balance, 0.0)
	}
}

func TestEquityCurve_UsesConfiguredStartingBalance(t *testing.T) {
	e := newTestEngine()
	points := e.EquityCurve([]core.Trade{pnlTrade(250, march(1, 9, 0))})
	assert.Equal(t, []float64{10000, 10250}, balances(points))
}

func TestDrawdowns(t *testing.T) {
	points := equityOf(100, 120, 90, 130, 65)

	dd := Drawdowns(points)

	require.Len(t, dd.Series, 5)
	want := []float64{0, 0, 25, 0, 50}
	for i, p := range dd.Series {
		assert.InDelta(t, want[i], p.Drawdown, 1e-9, "point %d", i)
		assert.Equal(t, points[i].Time, p.Time)
	}
	assert.InDelta(t, 50, dd.MaxDrawdown, 1e-9)
}

func TestDrawdowns_Empty(t *testing.T) {
	dd := Drawdowns(nil)
	assert.Empty(t, dd.Series)
	assert.NotNil(t, dd.Series)
	assert.Equal(t, 0.0, dd.MaxDrawdown)
}

func TestDrawdowns_ZeroPeak(t *testing.T) {
	dd := Drawdowns(equityOf(0, 0, 0))
	assert.Equal(t, 0.0, dd.MaxDrawdown)
}

func TestDrawdowns_Bounds(t *testing.T) {
	dd := Drawdowns(equityOf(500, 0, 200, 1000, 10, 1000))
	for _, p := range dd.Series {
		assert.GreaterOrEqual(t, p.Drawdown, 0.0)
		assert.LessOrEqual(t, p.Drawdown, 100.0)
		assert.GreaterOrEqual(t, dd.MaxDrawdown, p.Drawdown)
	}
	assert.InDelta(t, 100, dd.MaxDrawdown, 1e-9)
}

func TestDrawdowns_MonotonicCurveHasNoDrawdown(t *testing.T) {
	e := newTestEngine()
	trades := []core.Trade{
		pnlTrade(10, march(1, 9, 0)),
		pnlTrade(0, march(2, 9, 0)),
		pnlTrade(35, march(3, 9, 0)),
	}

	dd := Drawdowns(e.EquityCurve(trades))
	assert.Equal(t, 0.0, dd.MaxDrawdown)
}

func balances(points []EquityPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Balance
	}
	return out
}

func equityOf(values ...float64) []EquityPoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]EquityPoint, len(values))
	for i, v := range values {
		points[i] = EquityPoint{Time: start.AddDate(0, 0, i), Balance: v}
	}
	return points
}
