package analytics

import (
	"sort"
	"time"

	"github.com/newthinker/tradelog/internal/core"
)

// EquityPoint is the account balance after a closed trade.
type EquityPoint struct {
	Time    time.Time `json:"time"`
	Balance float64   `json:"balance"`
}

// DrawdownPoint is the percentage drop from the running peak.
type DrawdownPoint struct {
	Time     time.Time `json:"time"`
	Drawdown float64   `json:"drawdown"`
}

// DrawdownResult holds the drawdown series and its maximum, in percent.
type DrawdownResult struct {
	Series      []DrawdownPoint `json:"drawdownSeries"`
	MaxDrawdown float64         `json:"maxDrawdown"`
}

// EquityCurve walks closed trades in exit order starting from the
// configured starting balance.
func (e *Engine) EquityCurve(trades []core.Trade) []EquityPoint {
	return e.EquityCurveFrom(trades, e.cfg.StartingBalance)
}

// EquityCurveFrom builds the equity curve from an explicit starting balance.
// Only trades with both an exit price and an exit timestamp take part.
// The balance is floored at zero after every trade.
func (e *Engine) EquityCurveFrom(trades []core.Trade, startingBalance float64) []EquityPoint {
	type closed struct {
		at  time.Time
		pnl float64
	}

	var rows []closed
	for _, t := range trades {
		if !t.IsClosed() || !t.HasExitTime() {
			continue
		}
		rows = append(rows, closed{at: t.ClosedAt(), pnl: e.pnl(t)})
	}

	if len(rows) == 0 {
		return []EquityPoint{{Time: e.now(), Balance: startingBalance}}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].at.Before(rows[j].at)
	})

	points := make([]EquityPoint, 0, len(rows)+1)
	points = append(points, EquityPoint{Time: rows[0].at, Balance: startingBalance})

	balance := startingBalance
	for _, r := range rows {
		balance = max(0, balance+r.pnl)
		points = append(points, EquityPoint{Time: r.at, Balance: balance})
	}
	return points
}

// Drawdowns computes the peak-to-trough decline at every equity point.
func Drawdowns(points []EquityPoint) DrawdownResult {
	result := DrawdownResult{Series: make([]DrawdownPoint, 0, len(points))}
	if len(points) == 0 {
		return result
	}

	var maxDD float64
	peak := points[0].Balance

	for _, p := range points {
		if p.Balance > peak {
			peak = p.Balance
		}
		var dd float64
		if peak > 0 {
			dd = (peak - p.Balance) / peak
		}
		if dd > maxDD {
			maxDD = dd
		}
		result.Series = append(result.Series, DrawdownPoint{Time: p.Time, Drawdown: dd * 100})
	}

	result.MaxDrawdown = maxDD * 100
	return result
}
