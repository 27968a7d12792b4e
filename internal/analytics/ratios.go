package analytics

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"github.com/newthinker/tradelog/internal/core"
)

// Ratio is a float that survives JSON encoding when it is infinite.
type Ratio float64

// MarshalJSON encodes infinities as "Infinity" / "-Infinity" and NaN as null.
func (r Ratio) MarshalJSON() ([]byte, error) {
	f := float64(r)
	switch {
	case math.IsInf(f, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Infinity"`), nil
	case math.IsNaN(f):
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// UnmarshalJSON accepts numbers, null and the strings written by MarshalJSON.
func (r *Ratio) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Ratio(math.NaN())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch s {
		case "Infinity":
			*r = Ratio(math.Inf(1))
			return nil
		case "-Infinity":
			*r = Ratio(math.Inf(-1))
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*r = Ratio(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*r = Ratio(f)
	return nil
}

// WinLoss holds the average winning and losing trade.
type WinLoss struct {
	AvgWin  float64 `json:"avgWin"`
	AvgLoss float64 `json:"avgLoss"`
}

// Streaks holds the longest consecutive runs of wins and losses.
type Streaks struct {
	LongestWin  int `json:"longestWin"`
	LongestLoss int `json:"longestLoss"`
}

// closedPnL returns the money result of every closed trade.
func (e *Engine) closedPnL(trades []core.Trade) []float64 {
	out := make([]float64, 0, len(trades))
	for _, t := range trades {
		if t.IsClosed() {
			out = append(out, e.pnl(t))
		}
	}
	return out
}

// ProfitFactor divides gross profit by gross loss. With no losses it is
// +Inf when there is any profit and 0 otherwise.
func (e *Engine) ProfitFactor(trades []core.Trade) float64 {
	var grossProfit, grossLoss float64
	for _, p := range e.closedPnL(trades) {
		if p > 0 {
			grossProfit += p
		} else if p < 0 {
			grossLoss += -p
		}
	}
	if grossLoss == 0 {
		if grossProfit > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return grossProfit / grossLoss
}

// WinRate is the fraction of closed trades with positive P&L.
func (e *Engine) WinRate(trades []core.Trade) float64 {
	pnls := e.closedPnL(trades)
	if len(pnls) == 0 {
		return 0
	}
	var wins int
	for _, p := range pnls {
		if p > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(pnls))
}

// AverageWinLoss averages winners and the absolute value of losers
// independently.
func (e *Engine) AverageWinLoss(trades []core.Trade) WinLoss {
	var winSum, lossSum float64
	var wins, losses int
	for _, p := range e.closedPnL(trades) {
		switch {
		case p > 0:
			winSum += p
			wins++
		case p < 0:
			lossSum += -p
			losses++
		}
	}

	var wl WinLoss
	if wins > 0 {
		wl.AvgWin = winSum / float64(wins)
	}
	if losses > 0 {
		wl.AvgLoss = lossSum / float64(losses)
	}
	return wl
}

// AverageRR averages reward/risk over closed trades with a stop loss.
// Trades with zero risk or a zero ratio are left out.
func (e *Engine) AverageRR(trades []core.Trade) float64 {
	var sum float64
	var n int
	for _, t := range trades {
		if !t.IsClosed() || !t.StopLoss.Valid {
			continue
		}
		risk := t.Entry.Sub(t.StopLoss.Decimal).Abs()
		if !risk.IsPositive() {
			continue
		}
		reward := t.Exit.Decimal.Sub(t.Entry).Abs()
		ratio := reward.Div(risk).InexactFloat64()
		if ratio == 0 {
			continue
		}
		sum += ratio
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// periodReturns returns simple returns between consecutive points.
// A zero prior balance yields a zero return.
func periodReturns(points []EquityPoint) []float64 {
	if len(points) < 2 {
		return nil
	}
	out := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		prev := points[i-1].Balance
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (points[i].Balance-prev)/prev)
	}
	return out
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// SharpeRatio is (mean return - riskFree) / population stddev of returns.
// It is not annualized.
func SharpeRatio(points []EquityPoint, riskFreeRate float64) float64 {
	returns := periodReturns(points)
	if len(returns) == 0 {
		return 0
	}

	m := mean(returns)
	var variance float64
	for _, r := range returns {
		variance += (r - m) * (r - m)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)))
	if stdDev == 0 {
		return 0
	}
	return (m - riskFreeRate) / stdDev
}

// SortinoRatio uses the downside deviation of negative returns as the
// denominator. The squared negatives are divided by the count of all
// returns, not only the negative ones.
func SortinoRatio(points []EquityPoint, riskFreeRate float64) float64 {
	returns := periodReturns(points)
	if len(returns) == 0 {
		return 0
	}

	var downside float64
	for _, r := range returns {
		if r < 0 {
			downside += r * r
		}
	}
	dd := math.Sqrt(downside / float64(len(returns)))
	if dd == 0 {
		return 0
	}
	return (mean(returns) - riskFreeRate) / dd
}

// Streaks finds the longest run of wins and of losses in exit order.
// Break-even trades count as losses.
func (e *Engine) Streaks(trades []core.Trade) Streaks {
	closed := make([]core.Trade, 0, len(trades))
	for _, t := range trades {
		if t.IsClosed() {
			closed = append(closed, t)
		}
	}
	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].ClosedAt().Before(closed[j].ClosedAt())
	})

	var s Streaks
	var wins, losses int
	for _, t := range closed {
		if e.pnl(t) > 0 {
			wins++
			losses = 0
		} else {
			losses++
			wins = 0
		}
		s.LongestWin = max(s.LongestWin, wins)
		s.LongestLoss = max(s.LongestLoss, losses)
	}
	return s
}
