package analytics

import (
	"sort"

	"github.com/newthinker/tradelog/internal/core"
)

// Heatmap aggregates P&L by weekday (0 = Sunday) and hour of exit.
type Heatmap struct {
	ByWeekdayHour [7][24]float64 `json:"byWeekdayHour"`
	Counts        [7][24]int     `json:"counts"`
}

// HourBucket is the P&L of trades exiting in one hour of the day.
type HourBucket struct {
	Hour           int     `json:"hour"`
	PnL            float64 `json:"pnl"`
	Trades         int     `json:"trades"`
	PercentOfTotal float64 `json:"percentOfTotal"`
}

// DayBucket is the P&L of trades exiting on one calendar day.
type DayBucket struct {
	Date    string  `json:"date"`
	ISODate string  `json:"isoDate"`
	PnL     float64 `json:"pnl"`
	Trades  int     `json:"trades"`
}

// StrategyStats summarizes the closed trades of one strategy.
type StrategyStats struct {
	Strategy     string        `json:"strategy"`
	Trades       int           `json:"trades"`
	Profit       float64       `json:"profit"`
	WinRate      float64       `json:"winRate"`
	EquitySeries []EquityPoint `json:"equitySeries"`
}

// Heatmap buckets every trade with an exit timestamp. Trades without an
// exit price are counted with zero P&L.
func (e *Engine) Heatmap(trades []core.Trade) Heatmap {
	var h Heatmap
	for _, t := range trades {
		if !t.HasExitTime() {
			continue
		}
		at := t.ExitTimestamp.In(e.cfg.Location)
		wd, hr := int(at.Weekday()), at.Hour()
		h.ByWeekdayHour[wd][hr] += e.pnl(t)
		h.Counts[wd][hr]++
	}
	return h
}

// HourlySummary returns all 24 hour buckets sorted by P&L, best first.
// PercentOfTotal is each bucket's share of the total positive P&L.
func (e *Engine) HourlySummary(trades []core.Trade) []HourBucket {
	buckets := make([]HourBucket, 24)
	for i := range buckets {
		buckets[i].Hour = i
	}

	for _, t := range trades {
		if !t.HasExitTime() {
			continue
		}
		hr := t.ExitTimestamp.In(e.cfg.Location).Hour()
		buckets[hr].PnL += e.pnl(t)
		buckets[hr].Trades++
	}

	var totalPositive float64
	for _, b := range buckets {
		totalPositive += max(0, b.PnL)
	}
	if totalPositive > 0 {
		for i := range buckets {
			buckets[i].PercentOfTotal = max(0, buckets[i].PnL) / totalPositive * 100
		}
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].PnL > buckets[j].PnL
	})
	return buckets
}

// DailySummary groups trades by exit date, most recent day first.
func (e *Engine) DailySummary(trades []core.Trade) []DayBucket {
	index := make(map[string]int)
	var days []DayBucket

	for _, t := range trades {
		if !t.HasExitTime() {
			continue
		}
		at := t.ExitTimestamp.In(e.cfg.Location)
		key := at.Format("2006-01-02")

		i, ok := index[key]
		if !ok {
			i = len(days)
			index[key] = i
			days = append(days, DayBucket{Date: at.Format("Jan 2"), ISODate: key})
		}
		days[i].PnL += e.pnl(t)
		days[i].Trades++
	}

	sort.Slice(days, func(i, j int) bool {
		return days[i].ISODate > days[j].ISODate
	})
	if days == nil {
		return []DayBucket{}
	}
	return days
}

// StrategyBreakdown groups trades by strategy label in first-seen order.
// Strategies without any closed trade are omitted.
func (e *Engine) StrategyBreakdown(trades []core.Trade) []StrategyStats {
	var order []string
	groups := make(map[string][]core.Trade)
	for _, t := range trades {
		label := t.StrategyLabel()
		if _, ok := groups[label]; !ok {
			order = append(order, label)
		}
		groups[label] = append(groups[label], t)
	}

	out := make([]StrategyStats, 0, len(order))
	for _, label := range order {
		var closed []core.Trade
		for _, t := range groups[label] {
			if t.IsClosed() {
				closed = append(closed, t)
			}
		}
		if len(closed) == 0 {
			continue
		}

		var profit float64
		var wins int
		for _, t := range closed {
			p := e.pnl(t)
			profit += p
			if p > 0 {
				wins++
			}
		}

		out = append(out, StrategyStats{
			Strategy:     label,
			Trades:       len(closed),
			Profit:       profit,
			WinRate:      float64(wins) / float64(len(closed)),
			EquitySeries: e.EquityCurve(closed),
		})
	}
	return out
}
