package analytics

import (
	"time"

	"github.com/newthinker/tradelog/internal/core"
)

// Report holds every dashboard metric for one trade list.
type Report struct {
	GeneratedAt     time.Time `json:"generatedAt"`
	Currency        string    `json:"currency"`
	StartingBalance float64   `json:"startingBalance"`

	TotalTrades  int     `json:"totalTrades"`
	ClosedTrades int     `json:"closedTrades"`
	OpenTrades   int     `json:"openTrades"`
	NetProfit    float64 `json:"netProfit"`
	FinalBalance float64 `json:"finalBalance"`

	ProfitFactor Ratio   `json:"profitFactor"`
	WinRate      float64 `json:"winRate"`
	AverageWin   float64 `json:"avgWin"`
	AverageLoss  float64 `json:"avgLoss"`
	AverageRR    float64 `json:"averageRR"`
	SharpeRatio  float64 `json:"sharpeRatio"`
	SortinoRatio float64 `json:"sortinoRatio"`
	MaxDrawdown  float64 `json:"maxDrawdown"` // percent
	Streaks      Streaks `json:"streaks"`

	EquityCurve []EquityPoint   `json:"equityCurve"`
	Drawdown    DrawdownResult  `json:"drawdown"`
	Heatmap     Heatmap         `json:"heatmap"`
	Hourly      []HourBucket    `json:"hourly"`
	Daily       []DayBucket     `json:"daily"`
	Strategies  []StrategyStats `json:"strategies"`
}

// Report computes every aggregate over trades.
func (e *Engine) Report(trades []core.Trade) Report {
	equity := e.EquityCurve(trades)
	dd := Drawdowns(equity)
	wl := e.AverageWinLoss(trades)

	var closed int
	var net float64
	for _, p := range e.closedPnL(trades) {
		closed++
		net += p
	}

	return Report{
		GeneratedAt:     e.now(),
		Currency:        e.cfg.AccountCurrency,
		StartingBalance: e.cfg.StartingBalance,

		TotalTrades:  len(trades),
		ClosedTrades: closed,
		OpenTrades:   len(trades) - closed,
		NetProfit:    net,
		FinalBalance: equity[len(equity)-1].Balance,

		ProfitFactor: Ratio(e.ProfitFactor(trades)),
		WinRate:      e.WinRate(trades),
		AverageWin:   wl.AvgWin,
		AverageLoss:  wl.AvgLoss,
		AverageRR:    e.AverageRR(trades),
		SharpeRatio:  SharpeRatio(equity, e.cfg.RiskFreeRate),
		SortinoRatio: SortinoRatio(equity, e.cfg.RiskFreeRate),
		MaxDrawdown:  dd.MaxDrawdown,
		Streaks:      e.Streaks(trades),

		EquityCurve: equity,
		Drawdown:    dd,
		Heatmap:     e.Heatmap(trades),
		Hourly:      e.HourlySummary(trades),
		Daily:       e.DailySummary(trades),
		Strategies:  e.StrategyBreakdown(trades),
	}
}
