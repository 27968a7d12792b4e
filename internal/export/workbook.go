// Package export renders analytics reports as Excel workbooks.
package export

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/newthinker/tradelog/internal/analytics"
	"github.com/newthinker/tradelog/internal/core"
	"github.com/newthinker/tradelog/internal/currency"
	"github.com/xuri/excelize/v2"
)

// Sheet names in workbook order.
const (
	SheetSummary    = "Summary"
	SheetEquity     = "Equity"
	SheetDrawdown   = "Drawdown"
	SheetHourly     = "Hourly"
	SheetDaily      = "Daily"
	SheetStrategies = "Strategies"
	SheetHeatmap    = "Heatmap"
)

// Sheets lists every sheet WriteWorkbook produces.
var Sheets = []string{SheetSummary, SheetEquity, SheetDrawdown, SheetHourly, SheetDaily, SheetStrategies, SheetHeatmap}

const timeLayout = "2006-01-02 15:04"

// WriteWorkbook renders report into an .xlsx workbook written to w.
// Money columns carry raw numbers; the Summary sheet adds a display column
// formatted in currencyCode.
func WriteWorkbook(w io.Writer, report analytics.Report, currencyCode string) error {
	if currencyCode == "" {
		currencyCode = report.Currency
	}

	f := excelize.NewFile()
	defer f.Close()

	b := &builder{f: f}
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return core.WrapError(core.ErrExportFailed, err)
	}
	for _, name := range Sheets[1:] {
		if _, err := f.NewSheet(name); err != nil {
			return core.WrapError(core.ErrExportFailed, fmt.Errorf("creating sheet %s: %w", name, err))
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return core.WrapError(core.ErrExportFailed, err)
	}
	b.header = header

	b.summary(report, currencyCode)
	b.equity(report.EquityCurve)
	b.drawdown(report.Drawdown)
	b.hourly(report.Hourly)
	b.daily(report.Daily)
	b.strategies(report.Strategies)
	b.heatmap(report.Heatmap)
	if b.err != nil {
		return core.WrapError(core.ErrExportFailed, b.err)
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return core.WrapError(core.ErrExportFailed, fmt.Errorf("writing workbook: %w", err))
	}
	return nil
}

// builder keeps the first error so sheet writers stay linear.
type builder struct {
	f      *excelize.File
	header int
	err    error
}

func (b *builder) row(sheet string, rowNum int, values ...any) {
	if b.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		b.err = err
		return
	}
	if err := b.f.SetSheetRow(sheet, cell, &values); err != nil {
		b.err = fmt.Errorf("sheet %s row %d: %w", sheet, rowNum, err)
	}
}

func (b *builder) headerRow(sheet string, values ...any) {
	b.row(sheet, 1, values...)
	if b.err != nil {
		return
	}
	last, err := excelize.CoordinatesToCellName(len(values), 1)
	if err != nil {
		b.err = err
		return
	}
	if err := b.f.SetCellStyle(sheet, "A1", last, b.header); err != nil {
		b.err = err
	}
}

func (b *builder) summary(r analytics.Report, code string) {
	const s = SheetSummary
	b.headerRow(s, "Metric", "Value", "Display")

	money := func(v float64) string { return currency.Format(v, code) }
	rows := [][]any{
		{"Generated", r.GeneratedAt.Format(time.RFC3339), ""},
		{"Currency", code, ""},
		{"Starting balance", r.StartingBalance, money(r.StartingBalance)},
		{"Final balance", r.FinalBalance, money(r.FinalBalance)},
		{"Net profit", r.NetProfit, money(r.NetProfit)},
		{"Total trades", r.TotalTrades, ""},
		{"Closed trades", r.ClosedTrades, ""},
		{"Open trades", r.OpenTrades, ""},
		{"Win rate %", r.WinRate * 100, fmt.Sprintf("%.2f%%", r.WinRate*100)},
		{"Profit factor", ratioCell(r.ProfitFactor), ""},
		{"Average win", r.AverageWin, money(r.AverageWin)},
		{"Average loss", r.AverageLoss, money(r.AverageLoss)},
		{"Average R:R", r.AverageRR, ""},
		{"Sharpe ratio", r.SharpeRatio, ""},
		{"Sortino ratio", r.SortinoRatio, ""},
		{"Max drawdown %", r.MaxDrawdown, fmt.Sprintf("%.2f%%", r.MaxDrawdown)},
		{"Longest win streak", r.Streaks.LongestWin, ""},
		{"Longest loss streak", r.Streaks.LongestLoss, ""},
	}
	for i, row := range rows {
		b.row(s, i+2, row...)
	}
}

func (b *builder) equity(points []analytics.EquityPoint) {
	b.headerRow(SheetEquity, "Time", "Balance")
	for i, p := range points {
		b.row(SheetEquity, i+2, p.Time.Format(timeLayout), p.Balance)
	}
}

func (b *builder) drawdown(dd analytics.DrawdownResult) {
	b.headerRow(SheetDrawdown, "Time", "Drawdown %", "Max drawdown %")
	for i, p := range dd.Series {
		if i == 0 {
			b.row(SheetDrawdown, 2, p.Time.Format(timeLayout), p.Drawdown, dd.MaxDrawdown)
			continue
		}
		b.row(SheetDrawdown, i+2, p.Time.Format(timeLayout), p.Drawdown)
	}
}

func (b *builder) hourly(buckets []analytics.HourBucket) {
	b.headerRow(SheetHourly, "Hour", "P&L", "Trades", "% of total")
	for i, h := range buckets {
		b.row(SheetHourly, i+2, fmt.Sprintf("%02d:00", h.Hour), h.PnL, h.Trades, h.PercentOfTotal)
	}
}

func (b *builder) daily(days []analytics.DayBucket) {
	b.headerRow(SheetDaily, "Date", "Day", "P&L", "Trades")
	for i, d := range days {
		b.row(SheetDaily, i+2, d.ISODate, d.Date, d.PnL, d.Trades)
	}
}

func (b *builder) strategies(stats []analytics.StrategyStats) {
	b.headerRow(SheetStrategies, "Strategy", "Trades", "Profit", "Win rate %", "Final balance")
	for i, s := range stats {
		final := 0.0
		if n := len(s.EquitySeries); n > 0 {
			final = s.EquitySeries[n-1].Balance
		}
		b.row(SheetStrategies, i+2, s.Strategy, s.Trades, s.Profit, s.WinRate*100, final)
	}
}

var weekdays = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// heatmap writes the P&L matrix and, below a blank row, the trade counts.
func (b *builder) heatmap(h analytics.Heatmap) {
	hdr := make([]any, 0, 25)
	hdr = append(hdr, "Weekday")
	for hour := 0; hour < 24; hour++ {
		hdr = append(hdr, hour)
	}
	b.headerRow(SheetHeatmap, hdr...)

	for day := 0; day < 7; day++ {
		row := make([]any, 0, 25)
		row = append(row, weekdays[day])
		for hour := 0; hour < 24; hour++ {
			row = append(row, h.ByWeekdayHour[day][hour])
		}
		b.row(SheetHeatmap, day+2, row...)
	}

	countsStart := 7 + 3
	b.row(SheetHeatmap, countsStart, append([]any{"Trades"}, hdr[1:]...)...)
	for day := 0; day < 7; day++ {
		row := make([]any, 0, 25)
		row = append(row, weekdays[day])
		for hour := 0; hour < 24; hour++ {
			row = append(row, h.Counts[day][hour])
		}
		b.row(SheetHeatmap, countsStart+day+1, row...)
	}
}

// ratioCell keeps infinite profit factors readable in a spreadsheet.
func ratioCell(r analytics.Ratio) any {
	f := float64(r)
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return ""
	}
	return f
}
