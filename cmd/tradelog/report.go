package main

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"

	"github.com/newthinker/tradelog/internal/analytics"
	"github.com/newthinker/tradelog/internal/currency"
	"github.com/newthinker/tradelog/internal/export"
	"github.com/newthinker/tradelog/internal/logger"
	"github.com/newthinker/tradelog/internal/storage/archive"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	reportFile     string
	reportXLSX     string
	reportArchive  string
	reportCurrency string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Compute the analytics report",
	Long: `Report computes every dashboard metric over the journal and prints a
summary. Trades come from --file when given, otherwise from the store.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportFile, "file", "", "JSON trade file instead of the store")
	reportCmd.Flags().StringVar(&reportXLSX, "xlsx", "", "write an Excel workbook to this path")
	reportCmd.Flags().StringVar(&reportArchive, "archive", "", "archive a snapshot under this label")
	reportCmd.Flags().StringVar(&reportCurrency, "currency", "", "account currency override")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg, log)
	if err != nil {
		return err
	}

	trades, err := loadTrades(cmd.Context(), cfg, reportFile, log)
	if err != nil {
		return err
	}

	engine, err = engine.WithAccountCurrency(reportCurrency)
	if err != nil {
		return err
	}
	report := engine.Report(trades)
	printReport(os.Stdout, report)

	var workbook []byte
	if reportXLSX != "" || reportArchive != "" {
		var buf bytes.Buffer
		if err := export.WriteWorkbook(&buf, report, report.Currency); err != nil {
			return err
		}
		workbook = buf.Bytes()
	}

	if reportXLSX != "" {
		if err := os.WriteFile(reportXLSX, workbook, 0o644); err != nil {
			return fmt.Errorf("writing workbook: %w", err)
		}
		log.Info("workbook written", zap.String("path", reportXLSX))
	}

	if reportArchive != "" {
		backend, err := archive.New(cfg.Storage.Archive)
		if err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}
		snap, err := archive.NewArchiver(backend, logger.Component(log, "archive")).
			SaveReport(cmd.Context(), report, reportArchive, workbook)
		if err != nil {
			return err
		}
		fmt.Printf("\nArchived: %s\n", snap.Path)
	}

	return nil
}

func printReport(out io.Writer, r analytics.Report) {
	money := func(v float64) string { return currency.Format(v, r.Currency) }

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "=== tradelog Report ===")
	fmt.Fprintf(w, "Trades:\t%d (%d closed, %d open)\n", r.TotalTrades, r.ClosedTrades, r.OpenTrades)
	fmt.Fprintf(w, "Starting balance:\t%s\n", money(r.StartingBalance))
	fmt.Fprintf(w, "Final balance:\t%s\n", money(r.FinalBalance))
	fmt.Fprintf(w, "Net profit:\t%s\n", money(r.NetProfit))
	fmt.Fprintf(w, "Win rate:\t%.1f%%\n", r.WinRate*100)
	fmt.Fprintf(w, "Profit factor:\t%s\n", formatRatio(float64(r.ProfitFactor)))
	fmt.Fprintf(w, "Average win / loss:\t%s / %s\n", money(r.AverageWin), money(r.AverageLoss))
	fmt.Fprintf(w, "Average R:R:\t%.2f\n", r.AverageRR)
	fmt.Fprintf(w, "Sharpe / Sortino:\t%.2f / %.2f\n", r.SharpeRatio, r.SortinoRatio)
	fmt.Fprintf(w, "Max drawdown:\t%.2f%%\n", r.MaxDrawdown)
	fmt.Fprintf(w, "Streaks:\t%d wins, %d losses\n", r.Streaks.LongestWin, r.Streaks.LongestLoss)

	if len(r.Strategies) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Strategy\tTrades\tProfit\tWin rate")
		for _, s := range r.Strategies {
			fmt.Fprintf(w, "%s\t%d\t%s\t%.1f%%\n", s.Strategy, s.Trades, money(s.Profit), s.WinRate*100)
		}
	}
}

func formatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "Infinity"
	}
	return fmt.Sprintf("%.2f", v)
}
