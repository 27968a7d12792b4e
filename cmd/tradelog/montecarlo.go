package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/newthinker/tradelog/internal/analytics"
	"github.com/newthinker/tradelog/internal/currency"
	"github.com/newthinker/tradelog/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	mcFile    string
	mcRuns    int
	mcBalance float64
	mcSeed    uint64
)

var monteCarloCmd = &cobra.Command{
	Use:   "montecarlo",
	Short: "Project final balances by resampling closed trades",
	RunE:  runMonteCarlo,
}

func init() {
	monteCarloCmd.Flags().StringVar(&mcFile, "file", "", "JSON trade file instead of the store")
	monteCarloCmd.Flags().IntVar(&mcRuns, "runs", 0, "number of simulations (default from config)")
	monteCarloCmd.Flags().Float64Var(&mcBalance, "balance", 0, "starting balance (default from config)")
	monteCarloCmd.Flags().Uint64Var(&mcSeed, "seed", 0, "random seed for reproducible runs")
	rootCmd.AddCommand(monteCarloCmd)
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	if mcRuns < 0 || mcBalance < 0 {
		return fmt.Errorf("runs and balance cannot be negative")
	}

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg, log)
	if err != nil {
		return err
	}

	trades, err := loadTrades(cmd.Context(), cfg, mcFile, log)
	if err != nil {
		return err
	}

	opts := analytics.MonteCarloOptions{
		Simulations:     mcRuns,
		StartingBalance: mcBalance,
	}
	if cmd.Flags().Changed("seed") {
		opts.Rand = analytics.NewSeededRandFactory(mcSeed)
	}

	result, err := engine.MonteCarlo(cmd.Context(), trades, opts)
	if err != nil {
		return err
	}
	log.Debug("monte carlo finished", zap.Int("simulations", result.Simulations))

	code := engine.Config().AccountCurrency
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "=== Monte Carlo ===")
	fmt.Fprintf(w, "Simulations:\t%d\n", result.Simulations)
	fmt.Fprintf(w, "P10:\t%s\n", currency.Format(result.Percentiles.P10, code))
	fmt.Fprintf(w, "P50:\t%s\n", currency.Format(result.Percentiles.P50, code))
	fmt.Fprintf(w, "P90:\t%s\n", currency.Format(result.Percentiles.P90, code))
	fmt.Fprintf(w, "Risk of ruin:\t%.2f%%\n", result.RuinProbability*100)
	return nil
}
