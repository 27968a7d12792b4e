package main

import (
	"fmt"

	"github.com/newthinker/tradelog/internal/journal"
	"github.com/newthinker/tradelog/internal/logger"
	"github.com/newthinker/tradelog/internal/storage/trade"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var importKeepIDs bool

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import trades from a JSON file into the store",
	Long: `Import reads a JSON array of trades, validates every entry and saves
them to the configured store. Without --keep-ids each trade gets a new id.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importKeepIDs, "keep-ids", false, "upsert trades by the ids in the file")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if cfg.Storage.Driver == "memory" {
		log.Warn("storage driver is memory, imported trades will not persist")
	}

	trades, err := journal.ReadFile(args[0], journal.NewValidator())
	if err != nil {
		return fmt.Errorf("reading trades: %w", err)
	}

	store, err := trade.Open(cfg.Storage, logger.Component(log, "store"))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	for i := range trades {
		if !importKeepIDs {
			trades[i].ID = ""
		}
		if err := store.Save(cmd.Context(), &trades[i]); err != nil {
			return fmt.Errorf("saving trade %d (%s): %w", i, trades[i].Symbol, err)
		}
	}

	log.Info("trades imported", zap.Int("count", len(trades)), zap.String("file", args[0]))
	fmt.Printf("Imported %d trades\n", len(trades))
	return nil
}
