// Package trade persists journal entries.
package trade

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/tradelog/internal/config"
	"github.com/newthinker/tradelog/internal/core"
	"go.uber.org/zap"
)

// Store defines the interface for trade persistence.
type Store interface {
	// Save persists a trade. An empty ID is assigned a new one; an existing
	// ID replaces the stored record.
	Save(ctx context.Context, trade *core.Trade) error

	// Get retrieves a trade by its ID.
	Get(ctx context.Context, id string) (*core.Trade, error)

	// List retrieves trades matching the filter, oldest entry first.
	List(ctx context.Context, filter ListFilter) ([]core.Trade, error)

	// Count returns the number of trades matching the filter.
	Count(ctx context.Context, filter ListFilter) (int, error)

	// Delete removes a trade by its ID.
	Delete(ctx context.Context, id string) error

	// Close releases the backend.
	Close() error
}

// ListFilter defines criteria for listing trades. From and To bound the
// entry timestamp.
type ListFilter struct {
	Symbol         string
	Strategy       string
	InstrumentType core.InstrumentType
	From           time.Time
	To             time.Time
	Limit          int
	Offset         int
}

// Open creates the store selected by cfg.Driver.
func Open(cfg config.StorageConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg.SQLite.Path, logger)
	case "postgres":
		return NewPostgresStore(cfg.Postgres.DSN, logger)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown storage driver: %s", cfg.Driver))
	}
}

func validateForSave(trade *core.Trade) error {
	if trade == nil {
		return core.WrapError(core.ErrInvalidTrade, fmt.Errorf("trade is nil"))
	}
	return nil
}
