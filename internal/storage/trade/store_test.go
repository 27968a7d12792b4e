package trade

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/tradelog/internal/config"
	"github.com/newthinker/tradelog/internal/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var base = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func closedTrade(symbol string, hoursIn int, strategy string) *core.Trade {
	entry := base.Add(time.Duration(hoursIn) * time.Hour)
	exit := entry.Add(30 * time.Minute)
	return &core.Trade{
		Symbol:         symbol,
		InstrumentType: core.InstrumentStock,
		Side:           core.SideBuy,
		Entry:          decimal.RequireFromString("100.25"),
		Exit:           decimal.NewNullDecimal(decimal.RequireFromString("101.125")),
		Volume:         decimal.NewFromInt(10),
		Fees:           decimal.RequireFromString("0.5"),
		Timestamp:      entry,
		ExitTimestamp:  &exit,
		Strategy:       strategy,
	}
}

// runStoreSuite exercises the behavior every backend shares.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("SaveAssignsIDAndRoundTrips", func(t *testing.T) {
		store := newStore(t)
		tr := closedTrade("AAPL", 0, "breakout")
		tr.StopLoss = decimal.NewNullDecimal(decimal.RequireFromString("99.5"))
		tr.Notes = "gap fill"

		require.NoError(t, store.Save(ctx, tr))
		require.NotEmpty(t, tr.ID)

		got, err := store.Get(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, "AAPL", got.Symbol)
		assert.Equal(t, core.InstrumentStock, got.InstrumentType)
		assert.Equal(t, core.SideBuy, got.Side)
		assert.True(t, got.Entry.Equal(tr.Entry), "entry %s", got.Entry)
		require.True(t, got.Exit.Valid)
		assert.True(t, got.Exit.Decimal.Equal(tr.Exit.Decimal), "exit %s", got.Exit.Decimal)
		require.True(t, got.StopLoss.Valid)
		assert.True(t, got.StopLoss.Decimal.Equal(decimal.RequireFromString("99.5")))
		assert.True(t, got.Volume.Equal(decimal.NewFromInt(10)))
		assert.True(t, got.Fees.Equal(decimal.RequireFromString("0.5")))
		assert.True(t, got.Timestamp.Equal(tr.Timestamp))
		require.NotNil(t, got.ExitTimestamp)
		assert.True(t, got.ExitTimestamp.Equal(*tr.ExitTimestamp))
		assert.Equal(t, "breakout", got.Strategy)
		assert.Equal(t, "gap fill", got.Notes)
	})

	t.Run("OpenTradeKeepsNullExit", func(t *testing.T) {
		store := newStore(t)
		tr := closedTrade("EURUSD", 0, "")
		tr.Exit = decimal.NullDecimal{}
		tr.ExitTimestamp = nil

		require.NoError(t, store.Save(ctx, tr))
		got, err := store.Get(ctx, tr.ID)
		require.NoError(t, err)
		assert.False(t, got.Exit.Valid)
		assert.False(t, got.StopLoss.Valid)
		assert.Nil(t, got.ExitTimestamp)
	})

	t.Run("SaveWithIDReplaces", func(t *testing.T) {
		store := newStore(t)
		tr := closedTrade("AAPL", 0, "breakout")
		require.NoError(t, store.Save(ctx, tr))

		tr.Notes = "edited"
		tr.Exit = decimal.NewNullDecimal(decimal.NewFromInt(105))
		require.NoError(t, store.Save(ctx, tr))

		n, err := store.Count(ctx, ListFilter{})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		got, err := store.Get(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, "edited", got.Notes)
		assert.True(t, got.Exit.Decimal.Equal(decimal.NewFromInt(105)))
	})

	t.Run("GetMissing", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(ctx, "does-not-exist")
		assert.ErrorIs(t, err, core.ErrTradeNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore(t)
		tr := closedTrade("AAPL", 0, "")
		require.NoError(t, store.Save(ctx, tr))

		require.NoError(t, store.Delete(ctx, tr.ID))
		_, err := store.Get(ctx, tr.ID)
		assert.ErrorIs(t, err, core.ErrTradeNotFound)
		assert.ErrorIs(t, store.Delete(ctx, tr.ID), core.ErrTradeNotFound)
	})

	t.Run("ListOrdersByEntryAndFilters", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Save(ctx, closedTrade("MSFT", 5, "swing")))
		require.NoError(t, store.Save(ctx, closedTrade("AAPL", 1, "breakout")))
		require.NoError(t, store.Save(ctx, closedTrade("AAPL", 3, "")))
		fx := closedTrade("EURUSD", 2, "breakout")
		fx.InstrumentType = core.InstrumentForex
		require.NoError(t, store.Save(ctx, fx))

		all, err := store.List(ctx, ListFilter{})
		require.NoError(t, err)
		require.Len(t, all, 4)
		for i := 1; i < len(all); i++ {
			assert.False(t, all[i].Timestamp.Before(all[i-1].Timestamp), "list not ordered by entry")
		}
		assert.Equal(t, "AAPL", all[0].Symbol)
		assert.Equal(t, "MSFT", all[3].Symbol)

		bySymbol, err := store.List(ctx, ListFilter{Symbol: "AAPL"})
		require.NoError(t, err)
		assert.Len(t, bySymbol, 2)

		byStrategy, err := store.List(ctx, ListFilter{Strategy: "breakout"})
		require.NoError(t, err)
		assert.Len(t, byStrategy, 2)

		uncategorized, err := store.List(ctx, ListFilter{Strategy: core.DefaultStrategy})
		require.NoError(t, err)
		require.Len(t, uncategorized, 1)
		assert.Equal(t, "AAPL", uncategorized[0].Symbol)

		byType, err := store.List(ctx, ListFilter{InstrumentType: core.InstrumentForex})
		require.NoError(t, err)
		require.Len(t, byType, 1)
		assert.Equal(t, "EURUSD", byType[0].Symbol)

		window, err := store.List(ctx, ListFilter{From: base.Add(2 * time.Hour), To: base.Add(3 * time.Hour)})
		require.NoError(t, err)
		assert.Len(t, window, 2)

		n, err := store.Count(ctx, ListFilter{Symbol: "AAPL"})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("ListPaginates", func(t *testing.T) {
		store := newStore(t)
		for i := 0; i < 5; i++ {
			require.NoError(t, store.Save(ctx, closedTrade("AAPL", i, "")))
		}

		page, err := store.List(ctx, ListFilter{Limit: 2, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.True(t, page[0].Timestamp.Equal(base.Add(time.Hour)))

		tail, err := store.List(ctx, ListFilter{Offset: 3})
		require.NoError(t, err)
		assert.Len(t, tail, 2)

		empty, err := store.List(ctx, ListFilter{Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("SaveNil", func(t *testing.T) {
		store := newStore(t)
		assert.ErrorIs(t, store.Save(ctx, nil), core.ErrInvalidTrade)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	tr := closedTrade("AAPL", 0, "")
	require.NoError(t, store.Save(ctx, tr))

	got, err := store.Get(ctx, tr.ID)
	require.NoError(t, err)
	got.Symbol = "MUTATED"
	*got.ExitTimestamp = time.Time{}

	again, err := store.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", again.Symbol)
	assert.False(t, again.ExitTimestamp.IsZero())
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "trades.db"), zap.NewNop())
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		return store
	})
}

func TestSQLiteStore_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "trades.db")
	store, err := NewSQLiteStore(path, nil)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path, nil)
	require.NoError(t, err)
	tr := closedTrade("AAPL", 0, "")
	require.NoError(t, store.Save(ctx, tr))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", got.Symbol)
}

// Postgres runs only against a real server.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TRADELOG_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TRADELOG_TEST_POSTGRES_DSN not set")
	}

	runStoreSuite(t, func(t *testing.T) Store {
		store, err := NewPostgresStore(dsn, zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, store.db.Exec("TRUNCATE trades").Error)
		t.Cleanup(func() { store.Close() })
		return store
	})
}

func TestNewPostgresStore_RequiresDSN(t *testing.T) {
	_, err := NewPostgresStore("", nil)
	assert.ErrorIs(t, err, core.ErrConfigMissing)
}

func TestOpen(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		store, err := Open(config.StorageConfig{Driver: "memory"}, nil)
		require.NoError(t, err)
		assert.IsType(t, &MemoryStore{}, store)
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := config.StorageConfig{Driver: "sqlite"}
		cfg.SQLite.Path = filepath.Join(t.TempDir(), "trades.db")
		store, err := Open(cfg, zap.NewNop())
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &SQLiteStore{}, store)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Open(config.StorageConfig{Driver: "mongo"}, nil)
		assert.ErrorIs(t, err, core.ErrConfigInvalid)
	})
}
