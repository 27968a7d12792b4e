package trade

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/newthinker/tradelog/internal/core"
)

// MemoryStore is an in-memory trade store.
type MemoryStore struct {
	trades []core.Trade
	mu     sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{trades: make([]core.Trade, 0)}
}

// Save adds or replaces a trade.
func (m *MemoryStore) Save(ctx context.Context, trade *core.Trade) error {
	if err := validateForSave(trade); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if trade.ID == "" {
		trade.ID = uuid.NewString()
	}

	stored := cloneTrade(*trade)
	for i := range m.trades {
		if m.trades[i].ID == trade.ID {
			m.trades[i] = stored
			return nil
		}
	}
	m.trades = append(m.trades, stored)
	return nil
}

// Get retrieves a trade by ID.
func (m *MemoryStore) Get(ctx context.Context, id string) (*core.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.trades {
		if m.trades[i].ID == id {
			t := cloneTrade(m.trades[i])
			return &t, nil
		}
	}
	return nil, core.ErrTradeNotFound
}

// List returns trades matching the filter.
func (m *MemoryStore) List(ctx context.Context, filter ListFilter) ([]core.Trade, error) {
	m.mu.RLock()
	result := make([]core.Trade, 0)
	for _, t := range m.trades {
		if matches(t, filter) {
			result = append(result, cloneTrade(t))
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	// Apply offset and limit
	if filter.Offset > 0 && filter.Offset < len(result) {
		result = result[filter.Offset:]
	} else if filter.Offset >= len(result) && filter.Offset > 0 {
		return []core.Trade{}, nil
	}

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// Count returns the count of matching trades.
func (m *MemoryStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, t := range m.trades {
		if matches(t, filter) {
			count++
		}
	}
	return count, nil
}

// Delete removes a trade by ID.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.trades {
		if m.trades[i].ID == id {
			m.trades = append(m.trades[:i], m.trades[i+1:]...)
			return nil
		}
	}
	return core.ErrTradeNotFound
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

func matches(t core.Trade, filter ListFilter) bool {
	if filter.Symbol != "" && t.Symbol != filter.Symbol {
		return false
	}
	if filter.Strategy != "" && t.StrategyLabel() != filter.Strategy {
		return false
	}
	if filter.InstrumentType != "" && t.InstrumentType != filter.InstrumentType {
		return false
	}
	if !filter.From.IsZero() && t.Timestamp.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && t.Timestamp.After(filter.To) {
		return false
	}
	return true
}

// cloneTrade detaches the exit timestamp pointer from the stored copy.
func cloneTrade(t core.Trade) core.Trade {
	if t.ExitTimestamp != nil {
		ts := *t.ExitTimestamp
		t.ExitTimestamp = &ts
	}
	return t
}
