package trade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/tradelog/internal/core"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// tradeRecord is the gorm model behind PostgresStore.
type tradeRecord struct {
	ID             string              `gorm:"primaryKey;type:text"`
	Symbol         string              `gorm:"index;not null"`
	InstrumentType string              `gorm:"not null"`
	Side           string              `gorm:"not null"`
	Entry          decimal.Decimal     `gorm:"type:numeric;not null"`
	ExitPrice      decimal.NullDecimal `gorm:"type:numeric"`
	StopLoss       decimal.NullDecimal `gorm:"type:numeric"`
	Lot            decimal.Decimal     `gorm:"type:numeric;not null;default:0"`
	Volume         decimal.Decimal     `gorm:"type:numeric;not null;default:0"`
	PipDecimal     decimal.Decimal     `gorm:"type:numeric;not null;default:0"`
	PipValuePerLot decimal.Decimal     `gorm:"type:numeric;not null;default:0"`
	Fees           decimal.Decimal     `gorm:"type:numeric;not null;default:0"`
	EnteredAt      time.Time           `gorm:"index;not null"`
	ExitedAt       *time.Time
	Strategy       string `gorm:"index;not null;default:''"`
	Notes          string `gorm:"not null;default:''"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (tradeRecord) TableName() string {
	return "trades"
}

func recordFromTrade(t core.Trade) tradeRecord {
	return tradeRecord{
		ID:             t.ID,
		Symbol:         t.Symbol,
		InstrumentType: string(t.InstrumentType),
		Side:           string(t.Side),
		Entry:          t.Entry,
		ExitPrice:      t.Exit,
		StopLoss:       t.StopLoss,
		Lot:            t.Lot,
		Volume:         t.Volume,
		PipDecimal:     t.PipDecimal,
		PipValuePerLot: t.PipValuePerLot,
		Fees:           t.Fees,
		EnteredAt:      t.Timestamp.UTC(),
		ExitedAt:       utcPtr(t.ExitTimestamp),
		Strategy:       t.Strategy,
		Notes:          t.Notes,
	}
}

func (r tradeRecord) toTrade() core.Trade {
	return core.Trade{
		ID:             r.ID,
		Symbol:         r.Symbol,
		InstrumentType: core.InstrumentType(r.InstrumentType),
		Side:           core.Side(r.Side),
		Entry:          r.Entry,
		Exit:           r.ExitPrice,
		StopLoss:       r.StopLoss,
		Lot:            r.Lot,
		Volume:         r.Volume,
		PipDecimal:     r.PipDecimal,
		PipValuePerLot: r.PipValuePerLot,
		Fees:           r.Fees,
		Timestamp:      r.EnteredAt.UTC(),
		ExitTimestamp:  utcPtr(r.ExitedAt),
		Strategy:       r.Strategy,
		Notes:          r.Notes,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// PostgresStore persists trades in PostgreSQL through gorm.
type PostgresStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPostgresStore connects to dsn and migrates the trades table.
func NewPostgresStore(dsn string, logger *zap.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dsn == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("storage.postgres.dsn is required"))
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Error),
	})
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("connecting to postgres: %w", err))
	}

	if err := db.AutoMigrate(&tradeRecord{}); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("migrating trades table: %w", err))
	}

	logger.Info("postgres trade store ready")
	return &PostgresStore{db: db, logger: logger}, nil
}

// Save inserts or updates a trade.
func (s *PostgresStore) Save(ctx context.Context, trade *core.Trade) error {
	if err := validateForSave(trade); err != nil {
		return err
	}
	if trade.ID == "" {
		trade.ID = uuid.NewString()
	}

	rec := recordFromTrade(*trade)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("saving trade %s: %w", trade.ID, err))
	}

	s.logger.Debug("trade saved", zap.String("id", trade.ID), zap.String("symbol", trade.Symbol))
	return nil
}

// Get retrieves a trade by ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*core.Trade, error) {
	var rec tradeRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrTradeNotFound
	}
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("reading trade %s: %w", id, err))
	}
	t := rec.toTrade()
	return &t, nil
}

// List returns trades matching the filter.
func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]core.Trade, error) {
	q := s.filtered(ctx, filter).Order("entered_at ASC").Order("created_at ASC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var recs []tradeRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("listing trades: %w", err))
	}

	trades := make([]core.Trade, 0, len(recs))
	for _, rec := range recs {
		trades = append(trades, rec.toTrade())
	}
	return trades, nil
}

// Count returns the count of matching trades.
func (s *PostgresStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	var n int64
	if err := s.filtered(ctx, filter).Count(&n).Error; err != nil {
		return 0, core.WrapError(core.ErrStorageFailed, fmt.Errorf("counting trades: %w", err))
	}
	return int(n), nil
}

// Delete removes a trade by ID.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&tradeRecord{}, "id = ?", id)
	if result.Error != nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("deleting trade %s: %w", id, result.Error))
	}
	if result.RowsAffected == 0 {
		return core.ErrTradeNotFound
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.logger.Info("closing postgres trade store")
	return sqlDB.Close()
}

func (s *PostgresStore) filtered(ctx context.Context, filter ListFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&tradeRecord{})
	if filter.Symbol != "" {
		q = q.Where("symbol = ?", filter.Symbol)
	}
	if filter.Strategy != "" {
		q = q.Where(strategyExpr+" = ?", filter.Strategy)
	}
	if filter.InstrumentType != "" {
		q = q.Where("instrument_type = ?", string(filter.InstrumentType))
	}
	if !filter.From.IsZero() {
		q = q.Where("entered_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("entered_at <= ?", filter.To)
	}
	return q
}
