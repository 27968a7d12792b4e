// Package analytics turns a list of journal trades into performance metrics.
//
// Every function is a pure transformation of the trades it is given. The
// Engine only carries configuration (account currency, starting balance,
// risk-free rate) and the injected collaborators: a currency converter, a
// clock and a random source for Monte Carlo runs.
package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/tradelog/internal/core"
	"github.com/newthinker/tradelog/internal/currency"
	"go.uber.org/zap"
)

// Config holds the account-level settings every aggregate is computed with.
type Config struct {
	AccountCurrency string
	StartingBalance float64
	RiskFreeRate    float64
	Simulations     int
	// Location is used to bucket exit times by weekday, hour and date.
	Location *time.Location
}

// DefaultConfig returns the journal defaults.
func DefaultConfig() Config {
	return Config{
		AccountCurrency: "INR",
		StartingBalance: 10000,
		RiskFreeRate:    0,
		Simulations:     10000,
		Location:        time.Local,
	}
}

// Engine computes analytics over trade lists.
type Engine struct {
	cfg       Config
	converter currency.Converter
	now       func() time.Time
	rand      RandFactory
	logger    *zap.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for empty equity curves.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRandFactory overrides the random source used by MonteCarlo.
func WithRandFactory(f RandFactory) Option {
	return func(e *Engine) { e.rand = f }
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine. Zero config fields take their DefaultConfig value
// and a nil converter falls back to the built-in rate table.
func New(cfg Config, converter currency.Converter, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.AccountCurrency == "" {
		cfg.AccountCurrency = def.AccountCurrency
	}
	if cfg.StartingBalance <= 0 {
		cfg.StartingBalance = def.StartingBalance
	}
	if cfg.Simulations <= 0 {
		cfg.Simulations = def.Simulations
	}
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	if converter == nil {
		converter = currency.DefaultRates()
	}

	e := &Engine{
		cfg:       cfg,
		converter: converter,
		now:       time.Now,
		rand:      defaultRandFactory,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// WithAccountCurrency returns an engine reporting in code. The receiver
// is returned unchanged when code is empty or already the account currency.
// A code the converter has no rate for is an ErrInvalidRequest.
func (e *Engine) WithAccountCurrency(code string) (*Engine, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || code == e.cfg.AccountCurrency {
		return e, nil
	}
	if !e.converter.Has(code) {
		return nil, core.WrapError(core.ErrInvalidRequest, fmt.Errorf("unsupported currency %q", code))
	}
	c := *e
	c.cfg.AccountCurrency = code
	return &c, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}
