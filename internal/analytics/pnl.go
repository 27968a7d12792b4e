package analytics

import (
	"strings"

	"github.com/newthinker/tradelog/internal/core"
	"github.com/newthinker/tradelog/internal/currency"
	"github.com/shopspring/decimal"
)

var (
	defaultPip          = decimal.New(1, -4) // 0.0001
	jpyPip              = decimal.New(1, -2) // 0.01
	defaultPipValue     = decimal.NewFromInt(10)
	defaultPositionSize = decimal.NewFromInt(1)
)

// PnL is the realized result of one trade.
//
// For stock and crypto trades ProfitPips carries the gross money result,
// not a pip count. Fees are only deducted from ProfitMoney.
type PnL struct {
	ProfitPips  float64 `json:"profitPips"`
	ProfitMoney float64 `json:"profitMoney"`
}

// TradePips returns the pip distance of a closed forex trade.
// Open trades and non-forex trades return 0.
func TradePips(t core.Trade) float64 {
	if !t.IsClosed() || t.InstrumentType != core.InstrumentForex {
		return 0
	}
	return forexPips(t).InexactFloat64()
}

// TradePnL prices one trade in the given account currency. An empty
// currency uses the engine's account currency; inst may be nil.
func (e *Engine) TradePnL(t core.Trade, inst *core.Instrument, accountCurrency string) PnL {
	if !t.IsClosed() {
		return PnL{}
	}
	if accountCurrency == "" {
		accountCurrency = e.cfg.AccountCurrency
	}

	var pips, money float64
	switch t.InstrumentType {
	case core.InstrumentForex:
		p := forexPips(t)
		pipValue := firstNonZero(t.PipValuePerLot, instrumentPipValue(inst), defaultPipValue)
		lot := firstNonZero(t.Lot, defaultPositionSize)
		// pip values are quoted in USD
		usd := p.Mul(pipValue).Mul(lot).InexactFloat64()
		pips = p.InexactFloat64()
		money = e.converter.Convert(usd, currency.Base, accountCurrency)
	case core.InstrumentStock, core.InstrumentCrypto:
		shares := firstNonZero(t.Volume, t.Lot, defaultPositionSize)
		money = priceMove(t).Mul(shares).InexactFloat64()
		pips = money
	default:
		return PnL{}
	}

	return PnL{
		ProfitPips:  pips,
		ProfitMoney: money - t.Fees.InexactFloat64(),
	}
}

// pnl prices a trade with engine defaults.
func (e *Engine) pnl(t core.Trade) float64 {
	return e.TradePnL(t, nil, e.cfg.AccountCurrency).ProfitMoney
}

func forexPips(t core.Trade) decimal.Decimal {
	return priceMove(t).Div(pipSize(t))
}

// priceMove is the signed price change in the trade's favor.
func priceMove(t core.Trade) decimal.Decimal {
	if t.Side == core.SideBuy {
		return t.Exit.Decimal.Sub(t.Entry)
	}
	return t.Entry.Sub(t.Exit.Decimal)
}

func pipSize(t core.Trade) decimal.Decimal {
	if t.PipDecimal.IsPositive() {
		return t.PipDecimal
	}
	if strings.Contains(strings.ToUpper(t.Symbol), "JPY") {
		return jpyPip
	}
	return defaultPip
}

func instrumentPipValue(inst *core.Instrument) decimal.Decimal {
	if inst == nil {
		return decimal.Zero
	}
	return inst.PipValuePerLot
}

func firstNonZero(values ...decimal.Decimal) decimal.Decimal {
	for _, v := range values {
		if !v.IsZero() {
			return v
		}
	}
	return decimal.Zero
}
