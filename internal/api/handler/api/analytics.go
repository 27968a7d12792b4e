package api

import (
	"net/http"
	"time"

	"github.com/newthinker/tradelog/internal/analytics"
	"github.com/newthinker/tradelog/internal/api/response"
	"github.com/newthinker/tradelog/internal/core"
	"github.com/newthinker/tradelog/internal/metrics"
	"github.com/newthinker/tradelog/internal/storage/trade"
)

// AnalyticsHandler serves aggregates over the stored journal. Every
// endpoint accepts the trade list filters and a currency override.
type AnalyticsHandler struct {
	store   trade.Store
	engine  *analytics.Engine
	metrics *metrics.Registry
}

// NewAnalyticsHandler creates a new analytics handler. reg may be nil.
func NewAnalyticsHandler(store trade.Store, engine *analytics.Engine, reg *metrics.Registry) *AnalyticsHandler {
	return &AnalyticsHandler{store: store, engine: engine, metrics: reg}
}

// load returns the filtered trades and the engine for the requested currency.
func (h *AnalyticsHandler) load(w http.ResponseWriter, r *http.Request) ([]core.Trade, *analytics.Engine, bool) {
	filter, err := listFilter(r, false)
	if err != nil {
		response.Fail(w, err)
		return nil, nil, false
	}
	trades, err := h.store.List(r.Context(), filter)
	if err != nil {
		response.Fail(w, err)
		return nil, nil, false
	}
	engine, err := h.engine.WithAccountCurrency(r.URL.Query().Get("currency"))
	if err != nil {
		response.Fail(w, err)
		return nil, nil, false
	}
	return trades, engine, true
}

// Summary returns the full report.
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	trades, engine, ok := h.load(w, r)
	if !ok {
		return
	}
	start := time.Now()
	report := engine.Report(trades)
	h.metrics.RecordReport(time.Since(start).Seconds())

	response.JSON(w, http.StatusOK, report)
}

// Equity returns the equity curve, optionally from ?starting_balance=.
func (h *AnalyticsHandler) Equity(w http.ResponseWriter, r *http.Request) {
	trades, engine, ok := h.load(w, r)
	if !ok {
		return
	}
	balance, err := parsePositiveFloat(r.URL.Query().Get("starting_balance"))
	if err != nil {
		response.Fail(w, invalidParam("starting_balance", err))
		return
	}
	if balance == 0 {
		balance = engine.Config().StartingBalance
	}
	response.JSON(w, http.StatusOK, engine.EquityCurveFrom(trades, balance))
}

// Drawdown returns the drawdown series and its maximum.
func (h *AnalyticsHandler) Drawdown(w http.ResponseWriter, r *http.Request) {
	trades, engine, ok := h.load(w, r)
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, analytics.Drawdowns(engine.EquityCurve(trades)))
}

// Heatmap returns P&L and counts by weekday and hour.
func (h *AnalyticsHandler) Heatmap(w http.ResponseWriter, r *http.Request) {
	trades, engine, ok := h.load(w, r)
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, engine.Heatmap(trades))
}

// Hourly returns P&L per exit hour.
func (h *AnalyticsHandler) Hourly(w http.ResponseWriter, r *http.Request) {
	trades, engine, ok := h.load(w, r)
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, engine.HourlySummary(trades))
}

// Daily returns P&L per exit date, newest first.
func (h *AnalyticsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	trades, engine, ok := h.load(w, r)
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, engine.DailySummary(trades))
}

// Strategies returns per-strategy statistics.
func (h *AnalyticsHandler) Strategies(w http.ResponseWriter, r *http.Request) {
	trades, engine, ok := h.load(w, r)
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, engine.StrategyBreakdown(trades))
}

// Streaks returns the longest winning and losing runs.
func (h *AnalyticsHandler) Streaks(w http.ResponseWriter, r *http.Request) {
	trades, engine, ok := h.load(w, r)
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, engine.Streaks(trades))
}
