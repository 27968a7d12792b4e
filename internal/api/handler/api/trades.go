package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/newthinker/tradelog/internal/analytics"
	"github.com/newthinker/tradelog/internal/api/response"
	"github.com/newthinker/tradelog/internal/core"
	"github.com/newthinker/tradelog/internal/journal"
	"github.com/newthinker/tradelog/internal/metrics"
	"github.com/newthinker/tradelog/internal/storage/trade"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TradeHandler serves journal CRUD.
type TradeHandler struct {
	store     trade.Store
	engine    *analytics.Engine
	validator *journal.Validator
	metrics   *metrics.Registry
	logger    *zap.Logger
}

// NewTradeHandler creates a new trade handler. reg may be nil.
func NewTradeHandler(store trade.Store, engine *analytics.Engine, validator *journal.Validator, reg *metrics.Registry, logger *zap.Logger) *TradeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TradeHandler{store: store, engine: engine, validator: validator, metrics: reg, logger: logger}
}

// List returns trades matching the query filters.
func (h *TradeHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilter(r, true)
	if err != nil {
		response.Fail(w, err)
		return
	}

	trades, err := h.store.List(r.Context(), filter)
	if err != nil {
		response.Fail(w, err)
		return
	}

	countFilter := filter
	countFilter.Limit, countFilter.Offset = 0, 0
	total, err := h.store.Count(r.Context(), countFilter)
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.List(w, trades, total)
}

// Create validates and stores a new trade.
func (h *TradeHandler) Create(w http.ResponseWriter, r *http.Request) {
	t, ok := h.decode(w, r)
	if !ok {
		return
	}
	t.ID = ""

	if err := h.store.Save(r.Context(), &t); err != nil {
		response.Fail(w, err)
		return
	}
	h.refreshCount(r.Context())

	h.logger.Info("trade created", zap.String("id", t.ID), zap.String("symbol", t.Symbol))
	response.JSON(w, http.StatusCreated, t)
}

// Get returns one trade.
func (h *TradeHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, t)
}

// Update replaces an existing trade.
func (h *TradeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.store.Get(r.Context(), id); err != nil {
		response.Fail(w, err)
		return
	}

	t, ok := h.decode(w, r)
	if !ok {
		return
	}
	t.ID = id

	if err := h.store.Save(r.Context(), &t); err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, t)
}

// Delete removes a trade.
func (h *TradeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.Fail(w, err)
		return
	}
	h.refreshCount(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// PnL prices one trade. Optional query parameters: currency and
// pipValuePerLot (an instrument override).
func (h *TradeHandler) PnL(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Fail(w, err)
		return
	}

	var inst *core.Instrument
	if raw := r.URL.Query().Get("pipValuePerLot"); raw != "" {
		pv, err := decimal.NewFromString(raw)
		if err == nil && !pv.IsPositive() {
			err = errors.New("must be positive")
		}
		if err != nil {
			response.Fail(w, invalidParam("pipValuePerLot", err))
			return
		}
		inst = &core.Instrument{Symbol: t.Symbol, PipValuePerLot: pv}
	}

	engine, err := h.engine.WithAccountCurrency(r.URL.Query().Get("currency"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	pnl := engine.TradePnL(*t, inst, engine.Config().AccountCurrency)

	response.JSON(w, http.StatusOK, map[string]any{
		"id":          t.ID,
		"currency":    engine.Config().AccountCurrency,
		"closed":      t.IsClosed(),
		"profitPips":  pnl.ProfitPips,
		"profitMoney": pnl.ProfitMoney,
	})
}

func (h *TradeHandler) decode(w http.ResponseWriter, r *http.Request) (core.Trade, bool) {
	var t core.Trade
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		response.Fail(w, core.WrapError(core.ErrInvalidTrade, err))
		return t, false
	}
	if err := h.validator.Trade(t); err != nil {
		response.Fail(w, err)
		return t, false
	}
	return t, true
}

func (h *TradeHandler) refreshCount(ctx context.Context) {
	if n, err := h.store.Count(ctx, trade.ListFilter{}); err == nil {
		h.metrics.SetTradesStored(n)
	}
}
