package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/newthinker/tradelog/internal/analytics"
	"github.com/newthinker/tradelog/internal/api/job"
	"github.com/newthinker/tradelog/internal/api/response"
	"github.com/newthinker/tradelog/internal/core"
	"github.com/newthinker/tradelog/internal/journal"
	"github.com/newthinker/tradelog/internal/metrics"
	"github.com/newthinker/tradelog/internal/notifier"
	"github.com/newthinker/tradelog/internal/storage/trade"
	"go.uber.org/zap"
)

const (
	monteCarloJob     = "montecarlo"
	monteCarloTimeout = 5 * time.Minute
	notifyTimeout     = 30 * time.Second
)

// MonteCarloRequest is the optional request body for a simulation.
type MonteCarloRequest struct {
	Simulations     int     `json:"simulations" validate:"gte=0,lte=1000000"`
	StartingBalance float64 `json:"startingBalance" validate:"gte=0"`
	Seed            *uint64 `json:"seed,omitempty"`
}

// MonteCarloHandler runs simulations as background jobs.
type MonteCarloHandler struct {
	jobStore  *job.Store
	store     trade.Store
	engine    *analytics.Engine
	validator *journal.Validator
	metrics   *metrics.Registry
	notifier  *notifier.Registry
	logger    *zap.Logger
}

// NewMonteCarloHandler creates a new Monte Carlo handler. reg and notify
// may be nil.
func NewMonteCarloHandler(
	jobStore *job.Store,
	store trade.Store,
	engine *analytics.Engine,
	validator *journal.Validator,
	reg *metrics.Registry,
	notify *notifier.Registry,
	logger *zap.Logger,
) *MonteCarloHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonteCarloHandler{
		jobStore:  jobStore,
		store:     store,
		engine:    engine,
		validator: validator,
		metrics:   reg,
		notifier:  notify,
		logger:    logger,
	}
}

// Create snapshots the filtered trades and starts a simulation job.
func (h *MonteCarloHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req MonteCarloRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Fail(w, core.WrapError(core.ErrInvalidRequest, err))
		return
	}
	if err := h.validator.Request(req); err != nil {
		response.Fail(w, err)
		return
	}

	filter, err := listFilter(r, false)
	if err != nil {
		response.Fail(w, err)
		return
	}
	trades, err := h.store.List(r.Context(), filter)
	if err != nil {
		response.Fail(w, err)
		return
	}

	opts := analytics.MonteCarloOptions{
		Simulations:     req.Simulations,
		StartingBalance: req.StartingBalance,
	}
	if req.Seed != nil {
		opts.Rand = analytics.NewSeededRandFactory(*req.Seed)
	}

	j := h.jobStore.Create(monteCarloJob)
	h.metrics.SetJobsActive(monteCarloJob, h.jobStore.Active(monteCarloJob))

	// Run simulation in background
	go h.run(j.ID, trades, opts)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": j.ID,
		"status": j.Status,
	})
}

// run executes the simulation and updates job status.
func (h *MonteCarloHandler) run(jobID string, trades []core.Trade, opts analytics.MonteCarloOptions) {
	defer func() {
		h.metrics.SetJobsActive(monteCarloJob, h.jobStore.Active(monteCarloJob))
	}()

	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})

	ctx, cancel := context.WithTimeout(context.Background(), monteCarloTimeout)
	defer cancel()

	start := time.Now()
	result, err := h.engine.MonteCarlo(ctx, trades, opts)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		h.metrics.RecordMonteCarlo(string(job.StatusFailed), elapsed)
		h.logger.Warn("monte carlo failed", zap.String("job_id", jobID), zap.Error(err))
		h.jobStore.Update(jobID, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Error = core.WrapError(core.ErrSimulationFailed, err)
		})
		h.notify(jobID, job.StatusFailed, nil)
		return
	}

	h.metrics.RecordMonteCarlo(string(job.StatusComplete), elapsed)
	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Progress = 100
		j.Result = result
	})
	h.notify(jobID, job.StatusComplete, result)
}

func (h *MonteCarloHandler) notify(jobID string, status job.Status, result any) {
	if h.notifier.Len() == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	errs := h.notifier.NotifyAll(ctx, notifier.Event{
		Type:   notifier.EventMonteCarloFinished,
		JobID:  jobID,
		Status: string(status),
		Data:   result,
	})
	for name, err := range errs {
		h.logger.Warn("notification failed", zap.String("notifier", name), zap.String("job_id", jobID), zap.Error(err))
	}
}

// GetStatus returns the status of a job.
func (h *MonteCarloHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobStore.Get(chi.URLParam(r, "id"))
	if err != nil {
		response.Fail(w, err)
		return
	}

	resp := map[string]any{
		"job_id":   j.ID,
		"type":     j.Type,
		"status":   j.Status,
		"progress": j.Progress,
	}

	if j.Status == job.StatusComplete {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		resp["error"] = map[string]string{
			"code":    j.Error.Code,
			"message": j.Error.Message,
		}
	}

	response.JSON(w, http.StatusOK, resp)
}
