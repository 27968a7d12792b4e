package analytics

import (
	"context"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"
	"time"

	"github.com/newthinker/tradelog/internal/core"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// simulationBatch is the number of runs handed to one worker.
	simulationBatch = 1000
	// ctxCheckEvery is how many runs a worker completes between context checks.
	ctxCheckEvery = 128
	// ruinThreshold is the fraction of the starting balance below which a run is ruined.
	ruinThreshold = 0.5
)

// Rand draws uniform integers in [0, n).
type Rand interface {
	IntN(n int) int
}

// RandFactory returns the generator for one batch of simulation runs.
// Batches run concurrently, so each call must return an independent Rand.
type RandFactory func(batch int) Rand

// NewSeededRandFactory returns a factory whose output depends only on seed
// and batch index, making MonteCarlo reproducible.
func NewSeededRandFactory(seed uint64) RandFactory {
	return func(batch int) Rand {
		return rand.New(rand.NewPCG(seed, uint64(batch)))
	}
}

func defaultRandFactory(int) Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// MonteCarloOptions overrides the engine defaults for one simulation.
type MonteCarloOptions struct {
	Simulations     int
	StartingBalance float64
	// Rand replaces the engine's random source for this run.
	Rand RandFactory
}

// Percentiles of final balances.
type Percentiles struct {
	P10 float64 `json:"p10"`
	P50 float64 `json:"p50"`
	P90 float64 `json:"p90"`
}

// MonteCarloResult summarizes the distribution of simulated final balances.
type MonteCarloResult struct {
	Simulations     int         `json:"simulations"`
	Percentiles     Percentiles `json:"percentiles"`
	RuinProbability float64     `json:"ruinProbability"`
}

// MonteCarlo bootstraps closed-trade P&L: every run draws len(pool) results
// with replacement, flooring the balance at zero after each draw. The only
// error returned is the context's.
func (e *Engine) MonteCarlo(ctx context.Context, trades []core.Trade, opts MonteCarloOptions) (MonteCarloResult, error) {
	sims := opts.Simulations
	if sims <= 0 {
		sims = e.cfg.Simulations
	}
	start := opts.StartingBalance
	if start <= 0 {
		start = e.cfg.StartingBalance
	}

	factory := e.rand
	if opts.Rand != nil {
		factory = opts.Rand
	}

	pool := e.closedPnL(trades)
	if len(pool) == 0 {
		return MonteCarloResult{
			Simulations: sims,
			Percentiles: Percentiles{P10: start, P50: start, P90: start},
		}, nil
	}

	began := time.Now()
	finals := make([]float64, sims)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for batch, lo := 0, 0; lo < sims; batch, lo = batch+1, lo+simulationBatch {
		hi := min(lo+simulationBatch, sims)
		rng := factory(batch)
		g.Go(func() error {
			return simulate(gctx, rng, pool, start, finals[lo:hi])
		})
	}
	if err := g.Wait(); err != nil {
		return MonteCarloResult{}, err
	}

	sort.Float64s(finals)

	var ruined int
	for _, f := range finals {
		if f < start*ruinThreshold {
			ruined++
		}
	}

	result := MonteCarloResult{
		Simulations: sims,
		Percentiles: Percentiles{
			P10: percentile(finals, 0.10),
			P50: percentile(finals, 0.50),
			P90: percentile(finals, 0.90),
		},
		RuinProbability: float64(ruined) / float64(sims),
	}

	e.logger.Debug("monte carlo complete",
		zap.Int("simulations", sims),
		zap.Int("pool", len(pool)),
		zap.Duration("elapsed", time.Since(began)),
	)
	return result, nil
}

// simulate fills out with one final balance per run.
func simulate(ctx context.Context, rng Rand, pool []float64, start float64, out []float64) error {
	n := len(pool)
	for i := range out {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		balance := start
		for range n {
			balance = max(0, balance+pool[rng.IntN(n)])
		}
		out[i] = balance
	}
	return nil
}

// percentile reads the sorted slice at floor(len*p).
func percentile(sorted []float64, p float64) float64 {
	idx := int(math.Floor(float64(len(sorted)) * p))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
