package shard

import (
	"context"
	"math/rand"
	"strconv"

	"github.com/dreamware/exelixi/internal/uow"
)

// Populate implements uow/populate: spawns the single task-queue consumer
// (idempotently), clears the phase event, generates n_pop candidates and
// attempts to reify each, then sets the phase event on completion so a
// blocked shard/wait call returns. It runs synchronously in the calling
// goroutine (the HTTP handler responds 200 before this completes,
// matching "200 immediately, task spawned" in the external interface
// table — see handlers.go).
func (w *Worker) Populate(ctx context.Context) {
	w.ensureConsumer()
	w.phase.Clear()
	defer w.phase.Set()

	w.mu.Lock()
	w.generation = 0
	w.mu.Unlock()
	if w.metrics != nil {
		w.metrics.Generation.Set(0)
	}

	u := w.u
	n := u.Params().NPop
	for i := 0; i < n; i++ {
		features := u.Generate()
		w.Reify(ctx, 0, features)
	}
}

// NextGeneration implements uow/next (§4.4.2): partition into good/poor
// fit, mutate-or-evict the poor fit (never below 3 local candidates),
// crossover-breed up to n_pop parents, then backfill with fresh
// candidates until the local count reaches n_pop.
func (w *Worker) NextGeneration(ctx context.Context, currentGen int, fitnessCutoff float64) {
	w.phase.Clear()
	defer w.phase.Set()

	w.mu.Lock()
	w.generation = currentGen + 1
	gen := w.generation
	w.mu.Unlock()
	if w.metrics != nil {
		w.metrics.Generation.Set(float64(gen))
	}

	u := w.u
	params := u.Params()

	// good_fit candidates are simply retained as-is; only poor_fit is
	// acted on below, so only it needs to be collected.
	candidates := w.Candidates()
	var poorFit []*uow.Candidate
	for _, c := range candidates {
		if c.Fitness == nil {
			continue
		}
		rounded := uow.RoundFitness(*c.Fitness, params.HistGranularity)
		bin, _ := strconv.ParseFloat(rounded, 64)
		if bin < fitnessCutoff {
			poorFit = append(poorFit, c)
		}
	}

	for _, c := range poorFit {
		if w.store.Len() <= 3 {
			break // floor-of-three: never evict below 3 local candidates
		}
		if rand.Float64() < params.MutationRate {
			mutant := u.Mutate(c.Features)
			if w.Reify(ctx, gen, mutant) {
				w.Evict(c.Key)
			}
		} else {
			w.Evict(c.Key)
		}
	}

	parents := w.Candidates()
	need := params.NPop - len(parents)
	for i := 0; i < need; i++ {
		if len(parents) < 2 {
			break
		}
		a := parents[rand.Intn(len(parents))]
		b := parents[rand.Intn(len(parents))]
		for b.Key == a.Key && len(parents) > 1 {
			b = parents[rand.Intn(len(parents))]
		}
		child := u.Crossover(a.Features, b.Features)
		w.Reify(ctx, gen, child)
	}

	for w.store.Len() < params.NPop {
		features := u.Generate()
		w.Reify(ctx, gen, features)
	}
}

// Hist implements uow/hist: a read-only binning of the current candidates
// map's fitness values to hist_granularity decimal places.
func (w *Worker) Hist() (int, uow.Histogram) {
	params := w.Params()
	hist := uow.Histogram{}
	candidates := w.Candidates()
	for _, c := range candidates {
		if c.Fitness == nil {
			continue
		}
		bin := uow.RoundFitness(*c.Fitness, params.HistGranularity)
		hist[bin]++
	}
	return w.TotalIndiv(), hist
}

// Enum implements uow/enum: all candidates with fitness >= cutoff, as
// ["indiv", fitness, gen, features_json] tuples (callers wrap these into
// transport.EnumEntry).
func (w *Worker) Enum(cutoff float64) []*uow.Candidate {
	var out []*uow.Candidate
	for _, c := range w.Candidates() {
		if c.Fitness != nil && *c.Fitness >= cutoff {
			out = append(out, c)
		}
	}
	return out
}
