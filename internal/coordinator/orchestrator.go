package coordinator

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/exelixi/internal/metrics"
	"github.com/dreamware/exelixi/internal/transport"
	"github.com/dreamware/exelixi/internal/uow"
)

// Report is the final, fitness-sorted output of a completed run: every
// candidate surviving the last generation's cutoff, descending by
// fitness, the Go analogue of the source's final enum-and-print step.
type Report struct {
	Generations int
	Entries     []transport.EnumEntry
}

// Orchestrator drives one run end to end: it owns the shard table, the
// run's credentials prefix, and the transport client used to reach
// every shard. It has no HTTP surface of its own; cmd/coordinator wires
// it to a CLI and logs its progress.
type Orchestrator struct {
	table   *ShardTable
	prefix  string
	uowName string
	params  uow.Params
	u       uow.UnitOfWork
	client  *transport.Client
	logger  *zap.Logger
	metrics *metrics.Orchestrator
}

// Option configures optional Orchestrator behavior.
type Option func(*Orchestrator)

// WithMetrics attaches the run-level Prometheus collectors; a nil metrics
// value (or omitting this option) disables instrumentation.
func WithMetrics(m *metrics.Orchestrator) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New builds an Orchestrator for the given worker endpoints and UoW
// name. It constructs its own local instance of the named UoW, used
// solely to evaluate ShouldTerminate against the merged histogram each
// generation — a pure function of (gen, hist, totalSeen) that needs no
// shard-local state, so one instance at the orchestrator is sufficient
// even though every shard also independently constructs its own (via
// shard/config) to do the actual generate/evaluate/mutate/crossover
// work. The two must agree on uowName and params — see DESIGN.md on the
// Params/registration split.
func New(endpoints []string, uowName string, params uow.Params, client *transport.Client, logger *zap.Logger, opts ...Option) (*Orchestrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	u, err := uow.New(uowName, params)
	if err != nil {
		return nil, fmt.Errorf("coordinator: %w", err)
	}
	o := &Orchestrator{
		table:   NewShardTable(endpoints),
		prefix:  NewRunPrefix("exelixi"),
		uowName: uowName,
		params:  params,
		u:       u,
		client:  client,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// broadcast runs fn and, if metrics are attached, observes its latency
// under the given endpoint label (the control-plane path being
// broadcast, e.g. "/uow/next").
func (o *Orchestrator) broadcast(label string, fn func() error) error {
	start := time.Now()
	err := fn()
	if o.metrics != nil {
		o.metrics.BroadcastLatency.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}
	return err
}

func (o *Orchestrator) creds(shardID string) transport.Credentials {
	return CredentialsFor(o.prefix, shardID)
}

// Run executes the full state machine in §4.5: configure every shard,
// build and distribute the ring, populate generation zero, then loop
// barrier -> aggregate -> terminate-or-step until either the UoW's own
// termination predicate fires or the generation cap is reached, and
// finally enumerate and stop every shard.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	if err := o.configureShards(ctx); err != nil {
		return nil, err
	}
	if err := o.initRing(ctx); err != nil {
		return nil, err
	}
	if err := o.populate(ctx); err != nil {
		return nil, err
	}

	gen := 0
	for {
		if o.metrics != nil {
			o.metrics.Generation.Set(float64(gen))
		}
		if err := o.broadcast("/shard/barrier", func() error {
			return TwoPhaseBarrier(ctx, o.client, o.table.Endpoints(), o.creds)
		}); err != nil {
			return nil, fmt.Errorf("coordinator: generation %d barrier: %w", gen, err)
		}

		totalSeen, hist, err := o.aggregateHist(ctx)
		if err != nil {
			return nil, fmt.Errorf("coordinator: generation %d hist: %w", gen, err)
		}
		if o.metrics != nil {
			o.metrics.TotalIndiv.Set(float64(totalSeen))
		}

		terminate := o.params.NGen > 0 && gen >= o.params.NGen
		if !terminate {
			terminate = o.u.ShouldTerminate(gen, hist, totalSeen)
		}
		mse, mseN := meanSquaredErrorReport(hist)
		fields := []zap.Field{
			zap.Int("gen", gen), zap.Int("total_indiv", totalSeen), zap.Bool("terminate", terminate),
		}
		if mseN > 0 {
			fields = append(fields, zap.Float64("fit_mse", mse), zap.Float64("fit_max", histMax(hist)), zap.Float64("fit_avg", histMean(hist)), zap.Float64("fit_med", histMedian(hist, totalSeen)))
		}
		o.logger.Info("generation report", fields...)

		cutoff := FitnessCutoff(hist, o.params.SelectionRate)
		if terminate {
			return o.finish(ctx, cutoff, gen)
		}

		if err := o.broadcastNext(ctx, gen, cutoff); err != nil {
			return nil, fmt.Errorf("coordinator: generation %d uow/next: %w", gen, err)
		}
		gen++
	}
}

func (o *Orchestrator) configureShards(ctx context.Context) error {
	return o.broadcast("/shard/config", func() error {
		return Barrier(ctx, o.client, o.table.Endpoints(), "/shard/config", func(shardID string) any {
			return transport.ConfigRequest{Credentials: o.creds(shardID), UoWName: o.uowName, Params: o.params}
		})
	})
}

func (o *Orchestrator) initRing(ctx context.Context) error {
	endpoints := o.table.Endpoints()
	return o.broadcast("/ring/init", func() error {
		return Barrier(ctx, o.client, endpoints, "/ring/init", func(shardID string) any {
			return transport.RingInitRequest{Credentials: o.creds(shardID), Ring: endpoints}
		})
	})
}

func (o *Orchestrator) populate(ctx context.Context) error {
	credBody := func(shardID string) any { return o.creds(shardID) }
	return o.broadcast("/uow/populate", func() error {
		return Barrier(ctx, o.client, o.table.Endpoints(), "/uow/populate", credBody)
	})
}

func (o *Orchestrator) broadcastNext(ctx context.Context, currentGen int, cutoff float64) error {
	return o.broadcast("/uow/next", func() error {
		return Barrier(ctx, o.client, o.table.Endpoints(), "/uow/next", func(shardID string) any {
			return transport.NextRequest{Credentials: o.creds(shardID), CurrentGen: currentGen, FitnessCutoff: cutoff}
		})
	})
}

// aggregateHist fans uow/hist out to every shard and merges the results.
// A single shard's malformed response is logged and contributes a zero
// histogram rather than aborting the run, per the error-handling
// taxonomy in §7; a transport failure is fatal.
func (o *Orchestrator) aggregateHist(ctx context.Context) (int, uow.Histogram, error) {
	endpoints := o.table.Endpoints()
	var mu sync.Mutex
	merged := uow.Histogram{}
	total := 0

	g, gctx := errgroup.WithContext(ctx)
	for shardID, endpoint := range endpoints {
		shardID, endpoint := shardID, endpoint
		g.Go(func() error {
			url := endpoint + "/uow/hist"
			var resp transport.HistResponse
			if err := o.client.PostJSON(gctx, url, o.creds(shardID), &resp); err != nil {
				if _, ok := err.(*transport.MalformedResponseError); ok {
					o.logger.Warn("malformed uow/hist response", zap.String("shard_id", shardID), zap.Error(err))
					return nil
				}
				return fmt.Errorf("coordinator: uow/hist %s: %w", url, err)
			}
			mu.Lock()
			total += resp.TotalIndiv
			for k, v := range resp.Hist {
				merged[k] += v
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, nil, err
	}
	return total, merged, nil
}

func (o *Orchestrator) finish(ctx context.Context, cutoff float64, gen int) (*Report, error) {
	entries, err := o.enumerate(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		fi, _ := strconv.ParseFloat(entries[i].Fitness, 64)
		fj, _ := strconv.ParseFloat(entries[j].Fitness, 64)
		return fi > fj
	})
	if err := o.stopAll(ctx); err != nil {
		return nil, err
	}
	return &Report{Generations: gen, Entries: entries}, nil
}

func (o *Orchestrator) enumerate(ctx context.Context, cutoff float64) ([]transport.EnumEntry, error) {
	endpoints := o.table.Endpoints()
	var mu sync.Mutex
	var all []transport.EnumEntry

	g, gctx := errgroup.WithContext(ctx)
	for shardID, endpoint := range endpoints {
		shardID, endpoint := shardID, endpoint
		g.Go(func() error {
			url := endpoint + "/uow/enum"
			var entries []transport.EnumEntry
			req := transport.EnumRequest{Credentials: o.creds(shardID), FitnessCutoff: cutoff}
			if err := o.client.PostJSON(gctx, url, req, &entries); err != nil {
				if _, ok := err.(*transport.MalformedResponseError); ok {
					o.logger.Warn("malformed uow/enum response", zap.String("shard_id", shardID), zap.Error(err))
					return nil
				}
				return fmt.Errorf("coordinator: uow/enum %s: %w", url, err)
			}
			mu.Lock()
			all = append(all, entries...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return all, nil
}

func (o *Orchestrator) stopAll(ctx context.Context) error {
	credBody := func(shardID string) any { return o.creds(shardID) }
	return o.broadcast("/shard/stop", func() error {
		return Barrier(ctx, o.client, o.table.Endpoints(), "/shard/stop", credBody)
	})
}
