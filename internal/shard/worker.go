package shard

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/dreamware/exelixi/internal/bloom"
	"github.com/dreamware/exelixi/internal/metrics"
	"github.com/dreamware/exelixi/internal/ring"
	"github.com/dreamware/exelixi/internal/transport"
	"github.com/dreamware/exelixi/internal/uow"
)

// State is the worker's lifecycle state.
type State int32

const (
	StateUnconfigured State = iota
	StateReady
	StateRinged
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "UNCONFIGURED"
	case StateReady:
		return "READY"
	case StateRinged:
		return "RINGED"
	case StateStopping:
		return "STOPPING"
	default:
		return "UNKNOWN"
	}
}

// Worker hosts one shard of the population: its candidates Store, key set,
// task queue, phase event, and a reference to the configured UnitOfWork.
type Worker struct {
	endpoint string
	client   *transport.Client
	logger   *zap.Logger
	metrics  *metrics.Worker

	mu         sync.RWMutex
	state      State
	prefix     string
	shardID    string
	uowName    string
	u          uow.UnitOfWork
	ring       *ring.Ring
	endpoints  map[string]string
	generation int

	store      Store
	keys       *bloom.KeySet
	queue      *TaskQueue
	phase      *PhaseEvent
	totalIndiv uint64 // atomic

	consumerStarted bool
}

// New builds an unconfigured Worker for the given public endpoint (the URI
// peers use to reach this shard, e.g. "http://10.0.0.5:9311").
func New(endpoint string, client *transport.Client, logger *zap.Logger, m *metrics.Worker) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	keys, err := bloom.NewKeySetForCapacity(4096, 1e-3)
	if err != nil {
		// 4096/1e-3 are fixed, valid constants; this cannot fail.
		panic(err)
	}
	// No long-running phase runs until uow/populate, so shard/wait on an
	// idle worker returns at once.
	phase := NewPhaseEvent()
	phase.Set()
	return &Worker{
		endpoint: endpoint,
		client:   client,
		logger:   logger,
		metrics:  m,
		store:    NewMemoryStore(),
		keys:     keys,
		queue:    NewTaskQueue(),
		phase:    phase,
	}
}

// Endpoint returns the worker's own public endpoint.
func (w *Worker) Endpoint() string { return w.endpoint }

// State returns the current lifecycle state.
func (w *Worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// CheckCredentials reports whether prefix/shardID match the configured
// credentials. It returns false for every field before shard/config has
// run (nothing can match an unconfigured worker).
func (w *Worker) CheckCredentials(prefix, shardID string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state != StateUnconfigured && w.prefix == prefix && w.shardID == shardID
}

// Configure implements shard/config: on first call with any prefix/shardID
// it records the credentials and instantiates the named UoW, transitioning
// UNCONFIGURED -> READY. A second call is rejected.
func (w *Worker) Configure(prefix, shardID, uowName string, params uow.Params) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateUnconfigured {
		return fmt.Errorf("shard: already configured")
	}
	u, err := uow.New(uowName, params)
	if err != nil {
		return err
	}
	w.prefix = prefix
	w.shardID = shardID
	w.uowName = uowName
	w.u = u
	w.state = StateReady
	w.logger.Info("shard configured", zap.String("shard_id", shardID), zap.String("uow", uowName))
	return nil
}

// InitRing implements ring/init: stores the shard_id -> endpoint map and
// builds the ring, transitioning READY -> RINGED. The ring is immutable
// for the rest of the run once set.
func (w *Worker) InitRing(endpoints map[string]string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateReady {
		return fmt.Errorf("shard: ring/init received in state %s", w.state)
	}
	members := make([]string, 0, len(endpoints))
	for id := range endpoints {
		members = append(members, id)
	}
	r, err := ring.New(members, ring.DefaultReplicas)
	if err != nil {
		return err
	}
	w.ring = r
	w.endpoints = endpoints
	w.state = StateRinged
	return nil
}

// Stop implements shard/stop: transitions to STOPPING. Per the auth rule,
// a credentials mismatch is accepted syntactically and silently ignored
// by the caller (the HTTP handler), not this method — Stop always
// succeeds once called.
func (w *Worker) Stop() {
	w.mu.Lock()
	w.state = StateStopping
	w.mu.Unlock()
	w.queue.Close()
}

// Params returns the configured UoW's engine parameters.
func (w *Worker) Params() uow.Params {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.u == nil {
		return uow.Params{}
	}
	return w.u.Params()
}

// Generation returns the current generation number.
func (w *Worker) Generation() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.generation
}

// TotalIndiv returns the total number of candidates ever reified locally.
func (w *Worker) TotalIndiv() int {
	return int(atomic.LoadUint64(&w.totalIndiv))
}

// Phase returns the worker's phase event, used by the shard/wait handler.
func (w *Worker) Phase() *PhaseEvent { return w.phase }

// Queue returns the worker's task queue, used by the shard/join handler.
func (w *Worker) Queue() *TaskQueue { return w.queue }

// ensureConsumer starts the single task-queue consumer goroutine the
// first time it is needed (on uow/populate), matching the state machine's
// "spawns a single task-queue consumer" transition.
func (w *Worker) ensureConsumer() {
	w.mu.Lock()
	if w.consumerStarted {
		w.mu.Unlock()
		return
	}
	w.consumerStarted = true
	w.mu.Unlock()
	go w.consume()
}

func (w *Worker) consume() {
	for {
		task, ok := w.queue.Get()
		if !ok {
			return
		}
		w.runTask(task)
	}
}

// runTask processes one ReifyTask, recovering from a panicking UoW call so
// a single bad candidate cannot wedge the consumer; the task is always
// marked Done so TaskQueue.Join never deadlocks.
func (w *Worker) runTask(task ReifyTask) {
	defer w.queue.Done()
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("uow panic while reifying task", zap.Any("recover", r), zap.String("key", task.Key))
		}
	}()
	w.reifyLocally(task.Key, task.Gen, task.Features)
}

func decodeCandidate(raw []byte) (*uow.Candidate, error) {
	var c uow.Candidate
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func encodeCandidate(c *uow.Candidate) []byte {
	b, err := json.Marshal(c)
	if err != nil {
		panic(fmt.Sprintf("shard: candidate marshal failure: %v", err))
	}
	return b
}
