package shard

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/dreamware/exelixi/internal/transport"
	"github.com/dreamware/exelixi/internal/uow"
)

// Reify attempts to insert-or-route a candidate with the given features.
// It implements §4.4.1: if the ring is absent or routes the key to this
// shard, the candidate is handled locally; otherwise it is POSTed to the
// owning shard's uow/reify endpoint and this call returns false without
// waiting for the remote evaluation.
func (w *Worker) Reify(ctx context.Context, gen int, features json.RawMessage) bool {
	w.mu.RLock()
	u := w.u
	r := w.ring
	selfID := w.shardID
	prefix := w.prefix
	w.mu.RUnlock()

	if u == nil {
		return false
	}
	key := u.KeyOf(features)

	if r == nil {
		return w.reifyLocally(key, gen, features)
	}
	owner, ok := r.GetNode(key)
	if !ok || owner == selfID {
		return w.reifyLocally(key, gen, features)
	}

	w.mu.RLock()
	endpoint := w.endpoints[owner]
	w.mu.RUnlock()
	if endpoint == "" {
		w.logger.Warn("reify: unknown owning endpoint", zap.String("owner", owner))
		return false
	}

	err := w.client.PostJSON(ctx, endpoint+"/uow/reify", transport.ReifyRequest{
		Credentials: transport.Credentials{Prefix: prefix, ShardID: owner},
		Key:         key,
		Gen:         gen,
		Features:    features,
	}, nil)
	if err != nil {
		w.logger.Error("reify: routed POST failed", zap.String("owner", owner), zap.Error(err))
	}
	return false
}

// reifyLocally performs the dedup-evaluate-insert sequence. It is called
// from the consumer goroutine (routed tasks) and from the goroutine
// running populate or next-generation (local candidates).
func (w *Worker) reifyLocally(key string, gen int, features json.RawMessage) bool {
	if w.keys.Contains(key) {
		if w.metrics != nil {
			w.metrics.Duplicates.Inc()
		}
		return false
	}
	w.keys.Add(key)

	w.mu.RLock()
	u := w.u
	w.mu.RUnlock()
	fitness := u.Evaluate(features)

	c := &uow.Candidate{
		Key:        key,
		Generation: gen,
		Features:   features,
		Fitness:    &fitness,
	}
	w.store.Put(key, encodeCandidate(c))
	atomic.AddUint64(&w.totalIndiv, 1)
	if w.metrics != nil {
		w.metrics.Reified.Inc()
		w.metrics.QueueDepth.Set(float64(w.queue.Len()))
	}
	return true
}

// Evict removes a candidate from the candidates map only; per the source,
// the key set is never shrunk, so a later reify of the same key is still
// dropped as a duplicate.
func (w *Worker) Evict(key string) {
	w.store.Delete(key)
	if w.metrics != nil {
		w.metrics.Evicted.Inc()
	}
}

// ReceiveReify implements the owning side of a routed uow/reify call: it
// authenticates (handled by the HTTP layer) and enqueues the payload onto
// the task queue; the consumer goroutine performs the actual reify.
func (w *Worker) ReceiveReify(key string, gen int, features json.RawMessage) {
	w.queue.Put(ReifyTask{Key: key, Gen: gen, Features: features})
	if w.metrics != nil {
		w.metrics.QueueDepth.Set(float64(w.queue.Len()))
	}
}

// Candidates returns a snapshot of the current candidates map.
func (w *Worker) Candidates() []*uow.Candidate {
	keys := w.store.List()
	out := make([]*uow.Candidate, 0, len(keys))
	for _, k := range keys {
		raw, err := w.store.Get(k)
		if err != nil {
			continue
		}
		c, err := decodeCandidate(raw)
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	return out
}
