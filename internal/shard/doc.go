// Package shard implements the per-shard Worker: the process that hosts a
// slice of the population, the HTTP control plane listed in the external
// interfaces, an unbounded task queue consumed by a single goroutine, and a
// phase event used for the two-phase barrier.
//
// # State machine
//
//	UNCONFIGURED --shard/config--> READY
//	READY --ring/init--> RINGED
//	RINGED --uow/populate--> RINGED (consumer goroutine spawned once)
//	any state --shard/stop--> STOPPING
//
// The first shard/config is accepted whatever prefix it carries, and that
// prefix becomes the one later requests must match. A second shard/config
// is rejected with 403, matching the "already configured" response in the
// external interface table.
//
// # Concurrency model
//
// The candidates Store and the key set are written from two goroutines:
// the queue consumer, started the first time uow/populate is handled,
// which reifies routed tasks; and the goroutine running the current
// uow/populate or uow/next phase, which reifies and evicts local
// candidates directly rather than through the queue. The Store and the
// key set each guard themselves with their own lock; the key-set check
// and the insert in reifyLocally are not one atomic step. HTTP handlers
// for uow/reify only enqueue onto the TaskQueue; they never touch the
// Store directly.
//
// The two-phase barrier is driven from the orchestrator side (see
// internal/coordinator), but its correctness depends on shard/wait
// blocking on the Worker's PhaseEvent and shard/join blocking on the
// Worker's TaskQueue.Join — both implemented in this package.
package shard
