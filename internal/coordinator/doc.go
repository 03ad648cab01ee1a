// Package coordinator implements the Framework (orchestrator): the single
// driver process that owns the shard list, constructs the hash ring,
// issues control-plane calls to every shard in fan-out, performs the
// two-phase barrier, and aggregates per-shard results into the run's
// termination decision and final report.
//
// A run proceeds through the state machine described in spec §4.5: config
// every shard, build and distribute the ring, populate generation zero,
// then loop barrier -> aggregate -> terminate-or-step until the
// terminating predicate or the generation cap fires, and finally enumerate
// and stop every shard.
package coordinator
