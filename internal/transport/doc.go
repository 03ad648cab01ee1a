// Package transport is the HTTP+JSON client shared by the worker (to
// forward cross-shard reify requests) and the orchestrator (to drive
// shards through the control plane).
//
// All inter-process traffic is HTTP/1.1 with JSON bodies. A connection
// failure (refused connection, DNS failure, timeout) is returned as an
// error. The orchestrator treats it as fatal to the run; the worker's
// routed uow/reify forward only logs it and drops the candidate. A successfully-received
// but malformed response body is also returned as an error, but callers
// in the aggregation path log it and substitute a zero result instead of
// aborting — see the orchestrator's broadcast helpers.
package transport
