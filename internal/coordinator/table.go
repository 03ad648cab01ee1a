package coordinator

import "fmt"

// ShardTable assigns each worker endpoint a stable shard_id of the form
// shard/NNN, zero-padded to the width of the largest index, and tracks
// the shard_id -> endpoint mapping used to build ring/init payloads.
//
// Adapted from the teacher's ShardRegistry: where that type computed
// shard ownership from a hash of the key, the ring package now owns all
// hash-based assignment; ShardTable here only tracks which stable id an
// operator-supplied worker endpoint was given.
type ShardTable struct {
	order     []string          // shard ids in assignment order
	endpoints map[string]string // shard_id -> endpoint
}

// NewShardTable assigns a shard_id to each endpoint in order.
func NewShardTable(endpoints []string) *ShardTable {
	width := len(fmt.Sprintf("%d", len(endpoints)-1))
	if width < 1 {
		width = 1
	}
	t := &ShardTable{endpoints: make(map[string]string, len(endpoints))}
	for i, ep := range endpoints {
		id := fmt.Sprintf("shard/%0*d", width, i)
		t.order = append(t.order, id)
		t.endpoints[id] = ep
	}
	return t
}

// ShardIDs returns the assigned shard ids in assignment order.
func (t *ShardTable) ShardIDs() []string {
	return append([]string(nil), t.order...)
}

// Endpoint returns the endpoint assigned to shard_id.
func (t *ShardTable) Endpoint(shardID string) string {
	return t.endpoints[shardID]
}

// Endpoints returns the full shard_id -> endpoint map, suitable for a
// ring/init payload.
func (t *ShardTable) Endpoints() map[string]string {
	out := make(map[string]string, len(t.endpoints))
	for k, v := range t.endpoints {
		out[k] = v
	}
	return out
}

// Len returns the number of shards in the table.
func (t *ShardTable) Len() int {
	return len(t.order)
}
