package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewShardTableZeroPadsWidth(t *testing.T) {
	endpoints := make([]string, 12)
	for i := range endpoints {
		endpoints[i] = "http://host"
	}
	table := NewShardTable(endpoints)
	ids := table.ShardIDs()
	assert.Len(t, ids, 12)
	assert.Equal(t, "shard/00", ids[0])
	assert.Equal(t, "shard/11", ids[11])
}

func TestNewShardTableSingleShard(t *testing.T) {
	table := NewShardTable([]string{"http://only"})
	ids := table.ShardIDs()
	assert.Equal(t, []string{"shard/0"}, ids)
	assert.Equal(t, "http://only", table.Endpoint("shard/0"))
}

func TestShardTableEndpointsIsACopy(t *testing.T) {
	table := NewShardTable([]string{"http://a", "http://b"})
	endpoints := table.Endpoints()
	endpoints["shard/0"] = "mutated"
	assert.NotEqual(t, "mutated", table.Endpoint("shard/0"))
}

func TestShardTableLen(t *testing.T) {
	table := NewShardTable([]string{"http://a", "http://b", "http://c"})
	assert.Equal(t, 3, table.Len())
}
