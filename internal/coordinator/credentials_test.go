package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRunPrefixIsUniquePerCall(t *testing.T) {
	a := NewRunPrefix("exelixi")
	b := NewRunPrefix("exelixi")
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "exelixi-")
}

func TestCredentialsForCarriesShardID(t *testing.T) {
	creds := CredentialsFor("run-1", "shard/003")
	assert.Equal(t, "run-1", creds.Prefix)
	assert.Equal(t, "shard/003", creds.ShardID)
}
