package coordinator

import (
	"github.com/google/uuid"

	"github.com/dreamware/exelixi/internal/transport"
)

// NewRunPrefix generates a run-scoped credentials prefix, the Go
// equivalent of the source's uuid1().hex-suffixed prefix: a fresh
// identifier every run, immutable for its duration.
func NewRunPrefix(base string) string {
	return base + "-" + uuid.New().String()
}

// CredentialsFor returns the {prefix, shard_id} tuple carried on every
// control-plane payload addressed to shardID.
func CredentialsFor(prefix, shardID string) transport.Credentials {
	return transport.Credentials{Prefix: prefix, ShardID: shardID}
}
