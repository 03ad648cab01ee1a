package coordinator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dreamware/exelixi/internal/transport"
)

// Barrier fans a control-plane call out to every shard endpoint
// concurrently and waits for all of them to complete. It is the
// building block for the two-phase rendezvous in §5: every shard's
// shard/wait must return before any shard's shard/join is issued, so
// callers run two separate Barrier calls back to back rather than
// interleaving per-shard wait/join pairs.
func Barrier(ctx context.Context, client *transport.Client, endpoints map[string]string, path string, body func(shardID string) any) error {
	g, gctx := errgroup.WithContext(ctx)
	for shardID, endpoint := range endpoints {
		shardID, endpoint := shardID, endpoint
		g.Go(func() error {
			url := endpoint + path
			if err := client.PostJSON(gctx, url, body(shardID), nil); err != nil {
				return fmt.Errorf("coordinator: barrier %s: %w", url, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// TwoPhaseBarrier issues shard/wait to every shard and waits for all of
// them to return, then issues shard/join to every shard and waits for
// all of them to return. The ordering is load-bearing: shard/wait
// releases once every shard has reported the current phase complete,
// and only then is it safe to drain each shard's task queue with
// shard/join, per the two-phase barrier in §5.
func TwoPhaseBarrier(ctx context.Context, client *transport.Client, endpoints map[string]string, creds func(shardID string) transport.Credentials) error {
	credBody := func(shardID string) any { return creds(shardID) }

	if err := Barrier(ctx, client, endpoints, "/shard/wait", credBody); err != nil {
		return fmt.Errorf("coordinator: phase wait: %w", err)
	}
	if err := Barrier(ctx, client, endpoints, "/shard/join", credBody); err != nil {
		return fmt.Errorf("coordinator: phase join: %w", err)
	}
	return nil
}
