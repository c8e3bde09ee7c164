// Package dispatch runs a function over many shards with bounded concurrency.
//
// A sharded pull has thousands of independent shards. One failing shard must
// not stop its siblings, so the dispatcher records per-shard outcomes instead
// of aborting, and the caller re-runs only the failed shards.
//
// Example usage:
//
//	d := dispatch.New(dispatch.DefaultConfig())
//	results, summary := d.Run(ctx, shards, func(ctx context.Context, s shard.Shard) (int, error) {
//		reads, err := query.Reads(api, s, opts)
//		if err != nil {
//			return 0, err
//		}
//		return stream.Count(ctx, reads)
//	})
//
// The dispatcher:
//   - Starts at most MaxConcurrency shards at a time
//   - Bounds each shard by Timeout
//   - Stops handing out shards once ctx is cancelled and reports the rest as skipped
//   - Logs progress every ProgressEvery completed shards
package dispatch
