// Package retry sweeps failed deliveries and redispatches them through the
// channel senders under an exponential backoff table.
//
// A delivery with retry count n becomes eligible once it has been failed
// for at least backoff[n] (default 1h, 4h, 12h; the last entry repeats).
// Each run claims a row before dispatching it, so concurrent runs, or
// multiple instances sharing a store, never double-send. Exhausting the
// retry budget (3) leaves the row terminally failed.
//
// The scheduler exposes a single idempotent Run entrypoint for external
// job runners, plus Start for deployments that prefer an in-process
// hourly ticker. Each run reports per-channel statistics.
package retry
