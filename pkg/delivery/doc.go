// Package delivery is the durable record of notification delivery: one log
// row per (notification, user, channel) attempt, moved through a
// forward-only status state machine.
//
// # State machine
//
//	pending ──► sent ──► delivered ──► clicked / read
//	   │          │           │
//	   │          ├──► bounced (terminal)
//	   ▼          ▼
//	 failed ◄─────┘
//	   │
//	   ├──► processing ──► sent / failed   (retry path, same row)
//	   │
//	any state ──► unsubscribed (terminal)
//
// A retry reuses the failed row; the retry scheduler claims it by moving it
// to processing first, which is what keeps overlapping runs from
// double-sending. Failed becomes terminal once the retry budget (3) is
// exhausted.
//
// # Logger
//
// The Logger wraps a Store with the best-effort contract the send path
// needs: transient write failures are retried with exponential backoff,
// and exhaustion returns nil instead of an error so logging can never
// block or fail a send. Bulk writes are chunked and each chunk commits
// independently.
//
// Two Store implementations ship with the package: MemoryStore for
// development and tests, and PostgresStore (pgx) for production. Both
// implement throttle.DeliveryCounter, so rate limiting counts real
// delivery history.
package delivery
