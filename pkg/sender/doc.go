// Package sender defines the uniform contract between the notification
// core and the per-channel transports. The core decides and tracks; the
// actual SMS/email/push mechanics live behind the Sender interface in
// provider-specific packages outside this module.
//
// The Registry routes requests by channel and is shared by the primary
// send path and the retry scheduler, so retried deliveries go through
// exactly the same send logic as first attempts.
package sender
