// Package throttle decides when a notification should be deferred or
// suppressed for a user: quiet-hour windows in the user's timezone and
// per-user hourly/daily delivery caps.
//
// Both evaluators are pure decision logic over a clock and historical
// counts; they never perform sends. Quiet hours defer non-urgent channels
// to the end of the window, rate limits hard-exclude a user for the current
// send cycle. Events with priority >= PriorityOverrideThreshold bypass both.
//
// The rate limiter deliberately fails open: if the delivery count lookup
// errors, the send is allowed. Losing a cap check is cheaper than losing a
// notification.
package throttle
