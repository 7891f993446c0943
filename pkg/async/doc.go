// Package async provides a minimal Future abstraction for running independent
// read operations concurrently and collecting their results in input order.
//
// The decision engine uses it to fan out per-user preference lookups:
//
//	futures := make([]*async.Future[*notify.Preference], len(userIDs))
//	for i, id := range userIDs {
//	    futures[i] = async.Async(ctx, id, fetchPreference)
//	}
//	prefs, errs := async.WaitAllSettled(futures...)
package async
