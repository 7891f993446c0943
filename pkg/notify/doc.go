// Package notify is the decision core of the dealership notification
// pipeline: given a business event, it determines who gets notified, on
// which channels, and when.
//
// # Architecture
//
// The engine composes three collaborators, each independently testable:
//
//   - Matcher: ranks dealer-configured rules for an event; deterministic,
//     priority-descending with rule-ID tiebreak
//   - Resolver: expands a rule's recipient spec (or the followers fallback
//     policy) into concrete user IDs, never including the triggering user
//   - Engine: orchestrates matching, resolution, preference filtering,
//     quiet-hour deferral, and rate limiting into a Decision
//
// Rule and preference access goes through injected read-only repository
// interfaces; the engine has no knowledge of the storage engine behind
// them.
//
// # Usage
//
//	engine := notify.NewEngine(ruleRepo, prefRepo, limiter)
//
//	event := notify.NewEvent(dealerID, notify.ModuleSalesOrders, "order_created")
//	event.EntityType = "sales_order"
//	event.EntityID = "SO-001"
//	event.TriggeredBy = actorID
//
//	decision := engine.Decide(ctx, event, candidates)
//	if decision.ShouldSend {
//	    for _, r := range decision.Recipients {
//	        // hand each (user, channel, time) to the channel senders
//	    }
//	}
//
// A decision with no recipients is a normal outcome, not an error. The
// Reasoning field records every filtering step for audit and debugging.
package notify
