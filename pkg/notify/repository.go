package notify

import "context"

// RuleRepository provides read-only access to dealer notification rules.
// The decision core never mutates rules; dealer admins own them.
type RuleRepository interface {
	// RulesFor returns every rule configured for the (dealer, module,
	// event) scope, enabled or not. Filtering happens in the matcher.
	RulesFor(ctx context.Context, dealerID int64, module Module, event string) ([]Rule, error)
}

// PreferenceRepository provides read-only access to user notification
// preferences.
type PreferenceRepository interface {
	// PreferenceFor returns the preference for one (user, dealer, module)
	// scope, or nil when the user never configured one. A nil preference
	// means everything is enabled with default limits.
	PreferenceFor(ctx context.Context, userID string, dealerID int64, module Module) (*Preference, error)
}
