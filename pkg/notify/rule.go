package notify

// RecipientSpec describes who a dealer rule targets. Role and user filters
// are unioned with the assigned-user and follower inclusion flags.
type RecipientSpec struct {
	Roles               []string `json:"roles,omitempty"`
	Users               []string `json:"users,omitempty"`
	IncludeAssignedUser bool     `json:"include_assigned_user"`
	IncludeFollowers    bool     `json:"include_followers"`
}

// Conditions restricts which events a rule applies to. All configured
// clauses must pass; an empty Conditions matches unconditionally.
type Conditions struct {
	// Priorities whitelists event priorities. Empty means any priority.
	Priorities []int `json:"priorities,omitempty"`

	// Statuses whitelists the "status" field of the event data. Empty
	// means any status. A rule with a status whitelist does not match an
	// event that carries no status at all.
	Statuses []string `json:"statuses,omitempty"`

	// Fields requires event data fields to equal a value, or to be a
	// member of a list of values. A required field absent from the event
	// data fails the rule (fail closed).
	Fields map[string]any `json:"fields,omitempty"`
}

// Empty reports whether no condition clauses are configured.
func (c Conditions) Empty() bool {
	return len(c.Priorities) == 0 && len(c.Statuses) == 0 && len(c.Fields) == 0
}

// Rule is a dealer-owned notification configuration entry. Rules are
// read-only to the decision core; dealer admins manage them elsewhere.
type Rule struct {
	ID         int64         `json:"id"`
	DealerID   int64         `json:"dealer_id"`
	Module     Module        `json:"module"`
	Event      string        `json:"event"`
	Conditions Conditions    `json:"conditions"`
	Recipients RecipientSpec `json:"recipients"`
	Channels   []Channel     `json:"channels"`
	Priority   int           `json:"priority"`
	Enabled    bool          `json:"enabled"`
}
