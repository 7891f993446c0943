package notify

import (
	"slices"

	"github.com/samber/lo"
)

// Candidate is a raw recipient candidate supplied by the caller: a member of
// the dealer with whatever entity relationships the triggering code knows
// about.
type Candidate struct {
	UserID     string
	Roles      []string
	IsAssigned bool // assigned to the entity the event concerns
	IsFollower bool // subscribed to updates on the entity
	CanView    bool // permitted to see the entity at all
}

// Resolver expands a matched rule's recipient spec, or the fallback
// followers policy, into a deduplicated list of user IDs.
type Resolver struct{}

// NewResolver creates a recipient resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns the user IDs a rule targets among the candidates, in
// candidate order. When rule is nil the fallback policy applies: entity
// followers who hold view permission. The triggering user is removed last,
// after every other filter, so self-notification never happens regardless
// of roles or assignment.
func (r *Resolver) Resolve(rule *Rule, triggeredBy string, candidates []Candidate) []string {
	var selected []string

	if rule == nil {
		selected = r.fallback(candidates)
	} else {
		selected = r.fromSpec(rule.Recipients, candidates)
	}

	selected = lo.Uniq(selected)

	return lo.Without(selected, triggeredBy)
}

// fromSpec unions the rule's role filter, explicit user list, and the
// assigned/follower inclusion flags over the candidate set.
func (r *Resolver) fromSpec(spec RecipientSpec, candidates []Candidate) []string {
	var out []string
	for _, c := range candidates {
		if r.specTargets(spec, c) {
			out = append(out, c.UserID)
		}
	}
	return out
}

func (r *Resolver) specTargets(spec RecipientSpec, c Candidate) bool {
	if slices.Contains(spec.Users, c.UserID) {
		return true
	}
	for _, role := range spec.Roles {
		if slices.Contains(c.Roles, role) {
			return true
		}
	}
	if spec.IncludeAssignedUser && c.IsAssigned {
		return true
	}
	if spec.IncludeFollowers && c.IsFollower {
		return true
	}
	return false
}

// fallback implements the followers-with-permission policy used when no
// dealer rule matches the event.
func (r *Resolver) fallback(candidates []Candidate) []string {
	var out []string
	for _, c := range candidates {
		if c.IsFollower && c.CanView {
			out = append(out, c.UserID)
		}
	}
	return out
}
