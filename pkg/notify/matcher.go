package notify

import "slices"

// Matcher selects the dealer rule that governs an event. Matching is
// deterministic: among qualifying rules the highest priority wins, and ties
// break on the smallest rule ID.
type Matcher struct{}

// NewMatcher creates a rule matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Match returns the winning rule for the event, or false when no enabled
// rule qualifies ("not configured for this event").
func (m *Matcher) Match(rules []Rule, event Event) (*Rule, bool) {
	var best *Rule
	for i := range rules {
		rule := &rules[i]
		if !m.applies(rule, event) {
			continue
		}
		if best == nil || betterMatch(rule, best) {
			best = rule
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

// applies reports whether the rule governs the event at all.
func (m *Matcher) applies(rule *Rule, event Event) bool {
	if !rule.Enabled {
		return false
	}
	if rule.Module != event.Module || rule.Event != event.Event {
		return false
	}
	return m.conditionsMet(rule.Conditions, event)
}

// conditionsMet evaluates the rule's condition clauses against the event.
// Every configured clause must pass; a clause whose required field is absent
// from the event data fails closed.
func (m *Matcher) conditionsMet(c Conditions, event Event) bool {
	if c.Empty() {
		return true
	}

	if len(c.Priorities) > 0 && !slices.Contains(c.Priorities, event.Priority) {
		return false
	}

	if len(c.Statuses) > 0 {
		status, ok := event.Status()
		if !ok || !slices.Contains(c.Statuses, status) {
			return false
		}
	}

	for field, want := range c.Fields {
		got, ok := event.Field(field)
		if !ok {
			return false
		}
		if !valueMatches(want, got) {
			return false
		}
	}

	return true
}

// valueMatches compares a condition value against an event data value.
// A slice condition is a membership test; anything else is equality.
func valueMatches(want, got any) bool {
	switch wv := want.(type) {
	case []any:
		for _, candidate := range wv {
			if looseEqual(candidate, got) {
				return true
			}
		}
		return false
	case []string:
		s, ok := got.(string)
		if !ok {
			return false
		}
		return slices.Contains(wv, s)
	default:
		return looseEqual(want, got)
	}
}

// looseEqual compares scalars, treating all numeric types as float64 the way
// JSON-decoded payloads present them.
func looseEqual(a, b any) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// betterMatch reports whether a should win over b under the deterministic
// ordering: priority descending, then rule ID ascending.
func betterMatch(a, b *Rule) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.ID < b.ID
}
