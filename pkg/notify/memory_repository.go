package notify

import (
	"context"
	"sync"
)

// MemoryRuleRepository is an in-memory RuleRepository for development and
// testing.
type MemoryRuleRepository struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewMemoryRuleRepository creates a repository seeded with the given rules.
func NewMemoryRuleRepository(rules ...Rule) *MemoryRuleRepository {
	return &MemoryRuleRepository{rules: rules}
}

// Add appends a rule.
func (r *MemoryRuleRepository) Add(rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule)
}

func (r *MemoryRuleRepository) RulesFor(ctx context.Context, dealerID int64, module Module, event string) ([]Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Rule
	for _, rule := range r.rules {
		if rule.DealerID == dealerID && rule.Module == module && rule.Event == event {
			out = append(out, rule)
		}
	}
	return out, nil
}

// MemoryPreferenceRepository is an in-memory PreferenceRepository for
// development and testing.
type MemoryPreferenceRepository struct {
	mu    sync.RWMutex
	prefs map[prefKey]Preference
}

type prefKey struct {
	userID   string
	dealerID int64
	module   Module
}

// NewMemoryPreferenceRepository creates an empty preference repository.
func NewMemoryPreferenceRepository() *MemoryPreferenceRepository {
	return &MemoryPreferenceRepository{prefs: make(map[prefKey]Preference)}
}

// Set stores a preference, replacing any existing one for the same scope.
func (r *MemoryPreferenceRepository) Set(pref Preference) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs[prefKey{userID: pref.UserID, dealerID: pref.DealerID, module: pref.Module}] = pref
}

func (r *MemoryPreferenceRepository) PreferenceFor(ctx context.Context, userID string, dealerID int64, module Module) (*Preference, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pref, ok := r.prefs[prefKey{userID: userID, dealerID: dealerID, module: module}]
	if !ok {
		return nil, nil
	}
	// Copy so callers cannot mutate stored state.
	out := pref
	return &out, nil
}
