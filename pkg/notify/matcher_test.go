package notify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerops/notifykit/pkg/notify"
)

func rule(id int64, priority int, mutate ...func(*notify.Rule)) notify.Rule {
	r := notify.Rule{
		ID:       id,
		DealerID: 42,
		Module:   notify.ModuleSalesOrders,
		Event:    "status_changed",
		Channels: []notify.Channel{notify.ChannelInApp},
		Priority: priority,
		Enabled:  true,
	}
	for _, fn := range mutate {
		fn(&r)
	}
	return r
}

func TestMatcher_Match(t *testing.T) {
	event := notify.Event{
		DealerID: 42,
		Module:   notify.ModuleSalesOrders,
		Event:    "status_changed",
		Priority: 50,
		Data:     map[string]any{"status": "approved", "total": float64(1200)},
	}

	tests := []struct {
		name    string
		rules   []notify.Rule
		event   notify.Event
		wantID  int64
		wantHit bool
	}{
		{
			name:    "highest priority wins",
			rules:   []notify.Rule{rule(1, 10), rule(2, 90), rule(3, 50)},
			event:   event,
			wantID:  2,
			wantHit: true,
		},
		{
			name:    "priority tie breaks on lowest rule id",
			rules:   []notify.Rule{rule(7, 50), rule(3, 50), rule(12, 50)},
			event:   event,
			wantID:  3,
			wantHit: true,
		},
		{
			name: "disabled rules never match",
			rules: []notify.Rule{
				rule(1, 90, func(r *notify.Rule) { r.Enabled = false }),
				rule(2, 10),
			},
			event:   event,
			wantID:  2,
			wantHit: true,
		},
		{
			name:    "module mismatch",
			rules:   []notify.Rule{rule(1, 50, func(r *notify.Rule) { r.Module = notify.ModuleInvoices })},
			event:   event,
			wantHit: false,
		},
		{
			name:    "event name mismatch",
			rules:   []notify.Rule{rule(1, 50, func(r *notify.Rule) { r.Event = "created" })},
			event:   event,
			wantHit: false,
		},
		{
			name: "status condition filters",
			rules: []notify.Rule{
				rule(1, 90, func(r *notify.Rule) {
					r.Conditions.Statuses = []string{"cancelled"}
				}),
				rule(2, 10, func(r *notify.Rule) {
					r.Conditions.Statuses = []string{"approved", "shipped"}
				}),
			},
			event:   event,
			wantID:  2,
			wantHit: true,
		},
		{
			name: "field condition equality with numeric coercion",
			rules: []notify.Rule{
				rule(1, 50, func(r *notify.Rule) {
					r.Conditions.Fields = map[string]any{"total": 1200}
				}),
			},
			event:   event,
			wantID:  1,
			wantHit: true,
		},
		{
			name: "field condition membership list",
			rules: []notify.Rule{
				rule(1, 50, func(r *notify.Rule) {
					r.Conditions.Fields = map[string]any{"status": []any{"approved", "shipped"}}
				}),
			},
			event:   event,
			wantID:  1,
			wantHit: true,
		},
		{
			name: "absent condition field fails closed",
			rules: []notify.Rule{
				rule(1, 50, func(r *notify.Rule) {
					r.Conditions.Fields = map[string]any{"region": "midwest"}
				}),
			},
			event:   event,
			wantHit: false,
		},
		{
			name: "priority condition filters",
			rules: []notify.Rule{
				rule(1, 50, func(r *notify.Rule) {
					r.Conditions.Priorities = []int{90, 95}
				}),
			},
			event:   event,
			wantHit: false,
		},
		{
			name: "status condition with no event status fails closed",
			rules: []notify.Rule{
				rule(1, 50, func(r *notify.Rule) {
					r.Conditions.Statuses = []string{"approved"}
				}),
			},
			event: notify.Event{
				DealerID: 42,
				Module:   notify.ModuleSalesOrders,
				Event:    "status_changed",
				Priority: 50,
			},
			wantHit: false,
		},
		{
			name:    "no rules",
			rules:   nil,
			event:   event,
			wantHit: false,
		},
	}

	matcher := notify.NewMatcher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := matcher.Match(tt.rules, tt.event)
			require.Equal(t, tt.wantHit, ok)
			if tt.wantHit {
				assert.Equal(t, tt.wantID, got.ID)
			}
		})
	}
}

func TestMatcher_Deterministic(t *testing.T) {
	event := notify.Event{
		DealerID: 42,
		Module:   notify.ModuleSalesOrders,
		Event:    "status_changed",
		Priority: 50,
	}

	// Same rule set in different slice orders must pick the same winner.
	a := []notify.Rule{rule(5, 70), rule(2, 70), rule(9, 30)}
	b := []notify.Rule{rule(9, 30), rule(5, 70), rule(2, 70)}

	matcher := notify.NewMatcher()
	first, ok := matcher.Match(a, event)
	require.True(t, ok)
	second, ok := matcher.Match(b, event)
	require.True(t, ok)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(2), first.ID)
}
