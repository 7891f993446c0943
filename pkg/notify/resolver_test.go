package notify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dealerops/notifykit/pkg/notify"
)

func TestResolver_Resolve(t *testing.T) {
	candidates := []notify.Candidate{
		{UserID: "mgr-1", Roles: []string{"sales_manager"}},
		{UserID: "mgr-2", Roles: []string{"sales_manager"}, IsFollower: true, CanView: true},
		{UserID: "rep-1", Roles: []string{"sales_rep"}, IsAssigned: true},
		{UserID: "rep-2", Roles: []string{"sales_rep"}, IsFollower: true},
		{UserID: "acct-1", Roles: []string{"accountant"}, IsFollower: true, CanView: true},
	}

	tests := []struct {
		name        string
		rule        *notify.Rule
		triggeredBy string
		want        []string
	}{
		{
			name: "role filter",
			rule: &notify.Rule{
				Recipients: notify.RecipientSpec{Roles: []string{"sales_manager"}},
			},
			want: []string{"mgr-1", "mgr-2"},
		},
		{
			name: "explicit users union roles",
			rule: &notify.Rule{
				Recipients: notify.RecipientSpec{
					Roles: []string{"accountant"},
					Users: []string{"rep-2"},
				},
			},
			want: []string{"rep-2", "acct-1"},
		},
		{
			name: "assigned user flag",
			rule: &notify.Rule{
				Recipients: notify.RecipientSpec{IncludeAssignedUser: true},
			},
			want: []string{"rep-1"},
		},
		{
			name: "followers flag includes followers without view permission",
			rule: &notify.Rule{
				Recipients: notify.RecipientSpec{IncludeFollowers: true},
			},
			want: []string{"mgr-2", "rep-2", "acct-1"},
		},
		{
			name: "overlapping filters deduplicate",
			rule: &notify.Rule{
				Recipients: notify.RecipientSpec{
					Roles:            []string{"sales_manager"},
					Users:            []string{"mgr-2"},
					IncludeFollowers: true,
				},
			},
			want: []string{"mgr-1", "mgr-2", "rep-2", "acct-1"},
		},
		{
			name: "triggering user removed even when explicitly listed",
			rule: &notify.Rule{
				Recipients: notify.RecipientSpec{
					Users: []string{"mgr-1", "mgr-2"},
				},
			},
			triggeredBy: "mgr-1",
			want:        []string{"mgr-2"},
		},
		{
			name: "triggering user removed from assigned",
			rule: &notify.Rule{
				Recipients: notify.RecipientSpec{IncludeAssignedUser: true},
			},
			triggeredBy: "rep-1",
			want:        nil,
		},
		{
			name: "fallback targets followers with view permission only",
			rule: nil,
			want: []string{"mgr-2", "acct-1"},
		},
		{
			name:        "fallback also excludes the triggering user",
			rule:        nil,
			triggeredBy: "acct-1",
			want:        []string{"mgr-2"},
		},
		{
			name: "empty spec selects nobody",
			rule: &notify.Rule{},
			want: nil,
		},
	}

	resolver := notify.NewResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolver.Resolve(tt.rule, tt.triggeredBy, candidates)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_NoCandidates(t *testing.T) {
	resolver := notify.NewResolver()
	got := resolver.Resolve(&notify.Rule{
		Recipients: notify.RecipientSpec{Roles: []string{"sales_manager"}},
	}, "", nil)
	assert.Empty(t, got)
}
