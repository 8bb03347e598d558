package autocomplete

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ewjdev/anyclick/internal/logging"
	"github.com/ewjdev/anyclick/internal/model"
	"github.com/ewjdev/anyclick/internal/tracker"
	"github.com/ewjdev/anyclick/tests/testutil"
)

func TestCategorize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		key       string
		fieldType model.FieldType
		want      model.AutocompleteCategory
	}{
		{"Epic Link", "customfield_10014", model.FieldTypeText, model.CategoryEpic},
		{"Team", "customfield_10001", model.FieldTypeText, model.CategoryTeam},
		{"Assignee", "assignee", model.FieldTypeUser, model.CategoryUser},
		{"Reviewer", "customfield_10200", model.FieldTypeUser, model.CategoryUser},
		{"Reporter", "reporter", model.FieldTypeText, model.CategoryUser},
		{"Sprint", "customfield_10020", model.FieldTypeText, model.CategoryGeneric},
	}

	for _, tc := range cases {
		got := Categorize(tc.name, tc.key, tc.fieldType)
		require.Equal(t, tc.want, got, tc.name)
	}
}

func TestResolveEpicPickerFirst(t *testing.T) {
	t.Parallel()

	trk := &testutil.FakeTracker{
		Picked: []tracker.IssueRef{
			{Key: "CP-1", Summary: "Payments revamp"},
		},
	}
	r := NewResolver(trk, "CP", "Epic", logging.Discard())

	field := model.FieldModel{
		Key: "epic1", DisplayName: "Epic Link",
		Category: model.CategoryEpic,
	}
	candidates := r.Resolve(context.Background(), field, "pay")

	require.Len(t, candidates, 1)
	require.Equal(t, "CP-1", candidates[0].ID)
	require.Equal(t, "CP-1: Payments revamp", candidates[0].Name)
	// First strategy produced results, so JQL never ran.
	require.Zero(t, trk.CallCount("SearchIssues"))
}

func TestResolveAdvancesPastEmptyStrategy(t *testing.T) {
	t.Parallel()

	trk := &testutil.FakeTracker{
		Issues: []tracker.IssueRef{
			{Key: "CP-2", Summary: "Search rework"},
			{Key: "CP-3", Summary: "Search indexing"},
			{Key: "CP-4", Summary: "Search UI"},
		},
	}
	r := NewResolver(trk, "CP", "Epic", logging.Discard())

	field := model.FieldModel{
		Key: "epic1", DisplayName: "Epic Link",
		Category: model.CategoryEpic,
	}
	candidates := r.Resolve(context.Background(), field, "search")

	// The picker returned nothing; the second strategy's results come
	// back exactly, never merged with anything.
	require.Len(t, candidates, 3)
	require.Equal(t, 1, trk.CallCount("PickIssues"))
}

func TestResolveTreatsFailureAsEmpty(t *testing.T) {
	t.Parallel()

	trk := &testutil.FakeTracker{
		Errs: map[string]error{
			"PickIssues": errors.New("picker exploded"),
		},
		Issues: []tracker.IssueRef{{Key: "CP-9", Summary: "Billing"}},
	}
	r := NewResolver(trk, "CP", "Epic", logging.Discard())

	field := model.FieldModel{
		Key: "epic1", DisplayName: "Epic Link",
		Category: model.CategoryEpic,
	}
	candidates := r.Resolve(context.Background(), field, "bill")

	require.Len(t, candidates, 1)
	require.Equal(t, "CP-9", candidates[0].ID)
}

func TestResolveExhaustionReturnsEmpty(t *testing.T) {
	t.Parallel()

	trk := &testutil.FakeTracker{
		Errs: map[string]error{
			"PickIssues":   errors.New("down"),
			"SearchIssues": errors.New("down"),
		},
	}
	r := NewResolver(trk, "CP", "Epic", logging.Discard())

	field := model.FieldModel{
		Key: "epic1", DisplayName: "Epic Link",
		Category: model.CategoryEpic,
	}
	candidates := r.Resolve(context.Background(), field, "anything")
	require.Empty(t, candidates)
}

func TestResolveEpicKeyPrefixExcludesLexicographicTail(t *testing.T) {
	t.Parallel()

	// The lower-bound query over-fetches everything at or after the
	// query in key order; only true prefix matches may come back.
	trk := &testutil.FakeTracker{
		SearchIssuesFn: func(jql string, maxResults int) ([]tracker.IssueRef, error) {
			if !strings.Contains(jql, "issuekey >=") {
				return nil, nil
			}
			return []tracker.IssueRef{
				{Key: "CP-10", Summary: "Checkout"},
				{Key: "CP-2", Summary: "Search"},
				{Key: "CP-9", Summary: "Billing"},
			}, nil
		},
	}
	r := NewResolver(trk, "CP", "Epic", logging.Discard())

	field := model.FieldModel{
		Key: "epic1", DisplayName: "Epic Link",
		Category: model.CategoryEpic,
	}
	candidates := r.Resolve(context.Background(), field, "cp-1")

	require.Len(t, candidates, 1)
	require.Equal(t, "CP-10", candidates[0].ID)
}

func TestResolveEpicDirectLookupForKeyShapedQuery(t *testing.T) {
	t.Parallel()

	trk := &testutil.FakeTracker{
		Issue: &tracker.IssueRef{Key: "CP-42", Summary: "Migration"},
	}
	r := NewResolver(trk, "CP", "Epic", logging.Discard())

	field := model.FieldModel{
		Key: "epic1", DisplayName: "Epic Link",
		Category: model.CategoryEpic,
	}
	candidates := r.Resolve(context.Background(), field, "cp-42")

	require.Len(t, candidates, 1)
	require.Equal(t, "CP-42", candidates[0].ID)
	require.Equal(t, 1, trk.CallCount("GetIssue"))
}

func TestResolveTeamPrefersDeclaredOptions(t *testing.T) {
	t.Parallel()

	trk := &testutil.FakeTracker{}
	r := NewResolver(trk, "CP", "Epic", logging.Discard())

	field := model.FieldModel{
		Key: "customfield_10001", DisplayName: "Team",
		Category: model.CategoryTeam,
		Options: []model.FieldOption{
			{ID: "t1", Value: "Platform", Label: "Platform"},
			{ID: "t2", Value: "Payments", Label: "Payments"},
		},
	}
	candidates := r.Resolve(context.Background(), field, "pay")

	require.Len(t, candidates, 1)
	require.Equal(t, "t2", candidates[0].ID)
	require.Zero(t, trk.CallCount("SuggestFieldValues"))
	require.Zero(t, trk.CallCount("SearchGroups"))
}

func TestResolveTeamFallsBackToGroups(t *testing.T) {
	t.Parallel()

	trk := &testutil.FakeTracker{
		Groups: []tracker.GroupRef{{GroupID: "g1", Name: "platform-team"}},
	}
	r := NewResolver(trk, "CP", "Epic", logging.Discard())

	field := model.FieldModel{
		Key: "customfield_10001", DisplayName: "Team",
		Category: model.CategoryTeam,
	}
	candidates := r.Resolve(context.Background(), field, "plat")

	require.Len(t, candidates, 1)
	require.Equal(t, "g1", candidates[0].ID)
	require.Equal(t, "platform-team", candidates[0].Name)
}

func TestResolveUserSearch(t *testing.T) {
	t.Parallel()

	trk := &testutil.FakeTracker{
		Users: []tracker.UserRef{
			{AccountID: "abc123", DisplayName: "Dana Reyes"},
		},
	}
	r := NewResolver(trk, "CP", "Epic", logging.Discard())

	field := model.FieldModel{
		Key: "assignee", DisplayName: "Assignee",
		Type: model.FieldTypeUser, Category: model.CategoryUser,
	}
	candidates := r.Resolve(context.Background(), field, "dana")

	require.Len(t, candidates, 1)
	require.Equal(t, "abc123", candidates[0].ID)
	require.Equal(t, "Dana Reyes", candidates[0].Name)
}

func TestResolveGenericStripsMarkup(t *testing.T) {
	t.Parallel()

	trk := &testutil.FakeTracker{
		Suggestions: []tracker.Suggestion{
			{Value: "backend", DisplayName: "<b>back</b>end"},
		},
	}
	r := NewResolver(trk, "CP", "Epic", logging.Discard())

	field := model.FieldModel{
		Key: "labels", DisplayName: "Labels",
		Category: model.CategoryGeneric,
	}
	candidates := r.Resolve(context.Background(), field, "back")

	require.Len(t, candidates, 1)
	require.Equal(t, "backend", candidates[0].Name)
	require.Equal(t, "backend", candidates[0].Value)
}

func TestEscapeJQL(t *testing.T) {
	t.Parallel()

	require.Equal(t, `he said \"hi\"`, escapeJQL(`he said "hi"`))
	require.Equal(t, `path\\to`, escapeJQL(`path\to`))
}
