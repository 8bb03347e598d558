package autocomplete

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ewjdev/anyclick/internal/logging"
	"github.com/ewjdev/anyclick/internal/model"
	"github.com/ewjdev/anyclick/internal/tracker"
	"github.com/ewjdev/anyclick/tests/testutil"
)

func debouncedForTest(trk tracker.Tracker, interval time.Duration) *Debounced {
	r := NewResolver(trk, "CP", "Epic", logging.Discard())
	return NewDebounced(r, interval)
}

func TestDebouncedCollapsesRapidSearches(t *testing.T) {
	t.Parallel()

	trk := &testutil.FakeTracker{
		Users: []tracker.UserRef{{AccountID: "u1", DisplayName: "Sam"}},
	}
	d := debouncedForTest(trk, 50*time.Millisecond)

	field := model.FieldModel{
		Key: "assignee", DisplayName: "Assignee",
		Type: model.FieldTypeUser, Category: model.CategoryUser,
	}

	got := make(chan []model.Candidate, 3)
	deliver := func(c []model.Candidate) { got <- c }

	// Three keystrokes inside one interval: only the last search runs.
	d.Search(context.Background(), field, "s", deliver)
	d.Search(context.Background(), field, "sa", deliver)
	d.Search(context.Background(), field, "sam", deliver)

	select {
	case c := <-got:
		require.Len(t, c, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered")
	}

	// Give any stray deliveries time to land.
	time.Sleep(150 * time.Millisecond)
	require.Empty(t, got)
	require.Equal(t, 1, trk.CallCount("SearchUsers"))
}

func TestDebouncedCancelDropsPending(t *testing.T) {
	t.Parallel()

	trk := &testutil.FakeTracker{
		Users: []tracker.UserRef{{AccountID: "u1", DisplayName: "Sam"}},
	}
	d := debouncedForTest(trk, 30*time.Millisecond)

	field := model.FieldModel{
		Key: "assignee", DisplayName: "Assignee",
		Type: model.FieldTypeUser, Category: model.CategoryUser,
	}

	delivered := make(chan []model.Candidate, 1)
	d.Search(context.Background(), field, "sam", func(c []model.Candidate) {
		delivered <- c
	})
	d.Cancel()

	time.Sleep(150 * time.Millisecond)
	require.Empty(t, delivered)
	require.Zero(t, trk.CallCount("SearchUsers"))
}

func TestDebouncedIgnoresCancelledContext(t *testing.T) {
	t.Parallel()

	trk := &testutil.FakeTracker{
		Users: []tracker.UserRef{{AccountID: "u1", DisplayName: "Sam"}},
	}
	d := debouncedForTest(trk, 20*time.Millisecond)

	field := model.FieldModel{
		Key: "assignee", DisplayName: "Assignee",
		Type: model.FieldTypeUser, Category: model.CategoryUser,
	}

	ctx, cancel := context.WithCancel(context.Background())
	delivered := make(chan []model.Candidate, 1)
	d.Search(ctx, field, "sam", func(c []model.Candidate) {
		delivered <- c
	})
	cancel()

	time.Sleep(150 * time.Millisecond)
	require.Empty(t, delivered)
}
