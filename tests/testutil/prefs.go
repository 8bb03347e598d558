package testutil

import (
	"testing"

	"github.com/ewjdev/anyclick/internal/prefs"
)

// NewTestPrefs creates an in-memory preferences store with all
// migrations applied. It automatically closes the store when the test
// completes.
func NewTestPrefs(t *testing.T) *prefs.Store {
	t.Helper()

	s, err := prefs.New(":memory:")
	if err != nil {
		t.Fatalf("creating test prefs store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test prefs store: %v", err)
		}
	})

	return s
}
