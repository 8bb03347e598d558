package testutil

import (
	"context"
	"sync"

	"github.com/ewjdev/anyclick/internal/model"
	"github.com/ewjdev/anyclick/internal/tracker"
)

// FakeTracker is a scripted Tracker for engine tests. Each call either
// returns the scripted result or a zero value. Errors are injected per
// method name via Errs.
type FakeTracker struct {
	mu sync.Mutex

	IssueTypes  []model.IssueTypeDescriptor
	Fields      []tracker.RawField
	Created     *tracker.CreateResult
	Issues      []tracker.IssueRef
	Picked      []tracker.IssueRef
	Issue       *tracker.IssueRef
	Users       []tracker.UserRef
	Groups      []tracker.GroupRef
	Suggestions []tracker.Suggestion

	// SearchIssuesFn, when set, scripts SearchIssues per query instead
	// of the fixed Issues slice.
	SearchIssuesFn func(jql string, maxResults int) ([]tracker.IssueRef, error)

	// Errs injects an error for a method, keyed by method name.
	Errs map[string]error

	// Calls records method names in invocation order.
	Calls []string

	// CreateRequests records every CreateIssue payload.
	CreateRequests []tracker.CreateRequest

	// Uploaded records every attachment filename passed to
	// UploadAttachment.
	Uploaded []string
}

func (f *FakeTracker) record(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, method)
	return f.Errs[method]
}

// CallCount returns how many times method was invoked.
func (f *FakeTracker) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == method {
			n++
		}
	}
	return n
}

func (f *FakeTracker) ValidateConnection(ctx context.Context) (string, error) {
	if err := f.record("ValidateConnection"); err != nil {
		return "", err
	}
	return "Test User", nil
}

func (f *FakeTracker) ListIssueTypes(
	ctx context.Context,
	projectKey string,
) ([]model.IssueTypeDescriptor, error) {
	if err := f.record("ListIssueTypes"); err != nil {
		return nil, err
	}
	return f.IssueTypes, nil
}

func (f *FakeTracker) GetCreateFields(
	ctx context.Context,
	projectKey, issueTypeID string,
) ([]tracker.RawField, error) {
	if err := f.record("GetCreateFields"); err != nil {
		return nil, err
	}
	return f.Fields, nil
}

func (f *FakeTracker) CreateIssue(
	ctx context.Context,
	req tracker.CreateRequest,
) (*tracker.CreateResult, error) {
	if err := f.record("CreateIssue"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.CreateRequests = append(f.CreateRequests, req)
	f.mu.Unlock()
	if f.Created != nil {
		return f.Created, nil
	}
	return &tracker.CreateResult{ID: "10000", Key: "TEST-1"}, nil
}

func (f *FakeTracker) UploadAttachment(
	ctx context.Context,
	issueKey string,
	att tracker.Attachment,
) error {
	if err := f.record("UploadAttachment"); err != nil {
		return err
	}
	f.mu.Lock()
	f.Uploaded = append(f.Uploaded, att.Filename)
	f.mu.Unlock()
	return nil
}

func (f *FakeTracker) SearchIssues(
	ctx context.Context,
	jql string,
	maxResults int,
) ([]tracker.IssueRef, error) {
	if err := f.record("SearchIssues"); err != nil {
		return nil, err
	}
	if f.SearchIssuesFn != nil {
		return f.SearchIssuesFn(jql, maxResults)
	}
	return f.Issues, nil
}

func (f *FakeTracker) PickIssues(
	ctx context.Context,
	opts tracker.PickOptions,
) ([]tracker.IssueRef, error) {
	if err := f.record("PickIssues"); err != nil {
		return nil, err
	}
	return f.Picked, nil
}

func (f *FakeTracker) GetIssue(
	ctx context.Context,
	key string,
) (*tracker.IssueRef, error) {
	if err := f.record("GetIssue"); err != nil {
		return nil, err
	}
	return f.Issue, nil
}

func (f *FakeTracker) SearchUsers(
	ctx context.Context,
	query string,
) ([]tracker.UserRef, error) {
	if err := f.record("SearchUsers"); err != nil {
		return nil, err
	}
	return f.Users, nil
}

func (f *FakeTracker) SearchGroups(
	ctx context.Context,
	query string,
) ([]tracker.GroupRef, error) {
	if err := f.record("SearchGroups"); err != nil {
		return nil, err
	}
	return f.Groups, nil
}

func (f *FakeTracker) SuggestFieldValues(
	ctx context.Context,
	fieldName, query string,
) ([]tracker.Suggestion, error) {
	if err := f.record("SuggestFieldValues"); err != nil {
		return nil, err
	}
	return f.Suggestions, nil
}
