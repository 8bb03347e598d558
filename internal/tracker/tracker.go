// Package tracker defines the contract between the reporting engine and
// an external issue-tracking service, plus the error taxonomy shared by
// every tracker operation.
package tracker

import (
	"context"

	"github.com/ewjdev/anyclick/internal/model"
)

// RawFieldSchema is the tracker's declared type information for a field.
type RawFieldSchema struct {
	// Type is the primitive schema type (string, number, array, user, ...).
	Type string

	// Items is the element type when Type is "array".
	Items string

	// System names a built-in field (summary, description, priority, ...).
	System string

	// Custom is the custom-field type tag
	// (e.g. "...:textarea", "...:select").
	Custom string
}

// RawAllowedValue is one entry of a field's enumerable allowed-value
// list. The tracker populates different subsets of these properties per
// field type; all are optional.
type RawAllowedValue struct {
	ID    string
	Value string
	Name  string
}

// RawField is one field descriptor from the tracker's create-metadata,
// before normalization.
type RawField struct {
	Key             string
	Name            string
	Required        bool
	Schema          RawFieldSchema
	AllowedValues   []RawAllowedValue
	HasDefaultValue bool
	DefaultValue    *RawAllowedValue
	AutoCompleteURL string
}

// IssueRef identifies one existing issue returned from a search surface.
type IssueRef struct {
	ID      string
	Key     string
	Summary string
}

// UserRef identifies one user returned from people search.
type UserRef struct {
	AccountID   string
	DisplayName string
	Email       string
}

// GroupRef identifies one group returned from the group picker.
type GroupRef struct {
	GroupID string
	Name    string
}

// Suggestion is one entry from the generic field-value suggestion surface.
type Suggestion struct {
	Value       string
	DisplayName string
}

// PickOptions scopes an issue-picker search.
type PickOptions struct {
	Query      string
	ProjectKey string

	// CurrentJQL restricts picker results server-side
	// (e.g. to the epic issue type).
	CurrentJQL string
}

// CreateRequest is the field map submitted to create one issue.
type CreateRequest struct {
	ProjectKey  string
	IssueTypeID string
	Summary     string
	Description string
	Labels      []string

	// Fields holds coerced wire values for custom fields, keyed by
	// field key. Values are already in the tracker's wire shape.
	Fields map[string]any
}

// CreateResult is the tracker-assigned identity of a created issue.
type CreateResult struct {
	ID  string
	Key string
	URL string
}

// Attachment is one file uploaded against a created issue.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Tracker defines the contract an issue-tracking service adapter must
// implement. All methods honor context cancellation and return errors
// from the taxonomy in errors.go.
type Tracker interface {
	// ValidateConnection verifies credentials and connectivity.
	// Returns the authenticated user's display name on success.
	ValidateConnection(ctx context.Context) (string, error)

	// ListIssueTypes returns the creatable issue types for a project.
	ListIssueTypes(ctx context.Context, projectKey string) ([]model.IssueTypeDescriptor, error)

	// GetCreateFields returns the raw field metadata for creating an
	// issue of the given type in the given project.
	GetCreateFields(ctx context.Context, projectKey, issueTypeID string) ([]RawField, error)

	// CreateIssue submits one issue and returns its tracker identity.
	CreateIssue(ctx context.Context, req CreateRequest) (*CreateResult, error)

	// UploadAttachment uploads one file against an existing issue.
	// Independent of issue creation: failures are the caller's to log
	// and swallow.
	UploadAttachment(ctx context.Context, issueKey string, att Attachment) error

	// SearchIssues runs a structured (JQL) query.
	SearchIssues(ctx context.Context, jql string, maxResults int) ([]IssueRef, error)

	// PickIssues runs the issue-picker search.
	PickIssues(ctx context.Context, opts PickOptions) ([]IssueRef, error)

	// GetIssue fetches a single issue by key.
	GetIssue(ctx context.Context, key string) (*IssueRef, error)

	// SearchUsers runs the people-search surface.
	SearchUsers(ctx context.Context, query string) ([]UserRef, error)

	// SearchGroups runs the group/team picker.
	SearchGroups(ctx context.Context, query string) ([]GroupRef, error)

	// SuggestFieldValues queries the generic field-value suggestion
	// surface for the named field.
	SuggestFieldValues(ctx context.Context, fieldName, query string) ([]Suggestion, error)
}
