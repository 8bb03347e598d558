// Package jira implements the tracker contract against the Jira Cloud
// REST API v2.
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/ewjdev/anyclick/internal/model"
	"github.com/ewjdev/anyclick/internal/tracker"
)

// Adapter implements tracker.Tracker for Jira Cloud.
type Adapter struct {
	client  *Client
	baseURL string
}

// NewAdapter creates a new Jira tracker adapter authenticating with an
// email/API-token pair.
func NewAdapter(baseURL, email, apiToken string) *Adapter {
	return &Adapter{
		client:  NewClient(baseURL, email, apiToken),
		baseURL: trimBase(baseURL),
	}
}

func trimBase(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// ValidateConnection verifies credentials by calling GET /rest/api/2/myself.
// Returns the user's display name on success.
func (a *Adapter) ValidateConnection(ctx context.Context) (string, error) {
	var me Myself
	if err := a.client.Get(ctx, "/rest/api/2/myself", &me); err != nil {
		return "", fmt.Errorf("validating Jira connection: %w", err)
	}
	return me.DisplayName, nil
}

// ListIssueTypes returns the creatable issue types for a project,
// excluding subtask types.
func (a *Adapter) ListIssueTypes(
	ctx context.Context,
	projectKey string,
) ([]model.IssueTypeDescriptor, error) {
	path := fmt.Sprintf(
		"/rest/api/2/issue/createmeta/%s/issuetypes",
		url.PathEscape(projectKey),
	)

	var resp IssueTypeListResponse
	if err := a.client.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf(
			"listing issue types for %s: %w", projectKey, err,
		)
	}

	raw := resp.IssueTypes
	if len(raw) == 0 {
		raw = resp.Values
	}

	types := make([]model.IssueTypeDescriptor, 0, len(raw))
	for _, it := range raw {
		if it.Subtask {
			continue
		}
		types = append(types, model.IssueTypeDescriptor{
			ID:          it.ID,
			Name:        it.Name,
			Description: it.Description,
			IconURL:     it.IconURL,
		})
	}

	return types, nil
}

// GetCreateFields returns the raw field metadata for creating an issue
// of the given type.
func (a *Adapter) GetCreateFields(
	ctx context.Context,
	projectKey string,
	issueTypeID string,
) ([]tracker.RawField, error) {
	path := fmt.Sprintf(
		"/rest/api/2/issue/createmeta/%s/issuetypes/%s",
		url.PathEscape(projectKey),
		url.PathEscape(issueTypeID),
	)

	var resp FieldListResponse
	if err := a.client.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf(
			"fetching create fields for %s/%s: %w",
			projectKey, issueTypeID, err,
		)
	}

	raw := resp.Fields
	if len(raw) == 0 {
		raw = resp.Values
	}

	fields := make([]tracker.RawField, 0, len(raw))
	for _, fm := range raw {
		fields = append(fields, fieldMetaToRaw(fm))
	}

	return fields, nil
}

// CreateIssue submits one issue via POST /rest/api/2/issue.
func (a *Adapter) CreateIssue(
	ctx context.Context,
	req tracker.CreateRequest,
) (*tracker.CreateResult, error) {
	fields := map[string]any{
		"project":   map[string]string{"key": req.ProjectKey},
		"issuetype": map[string]string{"id": req.IssueTypeID},
		"summary":   req.Summary,
	}
	if req.Description != "" {
		fields["description"] = req.Description
	}
	if len(req.Labels) > 0 {
		fields["labels"] = req.Labels
	}
	for key, value := range req.Fields {
		fields[key] = value
	}

	payload := map[string]any{"fields": fields}

	var resp CreateIssueResponse
	err := a.client.Post(ctx, "/rest/api/2/issue", payload, &resp)
	if err != nil {
		return nil, err
	}

	return &tracker.CreateResult{
		ID:  resp.ID,
		Key: resp.Key,
		URL: a.baseURL + "/browse/" + resp.Key,
	}, nil
}

// UploadAttachment uploads one file against an existing issue.
func (a *Adapter) UploadAttachment(
	ctx context.Context,
	issueKey string,
	att tracker.Attachment,
) error {
	path := fmt.Sprintf(
		"/rest/api/2/issue/%s/attachments", url.PathEscape(issueKey),
	)
	if err := a.client.PostMultipart(ctx, path, att.Filename, att.Data); err != nil {
		return fmt.Errorf(
			"uploading %s to %s: %w", att.Filename, issueKey, err,
		)
	}
	return nil
}

// SearchIssues runs a JQL query and returns matching issue references.
func (a *Adapter) SearchIssues(
	ctx context.Context,
	jql string,
	maxResults int,
) ([]tracker.IssueRef, error) {
	if maxResults < 1 {
		maxResults = 20
	}

	body := map[string]any{
		"jql":        jql,
		"fields":     []string{"summary"},
		"maxResults": maxResults,
	}

	var resp SearchResponse
	if err := a.client.Post(ctx, "/rest/api/2/search", body, &resp); err != nil {
		return nil, fmt.Errorf("searching issues: %w", err)
	}

	refs := make([]tracker.IssueRef, 0, len(resp.Issues))
	for _, issue := range resp.Issues {
		refs = append(refs, tracker.IssueRef{
			ID:      issue.ID,
			Key:     issue.Key,
			Summary: issue.Fields.Summary,
		})
	}

	return refs, nil
}

// PickIssues runs the issue-picker search, flattening all sections.
func (a *Adapter) PickIssues(
	ctx context.Context,
	opts tracker.PickOptions,
) ([]tracker.IssueRef, error) {
	q := url.Values{}
	q.Set("query", opts.Query)
	if opts.CurrentJQL != "" {
		q.Set("currentJQL", opts.CurrentJQL)
	}
	if opts.ProjectKey != "" {
		q.Set("currentProjectId", opts.ProjectKey)
	}

	var resp PickerResponse
	path := "/rest/api/2/issue/picker?" + q.Encode()
	if err := a.client.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("issue picker search: %w", err)
	}

	var refs []tracker.IssueRef
	for _, section := range resp.Sections {
		for _, issue := range section.Issues {
			refs = append(refs, tracker.IssueRef{
				ID:      fmt.Sprintf("%d", issue.ID),
				Key:     issue.Key,
				Summary: issue.SummaryText,
			})
		}
	}

	return refs, nil
}

// GetIssue fetches a single issue by key.
func (a *Adapter) GetIssue(
	ctx context.Context,
	key string,
) (*tracker.IssueRef, error) {
	path := fmt.Sprintf(
		"/rest/api/2/issue/%s?fields=summary", url.PathEscape(key),
	)

	var issue Issue
	if err := a.client.Get(ctx, path, &issue); err != nil {
		return nil, fmt.Errorf("fetching issue %s: %w", key, err)
	}

	return &tracker.IssueRef{
		ID:      issue.ID,
		Key:     issue.Key,
		Summary: issue.Fields.Summary,
	}, nil
}

// SearchUsers runs the people-search surface.
func (a *Adapter) SearchUsers(
	ctx context.Context,
	query string,
) ([]tracker.UserRef, error) {
	q := url.Values{}
	q.Set("query", query)

	var users []User
	path := "/rest/api/2/user/search?" + q.Encode()
	if err := a.client.Get(ctx, path, &users); err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}

	refs := make([]tracker.UserRef, 0, len(users))
	for _, u := range users {
		refs = append(refs, tracker.UserRef{
			AccountID:   u.AccountID,
			DisplayName: u.DisplayName,
			Email:       u.EmailAddress,
		})
	}

	return refs, nil
}

// SearchGroups runs the group picker.
func (a *Adapter) SearchGroups(
	ctx context.Context,
	query string,
) ([]tracker.GroupRef, error) {
	q := url.Values{}
	q.Set("query", query)

	var resp GroupPickerResponse
	path := "/rest/api/2/groups/picker?" + q.Encode()
	if err := a.client.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("searching groups: %w", err)
	}

	refs := make([]tracker.GroupRef, 0, len(resp.Groups))
	for _, g := range resp.Groups {
		refs = append(refs, tracker.GroupRef{
			GroupID: g.GroupID,
			Name:    g.Name,
		})
	}

	return refs, nil
}

// SuggestFieldValues queries the JQL autocomplete suggestion surface
// for the named field.
func (a *Adapter) SuggestFieldValues(
	ctx context.Context,
	fieldName string,
	query string,
) ([]tracker.Suggestion, error) {
	q := url.Values{}
	q.Set("fieldName", fieldName)
	q.Set("fieldValue", query)

	var resp SuggestionsResponse
	path := "/rest/api/2/jql/autocompletedata/suggestions?" + q.Encode()
	if err := a.client.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf(
			"fetching suggestions for %s: %w", fieldName, err,
		)
	}

	suggestions := make([]tracker.Suggestion, 0, len(resp.Results))
	for _, r := range resp.Results {
		suggestions = append(suggestions, tracker.Suggestion{
			Value:       r.Value,
			DisplayName: r.DisplayName,
		})
	}

	return suggestions, nil
}

// fieldMetaToRaw converts a Jira field descriptor into the
// tracker-neutral raw field shape, string-coercing allowed-value ids.
func fieldMetaToRaw(fm FieldMeta) tracker.RawField {
	key := fm.FieldID
	if key == "" {
		key = fm.Key
	}

	raw := tracker.RawField{
		Key:      key,
		Name:     fm.Name,
		Required: fm.Required,
		Schema: tracker.RawFieldSchema{
			Type:   fm.Schema.Type,
			Items:  fm.Schema.Items,
			System: fm.Schema.System,
			Custom: fm.Schema.Custom,
		},
		HasDefaultValue: fm.HasDefaultValue,
		AutoCompleteURL: fm.AutoCompleteURL,
	}

	for _, av := range fm.AllowedValues {
		if v := decodeAllowedValue(av); v != nil {
			raw.AllowedValues = append(raw.AllowedValues, *v)
		}
	}

	if fm.HasDefaultValue && len(fm.DefaultValue) > 0 {
		raw.DefaultValue = decodeAllowedValue(fm.DefaultValue)
	}

	return raw
}

// decodeAllowedValue parses one allowed-value (or default-value) entry.
// Entries are objects for option-like fields but may be bare scalars
// for defaults; both decode to the same shape. Unparseable entries are
// dropped rather than failing the whole field list.
func decodeAllowedValue(raw json.RawMessage) *tracker.RawAllowedValue {
	var obj allowedValue
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.ID != "" || obj.Value != "" || obj.Name != "" || obj.Key != "" {
			out := &tracker.RawAllowedValue{
				ID:    string(obj.ID),
				Value: obj.Value,
				Name:  obj.Name,
			}
			if out.Value == "" {
				out.Value = obj.Name
			}
			if out.ID == "" {
				out.ID = obj.Key
			}
			return out
		}
	}

	var scalar json.Number
	if err := json.Unmarshal(raw, &scalar); err == nil && scalar != "" {
		return &tracker.RawAllowedValue{
			ID:    scalar.String(),
			Value: scalar.String(),
		}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return &tracker.RawAllowedValue{Value: s}
	}

	return nil
}
