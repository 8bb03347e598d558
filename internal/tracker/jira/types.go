package jira

import "encoding/json"

// IssueTypeListResponse is the response from
// GET /rest/api/2/issue/createmeta/{projectKey}/issuetypes.
type IssueTypeListResponse struct {
	IssueTypes []IssueType `json:"issueTypes"`
	// Older deployments return the list under "values".
	Values []IssueType `json:"values"`
}

// IssueType represents one creatable issue type.
type IssueType struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IconURL     string `json:"iconUrl,omitempty"`
	Subtask     bool   `json:"subtask,omitempty"`
}

// FieldListResponse is the response from
// GET /rest/api/2/issue/createmeta/{projectKey}/issuetypes/{issueTypeId}.
type FieldListResponse struct {
	Fields []FieldMeta `json:"fields"`
	// Older deployments return the list under "values".
	Values []FieldMeta `json:"values"`
}

// FieldMeta is one raw field descriptor from create-metadata.
type FieldMeta struct {
	FieldID         string            `json:"fieldId"`
	Key             string            `json:"key"`
	Name            string            `json:"name"`
	Required        bool              `json:"required"`
	Schema          FieldSchema       `json:"schema"`
	AllowedValues   []json.RawMessage `json:"allowedValues,omitempty"`
	HasDefaultValue bool              `json:"hasDefaultValue,omitempty"`
	DefaultValue    json.RawMessage   `json:"defaultValue,omitempty"`
	AutoCompleteURL string            `json:"autoCompleteUrl,omitempty"`
}

// FieldSchema is the declared type information of a field.
type FieldSchema struct {
	Type   string `json:"type"`
	Items  string `json:"items,omitempty"`
	System string `json:"system,omitempty"`
	Custom string `json:"custom,omitempty"`
}

// flexString decodes a JSON value that may arrive as a string or a
// number into its string form. Jira types option ids inconsistently
// across field kinds.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*s = flexString(num.String())
		return nil
	}
	// Tolerate anything else (null, objects) as empty.
	*s = ""
	return nil
}

// allowedValue is the union of property sets Jira uses for allowed
// values across field types (options carry value, versions and
// components carry name, priorities carry both id and name).
type allowedValue struct {
	ID    flexString `json:"id"`
	Value string     `json:"value,omitempty"`
	Name  string     `json:"name,omitempty"`
	Key   string     `json:"key,omitempty"`
}

// CreateIssueResponse is the response from POST /rest/api/2/issue.
type CreateIssueResponse struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

// SearchResponse is the response from POST /rest/api/2/search.
type SearchResponse struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []Issue `json:"issues"`
}

// Issue is the subset of an issue payload the engine needs from search
// and single-issue lookups.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Fields IssueFields `json:"fields"`
}

// IssueFields holds the requested issue fields.
type IssueFields struct {
	Summary string `json:"summary"`
}

// PickerResponse is the response from GET /rest/api/2/issue/picker.
type PickerResponse struct {
	Sections []PickerSection `json:"sections"`
}

// PickerSection groups picker results (current search, history, ...).
type PickerSection struct {
	Label  string        `json:"label"`
	Issues []PickerIssue `json:"issues"`
}

// PickerIssue is one issue-picker result.
type PickerIssue struct {
	ID          int    `json:"id"`
	Key         string `json:"key"`
	SummaryText string `json:"summaryText"`
}

// User represents a Jira Cloud user from people search.
type User struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress,omitempty"`
	Active       bool   `json:"active,omitempty"`
}

// GroupPickerResponse is the response from GET /rest/api/2/groups/picker.
type GroupPickerResponse struct {
	Groups []Group `json:"groups"`
}

// Group is one group-picker result.
type Group struct {
	Name    string `json:"name"`
	GroupID string `json:"groupId,omitempty"`
}

// SuggestionsResponse is the response from
// GET /rest/api/2/jql/autocompletedata/suggestions.
type SuggestionsResponse struct {
	Results []SuggestionResult `json:"results"`
}

// SuggestionResult is one field-value suggestion. DisplayName may carry
// markup highlighting the matched substring.
type SuggestionResult struct {
	Value       string `json:"value"`
	DisplayName string `json:"displayName"`
}

// Myself is the response from GET /rest/api/2/myself.
type Myself struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
	Active       bool   `json:"active"`
}

// ErrorResponse is the standard Jira error response format.
type ErrorResponse struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
}
