package jira

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ewjdev/anyclick/internal/tracker"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAdapter(srv.URL, "reporter@example.com", "token")
}

func requireBasicAuth(t *testing.T, r *http.Request) {
	t.Helper()
	auth := r.Header.Get("Authorization")
	require.True(t, strings.HasPrefix(auth, "Basic "))
	decoded, err := base64.StdEncoding.DecodeString(
		strings.TrimPrefix(auth, "Basic "),
	)
	require.NoError(t, err)
	require.Equal(t, "reporter@example.com:token", string(decoded))
}

func TestValidateConnection(t *testing.T) {
	t.Parallel()

	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		requireBasicAuth(t, r)
		require.Equal(t, "/rest/api/2/myself", r.URL.Path)
		json.NewEncoder(w).Encode(Myself{DisplayName: "Dana Reyes"})
	})

	name, err := a.ValidateConnection(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Dana Reyes", name)
}

func TestListIssueTypesSkipsSubtasks(t *testing.T) {
	t.Parallel()

	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/api/2/issue/createmeta/CP/issuetypes", r.URL.Path)
		json.NewEncoder(w).Encode(IssueTypeListResponse{
			IssueTypes: []IssueType{
				{ID: "10001", Name: "Bug"},
				{ID: "10003", Name: "Sub-task", Subtask: true},
			},
		})
	})

	types, err := a.ListIssueTypes(context.Background(), "CP")
	require.NoError(t, err)
	require.Len(t, types, 1)
	require.Equal(t, "Bug", types[0].Name)
}

func TestListIssueTypesValuesFallback(t *testing.T) {
	t.Parallel()

	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(IssueTypeListResponse{
			Values: []IssueType{{ID: "10001", Name: "Bug"}},
		})
	})

	types, err := a.ListIssueTypes(context.Background(), "CP")
	require.NoError(t, err)
	require.Len(t, types, 1)
}

func TestGetCreateFieldsCoercesIDs(t *testing.T) {
	t.Parallel()

	// Numeric and string ids both arrive as strings; a bare-scalar
	// default decodes too.
	body := `{
		"fields": [
			{
				"fieldId": "priority",
				"name": "Priority",
				"required": true,
				"schema": {"type": "priority", "system": "priority"},
				"allowedValues": [
					{"id": 1, "name": "High"},
					{"id": "2", "name": "Medium"}
				],
				"hasDefaultValue": true,
				"defaultValue": {"id": 2, "name": "Medium"}
			},
			{
				"key": "customfield_10300",
				"name": "Build Number",
				"required": false,
				"schema": {"type": "number"},
				"hasDefaultValue": true,
				"defaultValue": 42
			}
		]
	}`
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t,
			"/rest/api/2/issue/createmeta/CP/issuetypes/10001", r.URL.Path)
		w.Write([]byte(body))
	})

	fields, err := a.GetCreateFields(context.Background(), "CP", "10001")
	require.NoError(t, err)
	require.Len(t, fields, 2)

	priority := fields[0]
	require.Equal(t, "priority", priority.Key)
	require.Equal(t, "1", priority.AllowedValues[0].ID)
	require.Equal(t, "2", priority.AllowedValues[1].ID)
	require.Equal(t, "High", priority.AllowedValues[0].Value)
	require.Equal(t, "2", priority.DefaultValue.ID)

	build := fields[1]
	require.Equal(t, "customfield_10300", build.Key)
	require.Equal(t, "42", build.DefaultValue.ID)
}

func TestCreateIssue(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/rest/api/2/issue", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(CreateIssueResponse{ID: "10042", Key: "CP-42"})
	})

	result, err := a.CreateIssue(context.Background(), tracker.CreateRequest{
		ProjectKey:  "CP",
		IssueTypeID: "10001",
		Summary:     "Crash on save",
		Description: "Steps...",
		Labels:      []string{"anyclick"},
		Fields: map[string]any{
			"priority": map[string]string{"name": "Medium"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "CP-42", result.Key)
	require.True(t, strings.HasSuffix(result.URL, "/browse/CP-42"))

	fields := captured["fields"].(map[string]any)
	require.Equal(t, "Crash on save", fields["summary"])
	require.Equal(t, map[string]any{"key": "CP"}, fields["project"])
	require.Equal(t, map[string]any{"id": "10001"}, fields["issuetype"])
	require.Equal(t, map[string]any{"name": "Medium"}, fields["priority"])
}

func TestCreateIssueValidationError(t *testing.T) {
	t.Parallel()

	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{
			Errors: map[string]string{
				"customfield_10001": "Team is required.",
			},
		})
	})

	_, err := a.CreateIssue(context.Background(), tracker.CreateRequest{
		ProjectKey: "CP", IssueTypeID: "10001", Summary: "x",
	})
	verr, ok := tracker.IsValidation(err)
	require.True(t, ok)
	require.Equal(t, "Team is required.", verr.FieldErrors["customfield_10001"])
	require.NotEmpty(t, verr.Raw)
}

func TestStatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusUnauthorized, func(err error) bool {
			return tracker.IsTerminal(err)
		}},
		{http.StatusForbidden, func(err error) bool {
			return tracker.IsTerminal(err)
		}},
		{http.StatusNotFound, func(err error) bool {
			return tracker.IsTerminal(err)
		}},
		{http.StatusInternalServerError, func(err error) bool {
			return !tracker.IsTerminal(err)
		}},
	}

	for _, tc := range cases {
		a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		_, err := a.ValidateConnection(context.Background())
		require.Error(t, err, tc.status)
		require.True(t, tc.check(err), "status %d: %v", tc.status, err)
	}
}

func TestRateLimitRetry(t *testing.T) {
	t.Parallel()

	attempts := 0
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(Myself{DisplayName: "Dana"})
	})

	name, err := a.ValidateConnection(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Dana", name)
	require.Equal(t, 2, attempts)
}

func TestUploadAttachmentHeaders(t *testing.T) {
	t.Parallel()

	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/api/2/issue/CP-42/attachments", r.URL.Path)
		require.Equal(t, "no-check", r.Header.Get("X-Atlassian-Token"))
		require.NoError(t, r.ParseMultipartForm(1 << 20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "shot.png", header.Filename)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("[]"))
	})

	err := a.UploadAttachment(context.Background(), "CP-42", tracker.Attachment{
		Filename: "shot.png",
		Data:     []byte{1, 2, 3},
	})
	require.NoError(t, err)
}

func TestPickIssuesFlattensSections(t *testing.T) {
	t.Parallel()

	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/api/2/issue/picker", r.URL.Path)
		require.Equal(t, "pay", r.URL.Query().Get("query"))
		require.Contains(t, r.URL.Query().Get("currentJQL"), "Epic")
		json.NewEncoder(w).Encode(PickerResponse{
			Sections: []PickerSection{
				{Label: "Matches", Issues: []PickerIssue{
					{ID: 101, Key: "CP-1", SummaryText: "Payments"},
				}},
				{Label: "History", Issues: []PickerIssue{
					{ID: 102, Key: "CP-2", SummaryText: "Payouts"},
				}},
			},
		})
	})

	refs, err := a.PickIssues(context.Background(), tracker.PickOptions{
		Query:      "pay",
		ProjectKey: "CP",
		CurrentJQL: `project = CP AND issuetype = "Epic"`,
	})
	require.NoError(t, err)
	require.Len(t, refs, 2)
	require.Equal(t, "101", refs[0].ID)
	require.Equal(t, "CP-2", refs[1].Key)
}

func TestSuggestFieldValues(t *testing.T) {
	t.Parallel()

	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t,
			"/rest/api/2/jql/autocompletedata/suggestions", r.URL.Path)
		require.Equal(t, "Team", r.URL.Query().Get("fieldName"))
		require.Equal(t, "plat", r.URL.Query().Get("fieldValue"))
		json.NewEncoder(w).Encode(SuggestionsResponse{
			Results: []SuggestionResult{
				{Value: "platform", DisplayName: "<b>plat</b>form"},
			},
		})
	})

	suggestions, err := a.SuggestFieldValues(context.Background(), "Team", "plat")
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	require.Equal(t, "platform", suggestions[0].Value)
}
