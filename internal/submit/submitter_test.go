package submit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ewjdev/anyclick/internal/logging"
	"github.com/ewjdev/anyclick/internal/model"
	"github.com/ewjdev/anyclick/internal/tracker"
	"github.com/ewjdev/anyclick/tests/testutil"
)

func TestSubmitSuccess(t *testing.T) {
	t.Parallel()

	trk := &testutil.FakeTracker{
		Created: &tracker.CreateResult{
			ID: "10042", Key: "CP-42",
			URL: "https://example.atlassian.net/browse/CP-42",
		},
	}
	s := NewSubmitter(trk, []string{"anyclick"}, logging.Discard())

	result, outcome := s.Submit(context.Background(), Request{
		ProjectKey:  "CP",
		IssueTypeID: "10001",
		Summary:     "Crash on save",
		Description: "Steps...",
	})

	require.Nil(t, outcome)
	require.True(t, result.Success)
	require.Equal(t, "CP-42", result.TrackerID)
	require.Equal(t, "https://example.atlassian.net/browse/CP-42", result.TrackerURL)

	require.Len(t, trk.CreateRequests, 1)
	require.Equal(t, []string{"anyclick"}, trk.CreateRequests[0].Labels)
}

func TestSubmitLogsSessionID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	trk := &testutil.FakeTracker{}
	s := NewSubmitter(trk, nil, logging.New(&buf, slog.LevelInfo))

	_, outcome := s.Submit(context.Background(), Request{
		Session:     "11111111-2222-3333-4444-555555555555",
		ProjectKey:  "CP",
		IssueTypeID: "10001",
		Summary:     "Crash on save",
	})
	require.Nil(t, outcome)
	require.Contains(t, buf.String(), "session=11111111-2222-3333-4444-555555555555")

	buf.Reset()
	trk = &testutil.FakeTracker{
		Errs: map[string]error{"CreateIssue": errors.New("boom")},
	}
	s = NewSubmitter(trk, nil, logging.New(&buf, slog.LevelInfo))

	_, outcome = s.Submit(context.Background(), Request{
		Session:    "66666666-7777-8888-9999-000000000000",
		ProjectKey: "CP", IssueTypeID: "10001", Summary: "x",
	})
	require.NotNil(t, outcome)
	require.Contains(t, buf.String(), "session=66666666-7777-8888-9999-000000000000")
}

func TestSubmitValidationFailure(t *testing.T) {
	t.Parallel()

	trk := &testutil.FakeTracker{
		Errs: map[string]error{
			"CreateIssue": &tracker.ValidationError{
				Raw: "Please enter a value for the Team field",
			},
		},
	}
	s := NewSubmitter(trk, nil, logging.Discard())

	result, outcome := s.Submit(context.Background(), Request{
		ProjectKey: "CP", IssueTypeID: "10001", Summary: "x",
	})

	require.False(t, result.Success)
	rec, ok := outcome.(Recoverable)
	require.True(t, ok)
	require.Equal(t, []string{"Team"}, rec.MissingFieldNames)
	require.Equal(t, rec.DisplayMessage, result.Error)
}

func TestSubmitTerminalFailure(t *testing.T) {
	t.Parallel()

	trk := &testutil.FakeTracker{
		Errs: map[string]error{
			"CreateIssue": &tracker.AuthenticationError{BaseURL: "https://x"},
		},
	}
	s := NewSubmitter(trk, nil, logging.Discard())

	result, outcome := s.Submit(context.Background(), Request{
		ProjectKey: "CP", IssueTypeID: "10001", Summary: "x",
	})

	require.False(t, result.Success)
	_, ok := outcome.(Terminal)
	require.True(t, ok)
}

func TestSubmitUploadsAttachmentsBestEffort(t *testing.T) {
	t.Parallel()

	trk := &testutil.FakeTracker{
		Errs: map[string]error{
			"UploadAttachment": errors.New("disk full"),
		},
	}
	s := NewSubmitter(trk, nil, logging.Discard())

	result, outcome := s.Submit(context.Background(), Request{
		ProjectKey: "CP", IssueTypeID: "10001", Summary: "x",
		Attachments: []tracker.Attachment{
			{Filename: "a.png", Data: []byte{1}},
			{Filename: "b.png", Data: []byte{2}},
		},
	})

	// Upload failures never fail the submission.
	require.Nil(t, outcome)
	require.True(t, result.Success)
	require.Equal(t, 2, trk.CallCount("UploadAttachment"))
}

func TestBuildFieldPayload(t *testing.T) {
	t.Parallel()

	fields := []model.FieldModel{
		{
			Key: "sev", Type: model.FieldTypeSelect,
			Options: []model.FieldOption{{ID: "10", Value: "Low", Label: "Low"}},
		},
		{
			Key: "env", Type: model.FieldTypeText,
			DefaultValue: "production",
		},
		{Key: "points", Type: model.FieldTypeNumber},
	}
	values := map[string]string{"sev": "Low"}

	payload := BuildFieldPayload(fields, values)

	// Entered value coerced; default filled in; empty field omitted.
	require.Equal(t, map[string]string{"id": "10"}, payload["sev"])
	require.Equal(t, "production", payload["env"])
	require.NotContains(t, payload, "points")
}
