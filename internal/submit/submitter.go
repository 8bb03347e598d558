package submit

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ewjdev/anyclick/internal/model"
	"github.com/ewjdev/anyclick/internal/tracker"
)

// Request carries everything needed for one issue-creation attempt.
type Request struct {
	// Session correlates log lines from one wizard or proxy session.
	Session string

	ProjectKey  string
	IssueTypeID string
	Summary     string
	Description string

	// Fields is the normalized field set for the chosen issue type.
	Fields []model.FieldModel

	// Values holds collected field values keyed by field key. Fields
	// with no entered value fall back to their default.
	Values map[string]string

	// Attachments are uploaded after creation, best-effort.
	Attachments []tracker.Attachment
}

// Submitter builds the wire payload, creates the issue, and fans out
// attachment uploads.
type Submitter struct {
	trk    tracker.Tracker
	labels []string
	log    *slog.Logger
}

// NewSubmitter creates a submitter. labels are attached to every
// created issue.
func NewSubmitter(
	trk tracker.Tracker,
	labels []string,
	log *slog.Logger,
) *Submitter {
	return &Submitter{trk: trk, labels: labels, log: log}
}

// Submit attempts one issue creation. On failure the returned outcome
// tells the controller whether the session can recover; on success the
// outcome is nil and attachments are uploaded concurrently before
// returning. A failed upload is logged and swallowed: it never rolls
// back the already-created issue.
func (s *Submitter) Submit(
	ctx context.Context,
	req Request,
) (model.SubmissionResult, Outcome) {
	created, err := s.trk.CreateIssue(ctx, tracker.CreateRequest{
		ProjectKey:  req.ProjectKey,
		IssueTypeID: req.IssueTypeID,
		Summary:     req.Summary,
		Description: req.Description,
		Labels:      s.labels,
		Fields:      BuildFieldPayload(req.Fields, req.Values),
	})
	if err != nil {
		// Raw tracker errors are diagnostics only; the user sees the
		// classified message.
		s.log.Error("issue creation failed",
			"session", req.Session,
			"project", req.ProjectKey,
			"issueType", req.IssueTypeID,
			"error", err,
		)
		outcome := ClassifyError(err)
		result := model.SubmissionResult{Success: false}
		switch o := outcome.(type) {
		case Recoverable:
			result.Error = o.DisplayMessage
		case Terminal:
			result.Error = o.Reason.Error()
		}
		return result, outcome
	}

	s.log.Info("issue created",
		"session", req.Session,
		"issue", created.Key,
	)

	s.uploadAttachments(ctx, created.Key, req.Attachments)

	return model.SubmissionResult{
		Success:    true,
		TrackerID:  created.Key,
		TrackerURL: created.URL,
	}, nil
}

// BuildFieldPayload coerces every field's effective value (entered value
// or default) into its wire shape, omitting empty and uncoercible
// values.
func BuildFieldPayload(
	fields []model.FieldModel,
	values map[string]string,
) map[string]any {
	payload := make(map[string]any)
	for _, f := range fields {
		value := values[f.Key]
		if value == "" {
			value = f.DefaultValue
		}
		wire := Coerce(f, value)
		if wire.IsOmit() {
			continue
		}
		payload[f.Key] = wire.Payload()
	}
	return payload
}

// uploadAttachments fans the uploads out concurrently and waits for all
// of them. Each failure is independent.
func (s *Submitter) uploadAttachments(
	ctx context.Context,
	issueKey string,
	attachments []tracker.Attachment,
) {
	if len(attachments) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, att := range attachments {
		wg.Add(1)
		go func(att tracker.Attachment) {
			defer wg.Done()
			if err := s.trk.UploadAttachment(ctx, issueKey, att); err != nil {
				s.log.Warn("attachment upload failed",
					"issue", issueKey,
					"filename", att.Filename,
					"error", err,
				)
			}
		}(att)
	}
	wg.Wait()
}
