package schema

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ewjdev/anyclick/internal/model"
	"github.com/ewjdev/anyclick/internal/tracker"
)

// Fetcher retrieves create-metadata from the tracker for one project and
// normalizes it. Unlike search, a failed schema fetch is a hard stop: no
// form can be rendered without it, so errors propagate to the caller.
type Fetcher struct {
	trk        tracker.Tracker
	projectKey string
	opts       NormalizeOptions
	log        *slog.Logger
}

// NewFetcher creates a schema fetcher for the given project.
func NewFetcher(
	trk tracker.Tracker,
	projectKey string,
	opts NormalizeOptions,
	log *slog.Logger,
) *Fetcher {
	return &Fetcher{
		trk:        trk,
		projectKey: projectKey,
		opts:       opts,
		log:        log,
	}
}

// ProjectKey returns the project this fetcher is scoped to.
func (f *Fetcher) ProjectKey() string {
	return f.projectKey
}

// IssueTypes lists the creatable issue types for the project.
func (f *Fetcher) IssueTypes(
	ctx context.Context,
) ([]model.IssueTypeDescriptor, error) {
	types, err := f.trk.ListIssueTypes(ctx, f.projectKey)
	if err != nil {
		return nil, fmt.Errorf(
			"listing issue types for %s: %w", f.projectKey, err,
		)
	}
	return types, nil
}

// Fields fetches and normalizes the field set for one issue type. The
// includeOptional override widens the set beyond required fields; when
// false, the fetcher's configured default applies.
func (f *Fetcher) Fields(
	ctx context.Context,
	issueTypeID string,
	includeOptional bool,
) ([]model.FieldModel, error) {
	raw, err := f.trk.GetCreateFields(ctx, f.projectKey, issueTypeID)
	if err != nil {
		return nil, fmt.Errorf(
			"fetching schema for issue type %s: %w", issueTypeID, err,
		)
	}

	opts := f.opts
	opts.IncludeOptional = opts.IncludeOptional || includeOptional
	fields := Normalize(raw, opts)

	f.log.Debug("normalized create schema",
		"project", f.projectKey,
		"issueType", issueTypeID,
		"rawFields", len(raw),
		"fields", len(fields),
	)

	return fields, nil
}
