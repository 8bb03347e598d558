// Package wizard drives the multi-step issue-collection flow. The step
// sequence and required-field set are dynamic: failed submissions feed
// newly-discovered required fields back into the state machine.
package wizard

import (
	"github.com/ewjdev/anyclick/internal/model"
	"github.com/ewjdev/anyclick/internal/submit"
)

// Synthetic fields collected by fixed dedicated steps. They are always
// required by policy and never enter the conditionally-required set.
const (
	KeySummary     = "summary"
	KeyDescription = "description"
)

// State is one step of the wizard. Every state value carries its own
// payload; there are no side counters to keep in sync with it.
type State interface {
	isState()
}

// DiscoveringConfig is the initial state while credential and project
// configuration is being checked.
type DiscoveringConfig struct{}

// NeedsCredentials blocks the flow until usable credentials exist.
// Reason is set when a terminal tracker error forced the session back
// here.
type NeedsCredentials struct {
	Missing []string
	Reason  error
}

// SelectingType presents the project's creatable issue types.
type SelectingType struct{}

// EnteringSummary collects the issue title.
type EnteringSummary struct{}

// EnteringDescription collects the narrative body.
type EnteringDescription struct{}

// EnteringRequiredField collects the value for required field Index of
// the current required set.
type EnteringRequiredField struct {
	Index int
}

// Reviewing shows everything collected before submission, and is where
// the flow re-enters after a recoverable failure.
type Reviewing struct{}

// Submitting means exactly one submission is in flight.
type Submitting struct{}

// Succeeded is the terminal success state.
type Succeeded struct {
	Result model.SubmissionResult
}

// SchemaUnavailable is the hard-stop state for a failed schema fetch:
// no form can be rendered without the schema.
type SchemaUnavailable struct {
	Reason error
}

func (DiscoveringConfig) isState() {}
func (NeedsCredentials) isState() {}
func (SelectingType) isState() {}
func (EnteringSummary) isState() {}
func (EnteringDescription) isState() {}
func (EnteringRequiredField) isState() {}
func (Reviewing) isState() {}
func (Submitting) isState() {}
func (Succeeded) isState() {}
func (SchemaUnavailable) isState() {}

// Event is an input to the state machine.
type Event interface {
	isEvent()
}

// ConfigDiscovered reports the configuration check result.
type ConfigDiscovered struct {
	Missing []string
}

// CredentialsProvided signals that usable credentials are now available.
type CredentialsProvided struct{}

// IssueTypeChosen carries the selected type and its freshly-fetched,
// normalized field set.
type IssueTypeChosen struct {
	IssueType model.IssueTypeDescriptor
	Fields    []model.FieldModel
}

// SchemaFailed reports a failed schema fetch.
type SchemaFailed struct {
	Reason error
}

// ValueEntered records a collected field value without navigating.
// Display is the human-readable form cached for review rendering.
type ValueEntered struct {
	Key     string
	Value   string
	Display string
}

// Advanced moves forward one step.
type Advanced struct{}

// WentBack moves back one step.
type WentBack struct{}

// SubmitRequested asks for submission from the review step.
type SubmitRequested struct{}

// SubmitSucceeded reports a successful submission.
type SubmitSucceeded struct {
	Result model.SubmissionResult
}

// SubmitFailed carries the classified failure outcome.
type SubmitFailed struct {
	Outcome submit.Outcome
}

// SessionReset restarts the wizard from type selection, clearing all
// collected state.
type SessionReset struct{}

func (ConfigDiscovered) isEvent() {}
func (CredentialsProvided) isEvent() {}
func (IssueTypeChosen) isEvent() {}
func (SchemaFailed) isEvent() {}
func (ValueEntered) isEvent() {}
func (Advanced) isEvent() {}
func (WentBack) isEvent() {}
func (SubmitRequested) isEvent() {}
func (SubmitSucceeded) isEvent() {}
func (SubmitFailed) isEvent() {}
func (SessionReset) isEvent() {}

// transition is the pure navigation function. requiredCount is the
// length of the current required-field set; it is the only thing the
// step sequence depends on, so a mid-session change reshapes the flow
// without touching collected values. Unrelated (state, event) pairs
// return nil, meaning no move.
func transition(s State, ev Event, requiredCount int) State {
	switch ev.(type) {
	case Advanced:
		switch st := s.(type) {
		case EnteringSummary:
			return EnteringDescription{}
		case EnteringDescription:
			if requiredCount > 0 {
				return EnteringRequiredField{Index: 0}
			}
			return Reviewing{}
		case EnteringRequiredField:
			if st.Index+1 < requiredCount {
				return EnteringRequiredField{Index: st.Index + 1}
			}
			return Reviewing{}
		}

	case WentBack:
		switch st := s.(type) {
		case EnteringSummary:
			return SelectingType{}
		case EnteringDescription:
			return EnteringSummary{}
		case EnteringRequiredField:
			if st.Index > 0 {
				return EnteringRequiredField{Index: st.Index - 1}
			}
			return EnteringDescription{}
		case Reviewing:
			if requiredCount > 0 {
				return EnteringRequiredField{Index: requiredCount - 1}
			}
			return EnteringDescription{}
		}
	}

	return nil
}
