package wizard

import (
	"github.com/google/uuid"

	"github.com/ewjdev/anyclick/internal/model"
	"github.com/ewjdev/anyclick/internal/submit"
)

// FormState holds everything collected during one issue-creation
// session. It is owned exclusively by one Controller instance.
type FormState struct {
	// FieldValues holds entered values keyed by field key, including
	// the synthetic summary and description keys.
	FieldValues map[string]string

	// DisplayValueCache holds human-readable forms of resolved values
	// (e.g. the epic summary behind an issue key) for review rendering.
	DisplayValueCache map[string]string

	// ConditionallyRequired holds field keys the tracker rejected as
	// missing at submission time. It only ever grows during a session
	// and never contains the synthetic fields.
	ConditionallyRequired map[string]struct{}

	// StepDirection is +1 after forward navigation and -1 after
	// backward navigation, for slide animation in the presentation
	// layer.
	StepDirection int
}

func newFormState() FormState {
	return FormState{
		FieldValues:           make(map[string]string),
		DisplayValueCache:     make(map[string]string),
		ConditionallyRequired: make(map[string]struct{}),
		StepDirection:         1,
	}
}

// Controller orchestrates the wizard: it owns the form state, applies
// events through the pure transition function, and re-enters its own
// state machine with the error classifier's output after failed
// submissions. One controller serves exactly one issue-creation session;
// no state crosses instances.
type Controller struct {
	sessionID string

	issueType *model.IssueTypeDescriptor
	fields    []model.FieldModel

	state State
	form  FormState

	// fieldErrors holds per-field messages from the last failed
	// submission, keyed by field key, for inline display in review.
	fieldErrors map[string]string

	// optionalExpanded forces the review step's optional section open
	// when a discovered required field was not previously shown.
	optionalExpanded bool

	submitting bool
	lastError  string
}

// New creates a controller in the initial discovering-config state.
func New() *Controller {
	return &Controller{
		sessionID:   uuid.NewString(),
		state:       DiscoveringConfig{},
		form:        newFormState(),
		fieldErrors: make(map[string]string),
	}
}

// SessionID identifies this wizard session.
func (c *Controller) SessionID() string { return c.sessionID }

// State returns the current step.
func (c *Controller) State() State { return c.state }

// Form exposes the collected form state for rendering.
func (c *Controller) Form() *FormState { return &c.form }

// IssueType returns the chosen issue type, if any.
func (c *Controller) IssueType() *model.IssueTypeDescriptor {
	return c.issueType
}

// Fields returns the full normalized field set for the chosen type.
func (c *Controller) Fields() []model.FieldModel { return c.fields }

// FieldErrors returns the per-field messages from the last failed
// submission.
func (c *Controller) FieldErrors() map[string]string { return c.fieldErrors }

// OptionalExpanded reports whether the review step must show its
// optional section expanded.
func (c *Controller) OptionalExpanded() bool { return c.optionalExpanded }

// LastError returns the display message of the last failure.
func (c *Controller) LastError() string { return c.lastError }

// RequiredFields recomputes the step-generating field set on every
// read: schema-required fields plus conditionally-required keys, in
// normalized order. A schema-required field already satisfied by a
// default generates no step — unless the tracker has rejected it as
// missing, which proves the default was not enough.
func (c *Controller) RequiredFields() []model.FieldModel {
	var required []model.FieldModel
	for _, f := range c.fields {
		_, cond := c.form.ConditionallyRequired[f.Key]
		if !f.Required && !cond {
			continue
		}
		if !cond && f.DefaultValue != "" {
			continue
		}
		required = append(required, f)
	}
	return required
}

// TotalSteps is the progress denominator: summary and description,
// one step per required field, and review. It must be recomputed, never
// cached, because the required set can grow mid-session.
func (c *Controller) TotalSteps() int {
	return 2 + len(c.RequiredFields()) + 1
}

// CurrentStepNumber maps the state onto the progress indicator:
// summary=1, description=2, required-field i=3+i, review=TotalSteps.
// States outside the collection flow report 0.
func (c *Controller) CurrentStepNumber() int {
	switch st := c.state.(type) {
	case EnteringSummary:
		return 1
	case EnteringDescription:
		return 2
	case EnteringRequiredField:
		return 3 + st.Index
	case Reviewing, Submitting:
		return c.TotalSteps()
	default:
		return 0
	}
}

// Value returns the entered value for a field key.
func (c *Controller) Value(key string) string {
	return c.form.FieldValues[key]
}

// Apply feeds one event into the state machine. Unrelated events in the
// current state are ignored rather than rejected: the flow is
// event-driven and stale UI events are expected.
func (c *Controller) Apply(ev Event) {
	switch e := ev.(type) {
	case ConfigDiscovered:
		if _, ok := c.state.(DiscoveringConfig); !ok {
			return
		}
		if len(e.Missing) > 0 {
			c.state = NeedsCredentials{Missing: e.Missing}
			return
		}
		c.state = SelectingType{}

	case CredentialsProvided:
		if _, ok := c.state.(NeedsCredentials); ok {
			c.state = SelectingType{}
		}

	case IssueTypeChosen:
		c.chooseType(e)

	case SchemaFailed:
		c.state = SchemaUnavailable{Reason: e.Reason}

	case ValueEntered:
		c.form.FieldValues[e.Key] = e.Value
		if e.Display != "" {
			c.form.DisplayValueCache[e.Key] = e.Display
		} else {
			delete(c.form.DisplayValueCache, e.Key)
		}

	case Advanced:
		if next := transition(c.state, e, len(c.RequiredFields())); next != nil {
			c.form.StepDirection = 1
			c.state = next
		}

	case WentBack:
		if next := transition(c.state, e, len(c.RequiredFields())); next != nil {
			c.form.StepDirection = -1
			c.state = next
		}

	case SubmitRequested:
		// Exactly one submission may be in flight per session.
		if c.submitting {
			return
		}
		if _, ok := c.state.(Reviewing); !ok {
			return
		}
		c.submitting = true
		c.state = Submitting{}

	case SubmitSucceeded:
		c.submitting = false
		c.lastError = ""
		c.fieldErrors = make(map[string]string)
		// Discovered keys are session-scoped; success closes the
		// session's discovery loop.
		c.form.ConditionallyRequired = make(map[string]struct{})
		c.state = Succeeded{Result: e.Result}

	case SubmitFailed:
		c.submitting = false
		c.applyFailure(e.Outcome)

	case SessionReset:
		sessionID := c.sessionID
		*c = *New()
		c.sessionID = sessionID
		c.state = SelectingType{}
	}
}

// chooseType installs a freshly-fetched field set. The conditionally-
// required set, per-field errors, and forced optional expansion reset
// here and only here; entered values survive so switching type does not
// lose the summary and narrative.
func (c *Controller) chooseType(e IssueTypeChosen) {
	it := e.IssueType
	c.issueType = &it
	c.fields = e.Fields
	c.form.ConditionallyRequired = make(map[string]struct{})
	c.fieldErrors = make(map[string]string)
	c.optionalExpanded = false
	c.lastError = ""
	c.state = EnteringSummary{}
	c.form.StepDirection = 1
}

// applyFailure re-enters the state machine with the classifier's
// outcome. Recoverable failures return to review — never back to
// field-by-field entry — with inline errors attached and the
// conditionally-required set grown monotonically by the newly matched
// keys. Terminal failures surface the reconfigure-credentials action.
func (c *Controller) applyFailure(outcome submit.Outcome) {
	switch o := outcome.(type) {
	case submit.Recoverable:
		c.lastError = o.DisplayMessage

		matched := submit.MatchFieldsByName(c.fields, o.MissingFieldNames)
		for key, msg := range o.FieldErrors {
			if c.hasField(key) {
				matched[key] = struct{}{}
				c.fieldErrors[key] = msg
			}
		}
		for key := range matched {
			if key == KeySummary || key == KeyDescription {
				continue
			}
			if !c.wasShownRequired(key) {
				c.optionalExpanded = true
			}
			c.form.ConditionallyRequired[key] = struct{}{}
			if _, ok := c.fieldErrors[key]; !ok {
				c.fieldErrors[key] = "This field is required."
			}
		}

		c.state = Reviewing{}

	case submit.Terminal:
		c.lastError = o.Reason.Error()
		c.state = NeedsCredentials{Reason: o.Reason}
	}
}

// hasField reports whether key is in the current field set.
func (c *Controller) hasField(key string) bool {
	for _, f := range c.fields {
		if f.Key == key {
			return true
		}
	}
	return false
}

// wasShownRequired reports whether the field for key was already part
// of the required step sequence before this failure.
func (c *Controller) wasShownRequired(key string) bool {
	for _, f := range c.RequiredFields() {
		if f.Key == key {
			return true
		}
	}
	return false
}
