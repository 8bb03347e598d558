// Package reportform is the terminal front-end of the issue wizard. It
// renders the controller's current step and feeds events back; all flow
// decisions live in the wizard package.
package reportform

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/ewjdev/anyclick/internal/autocomplete"
	"github.com/ewjdev/anyclick/internal/credential"
	"github.com/ewjdev/anyclick/internal/keys"
	"github.com/ewjdev/anyclick/internal/model"
	"github.com/ewjdev/anyclick/internal/prefs"
	"github.com/ewjdev/anyclick/internal/schema"
	"github.com/ewjdev/anyclick/internal/submit"
	"github.com/ewjdev/anyclick/internal/theme"
	"github.com/ewjdev/anyclick/internal/wizard"
)

// Engine bundles the tracker-backed collaborators the form drives. It
// is rebuilt whenever credentials change, since the underlying client
// is bound to one set of credentials.
type Engine struct {
	Fetcher   *schema.Fetcher
	Search    *autocomplete.Debounced
	Submitter *submit.Submitter
}

// Deps holds the form's wiring. NewEngine constructs an Engine for the
// current configuration and the given API token.
type Deps struct {
	Cfg       *model.AppConfig
	Prefs     *prefs.Store
	NewEngine func(token string) Engine
}

// Messages produced by background work.
type (
	issueTypesMsg struct {
		types []model.IssueTypeDescriptor
		err   error
	}
	fieldsMsg struct {
		issueType model.IssueTypeDescriptor
		fields    []model.FieldModel
		err       error
	}
	candidatesMsg struct {
		fieldKey   string
		candidates []model.Candidate
	}
	submitDoneMsg struct {
		result  model.SubmissionResult
		outcome submit.Outcome
	}
)

// credBindings holds credential form values on the heap so that huh's
// Value() pointers remain valid across Bubble Tea model copies.
type credBindings struct {
	jiraURL    string
	email      string
	apiToken   string
	projectKey string
}

// Model is the Bubble Tea model for the report wizard.
type Model struct {
	deps   Deps
	engine Engine
	ctrl   *wizard.Controller
	keys   keys.KeyMap

	input    textinput.Model
	body     textarea.Model
	spin     spinner.Model
	credForm *huh.Form
	cb       *credBindings

	issueTypes []model.IssueTypeDescriptor
	typeCursor int

	candidates   []model.Candidate
	candCursor   int
	candidatesCh chan candidatesMsg

	width  int
	height int
	err    error
	quit   bool
}

// New creates the wizard form model.
func New(deps Deps) Model {
	input := textinput.New()
	input.CharLimit = 255

	body := textarea.New()
	body.Placeholder = "What happened? What did you expect?"

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		deps:         deps,
		ctrl:         wizard.New(),
		keys:         keys.DefaultKeyMap(),
		input:        input,
		body:         body,
		spin:         sp,
		cb:           &credBindings{},
		candidatesCh: make(chan candidatesMsg, 8),
	}
}

// Init starts the configuration check.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.checkConfig(), m.listenCandidates())
}

// checkConfig resolves configuration state off the UI loop.
func (m Model) checkConfig() tea.Cmd {
	cfg := m.deps.Cfg
	return func() tea.Msg {
		missing := cfg.MissingSettings()
		if token, err := credential.Get(credential.KeyAPIToken); err != nil || token == "" {
			missing = append(missing, "apiToken")
		}
		return wizard.ConfigDiscovered{Missing: missing}
	}
}

// loadIssueTypes fetches the project's creatable issue types.
func (m Model) loadIssueTypes() tea.Cmd {
	fetcher := m.engine.Fetcher
	return func() tea.Msg {
		types, err := fetcher.IssueTypes(context.Background())
		return issueTypesMsg{types: types, err: err}
	}
}

// loadFields fetches and normalizes the schema for a chosen type.
func (m Model) loadFields(it model.IssueTypeDescriptor) tea.Cmd {
	fetcher := m.engine.Fetcher
	return func() tea.Msg {
		fields, err := fetcher.Fields(context.Background(), it.ID, false)
		return fieldsMsg{issueType: it, fields: fields, err: err}
	}
}

// listenCandidates subscribes to debounced autocomplete results, in the
// channel-subscription style the rest of the app uses for background
// work.
func (m Model) listenCandidates() tea.Cmd {
	ch := m.candidatesCh
	return func() tea.Msg {
		return <-ch
	}
}

// submitIssue runs the submission off the UI loop.
func (m Model) submitIssue() tea.Cmd {
	engine := m.engine
	ctrl := m.ctrl
	return func() tea.Msg {
		form := ctrl.Form()
		result, outcome := engine.Submitter.Submit(context.Background(), submit.Request{
			Session:     ctrl.SessionID(),
			ProjectKey:  engine.Fetcher.ProjectKey(),
			IssueTypeID: ctrl.IssueType().ID,
			Summary:     form.FieldValues[wizard.KeySummary],
			Description: form.FieldValues[wizard.KeyDescription],
			Fields:      ctrl.Fields(),
			Values:      form.FieldValues,
		})
		return submitDoneMsg{result: result, outcome: outcome}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.body.SetWidth(min(msg.Width-4, 100))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case wizard.ConfigDiscovered:
		m.ctrl.Apply(msg)
		if _, ok := m.ctrl.State().(wizard.NeedsCredentials); ok {
			m.credForm = m.buildCredForm()
			return m, m.credForm.Init()
		}
		token, _ := credential.Get(credential.KeyAPIToken)
		m.engine = m.deps.NewEngine(token)
		return m, m.loadIssueTypes()

	case issueTypesMsg:
		if msg.err != nil {
			m.ctrl.Apply(wizard.SchemaFailed{Reason: msg.err})
			return m, nil
		}
		m.issueTypes = msg.types
		m.typeCursor = 0
		if m.deps.Prefs != nil {
			last, _ := m.deps.Prefs.LastIssueType(context.Background())
			for i, it := range msg.types {
				if it.ID == last {
					m.typeCursor = i
					break
				}
			}
		}
		return m, nil

	case fieldsMsg:
		if msg.err != nil {
			m.ctrl.Apply(wizard.SchemaFailed{Reason: msg.err})
			return m, nil
		}
		m.ctrl.Apply(wizard.IssueTypeChosen{
			IssueType: msg.issueType,
			Fields:    msg.fields,
		})
		if m.deps.Prefs != nil {
			_ = m.deps.Prefs.SetLastIssueType(
				context.Background(), msg.issueType.ID,
			)
			if last, err := m.deps.Prefs.LastValues(context.Background()); err == nil {
				for _, field := range msg.fields {
					if _, entered := m.ctrl.Form().FieldValues[field.Key]; entered {
						continue
					}
					if v, ok := last[field.Key]; ok && v != "" {
						m.ctrl.Apply(wizard.ValueEntered{Key: field.Key, Value: v})
					}
				}
			}
		}
		m.syncStepWidget()
		return m, nil

	case candidatesMsg:
		if st, ok := m.ctrl.State().(wizard.EnteringRequiredField); ok {
			required := m.ctrl.RequiredFields()
			if st.Index < len(required) && required[st.Index].Key == msg.fieldKey {
				m.candidates = msg.candidates
				m.candCursor = 0
			}
		}
		return m, m.listenCandidates()

	case submitDoneMsg:
		if msg.outcome == nil {
			m.ctrl.Apply(wizard.SubmitSucceeded{Result: msg.result})
		} else {
			m.ctrl.Apply(wizard.SubmitFailed{Outcome: msg.outcome})
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateWidgets(msg)
}

// handleKey routes keys per wizard state.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		m.quit = true
		return m, tea.Quit
	}

	switch st := m.ctrl.State().(type) {
	case wizard.NeedsCredentials:
		return m.updateCredForm(msg)

	case wizard.SelectingType:
		switch {
		case key.Matches(msg, m.keys.Up):
			if m.typeCursor > 0 {
				m.typeCursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.typeCursor < len(m.issueTypes)-1 {
				m.typeCursor++
			}
		case key.Matches(msg, m.keys.Next):
			if len(m.issueTypes) > 0 {
				return m, m.loadFields(m.issueTypes[m.typeCursor])
			}
		}
		return m, nil

	case wizard.EnteringSummary:
		switch {
		case key.Matches(msg, m.keys.Next):
			if strings.TrimSpace(m.input.Value()) == "" {
				return m, nil
			}
			m.ctrl.Apply(wizard.ValueEntered{
				Key:   wizard.KeySummary,
				Value: m.input.Value(),
			})
			m.ctrl.Apply(wizard.Advanced{})
			m.syncStepWidget()
			return m, nil
		case key.Matches(msg, m.keys.Back):
			m.ctrl.Apply(wizard.WentBack{})
			return m, nil
		}

	case wizard.EnteringDescription:
		switch {
		case key.Matches(msg, m.keys.BodyDone):
			m.ctrl.Apply(wizard.ValueEntered{
				Key:   wizard.KeyDescription,
				Value: m.body.Value(),
			})
			m.ctrl.Apply(wizard.Advanced{})
			m.syncStepWidget()
			return m, nil
		case key.Matches(msg, m.keys.Back):
			m.ctrl.Apply(wizard.WentBack{})
			m.syncStepWidget()
			return m, nil
		}

	case wizard.EnteringRequiredField:
		return m.handleFieldKey(msg, st)

	case wizard.Reviewing:
		switch {
		case key.Matches(msg, m.keys.Next):
			m.ctrl.Apply(wizard.SubmitRequested{})
			if _, ok := m.ctrl.State().(wizard.Submitting); ok {
				return m, m.submitIssue()
			}
		case key.Matches(msg, m.keys.Back):
			m.ctrl.Apply(wizard.WentBack{})
			m.syncStepWidget()
		}
		return m, nil

	case wizard.Succeeded, wizard.SchemaUnavailable:
		if key.Matches(msg, m.keys.Quit) {
			m.quit = true
			return m, tea.Quit
		}
		return m, nil
	}

	return m.updateWidgets(msg)
}

// handleFieldKey handles keys on a dynamic required-field step,
// including candidate selection.
func (m Model) handleFieldKey(
	msg tea.KeyMsg,
	st wizard.EnteringRequiredField,
) (tea.Model, tea.Cmd) {
	required := m.ctrl.RequiredFields()
	if st.Index >= len(required) {
		return m, nil
	}
	field := required[st.Index]

	// Plain letters must reach the text input, so candidate movement
	// here is arrow keys only.
	switch msg.String() {
	case "up":
		if m.candCursor > 0 {
			m.candCursor--
		}
		return m, nil
	case "down":
		if m.candCursor < len(m.candidates)-1 {
			m.candCursor++
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Pick):
		if m.candCursor < len(m.candidates) {
			cand := m.candidates[m.candCursor]
			m.input.SetValue(candidateValue(cand))
		}
		return m, nil
	case key.Matches(msg, m.keys.Next):
		value := m.input.Value()
		display := ""
		if m.candCursor < len(m.candidates) {
			if cand := m.candidates[m.candCursor]; candidateValue(cand) == value {
				display = cand.Name
			}
		}
		if field.Required && strings.TrimSpace(value) == "" {
			return m, nil
		}
		m.ctrl.Apply(wizard.ValueEntered{
			Key:     field.Key,
			Value:   value,
			Display: display,
		})
		if m.deps.Prefs != nil {
			_ = m.deps.Prefs.SetLastValue(
				context.Background(), field.Key, value,
			)
		}
		m.ctrl.Apply(wizard.Advanced{})
		m.syncStepWidget()
		return m, nil
	case key.Matches(msg, m.keys.Back):
		m.ctrl.Apply(wizard.WentBack{})
		m.syncStepWidget()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	if field.Autocomplete && m.engine.Search != nil {
		ch := m.candidatesCh
		key := field.Key
		m.engine.Search.Search(
			context.Background(), field, m.input.Value(),
			func(candidates []model.Candidate) {
				ch <- candidatesMsg{fieldKey: key, candidates: candidates}
			},
		)
	} else if len(field.Options) > 0 {
		m.candidates = filterFieldOptions(field.Options, m.input.Value())
		m.candCursor = 0
	}

	return m, cmd
}

// updateCredForm drives the huh credential form.
func (m Model) updateCredForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.credForm == nil {
		return m, nil
	}

	mdl, cmd := m.credForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.credForm = f
	}

	if m.credForm.State == huh.StateCompleted {
		m.deps.Cfg.Jira.BaseURL = m.cb.jiraURL
		m.deps.Cfg.Jira.Email = m.cb.email
		m.deps.Cfg.Jira.ProjectKey = m.cb.projectKey
		if err := credential.Set(credential.KeyAPIToken, m.cb.apiToken); err != nil {
			m.err = err
		}
		if err := model.SaveConfig(model.DefaultConfigPath(), m.deps.Cfg); err != nil {
			m.err = err
		}
		m.engine = m.deps.NewEngine(m.cb.apiToken)
		m.ctrl.Apply(wizard.CredentialsProvided{})
		return m, m.loadIssueTypes()
	}

	return m, cmd
}

func (m *Model) buildCredForm() *huh.Form {
	m.cb.jiraURL = m.deps.Cfg.Jira.BaseURL
	m.cb.email = m.deps.Cfg.Jira.Email
	m.cb.projectKey = m.deps.Cfg.Jira.ProjectKey

	return huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Jira URL").
			Placeholder("https://example.atlassian.net").
			Value(&m.cb.jiraURL),
		huh.NewInput().
			Title("Email").
			Value(&m.cb.email),
		huh.NewInput().
			Title("API Token").
			EchoMode(huh.EchoModePassword).
			Value(&m.cb.apiToken),
		huh.NewInput().
			Title("Project Key").
			Value(&m.cb.projectKey),
	))
}

// updateWidgets forwards non-key messages to the active widget.
func (m Model) updateWidgets(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.ctrl.State().(type) {
	case wizard.EnteringSummary, wizard.EnteringRequiredField:
		m.input, cmd = m.input.Update(msg)
	case wizard.EnteringDescription:
		m.body, cmd = m.body.Update(msg)
	case wizard.NeedsCredentials:
		return m.updateCredForm(msg)
	}
	return m, cmd
}

// syncStepWidget points the shared input widgets at the current step's
// value, preserving anything entered on an earlier visit.
func (m *Model) syncStepWidget() {
	switch st := m.ctrl.State().(type) {
	case wizard.EnteringSummary:
		m.input.SetValue(m.ctrl.Value(wizard.KeySummary))
		m.input.Placeholder = "One-line summary"
		m.input.Focus()
	case wizard.EnteringDescription:
		m.body.SetValue(m.ctrl.Value(wizard.KeyDescription))
		m.body.Focus()
	case wizard.EnteringRequiredField:
		required := m.ctrl.RequiredFields()
		if st.Index < len(required) {
			field := required[st.Index]
			m.input.SetValue(m.ctrl.Value(field.Key))
			m.input.Placeholder = field.DisplayName
			m.input.Focus()
		}
		m.candidates = nil
		m.candCursor = 0
	}
}

// View renders the current step.
func (m Model) View() string {
	if m.quit {
		return ""
	}

	var b strings.Builder

	switch st := m.ctrl.State().(type) {
	case wizard.DiscoveringConfig:
		b.WriteString(m.spin.View() + " Checking configuration...")

	case wizard.NeedsCredentials:
		b.WriteString(theme.TitleStyle.Render("Connect to Jira") + "\n")
		if st.Reason != nil {
			b.WriteString(theme.ErrorStyle.Render(
				"The tracker rejected the previous credentials.",
			) + "\n\n")
		}
		if m.credForm != nil {
			b.WriteString(m.credForm.View())
		}

	case wizard.SelectingType:
		b.WriteString(theme.TitleStyle.Render("What kind of issue?") + "\n")
		if len(m.issueTypes) == 0 {
			b.WriteString(m.spin.View() + " Loading issue types...")
		}
		for i, it := range m.issueTypes {
			if i == m.typeCursor {
				b.WriteString(theme.SelectedItemStyle.Render("> "+it.Name) + "\n")
			} else {
				b.WriteString("  " + it.Name + "\n")
			}
		}

	case wizard.EnteringSummary:
		b.WriteString(m.stepHeader("Summary"))
		b.WriteString(m.input.View() + "\n")
		b.WriteString(m.helpLine(m.keys.Next))

	case wizard.EnteringDescription:
		b.WriteString(m.stepHeader("Description"))
		b.WriteString(m.body.View() + "\n")
		b.WriteString(m.helpLine(m.keys.BodyDone, m.keys.Back))

	case wizard.EnteringRequiredField:
		required := m.ctrl.RequiredFields()
		if st.Index < len(required) {
			field := required[st.Index]
			b.WriteString(m.stepHeader(field.DisplayName))
			if errMsg, ok := m.ctrl.FieldErrors()[field.Key]; ok {
				b.WriteString(theme.ErrorStyle.Render(errMsg) + "\n")
			}
			b.WriteString(m.input.View() + "\n")
			for i, cand := range m.candidates {
				if i == m.candCursor {
					b.WriteString(theme.SelectedItemStyle.Render("> "+cand.Name) + "\n")
				} else {
					b.WriteString("  " + cand.Name + "\n")
				}
			}
			b.WriteString(m.helpLine(m.keys.Pick, m.keys.Next, m.keys.Back))
		}

	case wizard.Reviewing:
		b.WriteString(m.reviewView())

	case wizard.Submitting:
		b.WriteString(m.spin.View() + " Creating issue...")

	case wizard.Succeeded:
		b.WriteString(theme.SuccessStyle.Render("Issue created") + "\n")
		b.WriteString(st.Result.TrackerID + "\n")
		b.WriteString(theme.LinkStyle.Render(st.Result.TrackerURL) + "\n\n")
		b.WriteString(m.helpLine(m.keys.Quit))

	case wizard.SchemaUnavailable:
		b.WriteString(theme.ErrorStyle.Render("Could not load the issue form.") + "\n")
		b.WriteString(theme.SubtleStyle.Render(st.Reason.Error()) + "\n\n")
		b.WriteString(m.helpLine(m.keys.Quit))
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

// stepHeader renders the title line with the progress indicator.
func (m Model) stepHeader(name string) string {
	progress := fmt.Sprintf(
		"step %d of %d", m.ctrl.CurrentStepNumber(), m.ctrl.TotalSteps(),
	)
	return theme.TitleStyle.Render(name) + " " +
		theme.ProgressStyle.Render(progress) + "\n"
}

// helpLine renders a shortcut footer from key bindings.
func (m Model) helpLine(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return theme.HelpStyle.Render(strings.Join(parts, " · "))
}

// reviewView renders everything collected, with inline errors and —
// after a failure that discovered a hidden field — the optional section
// forced open.
func (m Model) reviewView() string {
	var b strings.Builder
	b.WriteString(m.stepHeader("Review"))

	if m.ctrl.LastError() != "" {
		b.WriteString(theme.ErrorStyle.Render(m.ctrl.LastError()) + "\n\n")
	}

	form := m.ctrl.Form()
	b.WriteString("Summary: " + form.FieldValues[wizard.KeySummary] + "\n")
	desc := form.FieldValues[wizard.KeyDescription]
	if len(desc) > 60 {
		desc = desc[:60] + "..."
	}
	b.WriteString("Description: " + desc + "\n")

	for _, field := range m.ctrl.RequiredFields() {
		b.WriteString(m.reviewLine(field))
	}

	if m.ctrl.OptionalExpanded() {
		b.WriteString("\n" + theme.SubtleStyle.Render("Other fields") + "\n")
		for _, field := range m.ctrl.Fields() {
			if field.Required {
				continue
			}
			if _, cond := form.ConditionallyRequired[field.Key]; cond {
				continue
			}
			b.WriteString(m.reviewLine(field))
		}
	}

	b.WriteString("\n" + theme.HelpStyle.Render("enter: submit · esc: back"))
	return b.String()
}

// reviewLine renders one field's collected value, preferring the cached
// display form.
func (m Model) reviewLine(field model.FieldModel) string {
	form := m.ctrl.Form()
	value := form.DisplayValueCache[field.Key]
	if value == "" {
		value = form.FieldValues[field.Key]
	}
	if value == "" && field.DefaultValue != "" {
		value = field.DefaultValue + theme.SubtleStyle.Render(" (default)")
	}

	line := field.DisplayName + ": " + value
	if errMsg, ok := m.ctrl.FieldErrors()[field.Key]; ok {
		line += "  " + theme.ErrorStyle.Render(errMsg)
	}
	return line + "\n"
}

// candidateValue picks what an accepted candidate writes into the field.
func candidateValue(c model.Candidate) string {
	if c.Value != "" {
		return c.Value
	}
	return c.ID
}

// filterFieldOptions narrows declared options by a typed substring.
func filterFieldOptions(
	options []model.FieldOption,
	query string,
) []model.Candidate {
	q := strings.ToLower(query)
	var out []model.Candidate
	for _, opt := range options {
		if q != "" && !strings.Contains(strings.ToLower(opt.Label), q) {
			continue
		}
		out = append(out, model.Candidate{
			ID:    opt.ID,
			Name:  opt.Label,
			Value: opt.Value,
		})
	}
	return out
}
