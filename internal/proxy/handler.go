// Package proxy exposes the application-facing HTTP surface of the
// reporting engine: one route dispatching on an action query parameter,
// so the embedding application needs a single allow-listed path.
package proxy

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ewjdev/anyclick/internal/autocomplete"
	"github.com/ewjdev/anyclick/internal/model"
	"github.com/ewjdev/anyclick/internal/schema"
	"github.com/ewjdev/anyclick/internal/submit"
	"github.com/ewjdev/anyclick/internal/tracker"
)

// CredentialHeader carries per-session credentials as a JSON blob when
// server-side configuration is absent. Session credentials take
// priority only when explicitly supplied this way.
const CredentialHeader = "X-Anyclick-Jira-Auth"

// Credentials is the session credential blob.
type Credentials struct {
	JiraURL    string `json:"jiraUrl"`
	Email      string `json:"email"`
	APIToken   string `json:"apiToken"`
	ProjectKey string `json:"projectKey"`
}

// TrackerFactory builds a tracker adapter for a credential set. Tests
// substitute a fake here.
type TrackerFactory func(baseURL, email, apiToken string) tracker.Tracker

// TokenSource supplies the server-side API token (normally from the
// system keyring).
type TokenSource func() (string, error)

// Handler serves the proxy route.
type Handler struct {
	cfg        *model.AppConfig
	token      TokenSource
	newTracker TrackerFactory
	log        *slog.Logger
}

// NewHandler creates a proxy handler.
func NewHandler(
	cfg *model.AppConfig,
	token TokenSource,
	newTracker TrackerFactory,
	log *slog.Logger,
) *Handler {
	return &Handler{
		cfg:        cfg,
		token:      token,
		newTracker: newTracker,
		log:        log,
	}
}

// Register attaches the proxy route to the router.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/api/anyclick/jira", h.handleQuery)
	r.POST("/api/anyclick/jira", h.handleSubmit)
}

// handleQuery dispatches the read-only actions.
func (h *Handler) handleQuery(c *gin.Context) {
	switch c.Query("action") {
	case "status":
		h.handleStatus(c)
	case "issue-types":
		h.handleIssueTypes(c)
	case "fields":
		h.handleFields(c)
	case "search":
		h.handleSearch(c)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action"})
	}
}

// handleStatus reports whether server-side credentials are present. It
// deliberately ignores the session credential header: the caller uses
// this to decide whether to prompt for credentials at all.
func (h *Handler) handleStatus(c *gin.Context) {
	missing := h.cfg.MissingSettings()
	if token, err := h.token(); err != nil || token == "" {
		missing = append(missing, "apiToken")
	}
	c.JSON(http.StatusOK, gin.H{
		"configured": len(missing) == 0,
		"missing":    missing,
	})
}

func (h *Handler) handleIssueTypes(c *gin.Context) {
	fetcher, ok := h.fetcher(c)
	if !ok {
		return
	}

	types, err := fetcher.IssueTypes(c.Request.Context())
	if err != nil {
		h.trackerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"issueTypes": types})
}

func (h *Handler) handleFields(c *gin.Context) {
	issueTypeID := c.Query("issueType")
	if issueTypeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "issueType is required"})
		return
	}

	fetcher, ok := h.fetcher(c)
	if !ok {
		return
	}

	includeOptional := c.Query("includeOptional") == "true"
	fields, err := fetcher.Fields(
		c.Request.Context(), issueTypeID, includeOptional,
	)
	if err != nil {
		h.trackerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"issueType":  issueTypeID,
		"fields":     fields,
		"projectKey": fetcher.ProjectKey(),
	})
}

// handleSearch resolves autocomplete candidates. A failed resolution is
// an empty result, never an error: search follows the
// empty-result-and-continue policy.
func (h *Handler) handleSearch(c *gin.Context) {
	creds, ok := h.credentials(c)
	if !ok {
		return
	}

	field := model.FieldModel{
		Key:          c.Query("fieldKey"),
		DisplayName:  c.Query("field"),
		Autocomplete: true,
	}
	field.Category = autocomplete.Categorize(
		field.DisplayName, field.Key, field.Type,
	)

	resolver := autocomplete.NewResolver(
		h.newTracker(creds.JiraURL, creds.Email, creds.APIToken),
		creds.ProjectKey,
		h.cfg.Jira.EpicIssueType,
		h.log,
	)

	results := resolver.Resolve(c.Request.Context(), field, c.Query("query"))
	if results == nil {
		results = []model.Candidate{}
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// submitRequest is the POST body for issue submission.
type submitRequest struct {
	IssueType   string            `json:"issueType"`
	Summary     string            `json:"summary"`
	Description string            `json:"description"`
	Fields      map[string]string `json:"fields"`
	Attachments []struct {
		Filename string `json:"filename"`
		Data     string `json:"data"` // base64
	} `json:"attachments"`
}

// handleSubmit creates an issue from collected values, then uploads any
// attachments best-effort.
func (h *Handler) handleSubmit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.IssueType == "" || req.Summary == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "issueType and summary are required",
		})
		return
	}

	creds, ok := h.credentials(c)
	if !ok {
		return
	}
	trk := h.newTracker(creds.JiraURL, creds.Email, creds.APIToken)

	// The submission needs the normalized field set to coerce values,
	// so fetch it fresh: schema is never cached across sessions.
	fetcher := schema.NewFetcher(trk, creds.ProjectKey, schema.NormalizeOptions{
		IncludeOptional:  true,
		DefaultOverrides: h.cfg.Submit.FieldDefaults,
	}, h.log)

	fields, err := fetcher.Fields(c.Request.Context(), req.IssueType, true)
	if err != nil {
		h.trackerError(c, err)
		return
	}

	var attachments []tracker.Attachment
	for _, att := range req.Attachments {
		data, err := base64.StdEncoding.DecodeString(att.Data)
		if err != nil {
			h.log.Warn("discarding undecodable attachment",
				"filename", att.Filename,
			)
			continue
		}
		attachments = append(attachments, tracker.Attachment{
			Filename: att.Filename,
			Data:     data,
		})
	}

	// Proxy submissions are one-shot sessions; mint an ID so their log
	// lines correlate the same way wizard sessions do.
	submitter := submit.NewSubmitter(trk, h.cfg.Submit.Labels, h.log)
	result, outcome := submitter.Submit(c.Request.Context(), submit.Request{
		Session:     uuid.NewString(),
		ProjectKey:  creds.ProjectKey,
		IssueTypeID: req.IssueType,
		Summary:     req.Summary,
		Description: req.Description,
		Fields:      fields,
		Values:      req.Fields,
		Attachments: attachments,
	})

	resp := gin.H{"success": result.Success}
	if result.Success {
		resp["trackerId"] = result.TrackerID
		resp["trackerUrl"] = result.TrackerURL
		c.JSON(http.StatusOK, resp)
		return
	}

	resp["error"] = result.Error
	if rec, ok := outcome.(submit.Recoverable); ok {
		resp["missingFields"] = rec.MissingFieldNames
		c.JSON(http.StatusBadRequest, resp)
		return
	}
	c.JSON(statusFor(outcome), resp)
}

// fetcher builds a schema fetcher for the request's credential set.
func (h *Handler) fetcher(c *gin.Context) (*schema.Fetcher, bool) {
	creds, ok := h.credentials(c)
	if !ok {
		return nil, false
	}
	trk := h.newTracker(creds.JiraURL, creds.Email, creds.APIToken)
	return schema.NewFetcher(trk, creds.ProjectKey, schema.NormalizeOptions{
		IncludeOptional:  h.cfg.Submit.IncludeOptional,
		DefaultOverrides: h.cfg.Submit.FieldDefaults,
	}, h.log), true
}

// credentials resolves the effective credential set: the session header
// when present, otherwise server-side configuration plus the keyring
// token. Responds with the configuration error itself when neither
// yields a usable set.
func (h *Handler) credentials(c *gin.Context) (Credentials, bool) {
	if blob := c.GetHeader(CredentialHeader); blob != "" {
		var creds Credentials
		if err := json.Unmarshal([]byte(blob), &creds); err == nil &&
			creds.JiraURL != "" && creds.APIToken != "" {
			if creds.ProjectKey == "" {
				creds.ProjectKey = h.cfg.Jira.ProjectKey
			}
			return creds, true
		}
		h.log.Warn("ignoring malformed credential header")
	}

	missing := h.cfg.MissingSettings()
	token, err := h.token()
	if err != nil || token == "" {
		missing = append(missing, "apiToken")
	}
	if len(missing) > 0 {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": (&tracker.ConfigurationError{Missing: missing}).Error(),
		})
		return Credentials{}, false
	}

	return Credentials{
		JiraURL:    h.cfg.Jira.BaseURL,
		Email:      h.cfg.Jira.Email,
		APIToken:   token,
		ProjectKey: h.cfg.Jira.ProjectKey,
	}, true
}

// trackerError maps a tracker error to a response. Bodies from the
// tracker are logged for diagnostics, never relayed verbatim.
func (h *Handler) trackerError(c *gin.Context, err error) {
	h.log.Error("tracker request failed", "error", err)

	status := http.StatusBadGateway
	msg := "The issue tracker could not be reached."

	var (
		authErr  *tracker.AuthenticationError
		authzErr *tracker.AuthorizationError
		nfErr    *tracker.NotFoundError
	)
	switch {
	case errors.As(err, &authErr):
		status = http.StatusUnauthorized
		msg = "The tracker rejected the configured credentials."
	case errors.As(err, &authzErr):
		status = http.StatusForbidden
		msg = "The configured account is not permitted to do this."
	case errors.As(err, &nfErr):
		status = http.StatusNotFound
		msg = "The project or issue type could not be found."
	}

	c.JSON(status, gin.H{"error": msg})
}

// statusFor maps a terminal outcome onto an HTTP status.
func statusFor(outcome submit.Outcome) int {
	term, ok := outcome.(submit.Terminal)
	if !ok {
		return http.StatusBadGateway
	}

	var (
		authErr  *tracker.AuthenticationError
		authzErr *tracker.AuthorizationError
		nfErr    *tracker.NotFoundError
	)
	switch {
	case errors.As(term.Reason, &authErr):
		return http.StatusUnauthorized
	case errors.As(term.Reason, &authzErr):
		return http.StatusForbidden
	case errors.As(term.Reason, &nfErr):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}
