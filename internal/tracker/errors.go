package tracker

import (
	"errors"
	"fmt"
)

// ConfigurationError indicates no usable credentials or connection
// settings are available. Nothing tracker-facing can run until the user
// reconfigures.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("tracker not configured, missing: %v", e.Missing)
}

// AuthenticationError indicates the tracker rejected the credentials (401).
type AuthenticationError struct {
	BaseURL string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf(
		"authentication failed (401): check the email/API token pair for %s",
		e.BaseURL,
	)
}

// AuthorizationError indicates the credentials are valid but lack
// permission for the operation (403).
type AuthorizationError struct {
	Op string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("not permitted (403): %s", e.Op)
}

// NotFoundError indicates the project, issue type, or instance is
// unreachable (404).
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found (404): %s", e.Resource)
}

// ValidationError carries the tracker's per-field rejection detail for a
// 400 response. It is the only recoverable submission failure: the error
// classifier feeds it back into the wizard.
type ValidationError struct {
	// Messages are instance-level error strings (errorMessages).
	Messages []string

	// FieldErrors maps an offending field identifier to the tracker's
	// message for it (errors).
	FieldErrors map[string]string

	// Raw is the unparsed response body, kept for diagnostics and for
	// free-text classification when the structured parts are empty.
	Raw string
}

func (e *ValidationError) Error() string {
	if len(e.Messages) > 0 {
		return fmt.Sprintf("validation failed (400): %v", e.Messages)
	}
	if len(e.FieldErrors) > 0 {
		return fmt.Sprintf("validation failed (400): %v", e.FieldErrors)
	}
	return "validation failed (400): " + e.Raw
}

// TransientNetworkError wraps a transport-level failure. Search treats it
// as an empty result; schema fetch treats it as a hard stop.
type TransientNetworkError struct {
	Op  string
	Err error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("network failure on %s: %v", e.Op, e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// UnknownTrackerError covers any tracker response outside the taxonomy.
type UnknownTrackerError struct {
	StatusCode int
	Op         string
	Body       string
}

func (e *UnknownTrackerError) Error() string {
	return fmt.Sprintf(
		"unexpected status %d on %s: %s", e.StatusCode, e.Op, e.Body,
	)
}

// IsValidation reports whether err (or any error in its chain) is a
// ValidationError, returning it when so.
func IsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// IsTransient reports whether err is a TransientNetworkError.
func IsTransient(err error) bool {
	var terr *TransientNetworkError
	return errors.As(err, &terr)
}

// IsTerminal reports whether err ends the session for the current
// credential set (authentication, authorization, not-found, or missing
// configuration). Such errors surface a reconfigure action, not a retry.
func IsTerminal(err error) bool {
	var (
		cfgErr   *ConfigurationError
		authErr  *AuthenticationError
		authzErr *AuthorizationError
		nfErr    *NotFoundError
	)
	return errors.As(err, &cfgErr) ||
		errors.As(err, &authErr) ||
		errors.As(err, &authzErr) ||
		errors.As(err, &nfErr)
}
