package submit

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/ewjdev/anyclick/internal/model"
	"github.com/ewjdev/anyclick/internal/tracker"
)

// Classification is the parsed form of a failed-submission response: a
// human-readable message plus the field names the tracker reported as
// missing.
type Classification struct {
	DisplayMessage    string
	MissingFieldNames []string
}

// structuredError mirrors the tracker's machine-readable error payload.
type structuredError struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
}

var (
	// "Please enter a value for the Team and Epic Link fields"
	enterValuePattern = regexp.MustCompile(
		`(?i)enter a value for the (.+?) fields?\b`,
	)

	// "'Team' is required"
	requiredPattern = regexp.MustCompile(`'([^']+)' is required`)
)

// Classify parses a raw submission error into a display message and the
// set of newly-discovered required field names. Precedence: a structured
// payload with explicit field identifiers wins; otherwise the ordered
// free-text patterns are applied and all matches accumulated; if nothing
// matches, the whole message is the opaque display message.
func Classify(rawError string) Classification {
	var structured structuredError
	if err := json.Unmarshal([]byte(rawError), &structured); err == nil {
		if len(structured.Errors) > 0 || len(structured.ErrorMessages) > 0 {
			return classifyStructured(structured)
		}
	}

	return classifyFreeText(rawError)
}

// classifyStructured uses the payload's explicit field identifiers.
func classifyStructured(se structuredError) Classification {
	names := make([]string, 0, len(se.Errors))
	for field := range se.Errors {
		names = append(names, field)
	}
	sort.Strings(names)

	var parts []string
	parts = append(parts, se.ErrorMessages...)
	for _, field := range names {
		parts = append(parts, se.Errors[field])
	}

	msg := strings.Join(parts, "; ")
	if msg == "" {
		msg = "The tracker rejected the submission."
	}

	return Classification{
		DisplayMessage:    msg,
		MissingFieldNames: dedupe(names),
	}
}

// classifyFreeText applies the ordered free-text patterns.
func classifyFreeText(raw string) Classification {
	var names []string

	for _, match := range enterValuePattern.FindAllStringSubmatch(raw, -1) {
		names = append(names, splitConjunction(match[1])...)
	}
	for _, match := range requiredPattern.FindAllStringSubmatch(raw, -1) {
		names = append(names, match[1])
	}

	return Classification{
		DisplayMessage:    raw,
		MissingFieldNames: dedupe(names),
	}
}

// splitConjunction breaks "Team, Sprint and Epic Link" into its parts.
func splitConjunction(list string) []string {
	list = strings.ReplaceAll(list, " and ", ",")
	var names []string
	for _, part := range strings.Split(list, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

// dedupe removes duplicate names, preserving first-seen order.
func dedupe(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(names))
	out := names[:0]
	for _, name := range names {
		folded := strings.ToLower(name)
		if _, ok := seen[folded]; ok {
			continue
		}
		seen[folded] = struct{}{}
		out = append(out, name)
	}
	return out
}

// MatchFieldsByName maps reported field names onto field keys. Per name,
// a case-insensitive exact match on display name or key wins; when none
// exists, bidirectional substring containment is tried, which handles
// tracker-renamed fields (e.g. "Epic Link" matching
// "Epic Link (ProjectSuffix)"). Short names can substring-match
// unrelated longer fields; the imprecision is accepted.
func MatchFieldsByName(
	fields []model.FieldModel,
	names []string,
) map[string]struct{} {
	matched := make(map[string]struct{})

	for _, name := range names {
		folded := strings.ToLower(strings.TrimSpace(name))
		if folded == "" {
			continue
		}

		exact := false
		for _, f := range fields {
			if strings.ToLower(f.DisplayName) == folded ||
				strings.ToLower(f.Key) == folded {
				matched[f.Key] = struct{}{}
				exact = true
			}
		}
		if exact {
			continue
		}

		for _, f := range fields {
			display := strings.ToLower(f.DisplayName)
			if strings.Contains(display, folded) ||
				strings.Contains(folded, display) {
				matched[f.Key] = struct{}{}
			}
		}
	}

	return matched
}

// Outcome is the structured result of classifying a submission failure,
// consumed uniformly by the wizard controller.
type Outcome interface {
	isOutcome()
}

// Recoverable keeps the session alive: the controller returns to review
// with inline field errors and grows its required-field set by the
// newly-matched keys.
type Recoverable struct {
	DisplayMessage    string
	MissingFieldNames []string

	// FieldErrors maps field identifiers to the tracker's message for
	// them, for inline display.
	FieldErrors map[string]string
}

func (Recoverable) isOutcome() {}

// Terminal ends the session for the current credential set and surfaces
// a reconfigure action.
type Terminal struct {
	Reason error
}

func (Terminal) isOutcome() {}

// ClassifyError maps a failed CreateIssue error onto an outcome.
// Validation failures are always recoverable; authentication,
// authorization, not-found, and configuration errors are terminal;
// transient and unknown failures keep the session alive with an opaque
// message and no field detail.
func ClassifyError(err error) Outcome {
	if tracker.IsTerminal(err) {
		return Terminal{Reason: err}
	}

	if verr, ok := tracker.IsValidation(err); ok {
		if len(verr.FieldErrors) > 0 || len(verr.Messages) > 0 {
			c := classifyStructured(structuredError{
				ErrorMessages: verr.Messages,
				Errors:        verr.FieldErrors,
			})
			return Recoverable{
				DisplayMessage:    c.DisplayMessage,
				MissingFieldNames: c.MissingFieldNames,
				FieldErrors:       verr.FieldErrors,
			}
		}
		c := Classify(verr.Raw)
		return Recoverable{
			DisplayMessage:    c.DisplayMessage,
			MissingFieldNames: c.MissingFieldNames,
		}
	}

	return Recoverable{DisplayMessage: err.Error()}
}
