// Package autocomplete resolves remote candidate values for fields whose
// valid values cannot be enumerated client-side. Each field category has
// an ordered strategy chain; resolution returns the first strategy's
// non-empty result and never merges across strategies.
package autocomplete

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ewjdev/anyclick/internal/model"
	"github.com/ewjdev/anyclick/internal/tracker"
)

// issueKeyPattern matches strings that syntactically look like an issue
// key (e.g. PROJ-123).
var issueKeyPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*-\d+$`)

// Categorize classifies a field into a search strategy category by
// heuristic substring match on its name and key.
func Categorize(
	name string,
	key string,
	fieldType model.FieldType,
) model.AutocompleteCategory {
	probe := strings.ToLower(name + " " + key)
	switch {
	case strings.Contains(probe, "epic"):
		return model.CategoryEpic
	case strings.Contains(probe, "team"):
		return model.CategoryTeam
	case fieldType == model.FieldTypeUser,
		strings.Contains(probe, "assignee"),
		strings.Contains(probe, "reporter"),
		strings.Contains(probe, "user"):
		return model.CategoryUser
	default:
		return model.CategoryGeneric
	}
}

// Resolver resolves autocomplete candidates against the tracker's search
// surfaces. It is stateless per call; debouncing and supersede tracking
// are the caller's responsibility (see Debounced).
type Resolver struct {
	trk           tracker.Tracker
	projectKey    string
	epicIssueType string
	log           *slog.Logger
}

// NewResolver creates a resolver scoped to one project. epicIssueType is
// the issue type name used to restrict epic-link searches (normally
// "Epic").
func NewResolver(
	trk tracker.Tracker,
	projectKey string,
	epicIssueType string,
	log *slog.Logger,
) *Resolver {
	if epicIssueType == "" {
		epicIssueType = "Epic"
	}
	return &Resolver{
		trk:           trk,
		projectKey:    projectKey,
		epicIssueType: epicIssueType,
		log:           log,
	}
}

// Resolve returns candidates for the field and query. A strategy whose
// remote call fails counts as an empty result and resolution advances to
// the next strategy; total exhaustion yields an empty list, never an
// error.
func (r *Resolver) Resolve(
	ctx context.Context,
	field model.FieldModel,
	query string,
) []model.Candidate {
	category := field.Category
	if category == "" {
		category = Categorize(field.DisplayName, field.Key, field.Type)
	}

	var chain []strategy
	switch category {
	case model.CategoryEpic:
		chain = r.epicChain(query)
	case model.CategoryTeam:
		chain = r.teamChain(field, query)
	case model.CategoryUser:
		chain = []strategy{r.userSearch(query)}
	default:
		chain = []strategy{r.suggest(field.DisplayName, query)}
	}

	for _, s := range chain {
		candidates, err := s.run(ctx)
		if err != nil {
			r.log.Debug("autocomplete strategy failed",
				"field", field.Key,
				"strategy", s.name,
				"error", err,
			)
			continue
		}
		if len(candidates) > 0 {
			return candidates
		}
	}

	return nil
}

// strategy is one step of a category's resolution chain.
type strategy struct {
	name string
	run  func(ctx context.Context) ([]model.Candidate, error)
}

// epicChain: issue-picker scoped to the project and restricted to the
// epic issue type; then a sequence of structured queries from most to
// least specific; then, for key-shaped queries, a direct issue lookup.
func (r *Resolver) epicChain(query string) []strategy {
	chain := []strategy{
		{
			name: "epic-picker",
			run: func(ctx context.Context) ([]model.Candidate, error) {
				refs, err := r.trk.PickIssues(ctx, tracker.PickOptions{
					Query:      query,
					ProjectKey: r.projectKey,
					CurrentJQL: fmt.Sprintf(
						"project = %s AND issuetype = %q",
						r.projectKey, r.epicIssueType,
					),
				})
				if err != nil {
					return nil, err
				}
				return issueCandidates(refs), nil
			},
		},
		{
			name: "epic-jql",
			run: func(ctx context.Context) ([]model.Candidate, error) {
				return r.epicJQL(ctx, query)
			},
		},
	}

	if issueKeyPattern.MatchString(query) {
		chain = append(chain, strategy{
			name: "epic-direct",
			run: func(ctx context.Context) ([]model.Candidate, error) {
				ref, err := r.trk.GetIssue(ctx, strings.ToUpper(query))
				if err != nil {
					return nil, err
				}
				return issueCandidates([]tracker.IssueRef{*ref}), nil
			},
		})
	}

	return chain
}

// epicJQL tries structured queries in order — exact key match, key
// prefix, summary substring, full text — stopping at the first query
// that returns results.
func (r *Resolver) epicJQL(
	ctx context.Context,
	query string,
) ([]model.Candidate, error) {
	scope := fmt.Sprintf(
		"project = %s AND issuetype = %q",
		r.projectKey, r.epicIssueType,
	)

	var lastErr error
	if issueKeyPattern.MatchString(query) {
		jql := fmt.Sprintf(
			"%s AND issuekey = %q", scope, strings.ToUpper(query),
		)
		refs, err := r.trk.SearchIssues(ctx, jql, 20)
		if err != nil {
			lastErr = err
		} else if len(refs) > 0 {
			return issueCandidates(refs), nil
		}
	}

	// JQL has no prefix operator for issuekey, so the lower bound
	// over-fetches and the results are narrowed to true prefix matches
	// here.
	jql := fmt.Sprintf("%s AND issuekey >= %q", scope, strings.ToUpper(query))
	refs, err := r.trk.SearchIssues(ctx, jql, 20)
	if err != nil {
		lastErr = err
	} else if matched := filterKeyPrefix(refs, query); len(matched) > 0 {
		return issueCandidates(matched), nil
	}

	for _, jql := range []string{
		fmt.Sprintf("%s AND summary ~ %q", scope, escapeJQL(query)),
		fmt.Sprintf("%s AND text ~ %q", scope, escapeJQL(query)),
	} {
		refs, err := r.trk.SearchIssues(ctx, jql, 20)
		if err != nil {
			lastErr = err
			continue
		}
		if len(refs) > 0 {
			return issueCandidates(refs), nil
		}
	}

	return nil, lastErr
}

// filterKeyPrefix keeps only issues whose key starts with the query,
// case-insensitively.
func filterKeyPrefix(
	refs []tracker.IssueRef,
	query string,
) []tracker.IssueRef {
	prefix := strings.ToUpper(query)
	var out []tracker.IssueRef
	for _, ref := range refs {
		if strings.HasPrefix(strings.ToUpper(ref.Key), prefix) {
			out = append(out, ref)
		}
	}
	return out
}

// teamChain: the field's own declared allowed values filtered by the
// query; then a suggestion lookup keyed by the fixed "Team" label; then
// the group picker.
func (r *Resolver) teamChain(
	field model.FieldModel,
	query string,
) []strategy {
	return []strategy{
		{
			name: "team-options",
			run: func(ctx context.Context) ([]model.Candidate, error) {
				return filterOptions(field.Options, query), nil
			},
		},
		r.suggest("Team", query),
		{
			name: "team-groups",
			run: func(ctx context.Context) ([]model.Candidate, error) {
				groups, err := r.trk.SearchGroups(ctx, query)
				if err != nil {
					return nil, err
				}
				candidates := make([]model.Candidate, 0, len(groups))
				for _, g := range groups {
					id := g.GroupID
					if id == "" {
						id = g.Name
					}
					candidates = append(candidates, model.Candidate{
						ID:   id,
						Name: g.Name,
					})
				}
				return candidates, nil
			},
		},
	}
}

// userSearch is the single-step user category strategy.
func (r *Resolver) userSearch(query string) strategy {
	return strategy{
		name: "user-search",
		run: func(ctx context.Context) ([]model.Candidate, error) {
			users, err := r.trk.SearchUsers(ctx, query)
			if err != nil {
				return nil, err
			}
			candidates := make([]model.Candidate, 0, len(users))
			for _, u := range users {
				candidates = append(candidates, model.Candidate{
					ID:   u.AccountID,
					Name: u.DisplayName,
				})
			}
			return candidates, nil
		},
	}
}

// suggest builds a generic suggestion-lookup strategy for a field label.
func (r *Resolver) suggest(fieldName, query string) strategy {
	return strategy{
		name: "suggest:" + fieldName,
		run: func(ctx context.Context) ([]model.Candidate, error) {
			suggestions, err := r.trk.SuggestFieldValues(
				ctx, fieldName, query,
			)
			if err != nil {
				return nil, err
			}
			candidates := make([]model.Candidate, 0, len(suggestions))
			for _, s := range suggestions {
				name := stripMarkup(s.DisplayName)
				if name == "" {
					name = s.Value
				}
				candidates = append(candidates, model.Candidate{
					ID:    s.Value,
					Name:  name,
					Value: s.Value,
				})
			}
			return candidates, nil
		},
	}
}

// filterOptions applies a case-insensitive substring filter to a field's
// declared allowed values.
func filterOptions(
	options []model.FieldOption,
	query string,
) []model.Candidate {
	q := strings.ToLower(query)
	var candidates []model.Candidate
	for _, opt := range options {
		if q != "" && !strings.Contains(strings.ToLower(opt.Label), q) {
			continue
		}
		candidates = append(candidates, model.Candidate{
			ID:    opt.ID,
			Name:  opt.Label,
			Value: opt.Value,
		})
	}
	return candidates
}

// issueCandidates maps issue references into candidates labeled
// "KEY: summary".
func issueCandidates(refs []tracker.IssueRef) []model.Candidate {
	candidates := make([]model.Candidate, 0, len(refs))
	for _, ref := range refs {
		name := ref.Key
		if ref.Summary != "" {
			name = ref.Key + ": " + ref.Summary
		}
		candidates = append(candidates, model.Candidate{
			ID:    ref.Key,
			Name:  name,
			Value: ref.Key,
		})
	}
	return candidates
}

// markupPattern matches the highlight tags Jira wraps around matched
// substrings in suggestion display names.
var markupPattern = regexp.MustCompile(`</?b>|<[^>]*>`)

// stripMarkup removes suggestion highlight markup.
func stripMarkup(s string) string {
	return markupPattern.ReplaceAllString(s, "")
}

// escapeJQL escapes special characters in a JQL text search query value.
func escapeJQL(s string) string {
	// Escape backslashes first, then double-quotes.
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
