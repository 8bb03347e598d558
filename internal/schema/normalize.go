// Package schema fetches the tracker's dynamic create-metadata and
// normalizes its heterogeneous field descriptors into the engine's
// uniform field model.
package schema

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ewjdev/anyclick/internal/autocomplete"
	"github.com/ewjdev/anyclick/internal/model"
	"github.com/ewjdev/anyclick/internal/tracker"
)

// identityFields are always handled by dedicated non-generic wizard
// steps and are never exposed as normalized fields.
var identityFields = map[string]struct{}{
	"summary":     {},
	"description": {},
	"issuetype":   {},
	"project":     {},
	"reporter":    {},
	"attachment":  {},
}

// narrativeHints mark a string-typed field as free-form narrative
// content, promoting it from text to textarea.
var narrativeHints = []string{
	"textarea", "description", "note", "detail", "comment", "steps",
}

// NormalizeOptions controls field filtering and default resolution.
type NormalizeOptions struct {
	// IncludeOptional keeps fields the schema declares as not required.
	IncludeOptional bool

	// DefaultOverrides wins over the tracker-declared default, keyed by
	// field key.
	DefaultOverrides map[string]string
}

// Normalize converts raw create-metadata descriptors into the canonical
// field model list. It is a pure transformation: no network calls, total
// over any well-formed descriptor (unrecognized schema types fall back
// to text), and deterministic — required fields first, then alphabetical
// by display name under a locale-aware collation, regardless of input
// order.
func Normalize(
	raw []tracker.RawField,
	opts NormalizeOptions,
) []model.FieldModel {
	fields := make([]model.FieldModel, 0, len(raw))

	for _, rf := range raw {
		if _, skip := identityFields[rf.Key]; skip {
			continue
		}
		if !rf.Required && !opts.IncludeOptional {
			continue
		}
		fields = append(fields, normalizeField(rf, opts))
	}

	sortFields(fields)
	return fields
}

// normalizeField converts one raw descriptor.
func normalizeField(
	rf tracker.RawField,
	opts NormalizeOptions,
) model.FieldModel {
	fm := model.FieldModel{
		Key:         rf.Key,
		DisplayName: rf.Name,
		Required:    rf.Required,
	}

	fm.Type, fm.Options = inferType(rf)

	if rf.AutoCompleteURL != "" || fm.Type == model.FieldTypeUser {
		fm.Autocomplete = true
	}
	if fm.Autocomplete {
		fm.Category = autocomplete.Categorize(rf.Name, rf.Key, fm.Type)
	}

	fm.DefaultValue = resolveDefault(rf, fm.Options, opts.DefaultOverrides)

	return fm
}

// inferType applies the type-inference precedence: an enumerable
// allowed-value list forces select (or multiselect when the schema is
// array-shaped); otherwise the declared primitive type is mapped, with
// string promoted to textarea on a narrative hint; anything unknown
// defaults to text.
func inferType(
	rf tracker.RawField,
) (model.FieldType, []model.FieldOption) {
	if len(rf.AllowedValues) > 0 {
		opts := make([]model.FieldOption, 0, len(rf.AllowedValues))
		for _, av := range rf.AllowedValues {
			opts = append(opts, model.FieldOption{
				ID:    av.ID,
				Value: optionValue(av),
				Label: optionValue(av),
			})
		}
		if rf.Schema.Type == "array" {
			return model.FieldTypeMultiselect, opts
		}
		return model.FieldTypeSelect, opts
	}

	switch rf.Schema.Type {
	case "string":
		if isNarrative(rf) {
			return model.FieldTypeTextarea, nil
		}
		return model.FieldTypeText, nil
	case "number":
		return model.FieldTypeNumber, nil
	case "boolean":
		return model.FieldTypeBoolean, nil
	case "user":
		return model.FieldTypeUser, nil
	case "date":
		return model.FieldTypeDate, nil
	case "datetime":
		return model.FieldTypeDatetime, nil
	case "array":
		if rf.Schema.Items == "user" {
			return model.FieldTypeUser, nil
		}
		return model.FieldTypeArray, nil
	default:
		return model.FieldTypeText, nil
	}
}

// optionValue picks the display value of an allowed-value entry.
func optionValue(av tracker.RawAllowedValue) string {
	if av.Value != "" {
		return av.Value
	}
	if av.Name != "" {
		return av.Name
	}
	return av.ID
}

// isNarrative reports whether a string-typed field's custom-type tag,
// name, or key suggests free-form narrative content.
func isNarrative(rf tracker.RawField) bool {
	probe := strings.ToLower(
		rf.Schema.Custom + " " + rf.Name + " " + rf.Key,
	)
	for _, hint := range narrativeHints {
		if strings.Contains(probe, hint) {
			return true
		}
	}
	return false
}

// resolveDefault applies the default-value precedence: adapter-level
// override, then the tracker-declared default, then the sole option
// when exactly one exists.
func resolveDefault(
	rf tracker.RawField,
	options []model.FieldOption,
	overrides map[string]string,
) string {
	if v, ok := overrides[rf.Key]; ok && v != "" {
		return v
	}
	if rf.HasDefaultValue && rf.DefaultValue != nil {
		if rf.DefaultValue.ID != "" {
			return rf.DefaultValue.ID
		}
		if v := optionValue(*rf.DefaultValue); v != "" {
			return v
		}
	}
	if len(options) == 1 {
		return options[0].ID
	}
	// Priority has no sensible "first" choice; when the tracker declares
	// none, take the middle of the ordered scale.
	if isPriority(rf) && len(options) > 0 {
		return options[len(options)/2].ID
	}
	return ""
}

// isPriority reports whether the field is the issue priority.
func isPriority(rf tracker.RawField) bool {
	return rf.Schema.System == "priority" || rf.Key == "priority"
}

// sortFields orders required fields before optional ones and sorts each
// group alphabetically by display name under a locale-aware comparison.
func sortFields(fields []model.FieldModel) {
	coll := collate.New(language.Und, collate.IgnoreCase)
	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].Required != fields[j].Required {
			return fields[i].Required
		}
		return coll.CompareString(
			fields[i].DisplayName, fields[j].DisplayName,
		) < 0
	})
}
