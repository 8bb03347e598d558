// Package submit converts collected field values into the tracker's
// wire format, classifies failed submissions, and drives the
// create-then-attach call sequence.
package submit

import (
	"strconv"
	"strings"

	"github.com/ewjdev/anyclick/internal/model"
)

// WireKind tags a WireValue variant. The coercion table is exhaustive
// over normalized field types; KindOmit is the explicit
// "unrecognized or empty" branch.
type WireKind int

const (
	KindOmit WireKind = iota
	KindID
	KindName
	KindAccount
	KindText
	KindNumber
	KindBool
	KindList
)

// WireValue is the tagged union of tracker wire representations. Exactly
// one payload field is meaningful per kind.
type WireValue struct {
	Kind   WireKind
	Ref    string // KindID, KindName, KindAccount
	Text   string // KindText
	Number float64
	Bool   bool
	Items  []WireValue // KindList
}

// Omit is the wire value for fields excluded from the payload.
var Omit = WireValue{Kind: KindOmit}

// IsOmit reports whether the value must be left out of the submission.
func (v WireValue) IsOmit() bool { return v.Kind == KindOmit }

// Payload returns the JSON-ready wire shape.
func (v WireValue) Payload() any {
	switch v.Kind {
	case KindID:
		return map[string]string{"id": v.Ref}
	case KindName:
		return map[string]string{"name": v.Ref}
	case KindAccount:
		return map[string]string{"accountId": v.Ref}
	case KindText:
		return v.Text
	case KindNumber:
		return v.Number
	case KindBool:
		return v.Bool
	case KindList:
		items := make([]any, 0, len(v.Items))
		for _, item := range v.Items {
			items = append(items, item.Payload())
		}
		return items
	default:
		return nil
	}
}

// Coerce converts one collected value into the tracker's wire
// representation for the field's type. Empty values coerce to Omit and
// are not included in the submission payload. Coerce is pure and
// idempotent: the same (field, value) always yields the same wire value,
// so it is safe to call repeatedly across retries.
func Coerce(field model.FieldModel, value string) WireValue {
	if strings.TrimSpace(value) == "" {
		return Omit
	}

	// The priority field submits {name}, not {id}: the create endpoint
	// resolves priorities by name while rejecting bare option ids.
	if field.Key == "priority" {
		label := value
		if opt, ok := findOption(field.Options, value); ok {
			label = opt.Label
		}
		return WireValue{Kind: KindName, Ref: label}
	}

	switch field.Type {
	case model.FieldTypeSelect:
		if opt, ok := findOption(field.Options, value); ok {
			return WireValue{Kind: KindID, Ref: opt.ID}
		}
		return WireValue{Kind: KindID, Ref: value}

	case model.FieldTypeMultiselect:
		var items []WireValue
		for _, entry := range splitList(value) {
			if opt, ok := findOption(field.Options, entry); ok {
				items = append(items, WireValue{Kind: KindID, Ref: opt.ID})
			}
		}
		if len(items) == 0 {
			return Omit
		}
		return WireValue{Kind: KindList, Items: items}

	case model.FieldTypeNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return Omit
		}
		return WireValue{Kind: KindNumber, Number: n}

	case model.FieldTypeBoolean:
		b := value == "true" || value == "1"
		return WireValue{Kind: KindBool, Bool: b}

	case model.FieldTypeUser:
		return WireValue{Kind: KindAccount, Ref: value}

	case model.FieldTypeArray:
		var items []WireValue
		for _, entry := range splitList(value) {
			items = append(items, WireValue{Kind: KindText, Text: entry})
		}
		if len(items) == 0 {
			return Omit
		}
		return WireValue{Kind: KindList, Items: items}

	case model.FieldTypeText, model.FieldTypeTextarea,
		model.FieldTypeDate, model.FieldTypeDatetime:
		return WireValue{Kind: KindText, Text: value}

	default:
		// Autocomplete-backed fields outside the table submit id
		// objects; anything else passes through as text.
		if field.Autocomplete {
			return WireValue{Kind: KindID, Ref: value}
		}
		return WireValue{Kind: KindText, Text: value}
	}
}

// findOption resolves an entered value against a field's options by id
// first, then by value or label (case-insensitive).
func findOption(
	options []model.FieldOption,
	value string,
) (model.FieldOption, bool) {
	for _, opt := range options {
		if opt.ID == value {
			return opt, true
		}
	}
	for _, opt := range options {
		if strings.EqualFold(opt.Value, value) ||
			strings.EqualFold(opt.Label, value) {
			return opt, true
		}
	}
	return model.FieldOption{}, false
}

// splitList splits a comma-separated multi-value entry.
func splitList(value string) []string {
	var entries []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			entries = append(entries, part)
		}
	}
	return entries
}
