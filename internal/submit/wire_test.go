package submit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ewjdev/anyclick/internal/model"
)

func TestCoerceEmptyOmits(t *testing.T) {
	t.Parallel()

	field := model.FieldModel{Key: "f", Type: model.FieldTypeText}
	require.True(t, Coerce(field, "").IsOmit())
	require.True(t, Coerce(field, "   ").IsOmit())
}

func TestCoerceSelect(t *testing.T) {
	t.Parallel()

	field := model.FieldModel{
		Key: "sev", Type: model.FieldTypeSelect,
		Options: []model.FieldOption{
			{ID: "10", Value: "Low", Label: "Low"},
			{ID: "11", Value: "High", Label: "High"},
		},
	}

	// Entered id resolves to the option.
	v := Coerce(field, "10")
	require.Equal(t, KindID, v.Kind)
	require.Equal(t, map[string]string{"id": "10"}, v.Payload())

	// Entered label resolves case-insensitively.
	v = Coerce(field, "high")
	require.Equal(t, map[string]string{"id": "11"}, v.Payload())

	// Unresolvable values still submit as an id object; the tracker
	// reports the validation error.
	v = Coerce(field, "nonsense")
	require.Equal(t, map[string]string{"id": "nonsense"}, v.Payload())
}

func TestCoercePrioritySubmitsName(t *testing.T) {
	t.Parallel()

	field := model.FieldModel{
		Key: "priority", Type: model.FieldTypeSelect,
		Options: []model.FieldOption{
			{ID: "2", Value: "Medium", Label: "Medium"},
		},
	}

	v := Coerce(field, "2")
	require.Equal(t, KindName, v.Kind)
	require.Equal(t, map[string]string{"name": "Medium"}, v.Payload())
}

func TestCoerceMultiselect(t *testing.T) {
	t.Parallel()

	field := model.FieldModel{
		Key: "components", Type: model.FieldTypeMultiselect,
		Options: []model.FieldOption{
			{ID: "1", Value: "API", Label: "API"},
			{ID: "2", Value: "UI", Label: "UI"},
		},
	}

	v := Coerce(field, "API, UI")
	require.Equal(t, KindList, v.Kind)
	require.Equal(t, []any{
		map[string]string{"id": "1"},
		map[string]string{"id": "2"},
	}, v.Payload())

	// Unresolvable entries drop; nothing resolvable omits the field.
	v = Coerce(field, "API, bogus")
	require.Equal(t, []any{map[string]string{"id": "1"}}, v.Payload())
	require.True(t, Coerce(field, "bogus").IsOmit())
}

func TestCoerceNumber(t *testing.T) {
	t.Parallel()

	field := model.FieldModel{Key: "points", Type: model.FieldTypeNumber}
	require.Equal(t, 3.5, Coerce(field, " 3.5 ").Payload())
	require.True(t, Coerce(field, "abc").IsOmit())
}

func TestCoerceBoolean(t *testing.T) {
	t.Parallel()

	field := model.FieldModel{Key: "flagged", Type: model.FieldTypeBoolean}
	require.Equal(t, true, Coerce(field, "true").Payload())
	require.Equal(t, true, Coerce(field, "1").Payload())
	require.Equal(t, false, Coerce(field, "no").Payload())
}

func TestCoerceUser(t *testing.T) {
	t.Parallel()

	field := model.FieldModel{Key: "assignee", Type: model.FieldTypeUser}
	v := Coerce(field, "abc123")
	require.Equal(t, map[string]string{"accountId": "abc123"}, v.Payload())
}

func TestCoerceArray(t *testing.T) {
	t.Parallel()

	field := model.FieldModel{Key: "labels", Type: model.FieldTypeArray}
	v := Coerce(field, "one, two")
	require.Equal(t, []any{"one", "two"}, v.Payload())
}

func TestCoerceTextKinds(t *testing.T) {
	t.Parallel()

	for _, ft := range []model.FieldType{
		model.FieldTypeText,
		model.FieldTypeTextarea,
		model.FieldTypeDate,
		model.FieldTypeDatetime,
	} {
		field := model.FieldModel{Key: "f", Type: ft}
		require.Equal(t, "2026-01-15", Coerce(field, "2026-01-15").Payload(), ft)
	}
}

func TestCoerceUnknownType(t *testing.T) {
	t.Parallel()

	// Autocomplete-backed unknown types submit id objects.
	field := model.FieldModel{
		Key: "epic1", Type: model.FieldType("any"), Autocomplete: true,
	}
	require.Equal(t, map[string]string{"id": "CP-1"}, Coerce(field, "CP-1").Payload())

	// Plain unknown types pass through as text.
	field.Autocomplete = false
	require.Equal(t, "CP-1", Coerce(field, "CP-1").Payload())
}

func TestCoerceIsIdempotent(t *testing.T) {
	t.Parallel()

	field := model.FieldModel{
		Key: "sev", Type: model.FieldTypeSelect,
		Options: []model.FieldOption{{ID: "10", Value: "Low", Label: "Low"}},
	}
	first := Coerce(field, "Low")
	second := Coerce(field, "Low")
	require.Equal(t, first, second)
}
