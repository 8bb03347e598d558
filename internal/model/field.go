package model

// FieldType is the normalized type of a submittable tracker field.
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeTextarea    FieldType = "textarea"
	FieldTypeSelect      FieldType = "select"
	FieldTypeMultiselect FieldType = "multiselect"
	FieldTypeNumber      FieldType = "number"
	FieldTypeBoolean     FieldType = "boolean"
	FieldTypeUser        FieldType = "user"
	FieldTypeDate        FieldType = "date"
	FieldTypeDatetime    FieldType = "datetime"
	FieldTypeArray       FieldType = "array"
)

// AutocompleteCategory selects the search strategy chain used to resolve
// candidate values for a field whose valid values cannot be enumerated
// client-side.
type AutocompleteCategory string

const (
	CategoryEpic    AutocompleteCategory = "epic"
	CategoryTeam    AutocompleteCategory = "team"
	CategoryUser    AutocompleteCategory = "user"
	CategoryGeneric AutocompleteCategory = "generic"
)

// FieldOption is one enumerable allowed value of a select or multiselect
// field. ID is always a string, regardless of how the tracker typed it.
type FieldOption struct {
	ID    string `json:"id"`
	Value string `json:"value"`
	Label string `json:"label"`
}

// FieldModel is the normalized representation of one submittable field,
// derived from the tracker's raw create-metadata. Key is unique within an
// issue type's field set; Options is populated only for select and
// multiselect fields.
type FieldModel struct {
	Key          string               `json:"key"`
	DisplayName  string               `json:"displayName"`
	Required     bool                 `json:"required"`
	Type         FieldType            `json:"type"`
	Options      []FieldOption        `json:"options,omitempty"`
	Autocomplete bool                 `json:"autocomplete,omitempty"`
	Category     AutocompleteCategory `json:"autocompleteCategory,omitempty"`
	DefaultValue string               `json:"defaultValue,omitempty"`
	Description  string               `json:"description,omitempty"`
}

// IssueTypeDescriptor identifies one creatable issue type in a project.
type IssueTypeDescriptor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IconURL     string `json:"iconUrl,omitempty"`
}

// Candidate is one resolved autocomplete value. Value, when present, is
// the wire value to submit instead of ID.
type Candidate struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

// SubmissionResult reports the outcome of one issue-creation attempt.
type SubmissionResult struct {
	Success    bool   `json:"success"`
	TrackerID  string `json:"trackerId,omitempty"`
	TrackerURL string `json:"trackerUrl,omitempty"`
	Error      string `json:"error,omitempty"`
}
