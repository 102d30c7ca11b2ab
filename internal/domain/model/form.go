package model

import "time"

// QuestionType enumerates the Airtable field types a form question can map to.
type QuestionType string

const (
	QuestionSingleLineText  QuestionType = "singleLineText"
	QuestionMultilineText   QuestionType = "multilineText"
	QuestionSingleSelect    QuestionType = "singleSelect"
	QuestionMultipleSelects QuestionType = "multipleSelects"
)

// ValidQuestionType reports whether t is one of the supported question types.
func ValidQuestionType(t QuestionType) bool {
	switch t {
	case QuestionSingleLineText, QuestionMultilineText, QuestionSingleSelect, QuestionMultipleSelects:
		return true
	}
	return false
}

// Question is a single configured field on a form. QuestionKey is the stable
// local identifier exposed to submitters; AirtableFieldID is the foreign key
// into the backing Airtable table. Both are unique within a form.
type Question struct {
	QuestionKey      string            `json:"questionKey"`
	AirtableFieldID  string            `json:"airtableFieldId"`
	Label            string            `json:"label"`
	Type             QuestionType      `json:"type"`
	Options          []string          `json:"options,omitempty"`
	Required         bool              `json:"required"`
	ConditionalRules *ConditionalRules `json:"conditionalRules,omitempty"`
}

// Form is a user-built public form backed by one Airtable table.
type Form struct {
	ID              string
	OwnerID         string
	Title           string
	AirtableBaseID  string
	AirtableTableID string
	Questions       []Question
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// QuestionByFieldID returns a lookup from Airtable field id to question key.
// The sync reconciler uses it to translate changed-field payloads into
// answer-map mutations.
func (f *Form) QuestionByFieldID() map[string]string {
	m := make(map[string]string, len(f.Questions))
	for _, q := range f.Questions {
		m[q.AirtableFieldID] = q.QuestionKey
	}
	return m
}

// QuestionByKey returns the question with the given key, or nil.
func (f *Form) QuestionByKey(key string) *Question {
	for i := range f.Questions {
		if f.Questions[i].QuestionKey == key {
			return &f.Questions[i]
		}
	}
	return nil
}
