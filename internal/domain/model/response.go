package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Answer is a submitted value for one question: free text for text and
// single-select questions, or a list of option strings for multi-select.
// It marshals as a bare JSON string or array so the stored answers map keeps
// the same shape the public submission API accepts.
type Answer struct {
	Text   string
	List   []string
	IsList bool
}

// TextAnswer builds a single-valued answer.
func TextAnswer(s string) Answer {
	return Answer{Text: s}
}

// ListAnswer builds a multi-select answer.
func ListAnswer(vals []string) Answer {
	return Answer{List: vals, IsList: true}
}

// IsEmpty reports whether the answer carries no value.
func (a Answer) IsEmpty() bool {
	if a.IsList {
		return len(a.List) == 0
	}
	return a.Text == ""
}

// Value returns the answer as the dynamic type the Airtable record API
// expects: string or []string.
func (a Answer) Value() any {
	if a.IsList {
		return a.List
	}
	return a.Text
}

// MarshalJSON encodes the answer as a bare string or string array.
func (a Answer) MarshalJSON() ([]byte, error) {
	if a.IsList {
		return json.Marshal(a.List)
	}
	return json.Marshal(a.Text)
}

// UnmarshalJSON accepts a string, a string array, or a scalar that can be
// rendered as a string (numbers and booleans arrive from Airtable cell
// values for fields added after the form was built).
func (a *Answer) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*a = ListAnswer(list)
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*a = TextAnswer(text)
		return nil
	}

	var scalar any
	if err := json.Unmarshal(data, &scalar); err != nil {
		return fmt.Errorf("answer is neither string, string array, nor scalar: %w", err)
	}
	*a = TextAnswer(fmt.Sprint(scalar))
	return nil
}

// AnswerFromCellValue converts an Airtable cell value into an Answer.
// Returns false for values that cannot be represented (attachments, nested
// objects, nulls), which the reconciler skips.
func AnswerFromCellValue(v any) (Answer, bool) {
	switch val := v.(type) {
	case nil:
		return Answer{}, false
	case string:
		return TextAnswer(val), true
	case []any:
		list := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return Answer{}, false
			}
			list = append(list, s)
		}
		return ListAnswer(list), true
	case float64, bool:
		return TextAnswer(fmt.Sprint(val)), true
	}
	return Answer{}, false
}

// Response is the local mirror of one form submission. AirtableRecordID is
// the join key to Airtable's change notifications and is unique across all
// responses. IsDeleted is a soft-delete flag set when the backing record is
// destroyed in Airtable; responses are never hard-deleted by the sync path.
type Response struct {
	ID               string
	FormID           string
	AirtableRecordID string
	Answers          map[string]Answer
	IsDeleted        bool
	SubmittedAt      time.Time
	UpdatedAt        time.Time
}
