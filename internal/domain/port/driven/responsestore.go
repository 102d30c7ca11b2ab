package driven

import (
	"context"

	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/model"
)

// ResponseStore defines the driven port for submission persistence.
// MarkDeletedByRecordIDs and UpdateAnswers are the reconciler's write
// surface and must stay idempotent: reapplying the same change converges
// to the same stored state.
type ResponseStore interface {
	// Create persists a new response mirror.
	Create(ctx context.Context, resp model.Response) error

	// GetByAirtableRecordID retrieves the response mirroring an Airtable
	// record. Returns nil, nil when the record was never mirrored locally.
	GetByAirtableRecordID(ctx context.Context, recordID string) (*model.Response, error)

	// UpdateAnswers replaces the answers map of an existing response.
	UpdateAnswers(ctx context.Context, id string, answers map[string]model.Answer) error

	// MarkDeletedByRecordIDs sets the soft-delete flag on every response
	// whose Airtable record id is in recordIDs and returns how many rows
	// matched. Zero matches is not an error; rows already flagged still
	// count as matches, so replays report the same number.
	MarkDeletedByRecordIDs(ctx context.Context, recordIDs []string) (int64, error)

	// ListByForm returns a form's responses, newest first. Responses whose
	// backing Airtable record was destroyed are excluded unless
	// includeDeleted is set.
	ListByForm(ctx context.Context, formID string, includeDeleted bool) ([]model.Response, error)
}
