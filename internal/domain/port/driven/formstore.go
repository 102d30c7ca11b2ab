package driven

import (
	"context"
	"errors"

	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/model"
)

// ErrFormNotFound is returned when an operation targets a form id that does
// not exist.
var ErrFormNotFound = errors.New("form not found")

// FormStore defines the driven port for form persistence. Forms are written
// at build time and read-only afterwards; the sync subsystem only resolves
// field-id-to-question-key mappings from them.
type FormStore interface {
	// Create persists a new form.
	Create(ctx context.Context, form model.Form) error

	// GetByID retrieves a form. Returns nil, nil when the form does not exist.
	GetByID(ctx context.Context, id string) (*model.Form, error)

	// ListByOwner returns the owner's forms, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]model.Form, error)
}
