package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/model"
	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.FormStore = (*FormRepo)(nil)

// FormRepo is the SQLite implementation of the FormStore port interface.
// Questions are serialized as a JSON array in the TEXT column.
type FormRepo struct {
	db *DB
}

// NewFormRepo creates a new FormRepo backed by the given DB.
func NewFormRepo(db *DB) *FormRepo {
	return &FormRepo{db: db}
}

// Create persists a new form.
func (r *FormRepo) Create(ctx context.Context, form model.Form) error {
	const query = `
		INSERT INTO forms (id, owner_id, title, airtable_base_id, airtable_table_id, questions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	questionsJSON, err := json.Marshal(form.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}

	createdAt := form.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = r.db.Writer.ExecContext(ctx, query,
		form.ID, form.OwnerID, form.Title,
		form.AirtableBaseID, form.AirtableTableID,
		string(questionsJSON), createdAt, createdAt,
	)
	if err != nil {
		return fmt.Errorf("create form %s: %w", form.ID, err)
	}

	return nil
}

// GetByID retrieves a form. Returns nil, nil when the form does not exist.
func (r *FormRepo) GetByID(ctx context.Context, id string) (*model.Form, error) {
	const query = `
		SELECT id, owner_id, title, airtable_base_id, airtable_table_id, questions, created_at, updated_at
		FROM forms
		WHERE id = ?
	`

	form, err := scanForm(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get form %s: %w", id, err)
	}

	return form, nil
}

// ListByOwner returns the owner's forms, newest first.
func (r *FormRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Form, error) {
	const query = `
		SELECT id, owner_id, title, airtable_base_id, airtable_table_id, questions, created_at, updated_at
		FROM forms
		WHERE owner_id = ?
		ORDER BY created_at DESC
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list forms for owner %s: %w", ownerID, err)
	}
	defer rows.Close()

	forms := []model.Form{}
	for rows.Next() {
		var form model.Form
		var questionsJSON, createdAt, updatedAt string

		if err := rows.Scan(
			&form.ID, &form.OwnerID, &form.Title,
			&form.AirtableBaseID, &form.AirtableTableID,
			&questionsJSON, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan form: %w", err)
		}

		if err := json.Unmarshal([]byte(questionsJSON), &form.Questions); err != nil {
			return nil, fmt.Errorf("unmarshal questions for form %s: %w", form.ID, err)
		}
		if form.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		if form.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}

		forms = append(forms, form)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate forms: %w", err)
	}

	return forms, nil
}

// scanForm scans a form row from a QueryRow result.
func scanForm(row *sql.Row) (*model.Form, error) {
	var form model.Form
	var questionsJSON, createdAt, updatedAt string

	err := row.Scan(
		&form.ID, &form.OwnerID, &form.Title,
		&form.AirtableBaseID, &form.AirtableTableID,
		&questionsJSON, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(questionsJSON), &form.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	if form.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if form.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &form, nil
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
