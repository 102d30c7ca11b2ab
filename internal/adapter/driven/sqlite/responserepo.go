package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/model"
	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ResponseStore = (*ResponseRepo)(nil)

// ResponseRepo is the SQLite implementation of the ResponseStore port interface.
// Answers are serialized as a JSON object in the TEXT column.
type ResponseRepo struct {
	db *DB
}

// NewResponseRepo creates a new ResponseRepo backed by the given DB.
func NewResponseRepo(db *DB) *ResponseRepo {
	return &ResponseRepo{db: db}
}

// Create persists a new response mirror.
func (r *ResponseRepo) Create(ctx context.Context, resp model.Response) error {
	const query = `
		INSERT INTO responses (id, form_id, airtable_record_id, answers, is_deleted, submitted_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	answersJSON, err := json.Marshal(resp.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	isDeleted := 0
	if resp.IsDeleted {
		isDeleted = 1
	}

	submittedAt := resp.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = time.Now().UTC()
	}

	_, err = r.db.Writer.ExecContext(ctx, query,
		resp.ID, resp.FormID, resp.AirtableRecordID,
		string(answersJSON), isDeleted, submittedAt, submittedAt,
	)
	if err != nil {
		return fmt.Errorf("create response %s: %w", resp.ID, err)
	}

	return nil
}

// GetByAirtableRecordID retrieves the response mirroring an Airtable record.
// Returns nil, nil when the record was never mirrored locally.
func (r *ResponseRepo) GetByAirtableRecordID(ctx context.Context, recordID string) (*model.Response, error) {
	const query = `
		SELECT id, form_id, airtable_record_id, answers, is_deleted, submitted_at, updated_at
		FROM responses
		WHERE airtable_record_id = ?
	`

	resp, err := scanResponse(r.db.Reader.QueryRowContext(ctx, query, recordID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get response for record %s: %w", recordID, err)
	}

	return resp, nil
}

// UpdateAnswers replaces the answers map of an existing response.
func (r *ResponseRepo) UpdateAnswers(ctx context.Context, id string, answers map[string]model.Answer) error {
	const query = `UPDATE responses SET answers = ?, updated_at = ? WHERE id = ?`

	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	_, err = r.db.Writer.ExecContext(ctx, query, string(answersJSON), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update answers for response %s: %w", id, err)
	}

	return nil
}

// MarkDeletedByRecordIDs sets the soft-delete flag on every response whose
// Airtable record id is in recordIDs and returns how many rows matched.
// Rows already flagged still match, so replaying the same deletion list
// reports the same count.
func (r *ResponseRepo) MarkDeletedByRecordIDs(ctx context.Context, recordIDs []string) (int64, error) {
	if len(recordIDs) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(recordIDs))
	query := fmt.Sprintf(
		`UPDATE responses SET is_deleted = 1, updated_at = ? WHERE airtable_record_id IN (%s)`,
		placeholders[:len(placeholders)-1],
	)

	args := make([]any, 0, len(recordIDs)+1)
	args = append(args, time.Now().UTC())
	for _, id := range recordIDs {
		args = append(args, id)
	}

	result, err := r.db.Writer.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("mark responses deleted: %w", err)
	}

	matched, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}

	return matched, nil
}

// ListByForm returns a form's responses, newest first. Soft-deleted rows are
// excluded unless includeDeleted is set.
func (r *ResponseRepo) ListByForm(ctx context.Context, formID string, includeDeleted bool) ([]model.Response, error) {
	query := `
		SELECT id, form_id, airtable_record_id, answers, is_deleted, submitted_at, updated_at
		FROM responses
		WHERE form_id = ?
	`
	if !includeDeleted {
		query += ` AND is_deleted = 0`
	}
	query += ` ORDER BY submitted_at DESC`

	rows, err := r.db.Reader.QueryContext(ctx, query, formID)
	if err != nil {
		return nil, fmt.Errorf("list responses for form %s: %w", formID, err)
	}
	defer rows.Close()

	responses := []model.Response{}
	for rows.Next() {
		resp, err := scanResponseRow(rows)
		if err != nil {
			return nil, err
		}
		responses = append(responses, *resp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate responses: %w", err)
	}

	return responses, nil
}

// scanTarget abstracts *sql.Row and *sql.Rows for the shared scan logic.
type scanTarget interface {
	Scan(dest ...any) error
}

func scanResponse(row *sql.Row) (*model.Response, error) {
	return scanResponseFrom(row)
}

func scanResponseRow(rows *sql.Rows) (*model.Response, error) {
	resp, err := scanResponseFrom(rows)
	if err != nil {
		return nil, fmt.Errorf("scan response: %w", err)
	}
	return resp, nil
}

func scanResponseFrom(target scanTarget) (*model.Response, error) {
	var resp model.Response
	var answersJSON, submittedAt, updatedAt string
	var isDeleted int

	err := target.Scan(
		&resp.ID, &resp.FormID, &resp.AirtableRecordID,
		&answersJSON, &isDeleted, &submittedAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(answersJSON), &resp.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	resp.IsDeleted = isDeleted != 0
	if resp.SubmittedAt, err = parseTime(submittedAt); err != nil {
		return nil, fmt.Errorf("parse submitted_at: %w", err)
	}
	if resp.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &resp, nil
}
