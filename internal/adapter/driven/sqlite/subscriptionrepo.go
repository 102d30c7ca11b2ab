package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/model"
	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SubscriptionStore = (*SubscriptionRepo)(nil)

// SubscriptionRepo is the SQLite implementation of the SubscriptionStore port
// interface. The base id is the primary key, which enforces the
// one-subscription-per-base invariant at the storage layer.
type SubscriptionRepo struct {
	db *DB
}

// NewSubscriptionRepo creates a new SubscriptionRepo backed by the given DB.
func NewSubscriptionRepo(db *DB) *SubscriptionRepo {
	return &SubscriptionRepo{db: db}
}

// Upsert inserts or replaces the subscription for its base. The cursor is
// reset along with the rest of the row: a new webhook starts a new payload log.
func (r *SubscriptionRepo) Upsert(ctx context.Context, sub model.Subscription) error {
	const query = `
		INSERT INTO subscriptions (airtable_base_id, webhook_id, notification_url, cursor, owner_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(airtable_base_id) DO UPDATE SET
			webhook_id = excluded.webhook_id,
			notification_url = excluded.notification_url,
			cursor = excluded.cursor,
			owner_id = excluded.owner_id,
			created_at = excluded.created_at
	`

	createdAt := sub.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		sub.AirtableBaseID, sub.WebhookID, sub.NotificationURL,
		sub.Cursor, sub.OwnerID, createdAt,
	)
	if err != nil {
		return fmt.Errorf("upsert subscription for base %s: %w", sub.AirtableBaseID, err)
	}

	return nil
}

// GetByBase retrieves the subscription for a base. Returns nil, nil when the
// base has no registered webhook.
func (r *SubscriptionRepo) GetByBase(ctx context.Context, baseID string) (*model.Subscription, error) {
	const query = `
		SELECT airtable_base_id, webhook_id, notification_url, cursor, owner_id, created_at
		FROM subscriptions
		WHERE airtable_base_id = ?
	`

	var sub model.Subscription
	var createdAt string

	err := r.db.Reader.QueryRowContext(ctx, query, baseID).Scan(
		&sub.AirtableBaseID, &sub.WebhookID, &sub.NotificationURL,
		&sub.Cursor, &sub.OwnerID, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription for base %s: %w", baseID, err)
	}

	if sub.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &sub, nil
}

// UpdateCursor persists the payload cursor after a successful fetch.
func (r *SubscriptionRepo) UpdateCursor(ctx context.Context, baseID string, cursor int) error {
	const query = `UPDATE subscriptions SET cursor = ? WHERE airtable_base_id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, cursor, baseID)
	if err != nil {
		return fmt.Errorf("update cursor for base %s: %w", baseID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update cursor rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("no subscription for base %s", baseID)
	}

	return nil
}
