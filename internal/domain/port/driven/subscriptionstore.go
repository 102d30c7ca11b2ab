package driven

import (
	"context"

	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/model"
)

// SubscriptionStore defines the driven port for webhook subscription
// persistence. At most one subscription exists per base; Upsert replaces
// any previous row for the same base.
type SubscriptionStore interface {
	// Upsert inserts or replaces the subscription for its base.
	Upsert(ctx context.Context, sub model.Subscription) error

	// GetByBase retrieves the subscription for a base. Returns nil, nil when
	// the base has no registered webhook.
	GetByBase(ctx context.Context, baseID string) (*model.Subscription, error)

	// UpdateCursor persists the payload cursor after a successful fetch so
	// the next notification does not re-fetch processed payloads.
	UpdateCursor(ctx context.Context, baseID string, cursor int) error
}
