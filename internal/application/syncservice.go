// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/model"
	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/port/driven"
)

// ReconciliationResult counts what one notification's payloads did to the
// local mirror. Skipped covers records never mirrored locally and updates
// where no changed field mapped to a question.
type ReconciliationResult struct {
	Deleted int
	Updated int
	Created int
	Skipped int
}

func (r ReconciliationResult) add(other ReconciliationResult) ReconciliationResult {
	r.Deleted += other.Deleted
	r.Updated += other.Updated
	r.Created += other.Created
	r.Skipped += other.Skipped
	return r
}

// SyncService reconciles Airtable change notifications against the local
// response mirror. One notification is one logical task; notifications for
// different bases may run concurrently because reconciliation is idempotent
// per record.
type SyncService struct {
	airtable      driven.AirtableClient
	credentials   driven.CredentialStore
	subscriptions driven.SubscriptionStore
	forms         driven.FormStore
	responses     driven.ResponseStore
}

// NewSyncService creates a SyncService with all required dependencies.
func NewSyncService(
	airtable driven.AirtableClient,
	credentials driven.CredentialStore,
	subscriptions driven.SubscriptionStore,
	forms driven.FormStore,
	responses driven.ResponseStore,
) *SyncService {
	return &SyncService{
		airtable:      airtable,
		credentials:   credentials,
		subscriptions: subscriptions,
		forms:         forms,
		responses:     responses,
	}
}

// HandleNotification runs the fetch-and-reconcile sequence for one webhook
// notification. The flow is a two-phase state machine: a sync pass, and on
// an authorization failure exactly one token refresh followed by exactly one
// retried pass. A second authorization failure, or any refresh failure,
// fails the notification. Callers own the acknowledgment policy: errors
// returned here are logged, never surfaced to Airtable.
func (s *SyncService) HandleNotification(ctx context.Context, baseID, webhookID string) (ReconciliationResult, error) {
	cred, err := s.credentials.FindWithAccessToken(ctx)
	if err != nil {
		return ReconciliationResult{}, fmt.Errorf("find system credential: %w", err)
	}
	if cred == nil {
		slog.Warn("no connected account available to service webhook", "base", baseID)
		return ReconciliationResult{}, nil
	}

	result, err := s.syncPass(ctx, cred.AccessToken, baseID, webhookID)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, driven.ErrUnauthorized) {
		return result, err
	}

	slog.Warn("access token rejected, refreshing", "base", baseID, "owner", cred.OwnerID)

	accessToken, err := refreshCredential(ctx, s.airtable, s.credentials, cred)
	if err != nil {
		return result, err
	}

	// The single permitted retry. A second authorization failure propagates
	// without another refresh.
	retried, err := s.syncPass(ctx, accessToken, baseID, webhookID)
	return result.add(retried), err
}

// syncPass fetches all pending payload pages for the webhook and applies
// them in delivery order. The cursor is advanced after every successfully
// reconciled page so replays shrink even when a later page fails.
func (s *SyncService) syncPass(ctx context.Context, accessToken, baseID, webhookID string) (ReconciliationResult, error) {
	var total ReconciliationResult

	// One subscription read serves the whole pass; cursor commits after each
	// page reuse it instead of re-querying the store.
	sub := s.liveSubscription(ctx, baseID, webhookID)

	cursor := 0
	if sub != nil {
		cursor = sub.Cursor
	}

	for {
		page, err := s.airtable.ListPayloads(ctx, accessToken, baseID, webhookID, cursor)
		if err != nil {
			return total, err
		}

		for _, payload := range page.Payloads {
			applied, err := s.applyPayload(ctx, payload)
			total = total.add(applied)
			if err != nil {
				return total, err
			}
		}

		cursor = page.Cursor
		if sub != nil {
			// Best-effort persist; losing the cursor only costs a replay.
			if err := s.subscriptions.UpdateCursor(ctx, baseID, cursor); err != nil {
				slog.Warn("persist cursor failed", "base", baseID, "cursor", cursor, "error", err)
			}
		}

		if !page.MightHaveMore {
			break
		}
	}

	slog.Info("notification reconciled",
		"base", baseID,
		"deleted", total.Deleted,
		"updated", total.Updated,
		"created", total.Created,
		"skipped", total.Skipped,
	)

	return total, nil
}

// liveSubscription returns the stored subscription when it matches the
// notifying webhook, or nil when the subscription is unknown or belongs to a
// different webhook id (a stale notification from a replaced webhook). With
// no live subscription the pass starts at cursor zero, re-fetching the
// retained log, which reconciliation tolerates, and never writes a cursor
// back.
func (s *SyncService) liveSubscription(ctx context.Context, baseID, webhookID string) *model.Subscription {
	sub, err := s.subscriptions.GetByBase(ctx, baseID)
	if err != nil {
		slog.Warn("load subscription failed, fetching from start", "base", baseID, "error", err)
		return nil
	}
	if sub == nil || sub.WebhookID != webhookID {
		return nil
	}
	return sub
}

// applyPayload walks one payload's changed tables and applies each change
// set to the local mirror. Tables are independent; within a table, deletions
// are applied before updates so a record both updated and destroyed in the
// same payload ends up deleted.
func (s *SyncService) applyPayload(ctx context.Context, payload model.Payload) (ReconciliationResult, error) {
	var result ReconciliationResult

	for tableID, tableChanges := range payload.ChangedTables {
		for _, change := range tableChanges.Ordered() {
			switch change.Kind {
			case model.ChangeDeleted:
				matched, err := s.responses.MarkDeletedByRecordIDs(ctx, change.RecordIDs)
				if err != nil {
					return result, fmt.Errorf("mark deleted in table %s: %w", tableID, err)
				}
				result.Deleted += int(matched)
				slog.Info("marked responses deleted",
					"table", tableID,
					"destroyed", len(change.RecordIDs),
					"matched", matched,
				)

			case model.ChangeUpdated:
				applied, err := s.applyRecordUpdate(ctx, tableID, change.RecordID, change.FieldValues)
				if err != nil {
					return result, err
				}
				if applied {
					result.Updated++
				} else {
					result.Skipped++
				}

			case model.ChangeCreated:
				// Records created directly in Airtable have no owning form;
				// they are observed but not mirrored.
				result.Created += len(change.RecordIDs)
				slog.Info("observed externally created records", "table", tableID, "count", len(change.RecordIDs))
			}
		}
	}

	return result, nil
}

// applyRecordUpdate maps one record's changed cell values onto the mirrored
// response's answers. Records never mirrored locally and fields that no
// question maps to are expected drift, skipped without error.
func (s *SyncService) applyRecordUpdate(ctx context.Context, tableID, recordID string, fieldValues map[string]any) (bool, error) {
	resp, err := s.responses.GetByAirtableRecordID(ctx, recordID)
	if err != nil {
		return false, fmt.Errorf("look up response for record %s: %w", recordID, err)
	}
	if resp == nil {
		slog.Debug("record has no local mirror, skipping update", "table", tableID, "record", recordID)
		return false, nil
	}

	form, err := s.forms.GetByID(ctx, resp.FormID)
	if err != nil {
		return false, fmt.Errorf("load form %s: %w", resp.FormID, err)
	}
	if form == nil {
		slog.Warn("response references missing form, skipping update", "form", resp.FormID, "record", recordID)
		return false, nil
	}

	fieldToKey := form.QuestionByFieldID()
	if resp.Answers == nil {
		resp.Answers = map[string]model.Answer{}
	}

	mapped := 0
	for fieldID, raw := range fieldValues {
		questionKey, ok := fieldToKey[fieldID]
		if !ok {
			// A column added after the form was built; expected drift.
			slog.Debug("changed field not mapped to a question", "table", tableID, "field", fieldID)
			continue
		}
		answer, ok := model.AnswerFromCellValue(raw)
		if !ok {
			slog.Debug("cell value not representable as an answer", "field", fieldID, "record", recordID)
			continue
		}
		resp.Answers[questionKey] = answer
		mapped++
	}

	if mapped == 0 {
		return false, nil
	}

	if err := s.responses.UpdateAnswers(ctx, resp.ID, resp.Answers); err != nil {
		return false, fmt.Errorf("persist updated answers for response %s: %w", resp.ID, err)
	}

	slog.Info("synced record update", "record", recordID, "fields_applied", mapped)
	return true, nil
}
