package application_test

import (
	"context"
	"time"

	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/model"
)

// --- Mock implementations ---

// mockAirtableClient implements driven.AirtableClient with per-call function
// fields; unset calls return zero values.
type mockAirtableClient struct {
	listBases     func(ctx context.Context, accessToken string) ([]model.Base, error)
	listTables    func(ctx context.Context, accessToken, baseID string) ([]model.Table, error)
	createRecord  func(ctx context.Context, accessToken, baseID, tableID string, fields map[string]any) (string, error)
	listWebhooks  func(ctx context.Context, accessToken, baseID string) ([]model.WebhookInfo, error)
	deleteWebhook func(ctx context.Context, accessToken, baseID, webhookID string) error
	createWebhook func(ctx context.Context, accessToken, baseID, notificationURL string) (string, error)
	listPayloads  func(ctx context.Context, accessToken, baseID, webhookID string, cursor int) (model.PayloadPage, error)
	exchangeCode  func(ctx context.Context, code, codeVerifier, redirectURI string) (model.TokenPair, error)
	refreshToken  func(ctx context.Context, refreshToken string) (model.TokenPair, error)
	whoAmI        func(ctx context.Context, accessToken string) (model.AirtableUser, error)
}

func (m *mockAirtableClient) ListBases(ctx context.Context, accessToken string) ([]model.Base, error) {
	if m.listBases == nil {
		return nil, nil
	}
	return m.listBases(ctx, accessToken)
}

func (m *mockAirtableClient) ListTables(ctx context.Context, accessToken, baseID string) ([]model.Table, error) {
	if m.listTables == nil {
		return nil, nil
	}
	return m.listTables(ctx, accessToken, baseID)
}

func (m *mockAirtableClient) CreateRecord(ctx context.Context, accessToken, baseID, tableID string, fields map[string]any) (string, error) {
	if m.createRecord == nil {
		return "", nil
	}
	return m.createRecord(ctx, accessToken, baseID, tableID, fields)
}

func (m *mockAirtableClient) ListWebhooks(ctx context.Context, accessToken, baseID string) ([]model.WebhookInfo, error) {
	if m.listWebhooks == nil {
		return nil, nil
	}
	return m.listWebhooks(ctx, accessToken, baseID)
}

func (m *mockAirtableClient) DeleteWebhook(ctx context.Context, accessToken, baseID, webhookID string) error {
	if m.deleteWebhook == nil {
		return nil
	}
	return m.deleteWebhook(ctx, accessToken, baseID, webhookID)
}

func (m *mockAirtableClient) CreateWebhook(ctx context.Context, accessToken, baseID, notificationURL string) (string, error) {
	if m.createWebhook == nil {
		return "", nil
	}
	return m.createWebhook(ctx, accessToken, baseID, notificationURL)
}

func (m *mockAirtableClient) ListPayloads(ctx context.Context, accessToken, baseID, webhookID string, cursor int) (model.PayloadPage, error) {
	if m.listPayloads == nil {
		return model.PayloadPage{}, nil
	}
	return m.listPayloads(ctx, accessToken, baseID, webhookID, cursor)
}

func (m *mockAirtableClient) ExchangeCode(ctx context.Context, code, codeVerifier, redirectURI string) (model.TokenPair, error) {
	if m.exchangeCode == nil {
		return model.TokenPair{}, nil
	}
	return m.exchangeCode(ctx, code, codeVerifier, redirectURI)
}

func (m *mockAirtableClient) RefreshToken(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	if m.refreshToken == nil {
		return model.TokenPair{}, nil
	}
	return m.refreshToken(ctx, refreshToken)
}

func (m *mockAirtableClient) WhoAmI(ctx context.Context, accessToken string) (model.AirtableUser, error) {
	if m.whoAmI == nil {
		return model.AirtableUser{}, nil
	}
	return m.whoAmI(ctx, accessToken)
}

// mockCredentialStore keeps credentials in a map keyed by owner id and
// records token updates.
type mockCredentialStore struct {
	credentials  map[string]*model.Credential
	tokenUpdates []tokenUpdate
	findErr      error
}

type tokenUpdate struct {
	OwnerID      string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

func newMockCredentialStore(creds ...*model.Credential) *mockCredentialStore {
	m := &mockCredentialStore{credentials: map[string]*model.Credential{}}
	for _, c := range creds {
		m.credentials[c.OwnerID] = c
	}
	return m
}

func (m *mockCredentialStore) Upsert(_ context.Context, cred model.Credential) error {
	m.credentials[cred.OwnerID] = &cred
	return nil
}

func (m *mockCredentialStore) GetByOwner(_ context.Context, ownerID string) (*model.Credential, error) {
	return m.credentials[ownerID], nil
}

func (m *mockCredentialStore) GetByAirtableUserID(_ context.Context, airtableUserID string) (*model.Credential, error) {
	for _, c := range m.credentials {
		if c.AirtableUserID == airtableUserID {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockCredentialStore) FindWithAccessToken(_ context.Context) (*model.Credential, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, c := range m.credentials {
		if c.AccessToken != "" {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockCredentialStore) UpdateTokens(_ context.Context, ownerID, accessToken, refreshToken string, expiresAt time.Time) error {
	m.tokenUpdates = append(m.tokenUpdates, tokenUpdate{
		OwnerID:      ownerID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	})
	if c, ok := m.credentials[ownerID]; ok {
		c.AccessToken = accessToken
		c.RefreshToken = refreshToken
		c.ExpiresAt = expiresAt
	}
	return nil
}

// mockFormStore keeps forms in a map keyed by id.
type mockFormStore struct {
	forms map[string]*model.Form
}

func newMockFormStore(forms ...*model.Form) *mockFormStore {
	m := &mockFormStore{forms: map[string]*model.Form{}}
	for _, f := range forms {
		m.forms[f.ID] = f
	}
	return m
}

func (m *mockFormStore) Create(_ context.Context, form model.Form) error {
	m.forms[form.ID] = &form
	return nil
}

func (m *mockFormStore) GetByID(_ context.Context, id string) (*model.Form, error) {
	return m.forms[id], nil
}

func (m *mockFormStore) ListByOwner(_ context.Context, ownerID string) ([]model.Form, error) {
	var out []model.Form
	for _, f := range m.forms {
		if f.OwnerID == ownerID {
			out = append(out, *f)
		}
	}
	return out, nil
}

// mockResponseStore keeps responses keyed by Airtable record id and records
// the reconciler's write calls.
type mockResponseStore struct {
	byRecordID    map[string]*model.Response
	created       []model.Response
	answerUpdates map[string]map[string]model.Answer
	markedDeleted [][]string
}

func newMockResponseStore(responses ...*model.Response) *mockResponseStore {
	m := &mockResponseStore{
		byRecordID:    map[string]*model.Response{},
		answerUpdates: map[string]map[string]model.Answer{},
	}
	for _, r := range responses {
		m.byRecordID[r.AirtableRecordID] = r
	}
	return m
}

func (m *mockResponseStore) Create(_ context.Context, resp model.Response) error {
	m.created = append(m.created, resp)
	m.byRecordID[resp.AirtableRecordID] = &resp
	return nil
}

func (m *mockResponseStore) GetByAirtableRecordID(_ context.Context, recordID string) (*model.Response, error) {
	return m.byRecordID[recordID], nil
}

func (m *mockResponseStore) UpdateAnswers(_ context.Context, id string, answers map[string]model.Answer) error {
	m.answerUpdates[id] = answers
	for _, r := range m.byRecordID {
		if r.ID == id {
			r.Answers = answers
		}
	}
	return nil
}

func (m *mockResponseStore) MarkDeletedByRecordIDs(_ context.Context, recordIDs []string) (int64, error) {
	m.markedDeleted = append(m.markedDeleted, recordIDs)
	var matched int64
	for _, id := range recordIDs {
		if r, ok := m.byRecordID[id]; ok {
			r.IsDeleted = true
			matched++
		}
	}
	return matched, nil
}

func (m *mockResponseStore) ListByForm(_ context.Context, formID string, includeDeleted bool) ([]model.Response, error) {
	var out []model.Response
	for _, r := range m.byRecordID {
		if r.FormID != formID {
			continue
		}
		if r.IsDeleted && !includeDeleted {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

// mockSubscriptionStore keeps subscriptions keyed by base id.
type mockSubscriptionStore struct {
	byBase        map[string]*model.Subscription
	cursorUpdates []cursorUpdate
	baseReads     int
}

type cursorUpdate struct {
	BaseID string
	Cursor int
}

func newMockSubscriptionStore(subs ...*model.Subscription) *mockSubscriptionStore {
	m := &mockSubscriptionStore{byBase: map[string]*model.Subscription{}}
	for _, s := range subs {
		m.byBase[s.AirtableBaseID] = s
	}
	return m
}

func (m *mockSubscriptionStore) Upsert(_ context.Context, sub model.Subscription) error {
	m.byBase[sub.AirtableBaseID] = &sub
	return nil
}

func (m *mockSubscriptionStore) GetByBase(_ context.Context, baseID string) (*model.Subscription, error) {
	m.baseReads++
	return m.byBase[baseID], nil
}

func (m *mockSubscriptionStore) UpdateCursor(_ context.Context, baseID string, cursor int) error {
	m.cursorUpdates = append(m.cursorUpdates, cursorUpdate{BaseID: baseID, Cursor: cursor})
	if s, ok := m.byBase[baseID]; ok {
		s.Cursor = cursor
	}
	return nil
}
