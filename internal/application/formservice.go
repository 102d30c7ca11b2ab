package application

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/model"
	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/port/driven"
)

// ErrInvalidInput wraps all form and submission validation failures so the
// HTTP layer can map them to a 400 without inspecting the details.
var ErrInvalidInput = errors.New("invalid input")

// ErrNotFormOwner is returned when a caller reads resources of a form they
// do not own.
var ErrNotFormOwner = errors.New("caller does not own this form")

// ErrNoCredential is returned when an operation needs the form owner's
// Airtable credential and none is connected.
var ErrNoCredential = errors.New("owner has no connected Airtable account")

// CreateFormInput is the payload for building a new form.
type CreateFormInput struct {
	Title     string          `json:"title" validate:"required,max=200"`
	BaseID    string          `json:"baseId" validate:"required"`
	TableID   string          `json:"tableId" validate:"required"`
	Questions []QuestionInput `json:"questions" validate:"required,min=1,dive"`
}

// QuestionInput is one configured question in a CreateFormInput. QuestionKey
// may be left empty; a stable key is generated.
type QuestionInput struct {
	QuestionKey      string                  `json:"questionKey" validate:"omitempty,max=100"`
	AirtableFieldID  string                  `json:"airtableFieldId" validate:"required"`
	Label            string                  `json:"label" validate:"required,max=500"`
	Type             model.QuestionType      `json:"type" validate:"required"`
	Options          []string                `json:"options"`
	Required         bool                    `json:"required"`
	ConditionalRules *model.ConditionalRules `json:"conditionalRules"`
}

// FormService owns form building, metadata browsing, and public submission.
type FormService struct {
	airtable    driven.AirtableClient
	credentials driven.CredentialStore
	forms       driven.FormStore
	responses   driven.ResponseStore
	validate    *validator.Validate
}

// NewFormService creates a FormService with all required dependencies.
func NewFormService(
	airtable driven.AirtableClient,
	credentials driven.CredentialStore,
	forms driven.FormStore,
	responses driven.ResponseStore,
) *FormService {
	return &FormService{
		airtable:    airtable,
		credentials: credentials,
		forms:       forms,
		responses:   responses,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ListBases returns the Airtable bases visible to the owner's credential.
func (s *FormService) ListBases(ctx context.Context, ownerID string) ([]model.Base, error) {
	cred, err := s.ownerCredential(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.airtable.ListBases(ctx, cred.AccessToken)
}

// ListTables returns the tables of a base with their field schemas.
func (s *FormService) ListTables(ctx context.Context, ownerID, baseID string) ([]model.Table, error) {
	cred, err := s.ownerCredential(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.airtable.ListTables(ctx, cred.AccessToken, baseID)
}

// CreateForm validates and persists a new form for the owner. Question keys
// left empty are generated; questionKey and airtableFieldId must each be
// unique within the form, and conditional rules may only reference questions
// defined earlier in the list.
func (s *FormService) CreateForm(ctx context.Context, ownerID string, input CreateFormInput) (*model.Form, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	questions := make([]model.Question, 0, len(input.Questions))
	seenKeys := make(map[string]bool, len(input.Questions))
	seenFields := make(map[string]bool, len(input.Questions))

	for i, q := range input.Questions {
		if !model.ValidQuestionType(q.Type) {
			return nil, fmt.Errorf("%w: question %d has unsupported type %q", ErrInvalidInput, i, q.Type)
		}

		key := q.QuestionKey
		if key == "" {
			key = "q_" + uuid.NewString()
		}
		if seenKeys[key] {
			return nil, fmt.Errorf("%w: duplicate question key %q", ErrInvalidInput, key)
		}
		if seenFields[q.AirtableFieldID] {
			return nil, fmt.Errorf("%w: duplicate airtable field id %q", ErrInvalidInput, q.AirtableFieldID)
		}

		if q.ConditionalRules != nil {
			for _, cond := range q.ConditionalRules.Conditions {
				if !seenKeys[cond.QuestionKey] {
					return nil, fmt.Errorf("%w: question %q references unknown or later question %q",
						ErrInvalidInput, key, cond.QuestionKey)
				}
			}
		}

		seenKeys[key] = true
		seenFields[q.AirtableFieldID] = true

		questions = append(questions, model.Question{
			QuestionKey:      key,
			AirtableFieldID:  q.AirtableFieldID,
			Label:            q.Label,
			Type:             q.Type,
			Options:          q.Options,
			Required:         q.Required,
			ConditionalRules: q.ConditionalRules,
		})
	}

	form := model.Form{
		ID:              newID(),
		OwnerID:         ownerID,
		Title:           input.Title,
		AirtableBaseID:  input.BaseID,
		AirtableTableID: input.TableID,
		Questions:       questions,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.forms.Create(ctx, form); err != nil {
		return nil, err
	}

	slog.Info("form created", "form", form.ID, "owner", ownerID, "questions", len(questions))
	return &form, nil
}

// GetForm retrieves a form by id. Forms are public: anonymous submitters
// need them to render.
func (s *FormService) GetForm(ctx context.Context, formID string) (*model.Form, error) {
	form, err := s.forms.GetByID(ctx, formID)
	if err != nil {
		return nil, err
	}
	if form == nil {
		return nil, driven.ErrFormNotFound
	}
	return form, nil
}

// ListForms returns the owner's forms, newest first.
func (s *FormService) ListForms(ctx context.Context, ownerID string) ([]model.Form, error) {
	return s.forms.ListByOwner(ctx, ownerID)
}

// SubmitResponse writes a public submission through to Airtable and mirrors
// it locally. Answers for unknown questions are dropped; questions hidden by
// their conditional rules are neither validated nor forwarded; required
// visible questions must be answered.
func (s *FormService) SubmitResponse(ctx context.Context, formID string, answers map[string]model.Answer) (*model.Response, error) {
	form, err := s.GetForm(ctx, formID)
	if err != nil {
		return nil, err
	}

	cred, err := s.ownerCredential(ctx, form.OwnerID)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]any)
	kept := make(map[string]model.Answer)

	for _, q := range form.Questions {
		if !model.ShouldShowQuestion(q.ConditionalRules, answers) {
			continue
		}

		answer, ok := answers[q.QuestionKey]
		if !ok || answer.IsEmpty() {
			if q.Required {
				return nil, fmt.Errorf("%w: question %q is required", ErrInvalidInput, q.QuestionKey)
			}
			continue
		}

		fields[q.AirtableFieldID] = answer.Value()
		kept[q.QuestionKey] = answer
	}

	recordID, err := s.airtable.CreateRecord(ctx, cred.AccessToken, form.AirtableBaseID, form.AirtableTableID, fields)
	if errors.Is(err, driven.ErrUnauthorized) {
		// Same recovery as the sync path: one refresh, then one retry. A
		// second rejection propagates without another refresh.
		slog.Warn("access token rejected on submission, refreshing", "form", form.ID, "owner", form.OwnerID)

		accessToken, refreshErr := refreshCredential(ctx, s.airtable, s.credentials, cred)
		if refreshErr != nil {
			return nil, refreshErr
		}
		recordID, err = s.airtable.CreateRecord(ctx, accessToken, form.AirtableBaseID, form.AirtableTableID, fields)
	}
	if err != nil {
		return nil, fmt.Errorf("write submission to airtable: %w", err)
	}

	resp := model.Response{
		ID:               newID(),
		FormID:           form.ID,
		AirtableRecordID: recordID,
		Answers:          kept,
		SubmittedAt:      time.Now().UTC(),
	}
	if err := s.responses.Create(ctx, resp); err != nil {
		// The Airtable record exists but the mirror write failed; the record
		// will surface locally only through a future change notification.
		return nil, fmt.Errorf("mirror submission locally (airtable record %s): %w", recordID, err)
	}

	slog.Info("response submitted", "form", form.ID, "record", recordID)
	return &resp, nil
}

// ListResponses returns a form's live responses to its owner. Responses
// whose backing record was deleted in Airtable are excluded.
func (s *FormService) ListResponses(ctx context.Context, formID, callerID string) ([]model.Response, error) {
	form, err := s.GetForm(ctx, formID)
	if err != nil {
		return nil, err
	}
	if form.OwnerID != callerID {
		return nil, ErrNotFormOwner
	}
	return s.responses.ListByForm(ctx, formID, false)
}

// ownerCredential loads the owner's credential, requiring an access token.
func (s *FormService) ownerCredential(ctx context.Context, ownerID string) (*model.Credential, error) {
	cred, err := s.credentials.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !cred.HasAccessToken() {
		return nil, ErrNoCredential
	}
	return cred, nil
}

// newID generates a lexicographically sortable unique id.
func newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
