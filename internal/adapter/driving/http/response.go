package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/model"
)

// HealthResponse is the health check response body.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UserResponse describes the authenticated owner.
type UserResponse struct {
	OwnerID        string `json:"ownerId"`
	AirtableUserID string `json:"airtableUserId,omitempty"`
	Email          string `json:"email,omitempty"`
	Connected      bool   `json:"connected"`
}

// BaseResponse is one Airtable base in metadata listings.
type BaseResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FieldResponse is one field of an Airtable table.
type FieldResponse struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Choices []string `json:"choices,omitempty"`
}

// TableResponse is one Airtable table in metadata listings.
type TableResponse struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Fields []FieldResponse `json:"fields"`
}

// FormResponse is a form in API responses. Question serialization is owned
// by the model type.
type FormResponse struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	BaseID    string           `json:"baseId"`
	TableID   string           `json:"tableId"`
	Questions []model.Question `json:"questions"`
	CreatedAt time.Time        `json:"createdAt"`
}

// SubmissionResponse is a stored form response in API responses.
type SubmissionResponse struct {
	ID               string                  `json:"id"`
	FormID           string                  `json:"formId"`
	AirtableRecordID string                  `json:"airtableRecordId,omitempty"`
	Answers          map[string]model.Answer `json:"answers"`
	SubmittedAt      time.Time               `json:"submittedAt"`
}

// SubscriptionResponse describes a registered webhook subscription.
type SubscriptionResponse struct {
	BaseID          string    `json:"baseId"`
	WebhookID       string    `json:"webhookId"`
	NotificationURL string    `json:"notificationUrl"`
	CreatedAt       time.Time `json:"createdAt"`
}

func toBaseResponses(bases []model.Base) []BaseResponse {
	out := make([]BaseResponse, 0, len(bases))
	for _, b := range bases {
		out = append(out, BaseResponse{ID: b.ID, Name: b.Name})
	}
	return out
}

func toTableResponses(tables []model.Table) []TableResponse {
	out := make([]TableResponse, 0, len(tables))
	for _, t := range tables {
		fields := make([]FieldResponse, 0, len(t.Fields))
		for _, f := range t.Fields {
			fields = append(fields, FieldResponse{
				ID:      f.ID,
				Name:    f.Name,
				Type:    f.Type,
				Choices: f.Options,
			})
		}
		out = append(out, TableResponse{ID: t.ID, Name: t.Name, Fields: fields})
	}
	return out
}

func toFormResponse(f *model.Form) FormResponse {
	return FormResponse{
		ID:        f.ID,
		Title:     f.Title,
		BaseID:    f.AirtableBaseID,
		TableID:   f.AirtableTableID,
		Questions: f.Questions,
		CreatedAt: f.CreatedAt,
	}
}

func toFormResponses(forms []model.Form) []FormResponse {
	out := make([]FormResponse, 0, len(forms))
	for i := range forms {
		out = append(out, toFormResponse(&forms[i]))
	}
	return out
}

func toSubmissionResponse(r *model.Response) SubmissionResponse {
	return SubmissionResponse{
		ID:               r.ID,
		FormID:           r.FormID,
		AirtableRecordID: r.AirtableRecordID,
		Answers:          r.Answers,
		SubmittedAt:      r.SubmittedAt,
	}
}

func toSubmissionResponses(responses []model.Response) []SubmissionResponse {
	out := make([]SubmissionResponse, 0, len(responses))
	for i := range responses {
		out = append(out, toSubmissionResponse(&responses[i]))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
