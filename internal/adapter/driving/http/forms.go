package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ASH-13xen/dynamic-form-builder/internal/application"
	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/model"
	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/port/driven"
)

// ListBases returns the Airtable bases the owner's credential can see.
func (h *Handler) ListBases(w http.ResponseWriter, r *http.Request, ownerID string) {
	bases, err := h.formSvc.ListBases(r.Context(), ownerID)
	if err != nil {
		h.writeFormError(w, r, err, "failed to list bases")
		return
	}
	writeJSON(w, http.StatusOK, toBaseResponses(bases))
}

// ListTables returns the tables of one base with field schemas.
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request, ownerID string) {
	baseID := r.PathValue("baseID")
	tables, err := h.formSvc.ListTables(r.Context(), ownerID, baseID)
	if err != nil {
		h.writeFormError(w, r, err, "failed to list tables")
		return
	}
	writeJSON(w, http.StatusOK, toTableResponses(tables))
}

// CreateForm builds a new form for the owner.
func (h *Handler) CreateForm(w http.ResponseWriter, r *http.Request, ownerID string) {
	var input application.CreateFormInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	form, err := h.formSvc.CreateForm(r.Context(), ownerID, input)
	if err != nil {
		h.writeFormError(w, r, err, "failed to create form")
		return
	}
	writeJSON(w, http.StatusCreated, toFormResponse(form))
}

// ListForms returns all forms the owner has built.
func (h *Handler) ListForms(w http.ResponseWriter, r *http.Request, ownerID string) {
	forms, err := h.formSvc.ListForms(r.Context(), ownerID)
	if err != nil {
		h.writeFormError(w, r, err, "failed to list forms")
		return
	}
	writeJSON(w, http.StatusOK, toFormResponses(forms))
}

// GetForm returns one form definition. Public: submitters load forms by link.
func (h *Handler) GetForm(w http.ResponseWriter, r *http.Request) {
	form, err := h.formSvc.GetForm(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeFormError(w, r, err, "failed to load form")
		return
	}
	writeJSON(w, http.StatusOK, toFormResponse(form))
}

// submitRequest is the public submission body. Answer values may be strings
// or string arrays; model.Answer handles both shapes.
type submitRequest struct {
	Answers map[string]model.Answer `json:"answers"`
}

// SubmitResponse accepts a public form submission, writes it through to
// Airtable, and mirrors it locally.
func (h *Handler) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.formSvc.SubmitResponse(r.Context(), r.PathValue("id"), req.Answers)
	if err != nil {
		h.writeFormError(w, r, err, "failed to submit response")
		return
	}
	writeJSON(w, http.StatusCreated, toSubmissionResponse(resp))
}

// ListResponses returns the live responses of a form to its owner.
func (h *Handler) ListResponses(w http.ResponseWriter, r *http.Request, ownerID string) {
	responses, err := h.formSvc.ListResponses(r.Context(), r.PathValue("id"), ownerID)
	if err != nil {
		h.writeFormError(w, r, err, "failed to list responses")
		return
	}
	writeJSON(w, http.StatusOK, toSubmissionResponses(responses))
}

// writeFormError maps form service errors to HTTP statuses. The raw error
// only goes to logs; clients get the generic message.
func (h *Handler) writeFormError(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, application.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, driven.ErrFormNotFound):
		writeError(w, http.StatusNotFound, "form not found")
	case errors.Is(err, application.ErrNotFormOwner):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, application.ErrNoCredential):
		writeError(w, http.StatusConflict, "no connected Airtable account")
	case errors.Is(err, driven.ErrUnauthorized), errors.Is(err, driven.ErrTransient):
		h.logger.Error("airtable request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadGateway, message)
	default:
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, message)
	}
}
