package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tagvault/tagvault/internal/api/dto"
	"github.com/tagvault/tagvault/internal/api/middleware"
	"github.com/tagvault/tagvault/internal/audit"
	"github.com/tagvault/tagvault/internal/authz"
	"github.com/tagvault/tagvault/internal/database/models"
	"github.com/tagvault/tagvault/internal/workflow"
)

type WorkflowHandler struct {
	service *workflow.Service
	audit   *audit.Logger
}

func NewWorkflowHandler(service *workflow.Service, auditLog *audit.Logger) *WorkflowHandler {
	return &WorkflowHandler{service: service, audit: auditLog}
}

func (h *WorkflowHandler) List(w http.ResponseWriter, r *http.Request) {
	companyID, ok := pathUUID(r, chi.URLParam(r, "companyID"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid company id"})
		return
	}

	params := paginationFromQuery(r)
	filter := workflow.ListFilter{
		ActionType: models.WorkflowActionType(r.URL.Query().Get("action_type")),
		Page:       params.Page,
		PerPage:    params.PerPage,
	}
	if v := r.URL.Query().Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.From = &t
		} else {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid from timestamp, want RFC3339"})
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.To = &t
		} else {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid to timestamp, want RFC3339"})
			return
		}
	}

	actor := middleware.GetActor(r.Context())
	rows, total, err := h.service.List(r.Context(), actor, companyID, filter)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewPaginated(rows, total, params.Page, params.PerPage))
}

// Logs serves the generic audit log. Super admin only.
func (h *WorkflowHandler) Logs(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())
	if err := authz.Require(actor, authz.ActionViewLogs); err != nil {
		respondError(w, err)
		return
	}

	params := paginationFromQuery(r)
	var companyID *uuid.UUID
	if v := r.URL.Query().Get("company_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid company_id"})
			return
		}
		companyID = &id
	}

	rows, total, err := h.audit.List(r.Context(), companyID, params.Page, params.PerPage)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewPaginated(rows, total, params.Page, params.PerPage))
}
