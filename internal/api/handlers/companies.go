package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tagvault/tagvault/internal/api/dto"
	"github.com/tagvault/tagvault/internal/api/middleware"
	"github.com/tagvault/tagvault/internal/companies"
	"github.com/tagvault/tagvault/internal/reports"
)

type CompanyHandler struct {
	service *companies.Service
	reports *reports.Service
}

func NewCompanyHandler(service *companies.Service, reportService *reports.Service) *CompanyHandler {
	return &CompanyHandler{service: service, reports: reportService}
}

type companyRequest struct {
	Name string `json:"name"`
}

func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req companyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	actor := middleware.GetActor(r.Context())
	company, err := h.service.Create(r.Context(), actor, req.Name)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, company)
}

func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	companyID, ok := pathUUID(r, chi.URLParam(r, "companyID"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid company id"})
		return
	}

	var req companyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	actor := middleware.GetActor(r.Context())
	company, err := h.service.Update(r.Context(), actor, companyID, req.Name)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

func (h *CompanyHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	companyID, ok := pathUUID(r, chi.URLParam(r, "companyID"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid company id"})
		return
	}

	actor := middleware.GetActor(r.Context())
	if err := h.service.Deactivate(r.Context(), actor, companyID); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Company deactivated"})
}

func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())
	rows, err := h.service.List(r.Context(), actor)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	companyID, ok := pathUUID(r, chi.URLParam(r, "companyID"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid company id"})
		return
	}

	actor := middleware.GetActor(r.Context())
	company, err := h.service.Get(r.Context(), actor, companyID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

func (h *CompanyHandler) Overview(w http.ResponseWriter, r *http.Request) {
	companyID, ok := pathUUID(r, chi.URLParam(r, "companyID"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid company id"})
		return
	}

	actor := middleware.GetActor(r.Context())
	overview, err := h.service.Overview(r.Context(), actor, companyID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (h *CompanyHandler) WhoIs(w http.ResponseWriter, r *http.Request) {
	companyID, ok := pathUUID(r, chi.URLParam(r, "companyID"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid company id"})
		return
	}
	username := r.URL.Query().Get("username")
	if username == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "username query parameter is required"})
		return
	}

	actor := middleware.GetActor(r.Context())
	user, membership, err := h.service.WhoIs(r.Context(), actor, companyID, username)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":       maskUser(actor, user, membership),
		"membership": membership,
	})
}

func (h *CompanyHandler) Report(w http.ResponseWriter, r *http.Request) {
	companyID, ok := pathUUID(r, chi.URLParam(r, "companyID"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid company id"})
		return
	}

	actor := middleware.GetActor(r.Context())
	report, err := h.reports.CompanyReport(r.Context(), actor, companyID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *CompanyHandler) AllReports(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())
	rows, err := h.reports.AllCompanies(r.Context(), actor)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
