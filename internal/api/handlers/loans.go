package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tagvault/tagvault/internal/api/dto"
	"github.com/tagvault/tagvault/internal/api/middleware"
	"github.com/tagvault/tagvault/internal/api/validation"
	"github.com/tagvault/tagvault/internal/loans"
)

type LoanHandler struct {
	service *loans.Service
}

func NewLoanHandler(service *loans.Service) *LoanHandler {
	return &LoanHandler{service: service}
}

type createLoanRequest struct {
	AssetID           string     `json:"asset_id"`
	RecipientID       string     `json:"recipient_id,omitempty"`
	ExternalRecipient string     `json:"external_recipient,omitempty"`
	EndDate           *time.Time `json:"end_date,omitempty"`
	Details           string     `json:"details,omitempty"`
}

func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req createLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if !validation.IsValidUUID(req.AssetID) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Valid asset_id is required"})
		return
	}

	assetID, _ := uuid.Parse(req.AssetID)
	input := loans.CreateInput{
		AssetID:           assetID,
		ExternalRecipient: req.ExternalRecipient,
		EndDate:           req.EndDate,
		Details:           req.Details,
	}
	if req.RecipientID != "" {
		recipientID, err := uuid.Parse(req.RecipientID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid recipient_id"})
			return
		}
		input.RecipientID = &recipientID
	}

	actor := middleware.GetActor(r.Context())
	loan, err := h.service.CreateLoan(r.Context(), actor, input)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (h *LoanHandler) ReturnLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathUUID(r, chi.URLParam(r, "loanID"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid loan id"})
		return
	}

	actor := middleware.GetActor(r.Context())
	loan, err := h.service.ReturnLoan(r.Context(), actor, loanID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	companyID, ok := pathUUID(r, chi.URLParam(r, "companyID"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid company id"})
		return
	}

	params := paginationFromQuery(r)
	filter := loans.ListFilter{
		ActiveOnly: r.URL.Query().Get("active") == "true",
		Page:       params.Page,
		PerPage:    params.PerPage,
	}
	if v := r.URL.Query().Get("asset_id"); v != "" {
		if assetID, err := uuid.Parse(v); err == nil {
			filter.AssetID = &assetID
		}
	}

	actor := middleware.GetActor(r.Context())
	rows, total, err := h.service.ListLoans(r.Context(), actor, companyID, filter)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewPaginated(rows, total, params.Page, params.PerPage))
}
