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
	"github.com/tagvault/tagvault/internal/assets"
	"github.com/tagvault/tagvault/internal/authz"
	"github.com/tagvault/tagvault/internal/database/models"
)

type AssetHandler struct {
	service *assets.Service
}

func NewAssetHandler(service *assets.Service) *AssetHandler {
	return &AssetHandler{service: service}
}

type createCategoryRequest struct {
	Name        string `json:"name"`
	Code        int    `json:"code"`
	Description string `json:"description,omitempty"`
}

func (h *AssetHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	actor := middleware.GetActor(r.Context())
	category, err := h.service.CreateCategory(r.Context(), actor, assets.CreateCategoryInput{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (h *AssetHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

type createAssetRequest struct {
	CompanyID      string     `json:"company_id"`
	CategoryID     string     `json:"category_id"`
	Code           string     `json:"code"`
	RFIDTag        string     `json:"rfid_tag"`
	Name           string     `json:"name"`
	Model          string     `json:"model,omitempty"`
	SerialNumber   string     `json:"serial_number,omitempty"`
	TechnicalSpecs string     `json:"technical_specs,omitempty"`
	Location       string     `json:"location,omitempty"`
	Custodian      string     `json:"custodian,omitempty"`
	Value          int64      `json:"value,omitempty"`
	Description    string     `json:"description,omitempty"`
	WarrantyEnd    *time.Time `json:"warranty_end_date,omitempty"`
}

func (r createAssetRequest) validate() map[string]string {
	errs := make(map[string]string)
	if !validation.IsValidUUID(r.CompanyID) {
		errs["company_id"] = "Valid company_id is required"
	}
	if !validation.IsValidUUID(r.CategoryID) {
		errs["category_id"] = "Valid category_id is required"
	}
	if r.Name == "" {
		errs["name"] = "Name is required"
	}
	if r.Code == "" {
		errs["code"] = "Code is required"
	}
	if r.RFIDTag == "" {
		errs["rfid_tag"] = "RFID tag is required"
	} else if !validation.IsValidRFIDTag(r.RFIDTag) {
		errs["rfid_tag"] = "Invalid RFID tag format"
	}
	return errs
}

func (h *AssetHandler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var req createAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	companyID, _ := uuid.Parse(req.CompanyID)
	categoryID, _ := uuid.Parse(req.CategoryID)
	actor := middleware.GetActor(r.Context())

	asset, err := h.service.CreateAsset(r.Context(), actor, assets.CreateAssetInput{
		CompanyID:      companyID,
		CategoryID:     categoryID,
		Code:           req.Code,
		RFIDTag:        req.RFIDTag,
		Name:           req.Name,
		Model:          req.Model,
		SerialNumber:   req.SerialNumber,
		TechnicalSpecs: req.TechnicalSpecs,
		Location:       req.Location,
		Custodian:      req.Custodian,
		Value:          req.Value,
		Description:    req.Description,
		WarrantyEnd:    req.WarrantyEnd,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, maskAsset(actor, asset))
}

type updateAssetRequest struct {
	Name           *string `json:"name,omitempty"`
	Model          *string `json:"model,omitempty"`
	SerialNumber   *string `json:"serial_number,omitempty"`
	TechnicalSpecs *string `json:"technical_specs,omitempty"`
	Location       *string `json:"location,omitempty"`
	Custodian      *string `json:"custodian,omitempty"`
	Value          *int64  `json:"value,omitempty"`
	Description    *string `json:"description,omitempty"`
	Status         *string `json:"status,omitempty"`
	Code           *string `json:"code,omitempty"`
	RFIDTag        *string `json:"rfid_tag,omitempty"`
}

func (h *AssetHandler) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathUUID(r, chi.URLParam(r, "assetID"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid asset id"})
		return
	}

	var req updateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	input := assets.UpdateInput{
		Name:           req.Name,
		Model:          req.Model,
		SerialNumber:   req.SerialNumber,
		TechnicalSpecs: req.TechnicalSpecs,
		Location:       req.Location,
		Custodian:      req.Custodian,
		Value:          req.Value,
		Description:    req.Description,
		Code:           req.Code,
		RFIDTag:        req.RFIDTag,
	}
	if req.Status != nil {
		status := models.AssetStatus(*req.Status)
		input.Status = &status
	}

	actor := middleware.GetActor(r.Context())
	asset, err := h.service.UpdateAsset(r.Context(), actor, assetID, input)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, maskAsset(actor, asset))
}

func (h *AssetHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	companyID, ok := pathUUID(r, chi.URLParam(r, "companyID"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid company id"})
		return
	}

	params := paginationFromQuery(r)
	filter := assets.ListFilter{
		Status:  models.AssetStatus(r.URL.Query().Get("status")),
		Page:    params.Page,
		PerPage: params.PerPage,
	}
	if cat := r.URL.Query().Get("category_id"); cat != "" {
		if catID, err := uuid.Parse(cat); err == nil {
			filter.Category = &catID
		}
	}

	actor := middleware.GetActor(r.Context())
	rows, total, err := h.service.ListAssets(r.Context(), actor, companyID, filter)
	if err != nil {
		respondError(w, err)
		return
	}

	masked := make([]map[string]any, 0, len(rows))
	for i := range rows {
		masked = append(masked, maskAsset(actor, &rows[i]))
	}
	writeJSON(w, http.StatusOK, dto.NewPaginated(masked, total, params.Page, params.PerPage))
}

func (h *AssetHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathUUID(r, chi.URLParam(r, "assetID"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid asset id"})
		return
	}

	actor := middleware.GetActor(r.Context())
	asset, history, err := h.service.GetAsset(r.Context(), actor, assetID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"asset":   maskAsset(actor, asset),
		"history": history,
	})
}

type scanRequest struct {
	RFIDTag   string     `json:"rfid_tag"`
	Location  string     `json:"location,omitempty"`
	ScannedAt *time.Time `json:"scanned_at,omitempty"`
	IsOffline bool       `json:"is_offline,omitempty"`
}

func (h *AssetHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	actor := middleware.GetActor(r.Context())
	asset, err := h.service.Scan(r.Context(), actor, assets.ScanInput{
		RFIDTag:   req.RFIDTag,
		Location:  req.Location,
		ScannedAt: req.ScannedAt,
		IsOffline: req.IsOffline,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, maskAsset(actor, asset))
}

// maskAsset projects an asset through the caller's allowed-field set.
func maskAsset(actor authz.Actor, asset *models.Asset) map[string]any {
	full := map[string]any{
		"id":            asset.ID,
		"company_id":    asset.CompanyID,
		"name":          asset.Name,
		"code":          asset.Code,
		"location":      asset.Location,
		"status":        asset.Status,
		"rfid_tag":      asset.RFIDTag,
		"custodian":     asset.Custodian,
		"model":         asset.Model,
		"serial_number": asset.SerialNumber,
		"value":         asset.Value,
	}
	return authz.RulesFor(actor.Role, actor.Flags).Mask("assets", full)
}

func paginationFromQuery(r *http.Request) dto.PaginationParams {
	params := dto.PaginationParams{}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			params.Page = n
		}
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			params.PerPage = n
		}
	}
	params.Normalize()
	return params
}
