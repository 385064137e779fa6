package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tagvault/tagvault/internal/api/dto"
	"github.com/tagvault/tagvault/internal/api/middleware"
	"github.com/tagvault/tagvault/internal/geo"
)

type LocationHandler struct {
	service *geo.Service
}

func NewLocationHandler(service *geo.Service) *LocationHandler {
	return &LocationHandler{service: service}
}

type upsertLocationRequest struct {
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	GeofenceRadius *float64 `json:"geofence_radius,omitempty"`
}

func (h *LocationHandler) UpsertLocation(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathUUID(r, chi.URLParam(r, "assetID"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid asset id"})
		return
	}

	var req upsertLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	actor := middleware.GetActor(r.Context())
	location, err := h.service.UpsertLocation(r.Context(), actor, geo.UpsertInput{
		AssetID:        assetID,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		GeofenceRadius: req.GeofenceRadius,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, location)
}

func (h *LocationHandler) GetLocation(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathUUID(r, chi.URLParam(r, "assetID"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid asset id"})
		return
	}

	actor := middleware.GetActor(r.Context())
	location, err := h.service.GetLocation(r.Context(), actor, assetID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, location)
}

type geofenceCheckRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (h *LocationHandler) CheckGeofence(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathUUID(r, chi.URLParam(r, "assetID"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid asset id"})
		return
	}

	var req geofenceCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	actor := middleware.GetActor(r.Context())
	result, err := h.service.CheckGeofence(r.Context(), actor, assetID, req.Latitude, req.Longitude)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
