package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/tagvault/tagvault/internal/api/dto"
	"github.com/tagvault/tagvault/internal/api/middleware"
	"github.com/tagvault/tagvault/internal/subscriptions"
)

type SubscriptionHandler struct {
	service *subscriptions.Service
}

func NewSubscriptionHandler(service *subscriptions.Service) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

func (h *SubscriptionHandler) Plans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, subscriptions.Plans())
}

type createSubscriptionRequest struct {
	PlanType string `json:"plan_type"`
}

func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	actor := middleware.GetActor(r.Context())
	sub, err := h.service.Create(r.Context(), actor.ID, req.PlanType)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

type verifyPaymentRequest struct {
	Token string `json:"token"`
}

func (h *SubscriptionHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Token == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Token is required"})
		return
	}

	sub, err := h.service.VerifyPayment(r.Context(), req.Token)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// Premium re-checks the caller's subscription against the database, so a
// stale premium claim in an old token never grants access.
func (h *SubscriptionHandler) Premium(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())
	active, err := h.service.HasActiveSubscription(r.Context(), actor.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_premium": active})
}

func (h *SubscriptionHandler) Status(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())
	sub, err := h.service.Status(r.Context(), actor.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
