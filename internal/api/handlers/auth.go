package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/tagvault/tagvault/internal/api/dto"
	"github.com/tagvault/tagvault/internal/api/middleware"
	"github.com/tagvault/tagvault/internal/auth"
)

type AuthHandler struct {
	authService *auth.Service
}

func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	_, challenge, err := h.authService.Signup(r.Context(), auth.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ChallengeResponse{
		UserID:       challenge.UserID.String(),
		SessionToken: challenge.SessionToken,
		Message:      "Verification code sent",
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	challenge, err := h.authService.Login(r.Context(), req.Username, req.Password, middleware.ClientIP(r))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ChallengeResponse{
		UserID:       challenge.UserID.String(),
		SessionToken: challenge.SessionToken,
		Message:      "Verification code sent",
	})
}

func (h *AuthHandler) VerifyOtp(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	userID, _ := uuid.Parse(req.UserID)
	token, err := h.authService.VerifyOtp(r.Context(), auth.VerifyOtpInput{
		UserID:       userID,
		Code:         req.Code,
		SessionToken: req.SessionToken,
	}, middleware.ClientIP(r))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TokenResponse{Token: token})
}

func (h *AuthHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Identifier == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Identifier is required"})
		return
	}

	if err := h.authService.RequestResetCode(r.Context(), req.Identifier); err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Reset code sent"})
}

func (h *AuthHandler) ConfirmReset(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	userID, _ := uuid.Parse(req.UserID)
	if err := h.authService.ConfirmReset(r.Context(), userID, req.Code, req.NewPassword); err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Password updated"})
}
