package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tagvault/tagvault/internal/api/dto"
	"github.com/tagvault/tagvault/internal/api/middleware"
	"github.com/tagvault/tagvault/internal/api/validation"
	"github.com/tagvault/tagvault/internal/authz"
	"github.com/tagvault/tagvault/internal/database/models"
	"github.com/tagvault/tagvault/internal/users"
)

type UserHandler struct {
	service *users.Service
}

func NewUserHandler(service *users.Service) *UserHandler {
	return &UserHandler{service: service}
}

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
	Role     string `json:"role"`

	CanManageGovernmentAdmins bool `json:"can_manage_government_admins,omitempty"`
	CanManageOperators        bool `json:"can_manage_operators,omitempty"`
	CanDeleteGovernment       bool `json:"can_delete_government,omitempty"`
}

func (r createUserRequest) validate() map[string]string {
	errs := make(map[string]string)
	if r.Username == "" {
		errs["username"] = "Username is required"
	}
	if ok, msg := validation.IsValidPassword(r.Password); !ok {
		errs["password"] = msg
	}
	if r.Email == "" && r.Phone == "" {
		errs["email"] = "At least one of email or phone is required"
	}
	if r.Email != "" && !validation.IsValidEmail(r.Email) {
		errs["email"] = "Invalid email format"
	}
	if r.Phone != "" && !validation.IsValidPhone(r.Phone) {
		errs["phone"] = "Invalid phone format"
	}
	if _, err := authz.ParseRole(r.Role); err != nil {
		errs["role"] = "Invalid role"
	}
	return errs
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	companyID, ok := pathUUID(r, chi.URLParam(r, "companyID"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid company id"})
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	role, _ := authz.ParseRole(req.Role)
	actor := middleware.GetActor(r.Context())
	user, err := h.service.CreateUser(r.Context(), actor, companyID, users.CreateInput{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     role,
		Flags: authz.Flags{
			ManageGovernmentAdmins: req.CanManageGovernmentAdmins,
			ManageOperators:        req.CanManageOperators,
			DeleteGovernment:       req.CanDeleteGovernment,
		},
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, maskUser(actor, user, nil))
}

type updateUserRequest struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	companyID, ok := pathUUID(r, chi.URLParam(r, "companyID"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid company id"})
		return
	}
	userID, ok := pathUUID(r, chi.URLParam(r, "userID"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid user id"})
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	actor := middleware.GetActor(r.Context())
	user, err := h.service.UpdateUser(r.Context(), actor, companyID, userID, users.UpdateInput{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		IsActive: req.IsActive,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, maskUser(actor, user, nil))
}

type changeRoleRequest struct {
	Role string `json:"role"`

	CanManageGovernmentAdmins bool `json:"can_manage_government_admins,omitempty"`
	CanManageOperators        bool `json:"can_manage_operators,omitempty"`
	CanDeleteGovernment       bool `json:"can_delete_government,omitempty"`
}

func (h *UserHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	companyID, ok := pathUUID(r, chi.URLParam(r, "companyID"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid company id"})
		return
	}
	userID, ok := pathUUID(r, chi.URLParam(r, "userID"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid user id"})
		return
	}

	var req changeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	role, err := authz.ParseRole(req.Role)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid role"})
		return
	}

	actor := middleware.GetActor(r.Context())
	membership, err := h.service.ChangeRole(r.Context(), actor, companyID, userID, role, authz.Flags{
		ManageGovernmentAdmins: req.CanManageGovernmentAdmins,
		ManageOperators:        req.CanManageOperators,
		DeleteGovernment:       req.CanDeleteGovernment,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, membership)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	companyID, ok := pathUUID(r, chi.URLParam(r, "companyID"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid company id"})
		return
	}
	userID, ok := pathUUID(r, chi.URLParam(r, "userID"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid user id"})
		return
	}

	actor := middleware.GetActor(r.Context())
	if err := h.service.DeleteUser(r.Context(), actor, companyID, userID); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "User removed"})
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	companyID, ok := pathUUID(r, chi.URLParam(r, "companyID"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid company id"})
		return
	}

	params := paginationFromQuery(r)
	actor := middleware.GetActor(r.Context())
	rows, total, err := h.service.ListUsers(r.Context(), actor, companyID, params.Page, params.PerPage)
	if err != nil {
		respondError(w, err)
		return
	}

	masked := make([]map[string]any, 0, len(rows))
	for i := range rows {
		masked = append(masked, maskUser(actor, rows[i].User, &rows[i]))
	}
	writeJSON(w, http.StatusOK, dto.NewPaginated(masked, total, params.Page, params.PerPage))
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())
	profile, err := h.service.Profile(r.Context(), actor.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// maskUser projects a user (and optional membership) through the caller's
// allowed-field set.
func maskUser(actor authz.Actor, user *models.User, membership *models.CompanyMembership) map[string]any {
	if user == nil {
		return map[string]any{}
	}
	full := map[string]any{
		"id":        user.ID,
		"username":  user.Username,
		"is_active": user.IsActive,
	}
	if user.Email != nil {
		full["email"] = *user.Email
	}
	if user.Phone != nil {
		full["phone"] = *user.Phone
	}
	if membership != nil {
		full["role"] = membership.Role
		full["company_id"] = membership.CompanyID
		full["can_manage_government_admins"] = membership.CanManageGovernmentAdmins
		full["can_manage_operators"] = membership.CanManageOperators
		full["can_delete_government"] = membership.CanDeleteGovernment
	}
	return authz.RulesFor(actor.Role, actor.Flags).Mask("users", full)
}
