package user

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/careconnect/portal-api/internal/api"
	"github.com/careconnect/portal-api/internal/api/auth"
	"github.com/careconnect/portal-api/internal/types"
)

// UpdateProfileRequest is the PUT /users/me body; every field optional.
type UpdateProfileRequest struct {
	FirstName   *string `json:"firstName,omitempty" validate:"omitempty,min=1,max=50"`
	LastName    *string `json:"lastName,omitempty" validate:"omitempty,min=1,max=50"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	DateOfBirth *string `json:"dateOfBirth,omitempty"`
	Gender      *string `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
	Address     *string `json:"address,omitempty" validate:"omitempty,max=255"`
}

// StatusRequest is the PUT /users/{id}/status body.
type StatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type HandlerImpl struct {
	service  UserService
	logger   *slog.Logger
	validate *validator.Validate
}

func NewHandlerImpl(service UserService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		service:  service,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *HandlerImpl) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, types.ErrUserNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
	case errors.Is(err, types.ErrStoreUnavailable):
		api.ErrorResponse(w, r, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		h.logger.ErrorContext(r.Context(), "Unexpected error in user handler", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

// GetProfile returns the authenticated user's own record.
func (h *HandlerImpl) GetProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	user, err := h.service.GetProfile(r.Context(), identity.UserID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	api.SuccessResponse(w, r, http.StatusOK, "Profile retrieved", user)
}

func (h *HandlerImpl) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req UpdateProfileRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ValidationErrorResponse(w, r, map[string]string{"body": err.Error()})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		api.ValidationErrorResponse(w, r, map[string]string{"body": err.Error()})
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), identity.UserID, ProfileUpdate{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Phone:       req.Phone,
		DateOfBirth: req.DateOfBirth,
		Gender:      req.Gender,
		Address:     req.Address,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	api.SuccessResponse(w, r, http.StatusOK, "Profile updated", user)
}

// ListUsers is the admin directory view.
func (h *HandlerImpl) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	api.SuccessResponse(w, r, http.StatusOK, "Users retrieved", users)
}

// SetUserStatus activates or deactivates an account (admin only; the
// route gate enforces the role).
func (h *HandlerImpl) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		api.ValidationErrorResponse(w, r, map[string]string{"id": "user id is required"})
		return
	}

	var req StatusRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ValidationErrorResponse(w, r, map[string]string{"body": err.Error()})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		api.ValidationErrorResponse(w, r, map[string]string{"active": "active flag is required"})
		return
	}

	if err := h.service.SetUserStatus(r.Context(), userID, *req.Active); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	api.SuccessResponse(w, r, http.StatusOK, "User status updated", nil)
}
