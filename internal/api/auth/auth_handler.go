package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/careconnect/portal-api/internal/api"
	"github.com/careconnect/portal-api/internal/rolegate"
	"github.com/careconnect/portal-api/internal/types"
)

// HandlerImpl is the HTTP boundary of the auth subsystem: decode, validate,
// delegate, and map domain errors onto the response envelope.
type HandlerImpl struct {
	service  AuthService
	logger   *slog.Logger
	validate *validator.Validate
}

func NewHandlerImpl(service AuthService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		service:  service,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// fieldErrors flattens validator output into the envelope's errors map.
func fieldErrors(err error) map[string]string {
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			out[fe.Field()] = "failed validation on '" + fe.Tag() + "'"
		}
		return out
	}
	out["body"] = err.Error()
	return out
}

func (h *HandlerImpl) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := api.DecodeJSONBody(w, r, dst); err != nil {
		api.ValidationErrorResponse(w, r, map[string]string{"body": err.Error()})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		api.ValidationErrorResponse(w, r, fieldErrors(err))
		return false
	}
	return true
}

// writeDomainError maps the error taxonomy onto statuses. Anything outside
// the taxonomy becomes a generic 500 with no internal detail.
func (h *HandlerImpl) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, types.ErrDuplicateEmail):
		api.ErrorResponse(w, r, http.StatusBadRequest, types.ErrDuplicateEmail.Error())
	case errors.Is(err, types.ErrInvalidCredentials):
		api.ErrorResponse(w, r, http.StatusBadRequest, types.ErrInvalidCredentials.Error())
	case errors.Is(err, types.ErrInvalidToken):
		api.ErrorResponse(w, r, http.StatusUnauthorized, types.ErrInvalidToken.Error())
	case errors.Is(err, types.ErrStoreUnavailable):
		api.ErrorResponse(w, r, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		h.logger.ErrorContext(r.Context(), "Unexpected error in auth handler", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *HandlerImpl) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	role, err := types.ParseRole(req.Role)
	if err != nil {
		api.ValidationErrorResponse(w, r, map[string]string{"role": "must be one of patient, doctor, nurse, admin"})
		return
	}

	user, pair, err := h.service.Register(r.Context(), RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Role:        role,
		Phone:       req.Phone,
		DateOfBirth: req.DateOfBirth,
		Gender:      req.Gender,
		Address:     req.Address,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	api.SuccessResponse(w, r, http.StatusCreated, "Registration successful", SessionResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *HandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, pair, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, "Login successful", SessionResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *HandlerImpl) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, "Token refreshed successfully", pair)
}

// Logout acknowledges unconditionally; clients discard their tokens.
func (h *HandlerImpl) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context()); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	api.SuccessResponse(w, r, http.StatusOK, "Logged out successfully", nil)
}

// RequestPasswordReset answers with the same message whether or not the
// email exists.
func (h *HandlerImpl) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, "If the email exists, a reset link has been sent", nil)
}

func (h *HandlerImpl) CompletePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req CompleteResetRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.CompletePasswordReset(r.Context(), req.Token, req.Password); err != nil {
		if errors.Is(err, types.ErrInvalidToken) {
			api.ErrorResponse(w, r, http.StatusBadRequest, types.ErrInvalidToken.Error())
			return
		}
		h.writeDomainError(w, r, err)
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, "Password reset successfully", nil)
}

func (h *HandlerImpl) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.VerifyEmail(r.Context(), req.Token); err != nil {
		if errors.Is(err, types.ErrInvalidToken) {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid verification token")
			return
		}
		h.writeDomainError(w, r, err)
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, "Email verified successfully", nil)
}

// Permissions exports the role allow-list table so clients can mirror the
// server's gating instead of hand-maintaining a copy.
func (h *HandlerImpl) Permissions(w http.ResponseWriter, r *http.Request) {
	api.SuccessResponse(w, r, http.StatusOK, "Role permissions", rolegate.Table())
}
