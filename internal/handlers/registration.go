package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mgiordano/clasificados/internal/services"
	"github.com/mgiordano/clasificados/pkg/response"
)

// RegistrationHandler exposes the two-step registration flow.
type RegistrationHandler struct {
	registrations *services.RegistrationService
}

func NewRegistrationHandler(registrations *services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations}
}

type registerRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=64"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=4"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
}

// POST /api/auth/register
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pending, err := h.registrations.Submit(requestContext(c), services.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	// The key stands in for the browser session of the original flow: the
	// client presents it together with the emailed code.
	response.Success(c, http.StatusCreated, gin.H{
		"pending_key": pending.Key,
		"expires_at":  pending.ExpiresAt,
	})
}

type confirmRegistrationRequest struct {
	PendingKey string `json:"pending_key" validate:"required"`
	Code       string `json:"code" validate:"required"`
}

// POST /api/auth/register/confirm
func (h *RegistrationHandler) Confirm(c *gin.Context) {
	var req confirmRegistrationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.registrations.Confirm(requestContext(c), req.PendingKey, req.Code)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"id":        user.ID,
		"username":  user.Username,
		"is_active": user.IsActive,
	})
}
