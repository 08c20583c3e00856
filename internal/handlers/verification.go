package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mgiordano/clasificados/internal/services"
	"github.com/mgiordano/clasificados/pkg/errors"
	"github.com/mgiordano/clasificados/pkg/response"
)

// VerificationHandler exposes the per-session phone verification flow.
type VerificationHandler struct {
	verifications *services.PhoneVerificationService
}

func NewVerificationHandler(verifications *services.PhoneVerificationService) *VerificationHandler {
	return &VerificationHandler{verifications: verifications}
}

type submitPhoneRequest struct {
	Phone string `json:"phone" validate:"required,min=6,max=32"`
}

// POST /api/verification/phone
func (h *VerificationHandler) SubmitPhone(c *gin.Context) {
	userID := currentUserID(c)
	sessionID := currentSessionID(c)
	if userID == "" || sessionID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req submitPhoneRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.verifications.SubmitPhone(requestContext(c), sessionID, userID, req.Phone); err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"code_sent": true})
}

type confirmPhoneRequest struct {
	Code string `json:"code" validate:"required"`
}

// POST /api/verification/phone/confirm
func (h *VerificationHandler) ConfirmPhone(c *gin.Context) {
	userID := currentUserID(c)
	sessionID := currentSessionID(c)
	if userID == "" || sessionID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req confirmPhoneRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.verifications.ConfirmPhone(requestContext(c), sessionID, userID, req.Code); err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"verified": true})
}
