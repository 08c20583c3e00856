package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mgiordano/clasificados/internal/services"
	"github.com/mgiordano/clasificados/pkg/errors"
	"github.com/mgiordano/clasificados/pkg/response"
)

// ProfileHandler serves the authenticated user's profile and their listings.
type ProfileHandler struct {
	profiles *services.ProfileService
	listings *services.ListingService
}

func NewProfileHandler(profiles *services.ProfileService, listings *services.ListingService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, listings: listings}
}

// GET /api/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	profile, err := h.profiles.GetOrCreate(requestContext(c), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	mine, err := h.listings.ListByOwner(requestContext(c), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"profile":  profile,
		"listings": mine,
	})
}

type updateProfileRequest struct {
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
	Location *string `json:"location" validate:"omitempty,max=128"`
	Avatar   *string `json:"avatar" validate:"omitempty,max=512"`
	Role     *string `json:"role" validate:"omitempty,max=16"`
}

// PATCH /api/profile
func (h *ProfileHandler) Update(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req updateProfileRequest
	if !bindAndValidate(c, &req) {
		return
	}

	profile, err := h.profiles.Update(requestContext(c), userID, services.UpdateProfileInput{
		Phone:    req.Phone,
		Location: req.Location,
		Avatar:   req.Avatar,
		Role:     req.Role,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}
