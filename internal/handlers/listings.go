package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mgiordano/clasificados/internal/services"
	"github.com/mgiordano/clasificados/pkg/errors"
	"github.com/mgiordano/clasificados/pkg/response"
)

// ListingHandler serves the public catalog and owner CRUD.
type ListingHandler struct {
	listings *services.ListingService
}

func NewListingHandler(listings *services.ListingService) *ListingHandler {
	return &ListingHandler{listings: listings}
}

// GET /api/listings
func (h *ListingHandler) List(c *gin.Context) {
	filter := services.ListingFilter{
		CategorySlug: c.Query("category"),
		Location:     c.Query("location"),
		Query:        c.Query("q"),
		Sort:         c.Query("sort"),
		Window:       c.Query("window"),
		Page:         parseIntQuery(c, "page", 1),
		PageSize:     parseIntQuery(c, "page_size", 0),
	}

	listings, total, err := h.listings.List(requestContext(c), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	perPage := filter.PageSize
	if perPage < 1 {
		perPage = 9
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	totalPages := int((total + int64(perPage) - 1) / int64(perPage))

	response.SuccessWithMeta(c, http.StatusOK, listings, &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// GET /api/locations
func (h *ListingHandler) Locations(c *gin.Context) {
	locations, err := h.listings.Locations(requestContext(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, locations)
}

// GET /api/listings/:id
func (h *ListingHandler) Get(c *gin.Context) {
	listing, err := h.listings.Get(requestContext(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, listing)
}

type createListingRequest struct {
	CategoryID  string  `json:"category_id" validate:"required"`
	Title       string  `json:"title" validate:"required,max=128"`
	Description string  `json:"description" validate:"required,max=4096"`
	Price       float64 `json:"price" validate:"gte=0"`
	Condition   string  `json:"condition" validate:"omitempty,max=16"`
	Location    string  `json:"location" validate:"omitempty,max=128"`
	Image       string  `json:"image" validate:"omitempty,max=512"`
}

// POST /api/listings
func (h *ListingHandler) Create(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req createListingRequest
	if !bindAndValidate(c, &req) {
		return
	}

	listing, err := h.listings.Create(requestContext(c), userID, services.CreateListingInput{
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Condition:   req.Condition,
		Location:    req.Location,
		Image:       req.Image,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, listing)
}

type updateListingRequest struct {
	CategoryID  *string  `json:"category_id"`
	Title       *string  `json:"title" validate:"omitempty,max=128"`
	Description *string  `json:"description" validate:"omitempty,max=4096"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Condition   *string  `json:"condition" validate:"omitempty,max=16"`
	Location    *string  `json:"location" validate:"omitempty,max=128"`
	Image       *string  `json:"image" validate:"omitempty,max=512"`
	Active      *bool    `json:"active"`
}

// PATCH /api/listings/:id
func (h *ListingHandler) Update(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req updateListingRequest
	if !bindAndValidate(c, &req) {
		return
	}

	listing, err := h.listings.Update(requestContext(c), userID, c.Param("id"), services.UpdateListingInput{
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Condition:   req.Condition,
		Location:    req.Location,
		Image:       req.Image,
		Active:      req.Active,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, listing)
}

// DELETE /api/listings/:id
func (h *ListingHandler) Delete(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.listings.Delete(requestContext(c), userID, c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
