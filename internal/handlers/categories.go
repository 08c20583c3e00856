package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mgiordano/clasificados/internal/services"
	"github.com/mgiordano/clasificados/pkg/response"
)

// CategoryHandler serves the category catalog.
type CategoryHandler struct {
	categories *services.CategoryService
}

func NewCategoryHandler(categories *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// GET /api/categories
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.categories.List(requestContext(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, categories)
}
