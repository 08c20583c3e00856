package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mgiordano/clasificados/internal/services"
	"github.com/mgiordano/clasificados/pkg/errors"
	"github.com/mgiordano/clasificados/pkg/response"
)

// CommentHandler serves listing comments.
type CommentHandler struct {
	comments *services.CommentService
}

func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// GET /api/listings/:id/comments
func (h *CommentHandler) List(c *gin.Context) {
	comments, err := h.comments.List(requestContext(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, comments)
}

type createCommentRequest struct {
	Content string `json:"content" validate:"required,max=255"`
}

// POST /api/listings/:id/comments
func (h *CommentHandler) Create(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req createCommentRequest
	if !bindAndValidate(c, &req) {
		return
	}

	comment, err := h.comments.Create(requestContext(c), userID, c.Param("id"), req.Content)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, comment)
}
