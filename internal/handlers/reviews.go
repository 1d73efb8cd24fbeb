package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tessera/internal/middleware"
	"tessera/internal/models"
)

// ListPendingReviews - GET /api/reviews/pending
func (h *Handlers) ListPendingReviews(c *gin.Context) {
	items, err := h.services.Reviews.PastUnreviewedEvents(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// SaveReview - PUT /api/reservations/:id/review
func (h *Handlers) SaveReview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	review, err := h.services.Reviews.SaveOrUpdateReview(c.Request.Context(), middleware.UserID(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}
