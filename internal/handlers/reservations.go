package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tessera/internal/middleware"
	"tessera/internal/models"
)

// CreateReservation - POST /api/reservations
func (h *Handlers) CreateReservation(c *gin.Context) {
	var req models.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.services.Reservations.Create(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

// ListMyReservations - GET /api/reservations
func (h *Handlers) ListMyReservations(c *gin.Context) {
	reservations, err := h.services.Reservations.ListByUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, reservations)
}

// ConfirmReservation - POST /api/reservations/:id/confirm
func (h *Handlers) ConfirmReservation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	res, err := h.services.Reservations.Confirm(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// CancelReservation - POST /api/reservations/:id/cancel
func (h *Handlers) CancelReservation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.CancelReservationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	res, err := h.services.Reservations.Cancel(c.Request.Context(), middleware.UserID(c), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
