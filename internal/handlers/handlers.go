package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "tessera/internal/errors"
	"tessera/internal/logger"
	"tessera/internal/service"
)

type Handlers struct {
	services *service.Services
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{services: services}
}

// respondError maps a domain error kind to its HTTP status. Unknown errors
// are logged and hidden behind a 500.
func respondError(c *gin.Context, err error) {
	var status int
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		status = http.StatusBadRequest
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindForbidden:
		status = http.StatusForbidden
	case apperrors.KindState, apperrors.KindCapacity, apperrors.KindCancellationWindow:
		status = http.StatusConflict
	case apperrors.KindBusiness:
		status = http.StatusUnprocessableEntity
	default:
		logger.WithContext(c.Request.Context()).Error("Unhandled error", "error", err,
			"method", c.Request.Method, "path", c.Request.URL.Path)
		status = http.StatusInternalServerError
	}

	c.JSON(status, gin.H{"error": apperrors.Message(err)})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a positive integer"})
		return 0, false
	}
	return id, true
}

func pagination(c *gin.Context) (page, pageSize int, ok bool) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	if page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be >= 1"})
		return 0, 0, false
	}
	if pageSize < 1 || pageSize > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pageSize must be between 1 and 100"})
		return 0, 0, false
	}
	return page, pageSize, true
}
