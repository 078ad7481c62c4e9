package handler

import (
	"errors"
	"net/http"

	"taxoffice/internal/deadline"
	"taxoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeEngineError maps the engine's typed failure conditions onto HTTP
// statuses and the response envelope. Only the structured kind and its
// message reach the client — storage error text never does.
func writeEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, deadline.ErrValidation):
		c.JSON(http.StatusBadRequest, response.ErrorWithKind(http.StatusBadRequest, "VALIDATION_ERROR", err.Error()))
	case errors.Is(err, deadline.ErrNoActiveRule):
		c.JSON(http.StatusNotFound, response.ErrorWithKind(http.StatusNotFound, "NO_ACTIVE_RULE", err.Error()))
	case errors.Is(err, deadline.ErrNotFound):
		c.JSON(http.StatusNotFound, response.ErrorWithKind(http.StatusNotFound, "NOT_FOUND", err.Error()))
	case errors.Is(err, deadline.ErrConflict):
		c.JSON(http.StatusConflict, response.ErrorWithKind(http.StatusConflict, "CONFLICT", err.Error()))
	case errors.Is(err, deadline.ErrDuplicateHoliday):
		c.JSON(http.StatusConflict, response.ErrorWithKind(http.StatusConflict, "DUPLICATE_HOLIDAY", err.Error()))
	case errors.Is(err, deadline.ErrAdjustmentLimit):
		c.JSON(http.StatusUnprocessableEntity, response.ErrorWithKind(http.StatusUnprocessableEntity, "ADJUSTMENT_LIMIT_EXCEEDED", err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Internal server error"))
	}
}
