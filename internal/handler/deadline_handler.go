package handler

import (
	"net/http"

	"taxoffice/internal/middleware"
	"taxoffice/internal/service"
	"taxoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

type DeadlineHandler struct {
	deadlineService service.DeadlineService
}

func NewDeadlineHandler(deadlineService service.DeadlineService) *DeadlineHandler {
	return &DeadlineHandler{deadlineService: deadlineService}
}

func (h *DeadlineHandler) RegisterRoutes(router *gin.RouterGroup) {
	deadlines := router.Group("/api/deadlines")
	deadlines.Use(middleware.RequireRole("admin", "manager", "staff"))
	{
		deadlines.POST("/resolve", h.ResolveDeadline)
		deadlines.POST("/penalty", h.EstimatePenalty)
	}
}

// ResolveDeadline computes the binding deadline for a tax type and trigger
// date, layering the client's active extension when client_id is supplied.
// The adjustments trace in the payload feeds the history views.
// @Summary      Resolve deadline
// @Tags         deadlines
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/deadlines/resolve [post]
func (h *DeadlineHandler) ResolveDeadline(c *gin.Context) {
	var req service.ResolveDeadlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorWithKind(http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.deadlineService.Resolve(c.Request.Context(), req)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// EstimatePenalty prices a late filing against the resolved deadline using
// the rule's daily penalty rate
// @Summary      Estimate late-filing penalty
// @Tags         deadlines
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/deadlines/penalty [post]
func (h *DeadlineHandler) EstimatePenalty(c *gin.Context) {
	var req service.PenaltyEstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorWithKind(http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.deadlineService.EstimatePenalty(c.Request.Context(), req)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
