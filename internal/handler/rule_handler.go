package handler

import (
	"net/http"

	"taxoffice/internal/middleware"
	"taxoffice/internal/service"
	"taxoffice/pkg/pagination"
	"taxoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

type RuleHandler struct {
	ruleService service.RuleService
}

func NewRuleHandler(ruleService service.RuleService) *RuleHandler {
	return &RuleHandler{ruleService: ruleService}
}

func (h *RuleHandler) RegisterRoutes(router *gin.RouterGroup) {
	rules := router.Group("/api/deadline-rules")
	{
		rules.GET("", middleware.RequireRole("admin", "manager", "staff"), h.ListRules)
		rules.GET("/:id", middleware.RequireRole("admin", "manager", "staff"), h.GetRule)
		rules.POST("", middleware.RequireRole("admin", "manager"), h.CreateRule)
		rules.PUT("/:id", middleware.RequireRole("admin", "manager"), h.UpdateRule)
		rules.DELETE("/:id", middleware.RequireRole("admin"), h.DeleteRule)
		rules.POST("/:id/activate", middleware.RequireRole("admin", "manager"), h.ActivateRule)
		rules.POST("/:id/deactivate", middleware.RequireRole("admin", "manager"), h.DeactivateRule)
	}
}

// ListRules returns paginated deadline rules with optional filters
// @Summary      List deadline rules
// @Tags         deadline-rules
// @Security     BearerAuth
// @Produce      json
// @Param        page      query     int     false  "Page number (default: 1)"
// @Param        limit     query     int     false  "Items per page (default: 20)"
// @Param        tax_type  query     string  false  "Filter by tax type: GST, PAYE, CIT, WHT, FBT"
// @Param        active    query     bool    false  "Only active rules"
// @Success      200       {object}  response.Response
// @Router       /api/deadline-rules [get]
func (h *RuleHandler) ListRules(c *gin.Context) {
	params := pagination.Parse(c)
	taxType := c.Query("tax_type")
	activeOnly := c.Query("active") == "true"

	rules, total, err := h.ruleService.ListRules(c.Request.Context(), taxType, activeOnly, params.Page, params.Limit)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, rules, params.Page, params.Limit, total))
}

// GetRule returns a single deadline rule by id
// @Summary      Get deadline rule
// @Tags         deadline-rules
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}  response.Response
// @Router       /api/deadline-rules/{id} [get]
func (h *RuleHandler) GetRule(c *gin.Context) {
	rule, err := h.ruleService.GetRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// CreateRule creates a new deadline rule (inactive unless activate=true in the body)
// @Summary      Create deadline rule
// @Tags         deadline-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Success      201  {object}  response.Response
// @Router       /api/deadline-rules [post]
func (h *RuleHandler) CreateRule(c *gin.Context) {
	var req service.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorWithKind(http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload: "+err.Error()))
		return
	}

	rule, err := h.ruleService.CreateRule(c.Request.Context(), req, middleware.UserIDFromContext(c))
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rule))
}

// UpdateRule replaces a rule's configuration; subsequent computations pick it up immediately
// @Summary      Update deadline rule
// @Tags         deadline-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}  response.Response
// @Router       /api/deadline-rules/{id} [put]
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	var req service.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorWithKind(http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload: "+err.Error()))
		return
	}

	rule, err := h.ruleService.UpdateRule(c.Request.Context(), c.Param("id"), req, middleware.UserIDFromContext(c))
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// DeleteRule removes a rule from future eligibility. Deleting the active
// rule requires a replacement_id to activate atomically in its place.
// @Summary      Delete deadline rule
// @Tags         deadline-rules
// @Security     BearerAuth
// @Produce      json
// @Param        id              path      string  true   "Rule ID"
// @Param        replacement_id  query     string  false  "Rule to activate in place of an active rule being deleted"
// @Success      200  {object}  response.Response
// @Router       /api/deadline-rules/{id} [delete]
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	err := h.ruleService.DeleteRule(c.Request.Context(), c.Param("id"), c.Query("replacement_id"), middleware.UserIDFromContext(c))
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// ActivateRule makes the rule the sole active rule of its tax type
// @Summary      Activate deadline rule
// @Tags         deadline-rules
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}  response.Response
// @Router       /api/deadline-rules/{id}/activate [post]
func (h *RuleHandler) ActivateRule(c *gin.Context) {
	rule, err := h.ruleService.ActivateRule(c.Request.Context(), c.Param("id"), middleware.UserIDFromContext(c))
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// DeactivateRule sets the rule inactive; the tax type may legitimately be
// left with no active rule
// @Summary      Deactivate deadline rule
// @Tags         deadline-rules
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}  response.Response
// @Router       /api/deadline-rules/{id}/deactivate [post]
func (h *RuleHandler) DeactivateRule(c *gin.Context) {
	rule, err := h.ruleService.DeactivateRule(c.Request.Context(), c.Param("id"), middleware.UserIDFromContext(c))
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}
