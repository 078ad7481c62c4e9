package handler

import (
	"net/http"

	"taxoffice/internal/middleware"
	"taxoffice/internal/service"
	"taxoffice/pkg/pagination"
	"taxoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

type ExtensionHandler struct {
	extensionService service.ExtensionService
}

func NewExtensionHandler(extensionService service.ExtensionService) *ExtensionHandler {
	return &ExtensionHandler{extensionService: extensionService}
}

func (h *ExtensionHandler) RegisterRoutes(router *gin.RouterGroup) {
	exts := router.Group("/api/extensions")
	{
		exts.GET("", middleware.RequireRole("admin", "manager", "staff"), h.ListExtensions)
		exts.POST("", middleware.RequireRole("admin", "manager"), h.GrantExtension)
		exts.POST("/:id/revoke", middleware.RequireRole("admin", "manager"), h.RevokeExtension)
	}
}

// ListExtensions returns a client's extension history, newest grant first
// @Summary      List client extensions
// @Tags         extensions
// @Security     BearerAuth
// @Produce      json
// @Param        client_id  query     string  true   "Client ID"
// @Param        page       query     int     false  "Page number (default: 1)"
// @Param        limit      query     int     false  "Items per page (default: 20)"
// @Success      200        {object}  response.Response
// @Router       /api/extensions [get]
func (h *ExtensionHandler) ListExtensions(c *gin.Context) {
	clientID := c.Query("client_id")
	if clientID == "" {
		c.JSON(http.StatusBadRequest, response.ErrorWithKind(http.StatusBadRequest, "VALIDATION_ERROR", "client_id is required"))
		return
	}

	params := pagination.Parse(c)
	exts, total, err := h.extensionService.ListByClient(c.Request.Context(), clientID, params.Page, params.Limit)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, exts, params.Page, params.Limit, total))
}

// GrantExtension grants a deadline extension, superseding any active one
// for the same obligation instance
// @Summary      Grant extension
// @Tags         extensions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Success      201  {object}  response.Response
// @Router       /api/extensions [post]
func (h *ExtensionHandler) GrantExtension(c *gin.Context) {
	var req service.GrantExtensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorWithKind(http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload: "+err.Error()))
		return
	}

	ext, err := h.extensionService.Grant(c.Request.Context(), req, middleware.UserIDFromContext(c))
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, ext))
}

// RevokeExtension terminates an extension; revoking twice is a no-op
// @Summary      Revoke extension
// @Tags         extensions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Extension ID"
// @Success      200  {object}  response.Response
// @Router       /api/extensions/{id}/revoke [post]
func (h *ExtensionHandler) RevokeExtension(c *gin.Context) {
	ext, err := h.extensionService.Revoke(c.Request.Context(), c.Param("id"), middleware.UserIDFromContext(c))
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, ext))
}
