package handler

import (
	"net/http"
	"strconv"

	"taxoffice/internal/middleware"
	"taxoffice/internal/service"
	"taxoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

type HolidayHandler struct {
	holidayService service.HolidayService
}

func NewHolidayHandler(holidayService service.HolidayService) *HolidayHandler {
	return &HolidayHandler{holidayService: holidayService}
}

func (h *HolidayHandler) RegisterRoutes(router *gin.RouterGroup) {
	holidays := router.Group("/api/holidays")
	{
		holidays.GET("", middleware.RequireRole("admin", "manager", "staff"), h.ListHolidays)
		holidays.POST("", middleware.RequireRole("admin", "manager"), h.AddHoliday)
		holidays.DELETE("/:id", middleware.RequireRole("admin", "manager"), h.RemoveHoliday)
	}
}

// ListHolidays returns the public holiday calendar, optionally for one year
// @Summary      List public holidays
// @Tags         holidays
// @Security     BearerAuth
// @Produce      json
// @Param        year  query     int  false  "Calendar year filter"
// @Success      200   {object}  response.Response
// @Router       /api/holidays [get]
func (h *HolidayHandler) ListHolidays(c *gin.Context) {
	year := 0
	if y := c.Query("year"); y != "" {
		parsed, err := strconv.Atoi(y)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorWithKind(http.StatusBadRequest, "VALIDATION_ERROR", "Invalid year"))
			return
		}
		year = parsed
	}

	holidays, err := h.holidayService.ListHolidays(c.Request.Context(), year)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, holidays))
}

// AddHoliday appends a date to the holiday calendar
// @Summary      Add public holiday
// @Tags         holidays
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Success      201  {object}  response.Response
// @Router       /api/holidays [post]
func (h *HolidayHandler) AddHoliday(c *gin.Context) {
	var req service.AddHolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorWithKind(http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload: "+err.Error()))
		return
	}

	holiday, err := h.holidayService.AddHoliday(c.Request.Context(), req, middleware.UserIDFromContext(c))
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, holiday))
}

// RemoveHoliday deletes a holiday from the calendar
// @Summary      Remove public holiday
// @Tags         holidays
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Holiday ID"
// @Success      200  {object}  response.Response
// @Router       /api/holidays/{id} [delete]
func (h *HolidayHandler) RemoveHoliday(c *gin.Context) {
	if err := h.holidayService.RemoveHoliday(c.Request.Context(), c.Param("id"), middleware.UserIDFromContext(c)); err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}
