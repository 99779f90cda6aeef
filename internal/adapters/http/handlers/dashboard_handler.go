package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"shelfdesk/internal/core/services"
	"shelfdesk/internal/pkg/response"
)

// DashboardHandler handles admin dashboard endpoints
type DashboardHandler struct {
	dashboardService *services.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// Stats handles the admin dashboard stats endpoint
// @Summary Dashboard statistics
// @Description Aggregate circulation and catalog statistics for the admin dashboard
// @Tags Dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.dashboardService.GetStats(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to load dashboard statistics")
	}

	return response.Success(c, "Dashboard statistics retrieved", stats)
}

// Report handles the date-ranged staff report endpoint
// @Summary Generate report
// @Description Generate a date-ranged report (circulation, overdue, inventory, users, popular-books)
// @Tags Dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param type path string true "Report type"
// @Param start_date query string false "Range start (YYYY-MM-DD)"
// @Param end_date query string false "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /dashboard/reports/{type} [get]
func (h *DashboardHandler) Report(c *fiber.Ctx) error {
	var start, end time.Time

	if raw := c.Query("start_date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return response.BadRequest(c, "Invalid start_date, expected YYYY-MM-DD")
		}
		start = parsed
	}
	if raw := c.Query("end_date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return response.BadRequest(c, "Invalid end_date, expected YYYY-MM-DD")
		}
		// Inclusive end date
		end = parsed.AddDate(0, 0, 1)
	}

	report, err := h.dashboardService.GenerateReport(c.Context(), c.Params("type"), start, end)
	if err != nil {
		if errors.Is(err, services.ErrUnknownReportType) {
			return response.BadRequest(c, "Unknown report type")
		}
		return response.InternalServerError(c, "Failed to generate report")
	}

	return response.Success(c, "Report generated", report)
}
