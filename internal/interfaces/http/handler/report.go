package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	reportapp "github.com/tecnipro/cobranzas/internal/application/report"
)

// ReportHandler serves the read-only reporting endpoints
type ReportHandler struct {
	BaseHandler
	reportService *reportapp.Service
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService *reportapp.Service) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// RegisterRoutes registers the reporting endpoints
func (h *ReportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reports := rg.Group("/reports")
	reports.GET("/dashboard", h.Dashboard)
	reports.GET("/historical", h.Historical)
	reports.GET("/payers", h.Payers)
	reports.GET("/aging", h.Aging)
	reports.GET("/top-clients", h.TopClients)
	reports.GET("/top-courses", h.TopCourses)
}

// Dashboard returns the collection dashboard in one payload
func (h *ReportHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.reportService.Dashboard(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dashboard)
}

// Historical returns billing totals over the full register, frozen history
// included
func (h *ReportHandler) Historical(c *gin.Context) {
	summary, err := h.reportService.HistoricalSummary(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, summary)
}

// Payers aggregates billing by paying intermediary. A year query narrows the
// window; without it every year counts.
func (h *ReportHandler) Payers(c *gin.Context) {
	year := 0
	if raw := c.Query("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.BadRequest(c, "Invalid year")
			return
		}
		year = parsed
	}

	totals, err := h.reportService.PayerTotals(c.Request.Context(), year)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, totals)
}

// Aging classifies unpaid active invoices by age
func (h *ReportHandler) Aging(c *gin.Context) {
	buckets, err := h.reportService.Aging(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, buckets)
}

// TopClients ranks assigned clients by active billing
func (h *ReportHandler) TopClients(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	clients, err := h.reportService.TopClients(c.Request.Context(), limit)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, clients)
}

// TopCourses ranks course labels by active billing
func (h *ReportHandler) TopCourses(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	courses, err := h.reportService.TopCourses(c.Request.Context(), limit)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, courses)
}
