package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/talent-pipeline-api/internal/service"
	"github.com/noah-isme/talent-pipeline-api/pkg/response"
)

// AnalyticsHandler wires HTTP endpoints to the analytics service.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
	metrics   *service.MetricsService
}

// NewAnalyticsHandler creates a new handler.
func NewAnalyticsHandler(analytics *service.AnalyticsService, metrics *service.MetricsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, metrics: metrics}
}

// Report godoc
// @Summary Analytics report
// @Description Aggregated onboarding metrics for a trailing month range
// @Tags Analytics
// @Produce json
// @Param range query int false "Trailing range in months (default 6)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /analytics/report [get]
func (h *AnalyticsHandler) Report(c *gin.Context) {
	rangeMonths, _ := strconv.Atoi(c.DefaultQuery("range", "6"))

	report, err := h.analytics.Report(c.Request.Context(), rangeMonths)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Dashboard godoc
// @Summary Dashboard summary
// @Description Landing-page metrics for the portal
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	metrics, err := h.analytics.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, metrics, nil)
}

// ExportCSV godoc
// @Summary Export analytics as CSV
// @Tags Analytics
// @Produce text/csv
// @Param range query int false "Trailing range in months (default 6)"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /analytics/export/csv [get]
func (h *AnalyticsHandler) ExportCSV(c *gin.Context) {
	rangeMonths, _ := strconv.Atoi(c.DefaultQuery("range", "6"))

	payload, err := h.analytics.ExportCSV(c.Request.Context(), rangeMonths)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="analytics.csv"`)
	c.Data(http.StatusOK, "text/csv", payload)
}

// ExportPDF godoc
// @Summary Export analytics as PDF
// @Tags Analytics
// @Produce application/pdf
// @Param range query int false "Trailing range in months (default 6)"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /analytics/export/pdf [get]
func (h *AnalyticsHandler) ExportPDF(c *gin.Context) {
	rangeMonths, _ := strconv.Atoi(c.DefaultQuery("range", "6"))

	payload, err := h.analytics.ExportPDF(c.Request.Context(), rangeMonths)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="analytics.pdf"`)
	c.Data(http.StatusOK, "application/pdf", payload)
}

// System godoc
// @Summary Runtime metrics snapshot
// @Description Lightweight process metrics for operators
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/system [get]
func (h *AnalyticsHandler) System(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}
