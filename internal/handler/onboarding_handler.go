package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/talent-pipeline-api/internal/middleware"
	"github.com/noah-isme/talent-pipeline-api/internal/models"
	"github.com/noah-isme/talent-pipeline-api/internal/service"
	appErrors "github.com/noah-isme/talent-pipeline-api/pkg/errors"
	"github.com/noah-isme/talent-pipeline-api/pkg/response"
)

// OnboardingHandler wires HTTP endpoints to the onboarding service.
type OnboardingHandler struct {
	service *service.OnboardingService
}

// NewOnboardingHandler creates a new handler.
func NewOnboardingHandler(svc *service.OnboardingService) *OnboardingHandler {
	return &OnboardingHandler{service: svc}
}

// Create godoc
// @Summary Start an onboarding
// @Description Create a new onboarding task at step one
// @Tags Onboarding
// @Accept json
// @Produce json
// @Param payload body service.CreateOnboardingRequest true "Onboarding payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /onboarding [post]
func (h *OnboardingHandler) Create(c *gin.Context) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateOnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid onboarding payload"))
		return
	}

	task, err := h.service.Create(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, task)
}

// List godoc
// @Summary List onboardings
// @Description List onboarding tasks, newest first
// @Tags Onboarding
// @Produce json
// @Param status query string false "Filter by status"
// @Param department query string false "Filter by department"
// @Param created_since query string false "RFC3339 lower bound on creation time"
// @Param created_until query string false "RFC3339 upper bound on creation time"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /onboarding [get]
func (h *OnboardingHandler) List(c *gin.Context) {
	var filter models.OnboardingFilter
	if status := c.Query("status"); status != "" {
		s := models.TaskStatus(status)
		filter.Status = &s
	}
	filter.Department = c.Query("department")
	if since := c.Query("created_since"); since != "" {
		if ts, err := time.Parse(time.RFC3339, since); err == nil {
			filter.CreatedSince = &ts
		}
	}
	if until := c.Query("created_until"); until != "" {
		if ts, err := time.Parse(time.RFC3339, until); err == nil {
			filter.CreatedUntil = &ts
		}
	}

	tasks, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, tasks, nil)
}

// Get godoc
// @Summary Get one onboarding
// @Description Get an onboarding task with approvals and timeline
// @Tags Onboarding
// @Produce json
// @Param id path string true "Onboarding ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /onboarding/{id} [get]
func (h *OnboardingHandler) Get(c *gin.Context) {
	task, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, task, nil)
}

// AdvanceStep godoc
// @Summary Advance the wizard step
// @Description Move an onboarding to a later step; reaching the last step completes it
// @Tags Onboarding
// @Accept json
// @Produce json
// @Param id path string true "Onboarding ID"
// @Param payload body service.AdvanceStepRequest true "Step payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /onboarding/{id}/step [put]
func (h *OnboardingHandler) AdvanceStep(c *gin.Context) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.AdvanceStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid step payload"))
		return
	}

	task, err := h.service.AdvanceStep(c.Request.Context(), session, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, task, nil)
}
