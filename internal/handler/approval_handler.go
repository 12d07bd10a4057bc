package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/talent-pipeline-api/internal/middleware"
	"github.com/noah-isme/talent-pipeline-api/internal/service"
	appErrors "github.com/noah-isme/talent-pipeline-api/pkg/errors"
	"github.com/noah-isme/talent-pipeline-api/pkg/response"
)

// ApprovalHandler wires HTTP endpoints to the approval service.
type ApprovalHandler struct {
	service *service.ApprovalService
}

// NewApprovalHandler creates a new handler.
func NewApprovalHandler(svc *service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{service: svc}
}

// Queue godoc
// @Summary List the approval queue
// @Description Tasks still awaiting a decision, newest first
// @Tags Approvals
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /approvals [get]
func (h *ApprovalHandler) Queue(c *gin.Context) {
	queue, err := h.service.Queue(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, queue, nil)
}

// Decide godoc
// @Summary Decide one or more onboardings
// @Description Approve or reject the selected tasks atomically; a rejection requires a comment
// @Tags Approvals
// @Accept json
// @Produce json
// @Param payload body service.DecisionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /approvals/decide [post]
func (h *ApprovalHandler) Decide(c *gin.Context) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}

	updated, err := h.service.Decide(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, updated, nil)
}
