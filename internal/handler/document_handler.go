package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/talent-pipeline-api/internal/middleware"
	"github.com/noah-isme/talent-pipeline-api/internal/models"
	"github.com/noah-isme/talent-pipeline-api/internal/service"
	appErrors "github.com/noah-isme/talent-pipeline-api/pkg/errors"
	"github.com/noah-isme/talent-pipeline-api/pkg/response"
)

// DocumentHandler wires HTTP endpoints to the document service.
type DocumentHandler struct {
	documents  *service.DocumentService
	onboarding *service.OnboardingService
}

// NewDocumentHandler creates a new handler.
func NewDocumentHandler(documents *service.DocumentService, onboarding *service.OnboardingService) *DocumentHandler {
	return &DocumentHandler{documents: documents, onboarding: onboarding}
}

// Upload godoc
// @Summary Upload a document
// @Description Store a file and its metadata; optionally link it to an onboarding via task_id
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File to upload"
// @Param task_id formData string false "Onboarding to link the document to"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	doc, err := h.documents.Upload(c.Request.Context(), session, service.UploadInput{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Body:        file,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if taskID := c.PostForm("task_id"); taskID != "" {
		if err := h.onboarding.LinkDocument(c.Request.Context(), session, taskID, doc.ID, doc.Name); err != nil {
			response.Error(c, err)
			return
		}
	}

	response.Created(c, doc)
}

// List godoc
// @Summary List documents
// @Description List documents, newest first; employees only see their own uploads
// @Tags Documents
// @Produce json
// @Param category query string false "Filter by category"
// @Param status query string false "Filter by review status"
// @Param uploaded_by query string false "Filter by uploader"
// @Success 200 {object} response.Envelope
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.DocumentFilter
	if category := c.Query("category"); category != "" {
		cat := models.DocumentCategory(category)
		filter.Category = &cat
	}
	if status := c.Query("status"); status != "" {
		st := models.DocumentStatus(status)
		filter.Status = &st
	}
	filter.UploadedBy = c.Query("uploaded_by")

	docs, err := h.documents.List(c.Request.Context(), session, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, docs, nil)
}

// Get godoc
// @Summary Get one document
// @Description Get a document's metadata
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	doc, err := h.documents.Get(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// SignedURL godoc
// @Summary Get a download token
// @Description Returns a time-limited token for downloading the file
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id}/url [get]
func (h *DocumentHandler) SignedURL(c *gin.Context) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	token, expiresAt, err := h.documents.SignedURL(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt,
	}, nil)
}

// Download godoc
// @Summary Download a file
// @Description Stream the file referenced by a signed download token
// @Tags Documents
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /documents/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	doc, file, err := h.documents.OpenByToken(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.Header("Content-Disposition", `attachment; filename="`+doc.Name+`"`)
	c.Header("Content-Type", doc.Type)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}

// Review godoc
// @Summary Review a document
// @Description Approve or reject a pending document; a rejection requires a comment
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body service.ReviewRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /documents/{id}/review [put]
func (h *DocumentHandler) Review(c *gin.Context) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	doc, err := h.documents.Review(c.Request.Context(), session, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, doc, nil)
}

// Delete godoc
// @Summary Delete a document
// @Description Remove metadata first, then the stored file
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.documents.Delete(c.Request.Context(), session, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
