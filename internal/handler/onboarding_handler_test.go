package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/talent-pipeline-api/internal/models"
	"github.com/noah-isme/talent-pipeline-api/internal/service"
)

func newOnboardingRouter(repo *fakeTaskRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewOnboardingService(repo, nil, nil, zap.NewNop())
	h := NewOnboardingHandler(svc)

	router := gin.New()
	group := router.Group("/onboarding", withSession(models.RoleManager, "mgr-1"))
	group.POST("", h.Create)
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.PUT("/:id/step", h.AdvanceStep)
	return router
}

func TestOnboardingHandlerCreate(t *testing.T) {
	repo := newFakeTaskRepo()
	router := newOnboardingRouter(repo)

	body, _ := json.Marshal(map[string]interface{}{
		"employee_name":  "Jamie Rivera",
		"employee_email": "jamie@example.com",
		"department":     "Engineering",
		"position":       "Backend Engineer",
		"start_date":     time.Now().AddDate(0, 0, 14).Format(time.RFC3339),
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/onboarding", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var envelope struct {
		Data models.OnboardingTask `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, models.StatusPending, envelope.Data.Status)
	assert.Equal(t, 1, envelope.Data.CurrentStep)
	assert.Equal(t, "mgr-1", envelope.Data.CreatedBy)
}

func TestOnboardingHandlerCreateInvalidPayload(t *testing.T) {
	router := newOnboardingRouter(newFakeTaskRepo())

	body, _ := json.Marshal(map[string]interface{}{"employee_name": "Jamie"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/onboarding", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOnboardingHandlerGetNotFound(t *testing.T) {
	router := newOnboardingRouter(newFakeTaskRepo())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/onboarding/missing", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestOnboardingHandlerAdvanceStepStaleVersionConflicts(t *testing.T) {
	repo := newFakeTaskRepo(&models.OnboardingTask{
		ID:          "t-1",
		Status:      models.StatusInProgress,
		CurrentStep: 2,
		TotalSteps:  models.TotalSteps,
		Version:     3,
	})
	router := newOnboardingRouter(repo)

	body, _ := json.Marshal(map[string]interface{}{"step": 3, "version": 2})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/onboarding/t-1/step", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestOnboardingHandlerAdvanceStepCompletes(t *testing.T) {
	repo := newFakeTaskRepo(&models.OnboardingTask{
		ID:          "t-1",
		Status:      models.StatusInProgress,
		CurrentStep: 4,
		TotalSteps:  models.TotalSteps,
		Version:     1,
	})
	router := newOnboardingRouter(repo)

	body, _ := json.Marshal(map[string]interface{}{"step": 5, "version": 1})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/onboarding/t-1/step", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data models.OnboardingTask `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, models.StatusCompleted, envelope.Data.Status)
	require.NotNil(t, envelope.Data.CompletedAt)
}
