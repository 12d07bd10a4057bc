package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/talent-pipeline-api/internal/models"
	"github.com/noah-isme/talent-pipeline-api/internal/repository"
	appErrors "github.com/noah-isme/talent-pipeline-api/pkg/errors"
)

type mockOnboardingRepo struct {
	tasks          map[string]*models.OnboardingTask
	events         []*models.TimelineEvent
	decided        [][]repository.Decision
	updateErr      error
	decideErr      error
	linkedTaskDocs map[string][]string
}

func newMockOnboardingRepo(tasks ...*models.OnboardingTask) *mockOnboardingRepo {
	repo := &mockOnboardingRepo{
		tasks:          map[string]*models.OnboardingTask{},
		linkedTaskDocs: map[string][]string{},
	}
	for _, task := range tasks {
		repo.tasks[task.ID] = task
	}
	return repo
}

func (m *mockOnboardingRepo) Create(ctx context.Context, task *models.OnboardingTask, created models.TimelineEvent) error {
	task.ID = "task-" + task.EmployeeEmail
	task.Version = 1
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	task.Timeline = append(task.Timeline, created)
	m.tasks[task.ID] = task
	return nil
}

func (m *mockOnboardingRepo) GetByID(ctx context.Context, id string) (*models.OnboardingTask, error) {
	task, ok := m.tasks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *task
	return &copied, nil
}

func (m *mockOnboardingRepo) List(ctx context.Context, filter models.OnboardingFilter) ([]models.OnboardingTask, error) {
	out := make([]models.OnboardingTask, 0, len(m.tasks))
	for _, task := range m.tasks {
		out = append(out, *task)
	}
	return out, nil
}

func (m *mockOnboardingRepo) UpdateProgress(ctx context.Context, id string, step int, status models.TaskStatus, completedAt *time.Time, baseVersion int) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	task, ok := m.tasks[id]
	if !ok || task.Version != baseVersion {
		return sql.ErrNoRows
	}
	task.CurrentStep = step
	task.Status = status
	task.CompletedAt = completedAt
	task.Version++
	return nil
}

func (m *mockOnboardingRepo) DecideBatch(ctx context.Context, decisions []repository.Decision) error {
	if m.decideErr != nil {
		return m.decideErr
	}
	m.decided = append(m.decided, decisions)
	for _, d := range decisions {
		if task, ok := m.tasks[d.TaskID]; ok {
			task.Status = d.Status
		}
	}
	return nil
}

func (m *mockOnboardingRepo) AppendTimelineEvent(ctx context.Context, event *models.TimelineEvent) error {
	m.events = append(m.events, event)
	return nil
}

func (m *mockOnboardingRepo) LinkDocument(ctx context.Context, taskID, documentID string) error {
	m.linkedTaskDocs[taskID] = append(m.linkedTaskDocs[taskID], documentID)
	return nil
}

type mockInvalidator struct {
	patterns []string
}

func (m *mockInvalidator) Invalidate(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

func managerSession() *Session {
	return &Session{
		Phase:       SessionEnriched,
		UserID:      "mgr-1",
		Email:       "manager@example.com",
		DisplayName: "Morgan Lee",
		Role:        models.RoleManager,
	}
}

func TestOnboardingCreateSetsDefaults(t *testing.T) {
	repo := newMockOnboardingRepo()
	cache := &mockInvalidator{}
	svc := NewOnboardingService(repo, cache, nil, zap.NewNop())

	task, err := svc.Create(context.Background(), managerSession(), CreateOnboardingRequest{
		EmployeeName:  "Jamie Rivera",
		EmployeeEmail: "jamie@example.com",
		Department:    "Engineering",
		Position:      "Backend Engineer",
		StartDate:     time.Now().AddDate(0, 0, 14),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, task.Status)
	assert.Equal(t, 1, task.CurrentStep)
	assert.Equal(t, models.TotalSteps, task.TotalSteps)
	assert.Equal(t, "mgr-1", task.CreatedBy)
	require.Len(t, task.Timeline, 1)
	assert.Equal(t, models.EventCreated, task.Timeline[0].Type)
	assert.Contains(t, cache.patterns, "analytics:*")
	assert.Contains(t, cache.patterns, "dashboard:*")
}

func TestOnboardingCreateRejectsInvalidPayload(t *testing.T) {
	svc := NewOnboardingService(newMockOnboardingRepo(), nil, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), managerSession(), CreateOnboardingRequest{
		EmployeeName:  "Jamie",
		EmployeeEmail: "not-an-email",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestOnboardingAdvanceStepCompletesAtLastStep(t *testing.T) {
	repo := newMockOnboardingRepo(&models.OnboardingTask{
		ID:          "task-1",
		Status:      models.StatusInProgress,
		CurrentStep: 4,
		TotalSteps:  models.TotalSteps,
		Version:     2,
	})
	svc := NewOnboardingService(repo, &mockInvalidator{}, nil, zap.NewNop())

	task, err := svc.AdvanceStep(context.Background(), managerSession(), "task-1", AdvanceStepRequest{Step: 5, Version: 2})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, task.Status)
	assert.Equal(t, 5, task.CurrentStep)
	require.NotNil(t, task.CompletedAt)
	require.Len(t, repo.events, 1)
	assert.Equal(t, models.EventCompleted, repo.events[0].Type)
}

func TestOnboardingAdvanceStepCompletesStraightFromPending(t *testing.T) {
	repo := newMockOnboardingRepo(&models.OnboardingTask{
		ID:          "task-1",
		Status:      models.StatusPending,
		CurrentStep: 1,
		TotalSteps:  models.TotalSteps,
		Version:     1,
	})
	svc := NewOnboardingService(repo, &mockInvalidator{}, nil, zap.NewNop())

	task, err := svc.AdvanceStep(context.Background(), managerSession(), "task-1", AdvanceStepRequest{Step: 5, Version: 1})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, task.Status)
	require.NotNil(t, task.CompletedAt)
}

func TestOnboardingAdvanceStepPendingBecomesInProgress(t *testing.T) {
	repo := newMockOnboardingRepo(&models.OnboardingTask{
		ID:          "task-1",
		Status:      models.StatusPending,
		CurrentStep: 1,
		TotalSteps:  models.TotalSteps,
		Version:     1,
	})
	svc := NewOnboardingService(repo, &mockInvalidator{}, nil, zap.NewNop())

	task, err := svc.AdvanceStep(context.Background(), managerSession(), "task-1", AdvanceStepRequest{Step: 2, Version: 1})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, task.Status)
	assert.Nil(t, task.CompletedAt)
}

func TestOnboardingAdvanceStepStaleVersion(t *testing.T) {
	repo := newMockOnboardingRepo(&models.OnboardingTask{
		ID:          "task-1",
		Status:      models.StatusInProgress,
		CurrentStep: 2,
		TotalSteps:  models.TotalSteps,
		Version:     5,
	})
	svc := NewOnboardingService(repo, &mockInvalidator{}, nil, zap.NewNop())

	_, err := svc.AdvanceStep(context.Background(), managerSession(), "task-1", AdvanceStepRequest{Step: 3, Version: 4})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStaleVersion.Code, appErrors.FromError(err).Code)
}

func TestOnboardingAdvanceStepRejectsBackwardsMove(t *testing.T) {
	repo := newMockOnboardingRepo(&models.OnboardingTask{
		ID:          "task-1",
		Status:      models.StatusInProgress,
		CurrentStep: 3,
		TotalSteps:  models.TotalSteps,
		Version:     1,
	})
	svc := NewOnboardingService(repo, &mockInvalidator{}, nil, zap.NewNop())

	_, err := svc.AdvanceStep(context.Background(), managerSession(), "task-1", AdvanceStepRequest{Step: 2, Version: 1})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestOnboardingAdvanceStepRejectsFinishedTask(t *testing.T) {
	repo := newMockOnboardingRepo(&models.OnboardingTask{
		ID:          "task-1",
		Status:      models.StatusApproved,
		CurrentStep: 5,
		TotalSteps:  models.TotalSteps,
		Version:     3,
	})
	svc := NewOnboardingService(repo, &mockInvalidator{}, nil, zap.NewNop())

	_, err := svc.AdvanceStep(context.Background(), managerSession(), "task-1", AdvanceStepRequest{Step: 5, Version: 3})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestOnboardingGetNotFound(t *testing.T) {
	svc := NewOnboardingService(newMockOnboardingRepo(), nil, nil, zap.NewNop())

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestOnboardingLinkDocumentAppendsTimeline(t *testing.T) {
	repo := newMockOnboardingRepo(&models.OnboardingTask{ID: "task-1", Status: models.StatusInProgress, Version: 1})
	svc := NewOnboardingService(repo, &mockInvalidator{}, nil, zap.NewNop())

	require.NoError(t, svc.LinkDocument(context.Background(), managerSession(), "task-1", "doc-1", "contract.pdf"))
	assert.Equal(t, []string{"doc-1"}, repo.linkedTaskDocs["task-1"])
	require.Len(t, repo.events, 1)
	assert.Equal(t, models.EventDocumentUploaded, repo.events[0].Type)
}
