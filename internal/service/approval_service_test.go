package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/talent-pipeline-api/internal/models"
	appErrors "github.com/noah-isme/talent-pipeline-api/pkg/errors"
)

func TestApprovalQueueKeepsCompletedExcludesDecided(t *testing.T) {
	repo := newMockOnboardingRepo(
		&models.OnboardingTask{ID: "t-pending", Status: models.StatusPending},
		&models.OnboardingTask{ID: "t-progress", Status: models.StatusInProgress},
		&models.OnboardingTask{ID: "t-completed", Status: models.StatusCompleted},
		&models.OnboardingTask{ID: "t-approved", Status: models.StatusApproved},
		&models.OnboardingTask{ID: "t-rejected", Status: models.StatusRejected},
	)
	svc := NewApprovalService(repo, nil, nil, zap.NewNop())

	queue, err := svc.Queue(context.Background())
	require.NoError(t, err)

	ids := map[string]bool{}
	for _, task := range queue {
		ids[task.ID] = true
	}
	assert.True(t, ids["t-pending"])
	assert.True(t, ids["t-progress"])
	assert.True(t, ids["t-completed"])
	assert.False(t, ids["t-approved"])
	assert.False(t, ids["t-rejected"])
}

func TestApprovalDecideApproveBatch(t *testing.T) {
	repo := newMockOnboardingRepo(
		&models.OnboardingTask{ID: "t-1", Status: models.StatusCompleted, Version: 1},
		&models.OnboardingTask{ID: "t-2", Status: models.StatusInProgress, Version: 1},
	)
	cache := &mockInvalidator{}
	svc := NewApprovalService(repo, cache, nil, zap.NewNop())

	updated, err := svc.Decide(context.Background(), managerSession(), DecisionRequest{
		TaskIDs: []string{"t-1", "t-2"},
		Approve: true,
	})
	require.NoError(t, err)
	require.Len(t, updated, 2)
	for _, task := range updated {
		assert.Equal(t, models.StatusApproved, task.Status)
	}

	require.Len(t, repo.decided, 1)
	require.Len(t, repo.decided[0], 2)
	first := repo.decided[0][0]
	assert.Equal(t, "mgr-1", first.Approval.ApproverID)
	assert.Equal(t, models.RoleManager, first.Approval.ApproverRole)
	assert.Equal(t, models.EventApproved, first.Event.Type)
	assert.Contains(t, cache.patterns, "analytics:*")
}

func TestApprovalDecideRejectRequiresComment(t *testing.T) {
	repo := newMockOnboardingRepo(&models.OnboardingTask{ID: "t-1", Status: models.StatusCompleted})
	svc := NewApprovalService(repo, nil, nil, zap.NewNop())

	_, err := svc.Decide(context.Background(), managerSession(), DecisionRequest{
		TaskIDs: []string{"t-1"},
		Approve: false,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	blank := "   "
	_, err = svc.Decide(context.Background(), managerSession(), DecisionRequest{
		TaskIDs:  []string{"t-1"},
		Approve:  false,
		Comments: &blank,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestApprovalDecideRejectWithComment(t *testing.T) {
	repo := newMockOnboardingRepo(&models.OnboardingTask{ID: "t-1", Status: models.StatusInProgress})
	svc := NewApprovalService(repo, nil, nil, zap.NewNop())

	comment := "missing signed contract"
	updated, err := svc.Decide(context.Background(), managerSession(), DecisionRequest{
		TaskIDs:  []string{"t-1"},
		Approve:  false,
		Comments: &comment,
	})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, models.StatusRejected, updated[0].Status)
	require.Len(t, repo.decided, 1)
	assert.Equal(t, models.EventRejected, repo.decided[0][0].Event.Type)
}

func TestApprovalDecideApprovesPendingTask(t *testing.T) {
	repo := newMockOnboardingRepo(&models.OnboardingTask{ID: "t-1", Status: models.StatusPending})
	svc := NewApprovalService(repo, nil, nil, zap.NewNop())

	updated, err := svc.Decide(context.Background(), managerSession(), DecisionRequest{
		TaskIDs: []string{"t-1"},
		Approve: true,
	})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, models.StatusApproved, updated[0].Status)
}

func TestApprovalDecideRejectsCompletedTask(t *testing.T) {
	repo := newMockOnboardingRepo(&models.OnboardingTask{ID: "t-1", Status: models.StatusCompleted})
	svc := NewApprovalService(repo, nil, nil, zap.NewNop())

	comment := "background check pending"
	updated, err := svc.Decide(context.Background(), managerSession(), DecisionRequest{
		TaskIDs:  []string{"t-1"},
		Approve:  false,
		Comments: &comment,
	})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, models.StatusRejected, updated[0].Status)
}

func TestApprovalDecideRejectsAlreadyDecidedTask(t *testing.T) {
	repo := newMockOnboardingRepo(&models.OnboardingTask{ID: "t-1", Status: models.StatusApproved})
	svc := NewApprovalService(repo, nil, nil, zap.NewNop())

	_, err := svc.Decide(context.Background(), managerSession(), DecisionRequest{
		TaskIDs: []string{"t-1"},
		Approve: true,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.decided)
}

func TestApprovalDecideUnknownTask(t *testing.T) {
	svc := NewApprovalService(newMockOnboardingRepo(), nil, nil, zap.NewNop())

	_, err := svc.Decide(context.Background(), managerSession(), DecisionRequest{
		TaskIDs: []string{"ghost"},
		Approve: true,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestApprovalDecideEmptySelection(t *testing.T) {
	svc := NewApprovalService(newMockOnboardingRepo(), nil, nil, zap.NewNop())

	_, err := svc.Decide(context.Background(), managerSession(), DecisionRequest{Approve: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
