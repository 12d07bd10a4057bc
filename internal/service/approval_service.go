package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/talent-pipeline-api/internal/models"
	"github.com/noah-isme/talent-pipeline-api/internal/repository"
	appErrors "github.com/noah-isme/talent-pipeline-api/pkg/errors"
)

// DecisionRequest records an approver's verdict on one or more tasks. A
// rejection must carry a comment; the requirement is enforced here, not in
// any client.
type DecisionRequest struct {
	TaskIDs  []string `json:"task_ids" validate:"required,min=1,dive,required"`
	Approve  bool     `json:"approve"`
	Comments *string  `json:"comments"`
}

// ApprovalService provides the approval queue and decision use cases.
type ApprovalService struct {
	repo      onboardingRepository
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewApprovalService constructs an ApprovalService instance.
func NewApprovalService(repo onboardingRepository, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ApprovalService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// Queue returns tasks still awaiting a decision, newest first.
func (s *ApprovalService) Queue(ctx context.Context) ([]models.OnboardingTask, error) {
	tasks, err := s.repo.List(ctx, models.OnboardingFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approval queue")
	}

	// Completed tasks stay in the queue until an approver signs off;
	// only approved and rejected leave it.
	queue := make([]models.OnboardingTask, 0, len(tasks))
	for _, task := range tasks {
		if !models.IsTerminal(task.Status) || task.Status == models.StatusCompleted {
			queue = append(queue, task)
		}
	}
	return queue, nil
}

// Decide applies one verdict to every selected task. All writes happen in a
// single transaction: a failure on any task rolls back the whole batch.
func (s *ApprovalService) Decide(ctx context.Context, session *Session, req DecisionRequest) ([]models.OnboardingTask, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}
	if !req.Approve && (req.Comments == nil || strings.TrimSpace(*req.Comments) == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a rejection requires a comment")
	}

	status := models.StatusApproved
	eventType := models.EventApproved
	verb := "approved"
	if !req.Approve {
		status = models.StatusRejected
		eventType = models.EventRejected
		verb = "rejected"
	}

	decisions := make([]repository.Decision, 0, len(req.TaskIDs))
	for _, taskID := range req.TaskIDs {
		task, err := s.repo.GetByID(ctx, taskID)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("onboarding %s not found", taskID))
		}
		if !models.CanTransition(task.Status, status) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("onboarding %s is already decided", taskID))
		}

		decisions = append(decisions, repository.Decision{
			TaskID: task.ID,
			Approval: models.Approval{
				ApproverID:   session.UserID,
				ApproverName: session.DisplayName,
				ApproverRole: session.Role,
				Status:       status,
				Comments:     req.Comments,
			},
			Event: models.TimelineEvent{
				Type:        eventType,
				Description: fmt.Sprintf("Onboarding %s by %s", verb, session.DisplayName),
				UserID:      session.UserID,
				UserName:    session.DisplayName,
			},
			Status: status,
		})
	}

	if err := s.repo.DecideBatch(ctx, decisions); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply decisions")
	}

	s.invalidateDerived(ctx)

	updated := make([]models.OnboardingTask, 0, len(req.TaskIDs))
	for _, taskID := range req.TaskIDs {
		task, err := s.repo.GetByID(ctx, taskID)
		if err != nil {
			s.logger.Warn("failed to reload decided onboarding", zap.String("task_id", taskID), zap.Error(err))
			continue
		}
		updated = append(updated, *task)
	}
	return updated, nil
}

func (s *ApprovalService) invalidateDerived(ctx context.Context) {
	if s.cache == nil {
		return
	}
	for _, pattern := range []string{"analytics:*", "dashboard:*"} {
		if err := s.cache.Invalidate(ctx, pattern); err != nil {
			s.logger.Warn("failed to invalidate cached analytics", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}
