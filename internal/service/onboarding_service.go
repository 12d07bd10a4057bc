package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/talent-pipeline-api/internal/models"
	"github.com/noah-isme/talent-pipeline-api/internal/repository"
	appErrors "github.com/noah-isme/talent-pipeline-api/pkg/errors"
)

type onboardingRepository interface {
	Create(ctx context.Context, task *models.OnboardingTask, created models.TimelineEvent) error
	GetByID(ctx context.Context, id string) (*models.OnboardingTask, error)
	List(ctx context.Context, filter models.OnboardingFilter) ([]models.OnboardingTask, error)
	UpdateProgress(ctx context.Context, id string, step int, status models.TaskStatus, completedAt *time.Time, baseVersion int) error
	DecideBatch(ctx context.Context, decisions []repository.Decision) error
	AppendTimelineEvent(ctx context.Context, event *models.TimelineEvent) error
	LinkDocument(ctx context.Context, taskID, documentID string) error
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// CreateOnboardingRequest is the payload for starting an onboarding.
type CreateOnboardingRequest struct {
	EmployeeName  string    `json:"employee_name" validate:"required"`
	EmployeeEmail string    `json:"employee_email" validate:"required,email"`
	Department    string    `json:"department" validate:"required"`
	Position      string    `json:"position" validate:"required"`
	StartDate     time.Time `json:"start_date" validate:"required"`
}

// AdvanceStepRequest moves a task to the given wizard step. Version is the
// task version the caller last saw; a mismatch means someone else wrote
// first and the request is rejected.
type AdvanceStepRequest struct {
	Step    int `json:"step" validate:"required,min=1,max=5"`
	Version int `json:"version" validate:"required,min=1"`
}

// OnboardingService provides onboarding lifecycle use cases.
type OnboardingService struct {
	repo      onboardingRepository
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOnboardingService constructs an OnboardingService instance.
func NewOnboardingService(repo onboardingRepository, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *OnboardingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &OnboardingService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// Create starts a new onboarding. Every task begins at step one in pending
// status, with a creation event already on its timeline.
func (s *OnboardingService) Create(ctx context.Context, session *Session, req CreateOnboardingRequest) (*models.OnboardingTask, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid onboarding payload")
	}

	task := &models.OnboardingTask{
		EmployeeName:  req.EmployeeName,
		EmployeeEmail: req.EmployeeEmail,
		Department:    req.Department,
		Position:      req.Position,
		StartDate:     req.StartDate,
		Status:        models.StatusPending,
		CurrentStep:   1,
		TotalSteps:    models.TotalSteps,
		CreatedBy:     session.UserID,
	}

	created := models.TimelineEvent{
		Type:        models.EventCreated,
		Description: fmt.Sprintf("Onboarding created for %s", req.EmployeeName),
		UserID:      session.UserID,
		UserName:    session.DisplayName,
	}

	if err := s.repo.Create(ctx, task, created); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create onboarding")
	}

	s.invalidateDerived(ctx)
	return task, nil
}

// Get returns one task with its approvals, timeline and document links.
func (s *OnboardingService) Get(ctx context.Context, id string) (*models.OnboardingTask, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "onboarding not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load onboarding")
	}
	return task, nil
}

// List returns the filtered set, newest first.
func (s *OnboardingService) List(ctx context.Context, filter models.OnboardingFilter) ([]models.OnboardingTask, error) {
	tasks, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list onboardings")
	}
	return tasks, nil
}

// AdvanceStep moves a task forward through the wizard. Reaching the last
// step completes the task. The write is guarded by the caller's version.
func (s *OnboardingService) AdvanceStep(ctx context.Context, session *Session, id string, req AdvanceStepRequest) (*models.OnboardingTask, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid step payload")
	}

	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if models.IsTerminal(task.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "onboarding already finished")
	}
	if req.Step < task.CurrentStep {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot move to an earlier step")
	}
	if task.Version != req.Version {
		return nil, appErrors.Clone(appErrors.ErrStaleVersion, "onboarding was modified, reload and retry")
	}

	status := task.Status
	var completedAt *time.Time
	eventType := models.EventUpdated
	description := fmt.Sprintf("Moved to step %d of %d", req.Step, task.TotalSteps)

	switch {
	case req.Step >= task.TotalSteps:
		status = models.StatusCompleted
		now := time.Now().UTC()
		completedAt = &now
		eventType = models.EventCompleted
		description = "All onboarding steps completed"
	case status == models.StatusPending:
		status = models.StatusInProgress
	}

	if status != task.Status && !models.CanTransition(task.Status, status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move from %s to %s", task.Status, status))
	}

	if err := s.repo.UpdateProgress(ctx, id, req.Step, status, completedAt, req.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStaleVersion, "onboarding was modified, reload and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update onboarding")
	}

	event := &models.TimelineEvent{
		TaskID:      id,
		Type:        eventType,
		Description: description,
		UserID:      session.UserID,
		UserName:    session.DisplayName,
	}
	if err := s.repo.AppendTimelineEvent(ctx, event); err != nil {
		s.logger.Warn("failed to append step timeline event", zap.String("task_id", id), zap.Error(err))
	}

	s.invalidateDerived(ctx)
	return s.Get(ctx, id)
}

// LinkDocument attaches an uploaded document to a task and records it on
// the timeline.
func (s *OnboardingService) LinkDocument(ctx context.Context, session *Session, taskID, documentID, documentName string) error {
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return err
	}

	if err := s.repo.LinkDocument(ctx, task.ID, documentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link document")
	}

	event := &models.TimelineEvent{
		TaskID:      task.ID,
		Type:        models.EventDocumentUploaded,
		Description: fmt.Sprintf("Document %s uploaded", documentName),
		UserID:      session.UserID,
		UserName:    session.DisplayName,
	}
	if err := s.repo.AppendTimelineEvent(ctx, event); err != nil {
		s.logger.Warn("failed to append document timeline event", zap.String("task_id", taskID), zap.Error(err))
	}
	return nil
}

func (s *OnboardingService) invalidateDerived(ctx context.Context) {
	if s.cache == nil {
		return
	}
	for _, pattern := range []string{"analytics:*", "dashboard:*"} {
		if err := s.cache.Invalidate(ctx, pattern); err != nil {
			s.logger.Warn("failed to invalidate cached analytics", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}
