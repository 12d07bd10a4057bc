package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/talent-pipeline-api/internal/models"
)

// OnboardingRepository provides database access for onboarding tasks and
// their embedded approval and timeline records.
type OnboardingRepository struct {
	db *sqlx.DB
}

// NewOnboardingRepository creates a new instance of OnboardingRepository.
func NewOnboardingRepository(db *sqlx.DB) *OnboardingRepository {
	return &OnboardingRepository{db: db}
}

const taskColumns = `id, employee_name, employee_email, department, position, start_date, status, current_step, total_steps, version, created_by, created_at, updated_at, completed_at`

// Create inserts a task together with its initial timeline event as one
// transaction, so a task can never exist without its "created" entry.
func (r *OnboardingRepository) Create(ctx context.Context, task *models.OnboardingTask, created models.TimelineEvent) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	task.Version = 1

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create onboarding: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertTask = `INSERT INTO onboardings (id, employee_name, employee_email, department, position, start_date, status, current_step, total_steps, version, created_by, created_at, updated_at, completed_at) VALUES (:id, :employee_name, :employee_email, :department, :position, :start_date, :status, :current_step, :total_steps, :version, :created_by, :created_at, :updated_at, :completed_at)`
	if _, err := tx.NamedExecContext(ctx, insertTask, task); err != nil {
		return fmt.Errorf("create onboarding: %w", err)
	}

	created.TaskID = task.ID
	if err := insertTimelineEvent(ctx, tx, &created); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create onboarding: %w", err)
	}
	task.Timeline = append(task.Timeline, created)
	return nil
}

// GetByID returns a task with its approvals, timeline and document links.
func (r *OnboardingRepository) GetByID(ctx context.Context, id string) (*models.OnboardingTask, error) {
	query := fmt.Sprintf(`SELECT %s FROM onboardings WHERE id = $1 LIMIT 1`, taskColumns)
	var task models.OnboardingTask
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find onboarding by id: %w", err)
	}
	if err := r.hydrate(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// List returns the whole filtered set ordered by creation time descending.
func (r *OnboardingRepository) List(ctx context.Context, filter models.OnboardingFilter) ([]models.OnboardingTask, error) {
	baseQuery := `FROM onboardings WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.CreatedSince != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)+1))
		args = append(args, *filter.CreatedSince)
	}
	if filter.CreatedUntil != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)+1))
		args = append(args, *filter.CreatedUntil)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC", taskColumns, baseQuery)
	var tasks []models.OnboardingTask
	if err := r.db.SelectContext(ctx, &tasks, listQuery, args...); err != nil {
		return nil, fmt.Errorf("list onboardings: %w", err)
	}
	for i := range tasks {
		if err := r.hydrate(ctx, &tasks[i]); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

// UpdateProgress advances the step counter and status for a task. The write
// only lands when the caller's base version matches the stored one; a
// mismatch returns sql.ErrNoRows so the service can surface a conflict.
func (r *OnboardingRepository) UpdateProgress(ctx context.Context, id string, step int, status models.TaskStatus, completedAt *time.Time, baseVersion int) error {
	const query = `UPDATE onboardings SET current_step = $2, status = $3, completed_at = $4, version = version + 1, updated_at = $5 WHERE id = $1 AND version = $6`
	res, err := r.db.ExecContext(ctx, query, id, step, status, completedAt, time.Now().UTC(), baseVersion)
	if err != nil {
		return fmt.Errorf("update onboarding progress: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update onboarding progress: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Decision captures one task's pending approval write within a batch.
type Decision struct {
	TaskID   string
	Approval models.Approval
	Event    models.TimelineEvent
	Status   models.TaskStatus
}

// DecideBatch appends one approval and timeline event per task and updates
// each task's status, all inside a single transaction. Either every selected
// task is updated or none is.
func (r *OnboardingRepository) DecideBatch(ctx context.Context, decisions []Decision) error {
	if len(decisions) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin decide batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for _, d := range decisions {
		approval := d.Approval
		approval.TaskID = d.TaskID
		if approval.ID == "" {
			approval.ID = uuid.NewString()
		}
		if approval.Timestamp.IsZero() {
			approval.Timestamp = now
		}
		const insertApproval = `INSERT INTO approvals (id, task_id, approver_id, approver_name, approver_role, status, comments, created_at) VALUES (:id, :task_id, :approver_id, :approver_name, :approver_role, :status, :comments, :created_at)`
		if _, err := tx.NamedExecContext(ctx, insertApproval, approval); err != nil {
			return fmt.Errorf("append approval for %s: %w", d.TaskID, err)
		}

		event := d.Event
		event.TaskID = d.TaskID
		if err := insertTimelineEvent(ctx, tx, &event); err != nil {
			return err
		}

		var completedAt interface{}
		if models.IsDone(d.Status) {
			completedAt = now
		}
		const updateStatus = `UPDATE onboardings SET status = $2, completed_at = COALESCE(completed_at, $3), version = version + 1, updated_at = $4 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, updateStatus, d.TaskID, d.Status, completedAt, now); err != nil {
			return fmt.Errorf("update status for %s: %w", d.TaskID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit decide batch: %w", err)
	}
	return nil
}

// AppendTimelineEvent adds one audit entry to a task's timeline.
func (r *OnboardingRepository) AppendTimelineEvent(ctx context.Context, event *models.TimelineEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append timeline: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	if err := insertTimelineEvent(ctx, tx, event); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append timeline: %w", err)
	}
	return nil
}

// LinkDocument records a document reference on a task. The relation is weak:
// deleting a document does not touch this list.
func (r *OnboardingRepository) LinkDocument(ctx context.Context, taskID, documentID string) error {
	const query = `INSERT INTO task_documents (task_id, document_id, linked_at) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, taskID, documentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("link document: %w", err)
	}
	return nil
}

func (r *OnboardingRepository) hydrate(ctx context.Context, task *models.OnboardingTask) error {
	const approvalsQuery = `SELECT id, task_id, approver_id, approver_name, approver_role, status, comments, created_at FROM approvals WHERE task_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &task.Approvals, approvalsQuery, task.ID); err != nil {
		return fmt.Errorf("load approvals: %w", err)
	}

	const timelineQuery = `SELECT id, task_id, type, description, user_id, user_name, created_at FROM timeline_events WHERE task_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &task.Timeline, timelineQuery, task.ID); err != nil {
		return fmt.Errorf("load timeline: %w", err)
	}

	const docsQuery = `SELECT document_id FROM task_documents WHERE task_id = $1 ORDER BY linked_at ASC`
	if err := r.db.SelectContext(ctx, &task.DocumentIDs, docsQuery, task.ID); err != nil {
		return fmt.Errorf("load document links: %w", err)
	}
	return nil
}

func insertTimelineEvent(ctx context.Context, tx *sqlx.Tx, event *models.TimelineEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO timeline_events (id, task_id, type, description, user_id, user_name, created_at) VALUES (:id, :task_id, :type, :description, :user_id, :user_name, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("append timeline event: %w", err)
	}
	return nil
}
