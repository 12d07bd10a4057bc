package models

import "time"

// TaskStatus is the lifecycle state of an onboarding task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusApproved   TaskStatus = "approved"
	StatusRejected   TaskStatus = "rejected"
)

// TotalSteps is the fixed number of wizard steps for every onboarding.
const TotalSteps = 5

// allowedTransitions encodes the forward-only status graph. A last-step
// request may complete a task straight from pending, and an approver may
// sign off any task still in the queue. Rejection is handled separately.
var allowedTransitions = map[TaskStatus][]TaskStatus{
	StatusPending:    {StatusInProgress, StatusCompleted, StatusApproved},
	StatusInProgress: {StatusCompleted, StatusApproved},
	StatusCompleted:  {StatusApproved},
}

// terminalSuccess maps each status to whether it counts as "done".
// Completed and approved are distinct terminal states; this table is the
// single place that treats them uniformly (analytics consumes it).
var terminalSuccess = map[TaskStatus]bool{
	StatusCompleted: true,
	StatusApproved:  true,
}

// CanTransition reports whether moving from one status to another is allowed.
// Rejection is reachable from any state that has not been decided yet; a
// completed task can still be rejected by its approver.
func CanTransition(from, to TaskStatus) bool {
	if to == StatusRejected {
		return from != StatusApproved && from != StatusRejected
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends the lifecycle.
func IsTerminal(s TaskStatus) bool {
	return s == StatusCompleted || s == StatusApproved || s == StatusRejected
}

// IsDone reports whether the status counts as a successful completion.
func IsDone(s TaskStatus) bool {
	return terminalSuccess[s]
}

// TimelineEventType categorises audit entries on an onboarding task.
type TimelineEventType string

const (
	EventCreated          TimelineEventType = "created"
	EventUpdated          TimelineEventType = "updated"
	EventDocumentUploaded TimelineEventType = "document_uploaded"
	EventApproved         TimelineEventType = "approved"
	EventRejected         TimelineEventType = "rejected"
	EventCompleted        TimelineEventType = "completed"
)

// OnboardingTask tracks one employee through the onboarding process.
// Version increments on every write; stale-version updates are rejected.
type OnboardingTask struct {
	ID            string     `db:"id" json:"id"`
	EmployeeName  string     `db:"employee_name" json:"employee_name"`
	EmployeeEmail string     `db:"employee_email" json:"employee_email"`
	Department    string     `db:"department" json:"department"`
	Position      string     `db:"position" json:"position"`
	StartDate     time.Time  `db:"start_date" json:"start_date"`
	Status        TaskStatus `db:"status" json:"status"`
	CurrentStep   int        `db:"current_step" json:"current_step"`
	TotalSteps    int        `db:"total_steps" json:"total_steps"`
	Version       int        `db:"version" json:"version"`
	CreatedBy     string     `db:"created_by" json:"created_by"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
	CompletedAt   *time.Time `db:"completed_at" json:"completed_at,omitempty"`

	DocumentIDs []string        `db:"-" json:"document_ids"`
	Approvals   []Approval      `db:"-" json:"approvals"`
	Timeline    []TimelineEvent `db:"-" json:"timeline"`
}

// Approval is one approver's recorded decision on an onboarding task.
// Rows are append-only; an approver acting again appends a new row.
type Approval struct {
	ID           string     `db:"id" json:"id"`
	TaskID       string     `db:"task_id" json:"-"`
	ApproverID   string     `db:"approver_id" json:"approver_id"`
	ApproverName string     `db:"approver_name" json:"approver_name"`
	ApproverRole UserRole   `db:"approver_role" json:"approver_role"`
	Status       TaskStatus `db:"status" json:"status"`
	Comments     *string    `db:"comments" json:"comments,omitempty"`
	Timestamp    time.Time  `db:"created_at" json:"timestamp"`
}

// TimelineEvent is an append-only audit entry on an onboarding task.
type TimelineEvent struct {
	ID          string            `db:"id" json:"id"`
	TaskID      string            `db:"task_id" json:"-"`
	Type        TimelineEventType `db:"type" json:"type"`
	Description string            `db:"description" json:"description"`
	UserID      string            `db:"user_id" json:"user_id"`
	UserName    string            `db:"user_name" json:"user_name"`
	Timestamp   time.Time         `db:"created_at" json:"timestamp"`
}

// OnboardingFilter captures list filters. The whole filtered set is always
// returned ordered by creation time descending; there is no pagination.
type OnboardingFilter struct {
	Status       *TaskStatus
	Department   string
	CreatedSince *time.Time
	CreatedUntil *time.Time
}
