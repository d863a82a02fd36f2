// Package model contains the document records and derived report types
// passed between layers.
package model

import "github.com/okian/scorecard/internal/domain/timeutil"

// Task lifecycle states for the Status field.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusReview     = "review"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// ProgressCompleted marks a task as done for scoring purposes.
// Status and ProgressStatus are set by different workflows and may disagree:
// the overdue classifier reads Status, scoring and aggregation read
// ProgressStatus. Both are kept as-is.
const ProgressCompleted = "completed"

// Task is one unit of assigned work as stored in the document database.
type Task struct {
	ID         string
	Title      string
	AssignedTo string // employee id
	CreatedBy  string // employee id

	DueDate           timeutil.Value // scheduling deadline
	CreatedAt         timeutil.Value // server-assigned at creation
	ProgressUpdatedAt timeutil.Value // set when progress last changed

	Status         string
	ProgressStatus string

	// ReviewPoints is 0-100 when a review was entered, nil otherwise.
	ReviewPoints *float64

	// ReassignHistory holds the ids of past assignees in order. Only its
	// length feeds scoring; the full list stays available for drill-down.
	ReassignHistory []string
}

// ReassignCount returns the number of recorded reassignment events.
func (t *Task) ReassignCount() int {
	return len(t.ReassignHistory)
}

// Employee is a worker record. Read-only to this service; derived metrics
// live on PerformanceReport, never here.
type Employee struct {
	ID         string
	Name       string
	Email      string
	Department string
	Role       string
}

// Team is a named group used only to compute peer cohorts.
type Team struct {
	ID        string
	Name      string
	CreatedBy string   // team lead employee id
	Members   []string // employee ids, no duplicates
}

// HRFeedback is one scored feedback entry. The document id encodes identity
// as "{employeeId}_{yyyy-mm-dd}"; only the most recent entry per employee is
// ever consumed.
type HRFeedback struct {
	ID         string
	EmployeeID string
	Score      float64 // 0-100
}

// Snapshot is the complete current state of the watched collections as
// pushed by the document store. Aggregation and scoring are pure functions
// of a Snapshot.
type Snapshot struct {
	Tasks     []Task
	Employees []Employee
	Teams     []Team
}

// TasksFor returns the tasks assigned to one employee.
func (s *Snapshot) TasksFor(employeeID string) []Task {
	var out []Task
	for i := range s.Tasks {
		if s.Tasks[i].AssignedTo == employeeID {
			out = append(out, s.Tasks[i])
		}
	}
	return out
}
