// Package overdue classifies tasks that have run past their due date.
package overdue

import (
	"time"

	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/timeutil"
)

// IsOverdue reports whether a task is past due at the given evaluation time.
//
// A task due today is not overdue until the day fully elapses: the due
// instant is extended to the end of its calendar day before comparing. This
// grace period differs on purpose from the scoring engine's
// instant-to-instant on-time check.
//
// Reads Status, not ProgressStatus, for the lifecycle check; a task whose
// ProgressStatus is completed is also never overdue. Unparseable due dates
// classify as not overdue. Never panics.
func IsOverdue(task *model.Task, now time.Time) bool {
	if task == nil {
		return false
	}
	if task.Status == model.StatusCompleted || task.Status == model.StatusCancelled {
		return false
	}
	if task.ProgressStatus == model.ProgressCompleted {
		return false
	}
	due, ok := timeutil.Resolve(task.DueDate)
	if !ok {
		return false
	}
	// The deadline is the end of the due date's calendar day: a task due
	// at any time today stays on time until 23:59:59.999 tonight.
	return timeutil.EndOfDay(due).Before(now)
}
