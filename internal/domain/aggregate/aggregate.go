// Package aggregate folds one employee's tasks into per-date and per-month
// buckets plus the running totals consumed by the scoring engine.
package aggregate

import (
	"time"

	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/timeutil"
)

// Result is the output of one aggregation pass. Bucket maps are keyed by
// calendar date ("2006-01-02") and month ("2006-01") of the resolved
// completion instant.
type Result struct {
	Totals  model.Totals
	ByDate  map[string]*model.Bucket
	ByMonth map[string]*model.Bucket
}

// Aggregate buckets the given tasks by completion period and accumulates
// totals. It is a pure function of its inputs: now is injected so callers
// and tests control the fallback completion instant.
//
// A task without a recorded ProgressUpdatedAt is bucketed under now. That
// silently files old completions under the processing date; the behavior is
// kept because historical reports were produced with it.
func Aggregate(tasks []model.Task, now time.Time) Result {
	res := Result{
		ByDate:  make(map[string]*model.Bucket),
		ByMonth: make(map[string]*model.Bucket),
	}

	for i := range tasks {
		task := &tasks[i]
		res.Totals.Total++

		completedAt, hasCompletedAt := timeutil.Resolve(task.ProgressUpdatedAt)
		if !hasCompletedAt {
			completedAt = now
		}

		dateBucket := bucketFor(res.ByDate, timeutil.DateKey(completedAt))
		monthBucket := bucketFor(res.ByMonth, timeutil.MonthKey(completedAt))

		if task.ProgressStatus == model.ProgressCompleted {
			res.Totals.Completed++
			dateBucket.Completed++
			monthBucket.Completed++
			dateBucket.CompletedIDs = append(dateBucket.CompletedIDs, task.ID)
			monthBucket.CompletedIDs = append(monthBucket.CompletedIDs, task.ID)

			// On-time is instant to instant, no end-of-day grace: a task
			// finished later the same day but after the due instant is late
			// here even though the overdue classifier would not flag it.
			if due, ok := timeutil.Resolve(task.DueDate); ok && !completedAt.After(due) {
				res.Totals.OnTime++
			}
		}

		if n := task.ReassignCount(); n > 0 {
			res.Totals.Reassigned += n
			dateBucket.Reassigned += n
			monthBucket.Reassigned += n
			dateBucket.ReassignedIDs = append(dateBucket.ReassignedIDs, task.ID)
			monthBucket.ReassignedIDs = append(monthBucket.ReassignedIDs, task.ID)
		}
	}

	return res
}

func bucketFor(buckets map[string]*model.Bucket, key string) *model.Bucket {
	b, ok := buckets[key]
	if !ok {
		b = &model.Bucket{}
		buckets[key] = b
	}
	return b
}
