// Package scoring computes the five weighted sub-scores and the composite
// performance score for an employee from an in-memory snapshot.
package scoring

import (
	"context"
	"math"
	"time"

	"github.com/okian/scorecard/internal/domain/aggregate"
	"github.com/okian/scorecard/internal/domain/cohort"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/timeutil"
)

// Productivity band scores per task, chosen by how much of the scheduled
// window was left (early/on-time) or exceeded (late) at completion.
const (
	bandEarly      = 100 // half or more of the window left
	bandJustInTime = 70  // under a tenth of the window left
	bandCutClose   = 60  // between a tenth and half left
	bandSlightLate = 50  // overdue by up to a tenth of the window
	bandLate       = 30  // overdue by up to half the window
	bandVeryLate   = 10  // anything worse

	leftRatioEarly   = 0.5
	leftRatioNarrow  = 0.1
	overdueRatioLow  = 0.1
	overdueRatioHigh = 0.5

	maxScore = 100
)

// Weights are the sub-score multipliers for the composite. They are kept
// configurable the same way skill weights were in earlier scoring services,
// but the shipped defaults are the contract.
type Weights struct {
	Productivity float64 `koanf:"productivity"`
	Completion   float64 `koanf:"completion"`
	OnTime       float64 `koanf:"on_time"`
	Review       float64 `koanf:"review"`
	HRFeedback   float64 `koanf:"hr_feedback"`
}

// DefaultWeights returns the standard composite weights.
func DefaultWeights() Weights {
	return Weights{
		Productivity: 0.20,
		Completion:   0.25,
		OnTime:       0.25,
		Review:       0.20,
		HRFeedback:   0.10,
	}
}

// valid rejects weight sets that could push the composite out of range.
func (w Weights) valid() bool {
	for _, v := range []float64{w.Productivity, w.Completion, w.OnTime, w.Review, w.HRFeedback} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// HRReader looks up the most recent HR feedback score for an employee.
// The bool is false when the employee has no feedback entries.
type HRReader interface {
	LatestHRFeedback(ctx context.Context, employeeID string) (model.HRFeedback, bool, error)
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithWeights overrides the composite weights. Invalid sets are ignored.
func WithWeights(w Weights) Option {
	return func(e *Engine) {
		if w.valid() {
			e.weights = w
		}
	}
}

// WithClock injects the time source used for the missing-completion-time
// fallback. Tests pin it; production uses time.Now.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// Engine derives performance reports from snapshots. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	weights Weights
	clock   func() time.Time
}

// New creates an Engine with default weights.
func New(opts ...Option) *Engine {
	e := &Engine{
		weights: DefaultWeights(),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Weights returns the engine's composite weights.
func (e *Engine) Weights() Weights {
	return e.weights
}

// ComputeOnce derives a report from a snapshot and an already-resolved HR
// feedback score. It is pure and synchronous: identical inputs yield
// identical output, which makes it the path for batch ranking where the HR
// scores were fetched up front.
func (e *Engine) ComputeOnce(employeeID string, snap model.Snapshot, hrScore float64) model.PerformanceReport {
	now := e.clock()
	tasks := snap.TasksFor(employeeID)
	agg := aggregate.Aggregate(tasks, now)

	report := model.PerformanceReport{
		EmployeeID:        employeeID,
		Totals:            agg.Totals,
		ByDate:            agg.ByDate,
		ByMonth:           agg.ByMonth,
		ProductivityScore: productivityScore(tasks),
		ReviewScore:       reviewScore(tasks),
		HRFeedbackScore:   hrScore,
		Workload:          cohort.Compare(employeeID, snap.Teams, snap.Tasks),
	}

	if agg.Totals.Total > 0 {
		report.CompletionRate = float64(agg.Totals.Completed) / float64(agg.Totals.Total) * maxScore
	}
	if agg.Totals.Completed > 0 {
		report.OnTimeRate = float64(agg.Totals.OnTime) / float64(agg.Totals.Completed) * maxScore
	}

	total := report.ProductivityScore*e.weights.Productivity +
		report.CompletionRate*e.weights.Completion +
		report.OnTimeRate*e.weights.OnTime +
		report.ReviewScore*e.weights.Review +
		report.HRFeedbackScore*e.weights.HRFeedback
	report.TotalPerformanceScore = math.Max(0, round2(total))

	return report
}

// Compute derives a report, resolving the HR feedback score through reader.
// A failed or empty lookup contributes zero and is never propagated: HR
// feedback must not take down reporting.
func (e *Engine) Compute(ctx context.Context, employeeID string, snap model.Snapshot, reader HRReader) (model.PerformanceReport, error) {
	var hrScore float64
	if reader != nil {
		if fb, ok, err := reader.LatestHRFeedback(ctx, employeeID); err == nil && ok {
			hrScore = fb.Score
		}
	}
	if err := ctx.Err(); err != nil {
		return model.PerformanceReport{}, err
	}
	return e.ComputeOnce(employeeID, snap, hrScore), nil
}

// productivityScore averages the per-task band scores. A task only
// qualifies when it is completed and all three instants resolve; a window
// of zero or negative length would divide to garbage, so those tasks are
// excluded too.
func productivityScore(tasks []model.Task) float64 {
	var sum float64
	var counted int

	for i := range tasks {
		task := &tasks[i]
		if task.ProgressStatus != model.ProgressCompleted {
			continue
		}
		created, ok := timeutil.Resolve(task.CreatedAt)
		if !ok {
			continue
		}
		due, ok := timeutil.Resolve(task.DueDate)
		if !ok {
			continue
		}
		completed, ok := timeutil.Resolve(task.ProgressUpdatedAt)
		if !ok {
			// Unlike bucketing, productivity has no now-fallback: a task
			// without a recorded completion instant is excluded.
			continue
		}
		window := due.Sub(created)
		if window <= 0 {
			continue
		}

		sum += float64(taskBand(created, due, completed, window))
		counted++
	}

	if counted == 0 {
		return 0
	}
	return sum / float64(counted)
}

func taskBand(created, due, completed time.Time, window time.Duration) int {
	if !completed.After(due) {
		leftRatio := float64(due.Sub(completed)) / float64(window)
		switch {
		case leftRatio >= leftRatioEarly:
			return bandEarly
		case leftRatio < leftRatioNarrow:
			return bandJustInTime
		default:
			return bandCutClose
		}
	}
	overdueRatio := float64(completed.Sub(due)) / float64(window)
	switch {
	case overdueRatio <= overdueRatioLow:
		return bandSlightLate
	case overdueRatio <= overdueRatioHigh:
		return bandLate
	default:
		return bandVeryLate
	}
}

// reviewScore is the arithmetic mean of the review points present on the
// employee's tasks, completed or not.
func reviewScore(tasks []model.Task) float64 {
	var sum float64
	var counted int
	for i := range tasks {
		if p := tasks[i].ReviewPoints; p != nil {
			sum += *p
			counted++
		}
	}
	if counted == 0 {
		return 0
	}
	return sum / float64(counted)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
