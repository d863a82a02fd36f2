package docstore

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/timeutil"
	"github.com/okian/scorecard/pkg/logger"
)

// Demo data shape constants.
const (
	demoEmployeeCount  = 12
	demoTeamSize       = 4
	demoTasksPerPerson = 6
	demoRandomSeed     = 7

	demoDueWindowHours    = 72
	demoMaxFeedbackScore  = 100
	demoReviewPointsFloor = 40
	demoReviewPointsSpan  = 60
)

var demoDepartments = []string{"engineering", "design", "support"}
var demoRoles = []string{"developer", "lead", "analyst"}

// SeedDemo fills a store with a small organization: employees grouped into
// teams, tasks in assorted lifecycle states, and a little HR feedback
// history. Deterministic for a given seed so demo runs are reproducible.
func SeedDemo(store *InMemoryStore, now time.Time) {
	rng := rand.New(rand.NewSource(demoRandomSeed)) //nolint:gosec // demo data, not crypto

	employees := make([]model.Employee, demoEmployeeCount)
	for i := range employees {
		employees[i] = model.Employee{
			ID:         uuid.New().String(),
			Name:       fmt.Sprintf("Demo Employee %02d", i+1),
			Email:      fmt.Sprintf("employee%02d@example.com", i+1),
			Department: demoDepartments[i%len(demoDepartments)],
			Role:       demoRoles[i%len(demoRoles)],
		}
		store.PutEmployee(employees[i])
	}

	for start := 0; start < len(employees); start += demoTeamSize {
		end := start + demoTeamSize
		if end > len(employees) {
			end = len(employees)
		}
		team := model.Team{
			ID:        uuid.New().String(),
			Name:      fmt.Sprintf("team-%d", start/demoTeamSize+1),
			CreatedBy: employees[start].ID,
		}
		for _, e := range employees[start:end] {
			team.Members = append(team.Members, e.ID)
		}
		store.PutTeam(team)
	}

	for _, e := range employees {
		for i := 0; i < demoTasksPerPerson; i++ {
			store.PutTask(demoTask(rng, e.ID, now))
		}
		day := now.AddDate(0, 0, -rng.Intn(30))
		store.PutHRFeedback(model.HRFeedback{
			ID:         fmt.Sprintf("%s_%s", e.ID, day.Format("2006-01-02")),
			EmployeeID: e.ID,
			Score:      float64(rng.Intn(demoMaxFeedbackScore + 1)),
		})
	}
}

func demoTask(rng *rand.Rand, assignee string, now time.Time) model.Task {
	created := now.Add(-time.Duration(rng.Intn(demoDueWindowHours*2)) * time.Hour)
	due := created.Add(time.Duration(rng.Intn(demoDueWindowHours)+1) * time.Hour)

	task := model.Task{
		ID:         uuid.New().String(),
		Title:      fmt.Sprintf("demo task %s", uuid.New().String()[:8]),
		AssignedTo: assignee,
		CreatedBy:  assignee,
		CreatedAt:  timeutil.EpochSeconds{Seconds: created.Unix()},
		DueDate:    due.Format(time.RFC3339),
		Status:     model.StatusPending,
	}

	switch rng.Intn(4) {
	case 0: // finished, somewhere inside or past the window
		completed := created.Add(time.Duration(rng.Intn(demoDueWindowHours+24)) * time.Hour)
		task.Status = model.StatusCompleted
		task.ProgressStatus = model.ProgressCompleted
		task.ProgressUpdatedAt = timeutil.EpochSeconds{Seconds: completed.Unix()}
		points := float64(demoReviewPointsFloor + rng.Intn(demoReviewPointsSpan+1))
		task.ReviewPoints = &points
	case 1:
		task.Status = model.StatusInProgress
	case 2:
		task.Status = model.StatusReview
	default:
		// stays pending; occasionally with a reassignment trail
		if rng.Intn(3) == 0 {
			task.ReassignHistory = []string{uuid.New().String()}
		}
	}
	return task
}

// Simulator mutates a seeded store on a fixed tick so live recomputation is
// visible in a demo deployment: it completes pending work, reassigns the
// occasional task, and files new ones.
type Simulator struct {
	store *InMemoryStore
	tick  time.Duration
	rng   *rand.Rand
	log   logger.Logger
}

// NewSimulator creates a simulator over the given store.
func NewSimulator(store *InMemoryStore, tick time.Duration) *Simulator {
	return &Simulator{
		store: store,
		tick:  tick,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // demo data, not crypto
		log:   logger.Get().Named("simulator"),
	}
}

// Run mutates the store until ctx is cancelled.
func (s *Simulator) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.step(ctx, now)
		}
	}
}

func (s *Simulator) step(ctx context.Context, now time.Time) {
	tasks := s.store.Tasks()
	employees := s.store.Employees()
	if len(tasks) == 0 || len(employees) == 0 {
		return
	}

	task := tasks[s.rng.Intn(len(tasks))]
	switch {
	case task.ProgressStatus != model.ProgressCompleted && s.rng.Intn(2) == 0:
		task.Status = model.StatusCompleted
		task.ProgressStatus = model.ProgressCompleted
		task.ProgressUpdatedAt = timeutil.EpochSeconds{Seconds: now.Unix()}
		points := float64(demoReviewPointsFloor + s.rng.Intn(demoReviewPointsSpan+1))
		task.ReviewPoints = &points
		s.store.PutTask(task)
		s.log.Debug(ctx, "completed task", logger.String("task", task.ID))
	case s.rng.Intn(3) == 0:
		next := employees[s.rng.Intn(len(employees))]
		task.ReassignHistory = append(task.ReassignHistory, task.AssignedTo)
		task.AssignedTo = next.ID
		s.store.PutTask(task)
		s.log.Debug(ctx, "reassigned task", logger.String("task", task.ID), logger.String("to", next.ID))
	default:
		assignee := employees[s.rng.Intn(len(employees))]
		s.store.PutTask(demoTask(s.rng, assignee.ID, now))
		s.log.Debug(ctx, "created task", logger.String("assignee", assignee.ID))
	}
}
