// Package docstore defines the document database contract the aggregation
// service consumes, plus an in-memory implementation used by tests and demo
// deployments.
//
// The hosted document database itself is an external collaborator; only its
// read/subscribe surface is modeled here.
package docstore

import (
	"context"
	"sort"
	"sync"

	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/metrics"
)

// Collection names as reported through degraded-source signals and metrics.
const (
	CollectionTasks      = "tasks"
	CollectionEmployees  = "employees"
	CollectionTeams      = "teams"
	CollectionHRFeedback = "hr_feedback"
)

// Unsubscribe detaches a live subscription. Implementations must make it
// safe to call more than once.
type Unsubscribe func()

// Client is the read/subscribe surface of the document database. Every
// Subscribe fires onSnapshot once immediately with the current collection
// state, then again on each change, until unsubscribed. onError reports a
// broken subscription; delivery of further snapshots may stop until the
// source recovers.
type Client interface {
	SubscribeTasks(onSnapshot func([]model.Task), onError func(error)) (Unsubscribe, error)
	SubscribeEmployees(onSnapshot func([]model.Employee), onError func(error)) (Unsubscribe, error)
	SubscribeTeams(onSnapshot func([]model.Team), onError func(error)) (Unsubscribe, error)

	// LatestHRFeedback is a point read returning the employee's most recent
	// feedback entry, by the date embedded in the document id. The bool is
	// false when the employee has none.
	LatestHRFeedback(ctx context.Context, employeeID string) (model.HRFeedback, bool, error)
}

type taskSubscriber func([]model.Task)
type employeeSubscriber func([]model.Employee)
type teamSubscriber func([]model.Team)

// InMemoryStore implements Client over plain maps. It is the test double
// for the hosted database and the backend for demo deployments.
type InMemoryStore struct {
	mu sync.RWMutex

	tasks     map[string]model.Task
	employees map[string]model.Employee
	teams     map[string]model.Team
	feedback  map[string]model.HRFeedback

	nextSub      int
	taskSubs     map[int]taskSubscriber
	employeeSubs map[int]employeeSubscriber
	teamSubs     map[int]teamSubscriber
	closed       bool
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tasks:        make(map[string]model.Task),
		employees:    make(map[string]model.Employee),
		teams:        make(map[string]model.Team),
		feedback:     make(map[string]model.HRFeedback),
		taskSubs:     make(map[int]taskSubscriber),
		employeeSubs: make(map[int]employeeSubscriber),
		teamSubs:     make(map[int]teamSubscriber),
	}
}

// SubscribeTasks implements Client.
func (s *InMemoryStore) SubscribeTasks(onSnapshot func([]model.Task), onError func(error)) (Unsubscribe, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.nextSub++
	id := s.nextSub
	s.taskSubs[id] = onSnapshot
	snapshot := s.taskSnapshotLocked()
	s.mu.Unlock()

	// Initial delivery outside the lock, matching the live store's
	// fire-immediately contract.
	onSnapshot(snapshot)

	return s.unsubscribeFunc(func() { delete(s.taskSubs, id) }), nil
}

// SubscribeEmployees implements Client.
func (s *InMemoryStore) SubscribeEmployees(onSnapshot func([]model.Employee), onError func(error)) (Unsubscribe, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.nextSub++
	id := s.nextSub
	s.employeeSubs[id] = onSnapshot
	snapshot := s.employeeSnapshotLocked()
	s.mu.Unlock()

	onSnapshot(snapshot)

	return s.unsubscribeFunc(func() { delete(s.employeeSubs, id) }), nil
}

// SubscribeTeams implements Client.
func (s *InMemoryStore) SubscribeTeams(onSnapshot func([]model.Team), onError func(error)) (Unsubscribe, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.nextSub++
	id := s.nextSub
	s.teamSubs[id] = onSnapshot
	snapshot := s.teamSnapshotLocked()
	s.mu.Unlock()

	onSnapshot(snapshot)

	return s.unsubscribeFunc(func() { delete(s.teamSubs, id) }), nil
}

// unsubscribeFunc wraps a removal closure so repeated calls are harmless.
func (s *InMemoryStore) unsubscribeFunc(remove func()) Unsubscribe {
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			remove()
			s.mu.Unlock()
		})
	}
}

// LatestHRFeedback implements Client. Feedback ids encode identity as
// "{employeeId}_{yyyy-mm-dd}", so for one employee the lexically greatest id
// is the chronologically latest entry.
func (s *InMemoryStore) LatestHRFeedback(ctx context.Context, employeeID string) (model.HRFeedback, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.HRFeedback{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return model.HRFeedback{}, false, ErrClosed
	}

	var latest model.HRFeedback
	var found bool
	for id, fb := range s.feedback {
		if fb.EmployeeID != employeeID {
			continue
		}
		if !found || id > latest.ID {
			latest = fb
			found = true
		}
	}
	return latest, found, nil
}

// PutTask upserts a task and pushes a fresh snapshot to task subscribers.
func (s *InMemoryStore) PutTask(task model.Task) {
	s.mu.Lock()
	s.tasks[task.ID] = task
	subs, snapshot := s.taskFanoutLocked()
	s.mu.Unlock()

	metrics.RecordSnapshotPush(CollectionTasks)
	for _, sub := range subs {
		sub(snapshot)
	}
}

// DeleteTask removes a task and pushes a fresh snapshot.
func (s *InMemoryStore) DeleteTask(id string) {
	s.mu.Lock()
	delete(s.tasks, id)
	subs, snapshot := s.taskFanoutLocked()
	s.mu.Unlock()

	metrics.RecordSnapshotPush(CollectionTasks)
	for _, sub := range subs {
		sub(snapshot)
	}
}

// PutEmployee upserts an employee and pushes a fresh snapshot.
func (s *InMemoryStore) PutEmployee(employee model.Employee) {
	s.mu.Lock()
	s.employees[employee.ID] = employee
	subs, snapshot := s.employeeFanoutLocked()
	s.mu.Unlock()

	metrics.RecordSnapshotPush(CollectionEmployees)
	for _, sub := range subs {
		sub(snapshot)
	}
}

// PutTeam upserts a team and pushes a fresh snapshot.
func (s *InMemoryStore) PutTeam(team model.Team) {
	s.mu.Lock()
	s.teams[team.ID] = team
	subs, snapshot := s.teamFanoutLocked()
	s.mu.Unlock()

	metrics.RecordSnapshotPush(CollectionTeams)
	for _, sub := range subs {
		sub(snapshot)
	}
}

// PutHRFeedback upserts a feedback entry. Feedback is a point read, not a
// subscription, so no snapshot push happens.
func (s *InMemoryStore) PutHRFeedback(fb model.HRFeedback) {
	s.mu.Lock()
	s.feedback[fb.ID] = fb
	s.mu.Unlock()
}

// Tasks returns a copy of the current task collection.
func (s *InMemoryStore) Tasks() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.taskSnapshotLocked()
}

// Employees returns a copy of the current employee collection.
func (s *InMemoryStore) Employees() []model.Employee {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.employeeSnapshotLocked()
}

// Close rejects further subscriptions and reads. Existing unsubscribe
// functions stay callable.
func (s *InMemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *InMemoryStore) taskFanoutLocked() ([]taskSubscriber, []model.Task) {
	subs := make([]taskSubscriber, 0, len(s.taskSubs))
	for _, sub := range s.taskSubs {
		subs = append(subs, sub)
	}
	return subs, s.taskSnapshotLocked()
}

func (s *InMemoryStore) employeeFanoutLocked() ([]employeeSubscriber, []model.Employee) {
	subs := make([]employeeSubscriber, 0, len(s.employeeSubs))
	for _, sub := range s.employeeSubs {
		subs = append(subs, sub)
	}
	return subs, s.employeeSnapshotLocked()
}

func (s *InMemoryStore) teamFanoutLocked() ([]teamSubscriber, []model.Team) {
	subs := make([]teamSubscriber, 0, len(s.teamSubs))
	for _, sub := range s.teamSubs {
		subs = append(subs, sub)
	}
	return subs, s.teamSnapshotLocked()
}

// Snapshots are sorted by id so repeated reads of the same state are
// deterministic.
func (s *InMemoryStore) taskSnapshotLocked() []model.Task {
	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *InMemoryStore) employeeSnapshotLocked() []model.Employee {
	out := make([]model.Employee, 0, len(s.employees))
	for _, e := range s.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *InMemoryStore) teamSnapshotLocked() []model.Team {
	out := make([]model.Team, 0, len(s.teams))
	for _, t := range s.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
