// Package service provides the live aggregation controller: it subscribes
// to the document store's collections, recomputes performance reports when
// snapshots change, and publishes them to per-employee watchers.
package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/scorecard/internal/adapters/docstore"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/scoring"
	"github.com/okian/scorecard/pkg/logger"
	"github.com/okian/scorecard/pkg/metrics"
)

// Entry is one leaderboard row for batch ranking.
type Entry struct {
	Rank       int     `json:"rank"`
	EmployeeID string  `json:"employee_id"`
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
}

// Service implements the live aggregation controller. Construct with New,
// then Start to attach to the document store.
type Service struct {
	mu sync.RWMutex

	store  docstore.Client
	engine *scoring.Engine

	snap     model.Snapshot
	degraded map[string]bool

	watchers   map[int]*Watcher
	watcherSeq int

	unsubs  []docstore.Unsubscribe
	started bool

	// ctx outlives Start and is cancelled by Stop; in-flight computations
	// hang off it.
	ctx    context.Context
	cancel context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the document store client. Required.
func WithStore(store docstore.Client) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithEngine overrides the scoring engine.
func WithEngine(engine *scoring.Engine) Option {
	return func(s *Service) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. The store is injected rather than imported as a
// shared singleton so tests can drive it with doubles.
func New(opts ...Option) *Service {
	s := &Service{
		engine:   scoring.New(),
		degraded: make(map[string]bool),
		watchers: make(map[int]*Watcher),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes to the task, employee and team collections. A source
// that fails to subscribe is marked degraded; the service still starts and
// reports from whatever data arrives.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	if s.store == nil {
		s.mu.Unlock()
		return ErrNoStore
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("aggregation")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
	s.mu.Unlock()

	s.logger.Info(ctx, "starting live aggregation")

	subscriptions := []struct {
		name      string
		subscribe func() (docstore.Unsubscribe, error)
	}{
		{docstore.CollectionTasks, func() (docstore.Unsubscribe, error) {
			return s.store.SubscribeTasks(s.onTasks, s.sourceErrorFunc(docstore.CollectionTasks))
		}},
		{docstore.CollectionEmployees, func() (docstore.Unsubscribe, error) {
			return s.store.SubscribeEmployees(s.onEmployees, s.sourceErrorFunc(docstore.CollectionEmployees))
		}},
		{docstore.CollectionTeams, func() (docstore.Unsubscribe, error) {
			return s.store.SubscribeTeams(s.onTeams, s.sourceErrorFunc(docstore.CollectionTeams))
		}},
	}

	// Subscriptions fire their first snapshot synchronously and the
	// callbacks take s.mu, so attach without holding the lock.
	var unsubs []docstore.Unsubscribe
	for _, sub := range subscriptions {
		unsub, err := sub.subscribe()
		if err != nil {
			s.markDegraded(sub.name, err)
			continue
		}
		unsubs = append(unsubs, unsub)
	}

	s.mu.Lock()
	s.unsubs = unsubs
	s.mu.Unlock()

	s.logger.Info(ctx, "live aggregation started", logger.Int("sources", len(unsubs)))
	return nil
}

// Stop detaches from all sources and drops watchers. Idempotent; one
// misbehaving unsubscribe does not block the rest.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	unsubs := s.unsubs
	s.unsubs = nil
	watchers := s.watchersLocked()
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	for _, unsub := range unsubs {
		safeUnsubscribe(unsub)
	}
	for _, w := range watchers {
		w.Dispose()
	}

	s.logger.Info(context.Background(), "live aggregation stopped")
}

func safeUnsubscribe(unsub docstore.Unsubscribe) {
	defer func() {
		_ = recover()
	}()
	if unsub != nil {
		unsub()
	}
}

// Watch registers interest in one employee's performance report. The first
// report from the current snapshot is computed immediately.
func (s *Service) Watch(employeeID string) *Watcher {
	w := &Watcher{svc: s, employeeID: employeeID}

	s.mu.Lock()
	s.watcherSeq++
	w.id = s.watcherSeq
	s.watchers[w.id] = w
	count := len(s.watchers)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	metrics.UpdateActiveWatchers(count)
	w.recompute(snap)
	return w
}

// ComputeOnce is the pure batch-scoring path: no subscriptions, no HR
// lookup, bit-identical output for identical inputs.
func (s *Service) ComputeOnce(employeeID string, snap model.Snapshot, hrScore float64) model.PerformanceReport {
	return s.engine.ComputeOnce(employeeID, snap, hrScore)
}

// Report computes a one-off report for an employee from the current
// snapshot, HR lookup included.
func (s *Service) Report(ctx context.Context, employeeID string) (model.PerformanceReport, error) {
	snap := s.Snapshot()
	var known bool
	for i := range snap.Employees {
		if snap.Employees[i].ID == employeeID {
			known = true
			break
		}
	}
	if !known {
		return model.PerformanceReport{}, ErrUnknownEmployee
	}
	return s.engine.Compute(ctx, employeeID, snap, s.hrReader())
}

// Leaderboard ranks every employee in the current snapshot by total
// performance score, descending, employee id ascending on ties.
func (s *Service) Leaderboard(ctx context.Context, n int) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	snap := s.Snapshot()
	reader := s.hrReader()

	entries := make([]Entry, 0, len(snap.Employees))
	for i := range snap.Employees {
		emp := &snap.Employees[i]
		var hrScore float64
		if reader != nil {
			if fb, ok, err := reader.LatestHRFeedback(ctx, emp.ID); err == nil && ok {
				hrScore = fb.Score
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report := s.engine.ComputeOnce(emp.ID, snap, hrScore)
		entries = append(entries, Entry{
			EmployeeID: emp.ID,
			Name:       emp.Name,
			Score:      report.TotalPerformanceScore,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].EmployeeID < entries[j].EmployeeID
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// Snapshot returns a shallow copy of the current collection state.
func (s *Service) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Stats returns service statistics for the ops endpoint.
func (s *Service) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	degraded := make([]string, 0, len(s.degraded))
	for name, bad := range s.degraded {
		if bad {
			degraded = append(degraded, name)
		}
	}
	sort.Strings(degraded)

	return map[string]interface{}{
		"started":   s.started,
		"watchers":  len(s.watchers),
		"employees": len(s.snap.Employees),
		"tasks":     len(s.snap.Tasks),
		"teams":     len(s.snap.Teams),
		"degraded":  degraded,
	}
}

func (s *Service) onTasks(tasks []model.Task) {
	s.mu.Lock()
	s.snap.Tasks = tasks
	s.degraded[docstore.CollectionTasks] = false
	watchers, snap := s.fanoutLocked()
	s.mu.Unlock()

	for _, w := range watchers {
		w.recompute(snap)
	}
}

func (s *Service) onEmployees(employees []model.Employee) {
	s.mu.Lock()
	s.snap.Employees = employees
	s.degraded[docstore.CollectionEmployees] = false
	watchers, snap := s.fanoutLocked()
	s.mu.Unlock()

	metrics.UpdateEmployeesTracked(len(employees))
	for _, w := range watchers {
		w.recompute(snap)
	}
}

func (s *Service) onTeams(teams []model.Team) {
	s.mu.Lock()
	s.snap.Teams = teams
	s.degraded[docstore.CollectionTeams] = false
	watchers, snap := s.fanoutLocked()
	s.mu.Unlock()

	for _, w := range watchers {
		w.recompute(snap)
	}
}

func (s *Service) sourceErrorFunc(collection string) func(error) {
	return func(err error) {
		s.markDegraded(collection, err)
	}
}

// markDegraded records a broken source and notifies watchers. The last
// known snapshot for that collection stays in place; reporting carries on.
func (s *Service) markDegraded(collection string, err error) {
	s.mu.Lock()
	s.degraded[collection] = true
	watchers := s.watchersLocked()
	s.mu.Unlock()

	metrics.RecordSourceDegraded(collection)
	s.logger.Warn(context.Background(), "source degraded",
		logger.String("collection", collection),
		logger.Error(err),
	)
	for _, w := range watchers {
		w.notifyDegraded(collection)
	}
}

func (s *Service) removeWatcher(id int) {
	s.mu.Lock()
	delete(s.watchers, id)
	count := len(s.watchers)
	s.mu.Unlock()
	metrics.UpdateActiveWatchers(count)
}

func (s *Service) snapshotLocked() model.Snapshot {
	return s.snap
}

func (s *Service) fanoutLocked() ([]*Watcher, model.Snapshot) {
	return s.watchersLocked(), s.snapshotLocked()
}

func (s *Service) watchersLocked() []*Watcher {
	out := make([]*Watcher, 0, len(s.watchers))
	for _, w := range s.watchers {
		out = append(out, w)
	}
	return out
}

// hrReader wraps the store's point read with latency and error metrics.
func (s *Service) hrReader() scoring.HRReader {
	if s.store == nil {
		return nil
	}
	return instrumentedHRReader{inner: s.store, log: s.logger}
}

type instrumentedHRReader struct {
	inner docstore.Client
	log   logger.Logger
}

func (r instrumentedHRReader) LatestHRFeedback(ctx context.Context, employeeID string) (model.HRFeedback, bool, error) {
	start := time.Now()
	fb, ok, err := r.inner.LatestHRFeedback(ctx, employeeID)
	metrics.RecordHRLookupLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordHRLookupError()
		if r.log != nil {
			r.log.Warn(ctx, "hr feedback lookup failed",
				logger.String("employee", employeeID),
				logger.Error(err),
			)
		}
	}
	return fb, ok, err
}
