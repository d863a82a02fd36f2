package service

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/metrics"
)

// Watcher is a live subscription to one employee's performance report.
//
// Publications are monotonic in snapshot recency: every recompute gets a
// generation number at start, and a computed report is published only if no
// newer generation exists by the time its HR lookup resolves. A slow, stale
// computation therefore never overwrites a fresher one, regardless of
// completion order.
type Watcher struct {
	svc        *Service
	employeeID string
	id         int

	// gen is bumped at computation start; published tracks the newest
	// generation accepted for publication, guarded by pubMu.
	gen       atomic.Uint64
	pubMu     sync.Mutex
	published uint64

	// deliverMu serializes report callback invocations and delivered tracks
	// the newest generation handed to a callback. Dispose never takes it, so
	// a consumer may dispose from inside its own callback.
	deliverMu sync.Mutex
	delivered uint64

	mu         sync.Mutex // guards callbacks, lastReport and lastGen
	onReport   func(model.PerformanceReport)
	onDegraded func(source string)
	lastReport *model.PerformanceReport
	lastGen    uint64

	disposeOnce sync.Once
}

// OnReport registers the report callback. If a report has already been
// published, it is delivered immediately so late registration never misses
// the current state.
func (w *Watcher) OnReport(cb func(model.PerformanceReport)) {
	w.mu.Lock()
	w.onReport = cb
	last := w.lastReport
	gen := w.lastGen
	w.mu.Unlock()

	if cb != nil && last != nil {
		w.deliver(gen, *last)
	}
}

// OnSourceDegraded registers the degraded-source callback. The signal is
// informational; reports keep flowing from last-known data.
func (w *Watcher) OnSourceDegraded(cb func(source string)) {
	w.mu.Lock()
	w.onDegraded = cb
	w.mu.Unlock()
}

// EmployeeID returns the watched employee.
func (w *Watcher) EmployeeID() string {
	return w.employeeID
}

// Dispose detaches the watcher. Safe to call multiple times; any in-flight
// computation's result is dropped.
func (w *Watcher) Dispose() {
	w.disposeOnce.Do(func() {
		w.pubMu.Lock()
		w.published = math.MaxUint64
		w.pubMu.Unlock()

		w.mu.Lock()
		w.onReport = nil
		w.onDegraded = nil
		w.mu.Unlock()

		w.svc.removeWatcher(w.id)
	})
}

// recompute starts a new computation generation against the given snapshot.
func (w *Watcher) recompute(snap model.Snapshot) {
	gen := w.gen.Add(1)
	go w.run(gen, snap)
}

func (w *Watcher) run(gen uint64, snap model.Snapshot) {
	ctx := w.svc.ctx
	if ctx == nil {
		// Watch before Start: compute from the empty snapshot anyway.
		ctx = context.Background()
	}
	start := time.Now()
	report, err := w.svc.engine.Compute(ctx, w.employeeID, snap, w.svc.hrReader())
	metrics.RecordComputeLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		// Only context cancellation reaches here; HR lookup failures are
		// absorbed by the engine.
		return
	}

	w.pubMu.Lock()
	if gen <= w.published || gen < w.gen.Load() {
		w.pubMu.Unlock()
		metrics.RecordReportStale()
		return
	}
	w.published = gen
	w.pubMu.Unlock()

	w.mu.Lock()
	w.lastReport = &report
	w.lastGen = gen
	w.mu.Unlock()

	metrics.RecordReportComputed()
	w.deliver(gen, report)
}

// deliver hands a report to the registered callback. Generations already
// superseded here are skipped; an equal generation still goes out so a
// callback registered after publication gets the replay. The callback is
// looked up at delivery time, making the result of a disposed watcher's
// in-flight computation vanish instead of firing a dead callback.
func (w *Watcher) deliver(gen uint64, report model.PerformanceReport) {
	w.deliverMu.Lock()
	defer w.deliverMu.Unlock()
	if gen < w.delivered {
		return
	}
	w.delivered = gen

	w.mu.Lock()
	cb := w.onReport
	w.mu.Unlock()
	if cb != nil {
		cb(report)
	}
}

func (w *Watcher) notifyDegraded(source string) {
	w.mu.Lock()
	cb := w.onDegraded
	w.mu.Unlock()
	if cb != nil {
		cb(source)
	}
}
