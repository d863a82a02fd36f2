package service_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/okian/scorecard/internal/adapters/docstore"
	service "github.com/okian/scorecard/internal/app"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const reportTimeout = 2 * time.Second

// waitForReport drains the channel until a report satisfies the predicate.
func waitForReport(ch <-chan model.PerformanceReport, match func(model.PerformanceReport) bool) (model.PerformanceReport, bool) {
	deadline := time.After(reportTimeout)
	for {
		select {
		case report := <-ch:
			if match(report) {
				return report, true
			}
		case <-deadline:
			return model.PerformanceReport{}, false
		}
	}
}

// fakeClient is a hand-driven document store double. Subscriptions can be
// made to fail, snapshots and source errors are pushed explicitly, and the
// HR point read is pluggable.
type fakeClient struct {
	mu sync.Mutex

	failTasks bool

	onTasks     func([]model.Task)
	onTasksErr  func(error)
	onEmployees func([]model.Employee)
	onTeams     func([]model.Team)

	tasks     []model.Task
	employees []model.Employee
	teams     []model.Team

	hr func(ctx context.Context, employeeID string) (model.HRFeedback, bool, error)
}

func (f *fakeClient) SubscribeTasks(onSnapshot func([]model.Task), onError func(error)) (docstore.Unsubscribe, error) {
	f.mu.Lock()
	if f.failTasks {
		f.mu.Unlock()
		return nil, errors.New("tasks channel unavailable")
	}
	f.onTasks = onSnapshot
	f.onTasksErr = onError
	initial := f.tasks
	f.mu.Unlock()
	onSnapshot(initial)
	return func() {}, nil
}

func (f *fakeClient) SubscribeEmployees(onSnapshot func([]model.Employee), onError func(error)) (docstore.Unsubscribe, error) {
	f.mu.Lock()
	f.onEmployees = onSnapshot
	initial := f.employees
	f.mu.Unlock()
	onSnapshot(initial)
	return func() {}, nil
}

func (f *fakeClient) SubscribeTeams(onSnapshot func([]model.Team), onError func(error)) (docstore.Unsubscribe, error) {
	f.mu.Lock()
	f.onTeams = onSnapshot
	initial := f.teams
	f.mu.Unlock()
	onSnapshot(initial)
	return func() {}, nil
}

func (f *fakeClient) LatestHRFeedback(ctx context.Context, employeeID string) (model.HRFeedback, bool, error) {
	f.mu.Lock()
	hr := f.hr
	f.mu.Unlock()
	if hr == nil {
		return model.HRFeedback{}, false, nil
	}
	return hr(ctx, employeeID)
}

func (f *fakeClient) pushTasks(tasks []model.Task) {
	f.mu.Lock()
	f.tasks = tasks
	push := f.onTasks
	f.mu.Unlock()
	push(tasks)
}

func (f *fakeClient) failTasksSource(err error) {
	f.mu.Lock()
	fail := f.onTasksErr
	f.mu.Unlock()
	fail(err)
}

func completedTask(id, assignee string) model.Task {
	return model.Task{
		ID:                id,
		AssignedTo:        assignee,
		Status:            model.StatusCompleted,
		ProgressStatus:    model.ProgressCompleted,
		CreatedAt:         "2024-01-01T00:00:00Z",
		DueDate:           "2024-01-10T00:00:00Z",
		ProgressUpdatedAt: "2024-01-04T00:00:00Z",
	}
}

func TestWatchLifecycle(t *testing.T) {
	Convey("Given a started service over a seeded store", t, func() {
		store := docstore.NewInMemoryStore()
		store.PutEmployee(model.Employee{ID: "e1", Name: "Ada"})
		store.PutTask(completedTask("t1", "e1"))

		svc := service.New(service.WithStore(store))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("When watching an employee", func() {
			w := svc.Watch("e1")
			defer w.Dispose()

			reports := make(chan model.PerformanceReport, 16)
			w.OnReport(func(r model.PerformanceReport) { reports <- r })

			Convey("Then an initial report arrives from the current snapshot", func() {
				report, ok := waitForReport(reports, func(r model.PerformanceReport) bool {
					return r.Totals.Total == 1
				})
				So(ok, ShouldBeTrue)
				So(report.EmployeeID, ShouldEqual, "e1")
				So(report.Totals.Completed, ShouldEqual, 1)
			})

			Convey("When a task is added afterwards", func() {
				_, ok := waitForReport(reports, func(r model.PerformanceReport) bool {
					return r.Totals.Total == 1
				})
				So(ok, ShouldBeTrue)

				store.PutTask(completedTask("t2", "e1"))

				Convey("Then a fresh report reflects the change", func() {
					report, ok := waitForReport(reports, func(r model.PerformanceReport) bool {
						return r.Totals.Total == 2
					})
					So(ok, ShouldBeTrue)
					So(report.Totals.Completed, ShouldEqual, 2)
				})
			})

			Convey("When a callback registers after publication", func() {
				_, ok := waitForReport(reports, func(r model.PerformanceReport) bool {
					return r.Totals.Total == 1
				})
				So(ok, ShouldBeTrue)

				late := make(chan model.PerformanceReport, 1)
				w.OnReport(func(r model.PerformanceReport) { late <- r })

				Convey("Then the last report is replayed immediately", func() {
					report, ok := waitForReport(late, func(model.PerformanceReport) bool { return true })
					So(ok, ShouldBeTrue)
					So(report.EmployeeID, ShouldEqual, "e1")
				})
			})

			Convey("When the watcher is disposed twice", func() {
				So(w.Dispose, ShouldNotPanic)
				So(w.Dispose, ShouldNotPanic)

				Convey("Then it no longer counts as active", func() {
					So(svc.Stats()["watchers"], ShouldEqual, 0)
				})
			})
		})

		Convey("When the service stops twice", func() {
			So(svc.Stop, ShouldNotPanic)
			So(svc.Stop, ShouldNotPanic)
		})
	})
}

func TestStaleComputationsAreDropped(t *testing.T) {
	Convey("Given a store whose HR lookups stall", t, func() {
		gate := make(chan struct{})
		lookups := make(chan struct{}, 8)
		client := &fakeClient{employees: []model.Employee{{ID: "e1"}}}
		client.hr = func(ctx context.Context, _ string) (model.HRFeedback, bool, error) {
			lookups <- struct{}{}
			select {
			case <-gate:
			case <-ctx.Done():
				return model.HRFeedback{}, false, ctx.Err()
			}
			return model.HRFeedback{}, false, nil
		}

		svc := service.New(service.WithStore(client))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("When a newer snapshot lands while the first computation is in flight", func() {
			w := svc.Watch("e1")
			defer w.Dispose()
			reports := make(chan model.PerformanceReport, 16)
			w.OnReport(func(r model.PerformanceReport) { reports <- r })

			client.pushTasks([]model.Task{completedTask("t1", "e1"), completedTask("t2", "e1")})

			// Both computations are now stalled in their HR lookups.
			<-lookups
			<-lookups
			close(gate)

			Convey("Then only the newer snapshot's report is ever published", func() {
				report, ok := waitForReport(reports, func(model.PerformanceReport) bool { return true })
				So(ok, ShouldBeTrue)
				So(report.Totals.Total, ShouldEqual, 2)

				select {
				case extra := <-reports:
					So(extra.Totals.Total, ShouldEqual, 2)
				case <-time.After(100 * time.Millisecond):
				}
			})
		})
	})
}

func TestDisposeFromReportCallback(t *testing.T) {
	Convey("Given a watcher whose consumer stops after the first report", t, func() {
		store := docstore.NewInMemoryStore()
		store.PutEmployee(model.Employee{ID: "e1"})
		store.PutTask(completedTask("t1", "e1"))

		svc := service.New(service.WithStore(store))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		w := svc.Watch("e1")
		delivered := make(chan model.PerformanceReport, 16)
		w.OnReport(func(r model.PerformanceReport) {
			w.Dispose()
			delivered <- r
		})

		Convey("When the first report arrives", func() {
			select {
			case report := <-delivered:
				So(report.EmployeeID, ShouldEqual, "e1")
			case <-time.After(reportTimeout):
				So("no report delivered", ShouldBeEmpty)
			}

			Convey("Then the watcher is gone and the service keeps moving", func() {
				So(svc.Stats()["watchers"], ShouldEqual, 0)

				// A snapshot push after the in-callback dispose must neither
				// block nor reach the dead callback.
				store.PutTask(completedTask("t2", "e1"))
				select {
				case <-delivered:
					So("report after dispose", ShouldBeEmpty)
				case <-time.After(100 * time.Millisecond):
				}
			})

			Convey("Then disposing again returns promptly", func() {
				done := make(chan struct{})
				go func() {
					w.Dispose()
					close(done)
				}()
				select {
				case <-done:
				case <-time.After(reportTimeout):
					So("dispose blocked", ShouldBeEmpty)
				}
			})
		})
	})
}

func TestLateCallbackDeliveryStaysMonotonic(t *testing.T) {
	Convey("Given a published report and a newer computation in flight", t, func() {
		gate := make(chan struct{})
		gating := make(chan bool, 1)
		lookups := make(chan struct{}, 8)
		client := &fakeClient{employees: []model.Employee{{ID: "e1"}}}
		client.hr = func(ctx context.Context, _ string) (model.HRFeedback, bool, error) {
			select {
			case <-gating:
				lookups <- struct{}{}
				select {
				case <-gate:
				case <-ctx.Done():
					return model.HRFeedback{}, false, ctx.Err()
				}
			default:
			}
			return model.HRFeedback{}, false, nil
		}

		svc := service.New(service.WithStore(client))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		w := svc.Watch("e1")
		defer w.Dispose()
		first := make(chan model.PerformanceReport, 16)
		w.OnReport(func(r model.PerformanceReport) { first <- r })
		_, ok := waitForReport(first, func(r model.PerformanceReport) bool {
			return r.Totals.Total == 0
		})
		So(ok, ShouldBeTrue)

		// Stall the next computation inside its HR lookup.
		gating <- true
		client.pushTasks([]model.Task{completedTask("t1", "e1"), completedTask("t2", "e1")})
		<-lookups

		Convey("When a second callback registers before the newer report lands", func() {
			var mu sync.Mutex
			var seen []int
			w.OnReport(func(r model.PerformanceReport) {
				mu.Lock()
				seen = append(seen, r.Totals.Total)
				mu.Unlock()
			})
			close(gate)

			Convey("Then it sees the replay first and the newer report after, never inverted", func() {
				deadline := time.After(reportTimeout)
				for {
					mu.Lock()
					done := len(seen) > 0 && seen[len(seen)-1] == 2
					mu.Unlock()
					if done {
						break
					}
					select {
					case <-deadline:
						So("newer report never delivered", ShouldBeEmpty)
						return
					case <-time.After(5 * time.Millisecond):
					}
				}

				mu.Lock()
				defer mu.Unlock()
				So(seen[0], ShouldEqual, 0)
				So(seen[len(seen)-1], ShouldEqual, 2)
				So(sort.IntsAreSorted(seen), ShouldBeTrue)
			})
		})
	})
}

func TestDegradedSources(t *testing.T) {
	Convey("Given a store whose task subscription cannot attach", t, func() {
		client := &fakeClient{failTasks: true, employees: []model.Employee{{ID: "e1"}}}
		svc := service.New(service.WithStore(client))

		Convey("When the service starts", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			defer svc.Stop()

			Convey("Then the source is reported degraded but reporting works", func() {
				So(svc.Stats()["degraded"], ShouldResemble, []string{"tasks"})

				report, err := svc.Report(context.Background(), "e1")
				So(err, ShouldBeNil)
				So(report.Totals.Total, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a started service whose task source breaks later", t, func() {
		client := &fakeClient{
			employees: []model.Employee{{ID: "e1"}},
			tasks:     []model.Task{completedTask("t1", "e1")},
		}
		svc := service.New(service.WithStore(client))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		w := svc.Watch("e1")
		defer w.Dispose()
		degraded := make(chan string, 4)
		w.OnSourceDegraded(func(source string) { degraded <- source })

		Convey("When the source reports an error", func() {
			client.failTasksSource(errors.New("listener dropped"))

			Convey("Then the watcher is told which source degraded", func() {
				select {
				case source := <-degraded:
					So(source, ShouldEqual, docstore.CollectionTasks)
				case <-time.After(reportTimeout):
					So("no degraded signal", ShouldBeEmpty)
				}
			})

			Convey("Then last-known data still serves reports", func() {
				report, err := svc.Report(context.Background(), "e1")
				So(err, ShouldBeNil)
				So(report.Totals.Total, ShouldEqual, 1)
			})
		})
	})
}

func TestReport(t *testing.T) {
	Convey("Given a started service", t, func() {
		store := docstore.NewInMemoryStore()
		store.PutEmployee(model.Employee{ID: "e1", Name: "Ada"})
		store.PutHRFeedback(model.HRFeedback{ID: "e1_2024-05-01", EmployeeID: "e1", Score: 80})

		svc := service.New(service.WithStore(store))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("When reporting on a known employee", func() {
			report, err := svc.Report(context.Background(), "e1")

			Convey("Then the HR lookup is folded in", func() {
				So(err, ShouldBeNil)
				So(report.HRFeedbackScore, ShouldEqual, 80)
			})
		})

		Convey("When reporting on an unknown employee", func() {
			_, err := svc.Report(context.Background(), "ghost")

			So(errors.Is(err, service.ErrUnknownEmployee), ShouldBeTrue)
		})
	})
}

func TestLeaderboard(t *testing.T) {
	Convey("Given three employees with distinct HR scores", t, func() {
		store := docstore.NewInMemoryStore()
		store.PutEmployee(model.Employee{ID: "e1", Name: "Ada"})
		store.PutEmployee(model.Employee{ID: "e2", Name: "Grace"})
		store.PutEmployee(model.Employee{ID: "e3", Name: "Edsger"})
		store.PutHRFeedback(model.HRFeedback{ID: "e1_2024-01-01", EmployeeID: "e1", Score: 90})
		store.PutHRFeedback(model.HRFeedback{ID: "e2_2024-01-01", EmployeeID: "e2", Score: 50})

		svc := service.New(service.WithStore(store))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("When ranking all of them", func() {
			entries, err := svc.Leaderboard(context.Background(), 10)

			Convey("Then order follows score, ranks are dense from one", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 3)
				So(entries[0].EmployeeID, ShouldEqual, "e1")
				So(entries[0].Rank, ShouldEqual, 1)
				So(entries[1].EmployeeID, ShouldEqual, "e2")
				So(entries[2].EmployeeID, ShouldEqual, "e3")
				So(entries[0].Score, ShouldBeGreaterThan, entries[1].Score)
			})
		})

		Convey("When the limit truncates", func() {
			entries, err := svc.Leaderboard(context.Background(), 2)

			So(err, ShouldBeNil)
			So(entries, ShouldHaveLength, 2)
		})

		Convey("When the limit is invalid", func() {
			_, err := svc.Leaderboard(context.Background(), 0)

			So(errors.Is(err, service.ErrInvalidLimit), ShouldBeTrue)
		})

		Convey("When two employees tie", func() {
			store.PutEmployee(model.Employee{ID: "e0", Name: "Tie"})
			entries, err := svc.Leaderboard(context.Background(), 10)

			Convey("Then the tie breaks on employee id ascending", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 4)
				So(entries[2].EmployeeID, ShouldEqual, "e0")
				So(entries[3].EmployeeID, ShouldEqual, "e3")
			})
		})
	})
}

func TestStartValidation(t *testing.T) {
	Convey("Given a service with no store", t, func() {
		svc := service.New()

		Convey("When starting", func() {
			err := svc.Start(context.Background())

			So(errors.Is(err, service.ErrNoStore), ShouldBeTrue)
		})
	})
}
