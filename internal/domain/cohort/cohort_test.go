package cohort_test

import (
	"testing"

	"github.com/okian/scorecard/internal/domain/cohort"
	"github.com/okian/scorecard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func assigned(counts map[string]int) []model.Task {
	var tasks []model.Task
	for employee, n := range counts {
		for i := 0; i < n; i++ {
			tasks = append(tasks, model.Task{AssignedTo: employee})
		}
	}
	return tasks
}

func TestCompare(t *testing.T) {
	Convey("Given a team of three with uneven workloads", t, func() {
		teams := []model.Team{{ID: "t1", Members: []string{"alice", "bob", "carol"}}}
		tasks := assigned(map[string]int{"alice": 5, "bob": 2, "carol": 4})

		Convey("When comparing alice against her teammates", func() {
			comparison := cohort.Compare("alice", teams, tasks)

			Convey("Then her own count excludes nobody", func() {
				So(comparison.EmployeeTaskCount, ShouldEqual, 5)
			})

			Convey("Then the average covers only the peers", func() {
				So(comparison.AverageWorkload, ShouldEqual, 3)
			})
		})
	})

	Convey("Given an employee in no team", t, func() {
		teams := []model.Team{{ID: "t1", Members: []string{"bob", "carol"}}}
		tasks := assigned(map[string]int{"alice": 3, "bob": 1})

		Convey("When comparing", func() {
			comparison := cohort.Compare("alice", teams, tasks)

			Convey("Then the average workload is zero", func() {
				So(comparison.EmployeeTaskCount, ShouldEqual, 3)
				So(comparison.AverageWorkload, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a team where the employee is the only member", t, func() {
		teams := []model.Team{{ID: "solo", Members: []string{"alice"}}}
		tasks := assigned(map[string]int{"alice": 2})

		Convey("When comparing", func() {
			comparison := cohort.Compare("alice", teams, tasks)

			Convey("Then there are no peers to average over", func() {
				So(comparison.AverageWorkload, ShouldEqual, 0)
			})
		})
	})

	Convey("Given an employee who appears in two teams", t, func() {
		teams := []model.Team{
			{ID: "first", Members: []string{"alice", "bob"}},
			{ID: "second", Members: []string{"alice", "carol", "dave"}},
		}
		tasks := assigned(map[string]int{"bob": 6, "carol": 1, "dave": 1})

		Convey("When comparing", func() {
			comparison := cohort.Compare("alice", teams, tasks)

			Convey("Then only the first team's peers count", func() {
				So(comparison.AverageWorkload, ShouldEqual, 6)
			})
		})
	})

	Convey("Given peers with no tasks at all", t, func() {
		teams := []model.Team{{ID: "t1", Members: []string{"alice", "bob", "carol"}}}

		Convey("When comparing over an empty task list", func() {
			comparison := cohort.Compare("alice", teams, nil)

			So(comparison.EmployeeTaskCount, ShouldEqual, 0)
			So(comparison.AverageWorkload, ShouldEqual, 0)
		})
	})
}
