// Package cohort computes peer-group workload comparisons. The cohort is an
// employee's teammates; the comparison is display-only and never feeds the
// weighted score.
package cohort

import "github.com/okian/scorecard/internal/domain/model"

// Compare returns the employee's own task count against the average task
// count across their teammates. An employee with no team, or no teammates,
// gets a zero average.
func Compare(employeeID string, teams []model.Team, tasks []model.Task) model.WorkloadComparison {
	comparison := model.WorkloadComparison{}
	for i := range tasks {
		if tasks[i].AssignedTo == employeeID {
			comparison.EmployeeTaskCount++
		}
	}

	peers := peerSet(employeeID, teams)
	if len(peers) == 0 {
		return comparison
	}

	var peerTaskCount int
	for i := range tasks {
		if peers[tasks[i].AssignedTo] {
			peerTaskCount++
		}
	}
	comparison.AverageWorkload = float64(peerTaskCount) / float64(len(peers))
	return comparison
}

// peerSet finds the team containing the employee and returns the other
// members. The first matching team wins; membership lists carry no
// duplicates by contract.
func peerSet(employeeID string, teams []model.Team) map[string]bool {
	for i := range teams {
		team := &teams[i]
		var found bool
		for _, member := range team.Members {
			if member == employeeID {
				found = true
				break
			}
		}
		if !found {
			continue
		}
		peers := make(map[string]bool, len(team.Members))
		for _, member := range team.Members {
			if member != employeeID {
				peers[member] = true
			}
		}
		return peers
	}
	return nil
}
