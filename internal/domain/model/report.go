package model

// Bucket is an aggregation cell keyed by calendar date or month.
type Bucket struct {
	Completed     int      `json:"completed"`
	Reassigned    int      `json:"reassigned"`
	CompletedIDs  []string `json:"completed_ids,omitempty"`
	ReassignedIDs []string `json:"reassigned_ids,omitempty"`
}

// Totals holds the running counts over one employee's tasks.
type Totals struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	OnTime     int `json:"on_time"`
	Reassigned int `json:"reassigned"`
}

// WorkloadComparison relates an employee's open task count to the average
// across their teammates. Informational only; never weighted into the score.
type WorkloadComparison struct {
	EmployeeTaskCount int     `json:"employee_task_count"`
	AverageWorkload   float64 `json:"average_workload"`
}

// PerformanceReport is the engine output for one employee. It is recomputed
// from scratch on every snapshot change, never mutated in place.
type PerformanceReport struct {
	EmployeeID string `json:"employee_id"`
	Totals     Totals `json:"totals"`

	CompletionRate    float64 `json:"completion_rate"`    // 0-100
	OnTimeRate        float64 `json:"on_time_rate"`       // 0-100
	ProductivityScore float64 `json:"productivity_score"` // 0-100
	ReviewScore       float64 `json:"review_score"`       // 0-100
	HRFeedbackScore   float64 `json:"hr_feedback_score"`  // 0-100

	// TotalPerformanceScore is the weighted composite, floored at zero.
	TotalPerformanceScore float64 `json:"total_performance_score"`

	ByDate  map[string]*Bucket `json:"by_date"`  // key 2006-01-02
	ByMonth map[string]*Bucket `json:"by_month"` // key 2006-01

	Workload WorkloadComparison `json:"workload"`
}
