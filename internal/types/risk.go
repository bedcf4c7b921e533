package types

// Priority is a heat-risk level assigned to a planning area.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
	PriorityNormal   Priority = "NORMAL"
	PriorityNone     Priority = "N/A"
)

var priorityRank = map[Priority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
	PriorityNormal:   4,
}

// Rank orders priorities for sorting, most severe first. Unknown priorities
// sort last.
func (p Priority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return 5
}

// Evaluation data sources.
const (
	SourceTemperature      = "temperature"
	SourceContextInference = "context_inference"
)

// EvaluationDetails carries the inputs behind a risk evaluation.
type EvaluationDetails struct {
	PlanningArea   string   `json:"planning_area"`
	AvgTemperature *float64 `json:"avg_temperature"`
	GreenRatio     float64  `json:"green_ratio"`
	DensityType    string   `json:"density_type"`
	AllTriggers    []string `json:"all_triggers,omitempty"`
	DataSource     string   `json:"data_source"`
}

// Evaluation is the outcome of the trigger rules for one planning area.
type Evaluation struct {
	Trigger  bool              `json:"trigger"`
	Reason   string            `json:"reason"`
	Priority Priority          `json:"priority"`
	Details  EvaluationDetails `json:"details"`
}
