package engine

import "github.com/google/uuid"

// Result is the published output of one cycle. It owns its data; the engine
// never touches it after Run returns.
type Result struct {
	CycleID     uuid.UUID    `json:"cycle_id"`
	Width       int          `json:"width"`
	Inputs      int          `json:"inputs"`
	Derivatives bool         `json:"derivatives"`
	Tasks       []TaskOutput `json:"tasks"`
}

// TaskOutput is the filled buffer of one active task.
type TaskOutput struct {
	Task        int         `json:"task"`
	Node        int         `json:"node"`
	Values      []float64   `json:"values"`
	Derivatives [][]float64 `json:"derivatives,omitempty"`
}

// Active returns the task indices present in the result, ascending.
func (r *Result) Active() []int {
	out := make([]int, len(r.Tasks))
	for i, t := range r.Tasks {
		out[i] = t.Task
	}
	return out
}
