package workflow

import "time"

// StepResult records one executed step. It is created exactly once per step,
// never mutated afterwards, and appended in step order. Index is 1-based and
// stable across the run.
type StepResult struct {
	Index      int           `json:"index"`
	Command    string        `json:"command"`
	Args       any           `json:"args,omitempty"`
	Success    bool          `json:"success"`
	Output     string        `json:"output,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	Checkpoint string        `json:"checkpoint,omitempty"`
}

// Checkpoint is a named snapshot of target state recorded mid-run by the
// checkpoint command. It never alters target state.
type Checkpoint struct {
	ID         string    `json:"id"`
	Name       string    `json:"name,omitempty"`
	URL        string    `json:"url"`
	Title      string    `json:"title,omitempty"`
	StepNumber int       `json:"step_number"`
	CreatedAt  time.Time `json:"created_at"`
}

// State is the engine's per-run state machine.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
)

// Result aggregates one execution: every step's result in order, counts, the
// checkpoints created, and wall-clock duration. It is built incrementally
// during Execute and not mutated after return.
type Result struct {
	RunID           string        `json:"run_id"`
	Workflow        string        `json:"workflow,omitempty"`
	State           State         `json:"state"`
	Success         bool          `json:"success"`
	Steps           []StepResult  `json:"steps"`
	TotalSteps      int           `json:"total_steps"`
	SuccessfulSteps int           `json:"successful_steps"`
	FailedSteps     int           `json:"failed_steps"`
	Checkpoints     []Checkpoint  `json:"checkpoints,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration"`
}

// CheckpointByName returns the first checkpoint with the given name.
func (r *Result) CheckpointByName(name string) (Checkpoint, bool) {
	for _, cp := range r.Checkpoints {
		if cp.Name == name {
			return cp, true
		}
	}
	return Checkpoint{}, false
}

// FailedResults returns the results of failing steps, in step order.
func (r *Result) FailedResults() []StepResult {
	var failed []StepResult
	for _, sr := range r.Steps {
		if !sr.Success {
			failed = append(failed, sr)
		}
	}
	return failed
}
