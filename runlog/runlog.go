// Package runlog derives compact, replayable summaries from workflow
// execution results and persists them. The transform is pure: it performs no
// target interaction, and malformed step output degrades to "no structured
// digest" rather than an error.
package runlog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BaSui01/pageflow/workflow"
)

const (
	// digestSampleCap is how many stringified array elements a step digest
	// keeps.
	digestSampleCap = 3
	// textSampleCap bounds the text sample kept for non-array output.
	textSampleCap = 120
)

// DataDigest summarizes the structured output of an evaluate step.
type DataDigest struct {
	// Kind is "array" or "text".
	Kind    string   `json:"kind"`
	Count   int      `json:"count,omitempty"`
	Samples []string `json:"samples,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// StepRecord is one step's entry in a run log.
type StepRecord struct {
	Step       int         `json:"step"`
	Command    string      `json:"command"`
	Success    bool        `json:"success"`
	Error      string      `json:"error,omitempty"`
	DurationMS int64       `json:"duration_ms"`
	Digest     *DataDigest `json:"digest,omitempty"`
}

// RunLog is the persisted summary of one execution, keyed by the run ID the
// engine generated. Records are write-once per run.
type RunLog struct {
	RunID           string        `json:"run_id"`
	Workflow        string        `json:"workflow,omitempty"`
	Success         bool          `json:"success"`
	TotalSteps      int           `json:"total_steps"`
	SuccessfulSteps int           `json:"successful_steps"`
	FailedSteps     int           `json:"failed_steps"`
	FailureReason   string        `json:"failure_reason,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration"`
	Checkpoints     []string      `json:"checkpoints,omitempty"`
	Steps           []StepRecord  `json:"steps"`
}

// FromResult derives a run log from an execution result.
func FromResult(res *workflow.Result) *RunLog {
	log := &RunLog{
		RunID:           res.RunID,
		Workflow:        res.Workflow,
		Success:         res.Success,
		TotalSteps:      res.TotalSteps,
		SuccessfulSteps: res.SuccessfulSteps,
		FailedSteps:     res.FailedSteps,
		StartedAt:       res.StartedAt,
		Duration:        res.Duration,
	}
	for _, cp := range res.Checkpoints {
		name := cp.Name
		if name == "" {
			name = cp.ID
		}
		log.Checkpoints = append(log.Checkpoints, name)
	}

	var failures []string
	for _, sr := range res.Steps {
		rec := StepRecord{
			Step:       sr.Index,
			Command:    sr.Command,
			Success:    sr.Success,
			Error:      sr.Error,
			DurationMS: sr.Duration.Milliseconds(),
		}
		if sr.Command == workflow.CmdEvaluate && sr.Output != "" {
			rec.Digest = digestOutput(sr.Output)
		}
		log.Steps = append(log.Steps, rec)

		if !sr.Success {
			failures = append(failures, fmt.Sprintf("step %d (%s): %s", sr.Index, sr.Command, sr.Error))
		}
	}
	log.FailureReason = strings.Join(failures, "; ")
	return log
}

// digestOutput parses an evaluate step's captured output. Arrays record their
// length and a few stringified samples; anything else becomes a truncated
// text sample. Parse errors are swallowed: there is simply no structured
// digest then.
func digestOutput(output string) *DataDigest {
	var parsed any
	if err := json.Unmarshal([]byte(output), &parsed); err == nil {
		if arr, ok := parsed.([]any); ok {
			d := &DataDigest{Kind: "array", Count: len(arr)}
			for i, item := range arr {
				if i >= digestSampleCap {
					break
				}
				b, err := json.Marshal(item)
				if err != nil {
					continue
				}
				d.Samples = append(d.Samples, string(b))
			}
			return d
		}
	}
	return &DataDigest{Kind: "text", Text: truncateText(output, textSampleCap)}
}

// truncateText cuts s to at most max bytes without splitting a rune.
func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// DisplayString renders the log for a terminal.
func (l *RunLog) DisplayString() string {
	var b strings.Builder
	status := "PASS"
	if !l.Success {
		status = "FAIL"
	}
	fmt.Fprintf(&b, "run %s [%s] %d/%d steps ok, %s\n",
		l.RunID, status, l.SuccessfulSteps, l.TotalSteps, l.Duration.Round(time.Millisecond))
	for _, rec := range l.Steps {
		mark := "ok"
		if !rec.Success {
			mark = "FAILED"
		}
		fmt.Fprintf(&b, "  %3d %-10s %-6s %dms", rec.Step, rec.Command, mark, rec.DurationMS)
		if rec.Digest != nil {
			switch rec.Digest.Kind {
			case "array":
				fmt.Fprintf(&b, "  [%d items]", rec.Digest.Count)
			case "text":
				fmt.Fprintf(&b, "  %q", rec.Digest.Text)
			}
		}
		if rec.Error != "" {
			fmt.Fprintf(&b, "  %s", rec.Error)
		}
		b.WriteByte('\n')
	}
	if l.FailureReason != "" {
		fmt.Fprintf(&b, "failure: %s\n", l.FailureReason)
	}
	return b.String()
}
