package runlog

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/pageflow/workflow"
)

func resultFixture() *workflow.Result {
	return &workflow.Result{
		RunID:           "run-123",
		Workflow:        "product-search",
		State:           workflow.StateCompleted,
		Success:         false,
		TotalSteps:      3,
		SuccessfulSteps: 2,
		FailedSteps:     1,
		StartedAt:       time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Duration:        4200 * time.Millisecond,
		Checkpoints: []workflow.Checkpoint{
			{ID: "cp-1", Name: "before-submit", StepNumber: 2},
		},
		Steps: []workflow.StepResult{
			{Index: 1, Command: workflow.CmdNavigate, Success: true, Duration: time.Second},
			{
				Index: 2, Command: workflow.CmdEvaluate, Success: true,
				Output:   `["Widget A $19.99","Widget B $24.99","Widget C $9.99","Widget D $4.99"]`,
				Duration: 2 * time.Second,
			},
			{
				Index: 3, Command: workflow.CmdClick, Success: false,
				Error: "target operation failed: click: no element matches selector",
			},
		},
	}
}

func TestFromResult(t *testing.T) {
	log := FromResult(resultFixture())

	assert.Equal(t, "run-123", log.RunID)
	assert.Equal(t, "product-search", log.Workflow)
	assert.False(t, log.Success)
	assert.Equal(t, 3, log.TotalSteps)
	assert.Equal(t, 2, log.SuccessfulSteps)
	assert.Equal(t, 1, log.FailedSteps)
	assert.Equal(t, []string{"before-submit"}, log.Checkpoints)

	require.Len(t, log.Steps, 3)
	assert.Equal(t, int64(1000), log.Steps[0].DurationMS)

	assert.Equal(t, "step 3 (click): target operation failed: click: no element matches selector", log.FailureReason)
}

func TestFromResult_EvaluateArrayDigest(t *testing.T) {
	log := FromResult(resultFixture())

	digest := log.Steps[1].Digest
	require.NotNil(t, digest)
	assert.Equal(t, "array", digest.Kind)
	assert.Equal(t, 4, digest.Count)
	// Only the first few elements are sampled.
	require.Len(t, digest.Samples, 3)
	assert.Equal(t, `"Widget A $19.99"`, digest.Samples[0])

	// Non-evaluate output never produces a digest.
	assert.Nil(t, log.Steps[0].Digest)
}

func TestFromResult_MultipleFailures(t *testing.T) {
	res := &workflow.Result{
		RunID: "run-f",
		Steps: []workflow.StepResult{
			{Index: 1, Command: workflow.CmdClick, Success: false, Error: "a"},
			{Index: 2, Command: workflow.CmdWait, Success: false, Error: "b"},
		},
	}
	log := FromResult(res)
	assert.Equal(t, "step 1 (click): a; step 2 (wait): b", log.FailureReason)
}

func TestFromResult_UnnamedCheckpointFallsBackToID(t *testing.T) {
	res := &workflow.Result{
		RunID:       "run-c",
		Checkpoints: []workflow.Checkpoint{{ID: "cp-9"}},
	}
	log := FromResult(res)
	assert.Equal(t, []string{"cp-9"}, log.Checkpoints)
}

func TestDigestOutput(t *testing.T) {
	t.Run("array", func(t *testing.T) {
		d := digestOutput(`[1,2,3,4,5]`)
		assert.Equal(t, "array", d.Kind)
		assert.Equal(t, 5, d.Count)
		assert.Equal(t, []string{"1", "2", "3"}, d.Samples)
	})

	t.Run("object becomes text", func(t *testing.T) {
		d := digestOutput(`{"total":44.98}`)
		assert.Equal(t, "text", d.Kind)
		assert.Equal(t, `{"total":44.98}`, d.Text)
	})

	t.Run("invalid json becomes text", func(t *testing.T) {
		d := digestOutput("not json at all")
		assert.Equal(t, "text", d.Kind)
		assert.Equal(t, "not json at all", d.Text)
	})

	t.Run("long text truncated", func(t *testing.T) {
		d := digestOutput(strings.Repeat("x", 500))
		assert.Len(t, d.Text, textSampleCap)
	})

	t.Run("multibyte text truncated on rune boundary", func(t *testing.T) {
		// the leading byte misaligns the 2-byte runes against the cap
		d := digestOutput("x" + strings.Repeat("é", textSampleCap))
		assert.True(t, utf8.ValidString(d.Text))
		assert.Len(t, d.Text, textSampleCap-1)
	})
}

func TestRunLog_DisplayString(t *testing.T) {
	log := FromResult(resultFixture())
	out := log.DisplayString()

	assert.Contains(t, out, "run run-123 [FAIL] 2/3 steps ok")
	assert.Contains(t, out, "[4 items]")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "failure: step 3 (click)")
}
