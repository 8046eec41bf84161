// Package workflow implements the declarative workflow model and its
// execution engine: an ordered list of single-key command steps interpreted
// one at a time against a live target, with variable substitution, selector
// validation, per-step results, checkpoints, and strict or continue-on-error
// failure policy.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/pageflow/selector"
	"github.com/BaSui01/pageflow/target"
)

// Config holds the engine's tunables. StepDelay and the timeouts are
// empirically chosen defaults, kept configurable rather than re-derived.
type Config struct {
	// Strict aborts the run on the first failing step. The failing step's
	// result is still recorded.
	Strict bool `yaml:"strict" json:"strict" env:"STRICT"`
	// StepDelay is the fixed settle delay inserted between steps. A
	// robustness measure, not a per-step knob.
	StepDelay time.Duration `yaml:"step_delay" json:"step_delay" env:"STEP_DELAY"`
	// DefaultTimeout bounds waits and interactions that carry no explicit
	// timeout.
	DefaultTimeout time.Duration `yaml:"default_timeout" json:"default_timeout" env:"DEFAULT_TIMEOUT"`
	// NavigationTimeout bounds page loads.
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout" env:"NAVIGATION_TIMEOUT"`
}

// DefaultConfig returns the stock engine tunables.
func DefaultConfig() Config {
	return Config{
		StepDelay:         300 * time.Millisecond,
		DefaultTimeout:    5 * time.Second,
		NavigationTimeout: 30 * time.Second,
	}
}

// Observer receives step lifecycle notifications during a run.
type Observer interface {
	StepStart(index int, command string)
	StepComplete(result StepResult)
}

// Prompter blocks on external operator input for message waits. It returns
// when the operator resumes the run.
type Prompter func(ctx context.Context, message string) error

// Metrics receives per-step execution outcomes. Satisfied by
// internal/metrics.Collector.
type Metrics interface {
	StepExecuted(command string, success bool, d time.Duration)
}

// Engine executes workflows against a single target. One run owns the target
// at a time; a concurrent Execute returns ErrEngineBusy.
type Engine struct {
	target   target.Target
	cfg      Config
	logger   *zap.Logger
	observer Observer
	prompter Prompter
	metrics  Metrics

	runMu sync.Mutex
	busy  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver installs a step lifecycle observer.
func WithObserver(o Observer) Option { return func(e *Engine) { e.observer = o } }

// WithPrompter installs the operator prompt used by message waits.
func WithPrompter(p Prompter) Option { return func(e *Engine) { e.prompter = p } }

// WithMetrics installs a step metrics sink.
func WithMetrics(m Metrics) Option { return func(e *Engine) { e.metrics = m } }

// New creates an Engine.
func New(t target.Target, cfg Config, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StepDelay <= 0 {
		cfg.StepDelay = DefaultConfig().StepDelay
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultConfig().DefaultTimeout
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = DefaultConfig().NavigationTimeout
	}
	e := &Engine{
		target: t,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "workflow_engine")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// stepOutcome is what one dispatched step produces besides its error.
type stepOutcome struct {
	output     string
	checkpoint *Checkpoint
}

// Execute runs steps in order against the target. vars is immutable for the
// duration of the run. The returned Result always carries a StepResult for
// every executed step, even failing ones; only strict mode stops the run
// early, returning the partial Result together with ErrStrictAbort.
// Cancellation is honored at step boundaries only; a step in flight cannot
// be interrupted without risking inconsistent target state.
func (e *Engine) Execute(ctx context.Context, steps []Step, vars map[string]string) (*Result, error) {
	e.runMu.Lock()
	if e.busy {
		e.runMu.Unlock()
		return nil, ErrEngineBusy
	}
	e.busy = true
	e.runMu.Unlock()
	defer func() {
		e.runMu.Lock()
		e.busy = false
		e.runMu.Unlock()
	}()

	res := &Result{
		RunID:     uuid.NewString(),
		State:     StateRunning,
		StartedAt: time.Now(),
	}
	e.logger.Info("workflow started", zap.String("run_id", res.RunID), zap.Int("steps", len(steps)))

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			res.State = StateAborted
			e.finish(res)
			return res, err
		}

		index := i + 1
		args := Substitute(step.Args, vars)

		if e.observer != nil {
			e.observer.StepStart(index, step.Command)
		}

		start := time.Now()
		outcome, err := e.dispatch(ctx, index, step.Command, args, res)
		elapsed := time.Since(start)

		sr := StepResult{
			Index:    index,
			Command:  step.Command,
			Args:     args,
			Success:  err == nil,
			Output:   outcome.output,
			Duration: elapsed,
		}
		if outcome.checkpoint != nil {
			sr.Checkpoint = outcome.checkpoint.ID
		}
		if err != nil {
			sr.Error = err.Error()
			e.logger.Warn("step failed",
				zap.Int("step", index),
				zap.String("command", step.Command),
				zap.Error(err))
		} else {
			e.logger.Debug("step completed",
				zap.Int("step", index),
				zap.String("command", step.Command),
				zap.Duration("duration", elapsed))
		}
		res.Steps = append(res.Steps, sr)
		res.TotalSteps++
		if err == nil {
			res.SuccessfulSteps++
		} else {
			res.FailedSteps++
		}

		if e.metrics != nil {
			e.metrics.StepExecuted(step.Command, err == nil, elapsed)
		}
		if e.observer != nil {
			e.observer.StepComplete(sr)
		}

		if err != nil && e.cfg.Strict {
			res.State = StateAborted
			e.finish(res)
			return res, fmt.Errorf("%w: step %d (%s): %v", ErrStrictAbort, index, step.Command, err)
		}

		// Fixed settle delay between steps, not after the last one.
		if i < len(steps)-1 {
			select {
			case <-time.After(e.cfg.StepDelay):
			case <-ctx.Done():
			}
		}
	}

	res.State = StateCompleted
	e.finish(res)
	return res, nil
}

// ExecuteWorkflow runs a parsed workflow using its own variable table and
// stamps the result with the workflow name.
func (e *Engine) ExecuteWorkflow(ctx context.Context, wf *Workflow) (*Result, error) {
	res, err := e.Execute(ctx, wf.Steps, wf.Variables)
	if res != nil {
		res.Workflow = wf.Name
	}
	return res, err
}

func (e *Engine) finish(res *Result) {
	res.Duration = time.Since(res.StartedAt)
	res.Success = res.State == StateCompleted && res.FailedSteps == 0
	e.logger.Info("workflow finished",
		zap.String("run_id", res.RunID),
		zap.String("state", string(res.State)),
		zap.Int("successful", res.SuccessfulSteps),
		zap.Int("failed", res.FailedSteps),
		zap.Duration("duration", res.Duration))
}

// validSelector normalizes sel and fails fast on structural problems before
// any target round-trip.
func validSelector(sel, command string) (string, error) {
	sel = selector.Normalize(sel)
	if !selector.IsValid(sel) {
		return "", fmt.Errorf("%w: %s selector %q", ErrInvalidSelector, command, sel)
	}
	return sel, nil
}

// wrapTargetErr wraps a target failure and, when it smells selector-related,
// appends fix suggestions to the message.
func wrapTargetErr(err error, command, sel string) error {
	wrapped := fmt.Errorf("%w: %s: %w", ErrTargetOperation, command, err)
	if sel == "" {
		return wrapped
	}
	text := err.Error()
	lower := strings.ToLower(text)
	if strings.Contains(lower, "selector") || strings.Contains(lower, "element") ||
		strings.Contains(lower, "not found") || strings.Contains(lower, "timed out") {
		if suggestions := selector.SuggestFixes(sel, text); len(suggestions) > 0 {
			return fmt.Errorf("%w (suggestions: %s)", wrapped, strings.Join(suggestions, "; "))
		}
	}
	return wrapped
}

// dispatch interprets one command against the target. It is the single
// exhaustive switch over the command set; anything unrecognized is
// ErrUnknownCommand, never silently skipped.
func (e *Engine) dispatch(ctx context.Context, index int, command string, args any, res *Result) (stepOutcome, error) {
	switch command {
	case CmdNavigate:
		return e.execNavigate(ctx, args)
	case CmdClick:
		return e.execClick(ctx, args)
	case CmdType:
		return e.execType(ctx, args)
	case CmdWait:
		return e.execWait(ctx, args)
	case CmdScreenshot:
		return e.execScreenshot(ctx, index, args, res.RunID)
	case CmdEvaluate:
		return e.execEvaluate(ctx, args)
	case CmdScroll:
		return e.execScroll(ctx, args)
	case CmdSelect:
		return e.execSelect(ctx, args)
	case CmdHover:
		return e.execHover(ctx, args)
	case CmdFill:
		return e.execFill(ctx, args)
	case CmdPress:
		return e.execPress(ctx, args)
	case CmdAssert:
		return e.execAssert(ctx, args)
	case CmdCheckpoint:
		return e.execCheckpoint(ctx, index, args, res)
	default:
		return stepOutcome{}, fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
}

func (e *Engine) execNavigate(ctx context.Context, args any) (stepOutcome, error) {
	m, err := stringOrMap(args, "url", CmdNavigate)
	if err != nil {
		return stepOutcome{}, err
	}
	url, err := requireKey(m, "url", CmdNavigate)
	if err != nil {
		return stepOutcome{}, err
	}
	timeout := m.duration("timeout", e.cfg.NavigationTimeout)
	if err := e.target.Navigate(ctx, url, timeout); err != nil {
		return stepOutcome{}, wrapTargetErr(err, CmdNavigate, "")
	}
	return stepOutcome{output: "navigated to " + url}, nil
}

func (e *Engine) execClick(ctx context.Context, args any) (stepOutcome, error) {
	m, err := stringOrMap(args, "selector", CmdClick)
	if err != nil {
		return stepOutcome{}, err
	}
	sel, err := requireKey(m, "selector", CmdClick)
	if err != nil {
		return stepOutcome{}, err
	}
	if sel, err = validSelector(sel, CmdClick); err != nil {
		return stepOutcome{}, err
	}
	button := target.MouseButton(m.str("button"))
	if button == "" {
		button = target.ButtonLeft
	}
	count := m.integer("count", 1)
	timeout := m.duration("timeout", e.cfg.DefaultTimeout)
	if err := e.target.Click(ctx, sel, button, count, timeout); err != nil {
		return stepOutcome{}, wrapTargetErr(err, CmdClick, sel)
	}
	return stepOutcome{output: "clicked " + sel}, nil
}

func (e *Engine) execType(ctx context.Context, args any) (stepOutcome, error) {
	m, ok := toArgMap(args)
	if !ok {
		return stepOutcome{}, fmt.Errorf("%w: type wants a mapping with selector and text", ErrBadArgs)
	}
	sel, err := requireKey(m, "selector", CmdType)
	if err != nil {
		return stepOutcome{}, err
	}
	if sel, err = validSelector(sel, CmdType); err != nil {
		return stepOutcome{}, err
	}
	text := m.str("text")
	delay := m.duration("delay", 0)

	if m.boolean("clear", false) {
		if err := e.target.ClearInput(ctx, sel); err != nil {
			return stepOutcome{}, wrapTargetErr(err, CmdType, sel)
		}
	}
	if err := e.target.Type(ctx, sel, text, delay); err != nil {
		return stepOutcome{}, wrapTargetErr(err, CmdType, sel)
	}
	if m.boolean("press_enter", false) {
		if err := e.target.Press(ctx, sel, "Enter"); err != nil {
			return stepOutcome{}, wrapTargetErr(err, CmdType, sel)
		}
	}
	return stepOutcome{output: fmt.Sprintf("typed %d chars into %s", len(text), sel)}, nil
}

func (e *Engine) execWait(ctx context.Context, args any) (stepOutcome, error) {
	mode, m, err := waitMode(args)
	if err != nil {
		return stepOutcome{}, err
	}
	switch mode {
	case waitModeSelector:
		sel, err := validSelector(m.str("selector"), CmdWait)
		if err != nil {
			return stepOutcome{}, err
		}
		state := target.WaitState(m.str("state"))
		if state == "" {
			state = target.StateVisible
		}
		timeout := m.duration("timeout", e.cfg.DefaultTimeout)
		if err := e.target.WaitForSelector(ctx, sel, state, timeout); err != nil {
			return stepOutcome{}, wrapTargetErr(err, CmdWait, sel)
		}
		return stepOutcome{output: fmt.Sprintf("selector %s reached state %s", sel, state)}, nil

	case waitModeDuration:
		d := m.duration("duration", 0)
		if err := e.target.WaitForTimeout(ctx, d); err != nil {
			return stepOutcome{}, wrapTargetErr(err, CmdWait, "")
		}
		return stepOutcome{output: "waited " + d.String()}, nil

	case waitModeURL:
		pattern := m.str("url")
		timeout := m.duration("timeout", e.cfg.DefaultTimeout)
		if err := e.target.WaitForURL(ctx, pattern, timeout); err != nil {
			return stepOutcome{}, wrapTargetErr(err, CmdWait, "")
		}
		return stepOutcome{output: "url matched " + pattern}, nil

	default: // waitModeMessage
		if e.prompter == nil {
			return stepOutcome{}, fmt.Errorf("%w: wait message given but no prompter is configured", ErrBadArgs)
		}
		message := m.str("message")
		// Operator pause carries no engine-imposed timeout.
		if err := e.prompter(ctx, message); err != nil {
			return stepOutcome{}, fmt.Errorf("%w: operator prompt: %v", ErrTargetOperation, err)
		}
		return stepOutcome{output: "resumed after operator input"}, nil
	}
}

func (e *Engine) execScreenshot(ctx context.Context, index int, args any, runID string) (stepOutcome, error) {
	m, err := stringOrMap(args, "path", CmdScreenshot)
	if err != nil {
		return stepOutcome{}, err
	}
	path := m.str("path")
	if path == "" {
		path = fmt.Sprintf("%s-step-%d.png", runID, index)
	}
	fullPage := m.boolean("full_page", false)
	if err := e.target.Screenshot(ctx, path, fullPage); err != nil {
		return stepOutcome{}, wrapTargetErr(err, CmdScreenshot, "")
	}
	return stepOutcome{output: "screenshot saved to " + path}, nil
}

func (e *Engine) execEvaluate(ctx context.Context, args any) (stepOutcome, error) {
	m, err := stringOrMap(args, "script", CmdEvaluate)
	if err != nil {
		return stepOutcome{}, err
	}
	script, err := requireKey(m, "script", CmdEvaluate)
	if err != nil {
		return stepOutcome{}, err
	}
	result, err := e.target.EvaluateScript(ctx, script)
	if err != nil {
		return stepOutcome{}, wrapTargetErr(err, CmdEvaluate, "")
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return stepOutcome{output: fmt.Sprintf("%v", result)}, nil
	}
	return stepOutcome{output: string(encoded)}, nil
}

func (e *Engine) execScroll(ctx context.Context, args any) (stepOutcome, error) {
	var x, y int
	switch v := args.(type) {
	case nil:
		y = 300
	case string:
		switch v {
		case "down", "":
			y = 300
		case "up":
			y = -300
		default:
			return stepOutcome{}, fmt.Errorf("%w: scroll direction %q", ErrBadArgs, v)
		}
	case map[string]any:
		m := argMap(v)
		x = m.integer("x", 0)
		y = m.integer("y", 0)
	default:
		return stepOutcome{}, fmt.Errorf("%w: scroll wants a direction or mapping, got %T", ErrBadArgs, args)
	}
	if err := e.target.Scroll(ctx, x, y); err != nil {
		return stepOutcome{}, wrapTargetErr(err, CmdScroll, "")
	}
	return stepOutcome{output: fmt.Sprintf("scrolled by (%d,%d)", x, y)}, nil
}

func (e *Engine) execSelect(ctx context.Context, args any) (stepOutcome, error) {
	m, ok := toArgMap(args)
	if !ok {
		return stepOutcome{}, fmt.Errorf("%w: select wants a mapping with selector and value", ErrBadArgs)
	}
	sel, err := requireKey(m, "selector", CmdSelect)
	if err != nil {
		return stepOutcome{}, err
	}
	if sel, err = validSelector(sel, CmdSelect); err != nil {
		return stepOutcome{}, err
	}
	value := m.str("value")
	if err := e.target.SelectOption(ctx, sel, value); err != nil {
		return stepOutcome{}, wrapTargetErr(err, CmdSelect, sel)
	}
	return stepOutcome{output: fmt.Sprintf("selected %q in %s", value, sel)}, nil
}

func (e *Engine) execHover(ctx context.Context, args any) (stepOutcome, error) {
	m, err := stringOrMap(args, "selector", CmdHover)
	if err != nil {
		return stepOutcome{}, err
	}
	sel, err := requireKey(m, "selector", CmdHover)
	if err != nil {
		return stepOutcome{}, err
	}
	if sel, err = validSelector(sel, CmdHover); err != nil {
		return stepOutcome{}, err
	}
	timeout := m.duration("timeout", e.cfg.DefaultTimeout)
	if err := e.target.Hover(ctx, sel, timeout); err != nil {
		return stepOutcome{}, wrapTargetErr(err, CmdHover, sel)
	}
	return stepOutcome{output: "hovered " + sel}, nil
}

func (e *Engine) execFill(ctx context.Context, args any) (stepOutcome, error) {
	m, ok := toArgMap(args)
	if !ok {
		return stepOutcome{}, fmt.Errorf("%w: fill wants a mapping with selector and value", ErrBadArgs)
	}
	sel, err := requireKey(m, "selector", CmdFill)
	if err != nil {
		return stepOutcome{}, err
	}
	if sel, err = validSelector(sel, CmdFill); err != nil {
		return stepOutcome{}, err
	}
	value := m.str("value")
	if err := e.target.Fill(ctx, sel, value); err != nil {
		return stepOutcome{}, wrapTargetErr(err, CmdFill, sel)
	}
	return stepOutcome{output: "filled " + sel}, nil
}

func (e *Engine) execPress(ctx context.Context, args any) (stepOutcome, error) {
	m, err := stringOrMap(args, "key", CmdPress)
	if err != nil {
		return stepOutcome{}, err
	}
	key, err := requireKey(m, "key", CmdPress)
	if err != nil {
		return stepOutcome{}, err
	}
	sel := m.str("selector")
	if sel != "" {
		if sel, err = validSelector(sel, CmdPress); err != nil {
			return stepOutcome{}, err
		}
	}
	if err := e.target.Press(ctx, sel, key); err != nil {
		return stepOutcome{}, wrapTargetErr(err, CmdPress, sel)
	}
	return stepOutcome{output: "pressed " + key}, nil
}

func (e *Engine) execCheckpoint(ctx context.Context, index int, args any, res *Result) (stepOutcome, error) {
	m, err := stringOrMap(args, "name", CmdCheckpoint)
	if err != nil {
		return stepOutcome{}, err
	}
	url, err := e.target.URL(ctx)
	if err != nil {
		// a snapshot without its URL is not worth recording
		return stepOutcome{}, wrapTargetErr(err, CmdCheckpoint, "")
	}
	title, err := e.target.Title(ctx)
	if err != nil {
		e.logger.Warn("checkpoint title unavailable", zap.Error(err))
	}
	cp := Checkpoint{
		ID:         uuid.NewString(),
		Name:       m.str("name"),
		URL:        url,
		Title:      title,
		StepNumber: index,
		CreatedAt:  time.Now(),
	}
	res.Checkpoints = append(res.Checkpoints, cp)

	label := cp.Name
	if label == "" {
		label = cp.ID
	}
	return stepOutcome{output: "checkpoint " + label, checkpoint: &cp}, nil
}

// IsTimeout reports whether err is a target timeout, surfaced distinctly so
// callers can special-case retries.
func IsTimeout(err error) bool {
	return errors.Is(err, target.ErrTimeout)
}
