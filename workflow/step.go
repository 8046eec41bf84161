package workflow

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Command names recognized by the engine. Anything else is a hard error.
const (
	CmdNavigate   = "navigate"
	CmdClick      = "click"
	CmdType       = "type"
	CmdWait       = "wait"
	CmdScreenshot = "screenshot"
	CmdEvaluate   = "evaluate"
	CmdScroll     = "scroll"
	CmdSelect     = "select"
	CmdHover      = "hover"
	CmdFill       = "fill"
	CmdPress      = "press"
	CmdAssert     = "assert"
	CmdCheckpoint = "checkpoint"
)

var knownCommands = map[string]bool{
	CmdNavigate: true, CmdClick: true, CmdType: true, CmdWait: true,
	CmdScreenshot: true, CmdEvaluate: true, CmdScroll: true, CmdSelect: true,
	CmdHover: true, CmdFill: true, CmdPress: true, CmdAssert: true,
	CmdCheckpoint: true,
}

// KnownCommand reports whether name is a recognized command.
func KnownCommand(name string) bool { return knownCommands[name] }

// Step is one command plus its arguments. Args is either a bare string
// (interpreted positionally per command) or a map of named fields; the
// discriminant is the single command key the step was written with.
type Step struct {
	Command string
	Args    any
}

// NewStep builds a step programmatically.
func NewStep(command string, args any) Step {
	return Step{Command: command, Args: args}
}

// UnmarshalYAML decodes the workflow wire form: a single-key mapping
// {command: args}. A step with zero or multiple keys is malformed.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		// A bare scalar is shorthand for a command with no arguments.
		var name string
		if scalarErr := node.Decode(&name); scalarErr != nil {
			return err
		}
		s.Command = name
		s.Args = nil
		return nil
	}
	if len(raw) != 1 {
		return fmt.Errorf("step must have exactly one command key, got %d", len(raw))
	}
	for command, args := range raw {
		s.Command = command
		s.Args = args
	}
	return nil
}

// MarshalYAML re-encodes the step in its single-key wire form.
func (s Step) MarshalYAML() (any, error) {
	return map[string]any{s.Command: s.Args}, nil
}
