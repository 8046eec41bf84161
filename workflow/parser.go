package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/pageflow/selector"
)

// Workflow is a parsed workflow document: a name, a default variable table,
// and the ordered step list.
type Workflow struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Variables   map[string]string `yaml:"variables,omitempty"`
	Steps       []Step            `yaml:"steps"`
}

// Parse decodes a workflow from YAML and statically checks it: every step
// must carry a recognized command, and an empty step list is rejected.
func Parse(data []byte) (*Workflow, error) {
	var wf Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse workflow: %w", err)
	}
	if len(wf.Steps) == 0 {
		return nil, fmt.Errorf("workflow has no steps")
	}
	for i, step := range wf.Steps {
		if !KnownCommand(step.Command) {
			return nil, fmt.Errorf("step %d: %w: %q", i+1, ErrUnknownCommand, step.Command)
		}
	}
	return &wf, nil
}

// ParseFile reads and parses a workflow file.
func ParseFile(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow file: %w", err)
	}
	return Parse(data)
}

// Lint reports non-fatal problems in a workflow: structurally invalid
// selectors and variable references with no binding in the workflow's own
// variable table. It assumes selector-bearing arguments use the conventional
// keys; it never contacts a target.
func Lint(wf *Workflow) []string {
	var problems []string
	for i, step := range wf.Steps {
		if names := UnboundNames(step.Args, wf.Variables); len(names) > 0 {
			problems = append(problems, fmt.Sprintf("step %d (%s): unbound variables %v substitute to empty strings", i+1, step.Command, names))
		}
		if sel := stepSelector(step); sel != "" {
			if !selectorMayContainVars(sel) && !validLint(sel) {
				problems = append(problems, fmt.Sprintf("step %d (%s): selector %q is structurally invalid", i+1, step.Command, sel))
			}
		}
	}
	return problems
}

// stepSelector pulls the selector argument out of a step, if it has one.
func stepSelector(step Step) string {
	switch step.Command {
	case CmdClick, CmdHover, CmdWait, CmdAssert:
		switch v := step.Args.(type) {
		case string:
			if step.Command == CmdWait {
				if _, isDuration := parseDurationArg(v); isDuration {
					return ""
				}
			}
			return v
		case map[string]any:
			return argMap(v).str("selector")
		}
	case CmdType, CmdSelect, CmdFill, CmdPress:
		if m, ok := toArgMap(step.Args); ok {
			return m.str("selector")
		}
	}
	return ""
}

func selectorMayContainVars(sel string) bool {
	return varRe.MatchString(sel)
}

func validLint(sel string) bool {
	return selector.IsValid(selector.Normalize(sel))
}
