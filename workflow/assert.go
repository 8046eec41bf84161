package workflow

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Assert check kinds, in the priority order execAssert tries them.
const (
	checkScript   = "script"
	checkContains = "text_contains"
	checkEquals   = "text_equals"
	checkValue    = "input_value"
	checkVisible  = "visible"
	checkCount    = "element_count"
	checkExists   = "exists"
)

// execAssert evaluates one assert step. A bare string asserts existence of
// that selector; a mapping picks exactly one check by which key is present.
// Every check produces a distinct AssertionError with expected and actual.
func (e *Engine) execAssert(ctx context.Context, args any) (stepOutcome, error) {
	m, err := stringOrMap(args, "selector", CmdAssert)
	if err != nil {
		return stepOutcome{}, err
	}

	if m.has("script") {
		return e.assertScript(ctx, m.str("script"))
	}

	sel, err := requireKey(m, "selector", CmdAssert)
	if err != nil {
		return stepOutcome{}, err
	}
	if sel, err = validSelector(sel, CmdAssert); err != nil {
		return stepOutcome{}, err
	}

	switch {
	case m.has("contains"):
		return e.assertText(ctx, sel, m.str("contains"), false)
	case m.has("equals"):
		return e.assertText(ctx, sel, m.str("equals"), true)
	case m.has("value"):
		return e.assertValue(ctx, sel, m.str("value"))
	case m.has("visible"):
		return e.assertVisible(ctx, sel, m.boolean("visible", true))
	case m.has("count"):
		return e.assertCount(ctx, sel, m.integer("count", 0))
	default:
		return e.assertExists(ctx, sel, m.boolean("exists", true))
	}
}

func (e *Engine) assertScript(ctx context.Context, script string) (stepOutcome, error) {
	result, err := e.target.EvaluateScript(ctx, script)
	if err != nil {
		return stepOutcome{}, wrapTargetErr(err, CmdAssert, "")
	}
	if !truthy(result) {
		return stepOutcome{}, &AssertionError{
			Check:    checkScript,
			Expected: "truthy result",
			Actual:   fmt.Sprintf("%v", result),
		}
	}
	return stepOutcome{output: "script is truthy"}, nil
}

func (e *Engine) assertText(ctx context.Context, sel, want string, exact bool) (stepOutcome, error) {
	text, err := e.target.QueryText(ctx, sel)
	if err != nil {
		return stepOutcome{}, wrapTargetErr(err, CmdAssert, sel)
	}
	if exact {
		if text != want {
			return stepOutcome{}, &AssertionError{Check: checkEquals, Selector: sel, Expected: want, Actual: text}
		}
		return stepOutcome{output: fmt.Sprintf("%s text equals %q", sel, want)}, nil
	}
	if !strings.Contains(text, want) {
		return stepOutcome{}, &AssertionError{Check: checkContains, Selector: sel, Expected: "text containing " + strconv.Quote(want), Actual: text}
	}
	return stepOutcome{output: fmt.Sprintf("%s text contains %q", sel, want)}, nil
}

func (e *Engine) assertValue(ctx context.Context, sel, want string) (stepOutcome, error) {
	value, err := e.target.QueryInputValue(ctx, sel)
	if err != nil {
		return stepOutcome{}, wrapTargetErr(err, CmdAssert, sel)
	}
	if value != want {
		return stepOutcome{}, &AssertionError{Check: checkValue, Selector: sel, Expected: want, Actual: value}
	}
	return stepOutcome{output: fmt.Sprintf("%s value is %q", sel, want)}, nil
}

func (e *Engine) assertVisible(ctx context.Context, sel string, want bool) (stepOutcome, error) {
	visible, err := e.target.QueryVisible(ctx, sel)
	if err != nil {
		return stepOutcome{}, wrapTargetErr(err, CmdAssert, sel)
	}
	if visible != want {
		return stepOutcome{}, &AssertionError{
			Check:    checkVisible,
			Selector: sel,
			Expected: fmt.Sprintf("visible=%t", want),
			Actual:   fmt.Sprintf("visible=%t", visible),
		}
	}
	return stepOutcome{output: fmt.Sprintf("%s visible=%t", sel, visible)}, nil
}

func (e *Engine) assertCount(ctx context.Context, sel string, want int) (stepOutcome, error) {
	count, err := e.target.QueryCount(ctx, sel)
	if err != nil {
		return stepOutcome{}, wrapTargetErr(err, CmdAssert, sel)
	}
	if count != want {
		return stepOutcome{}, &AssertionError{
			Check:    checkCount,
			Selector: sel,
			Expected: strconv.Itoa(want),
			Actual:   strconv.Itoa(count),
		}
	}
	return stepOutcome{output: fmt.Sprintf("%s matches %d elements", sel, count)}, nil
}

func (e *Engine) assertExists(ctx context.Context, sel string, want bool) (stepOutcome, error) {
	count, err := e.target.QueryCount(ctx, sel)
	if err != nil {
		return stepOutcome{}, wrapTargetErr(err, CmdAssert, sel)
	}
	exists := count > 0
	if exists != want {
		return stepOutcome{}, &AssertionError{
			Check:    checkExists,
			Selector: sel,
			Expected: fmt.Sprintf("exists=%t", want),
			Actual:   fmt.Sprintf("exists=%t (%d matches)", exists, count),
		}
	}
	return stepOutcome{output: fmt.Sprintf("%s exists=%t", sel, exists)}, nil
}

// truthy applies JavaScript-flavored truthiness to an evaluate result.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	default:
		return true
	}
}
