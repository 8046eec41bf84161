package workflow

import (
	"fmt"
	"strconv"
	"time"
)

// argMap is the named-field form of step arguments after YAML decoding and
// variable substitution.
type argMap map[string]any

func toArgMap(args any) (argMap, bool) {
	m, ok := args.(map[string]any)
	return m, ok
}

func (m argMap) has(key string) bool {
	_, ok := m[key]
	return ok
}

func (m argMap) str(key string) string {
	if v, ok := m[key]; ok {
		switch s := v.(type) {
		case string:
			return s
		default:
			return fmt.Sprintf("%v", s)
		}
	}
	return ""
}

func (m argMap) boolean(key string, def bool) bool {
	if v, ok := m[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

func (m argMap) integer(key string, def int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// duration accepts a Go duration string ("2s", "500ms") or a bare number,
// interpreted as milliseconds for compatibility with the original workflow
// format.
func (m argMap) duration(key string, def time.Duration) time.Duration {
	switch v := m[key].(type) {
	case int:
		return time.Duration(v) * time.Millisecond
	case int64:
		return time.Duration(v) * time.Millisecond
	case float64:
		return time.Duration(v) * time.Millisecond
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Millisecond
		}
	}
	return def
}

// parseDurationArg interprets a bare argument value as a duration, if it is
// one.
func parseDurationArg(v any) (time.Duration, bool) {
	switch d := v.(type) {
	case int:
		return time.Duration(d) * time.Millisecond, true
	case int64:
		return time.Duration(d) * time.Millisecond, true
	case float64:
		return time.Duration(d) * time.Millisecond, true
	case string:
		if parsed, err := time.ParseDuration(d); err == nil {
			return parsed, true
		}
		if n, err := strconv.Atoi(d); err == nil {
			return time.Duration(n) * time.Millisecond, true
		}
	}
	return 0, false
}

// stringOrMap decodes the two wire shapes every command accepts: a bare
// string, assigned to the positional key, or a map of named fields.
func stringOrMap(args any, positionalKey, command string) (argMap, error) {
	switch v := args.(type) {
	case nil:
		return argMap{}, nil
	case string:
		return argMap{positionalKey: v}, nil
	case map[string]any:
		return argMap(v), nil
	default:
		return nil, fmt.Errorf("%w: %s wants a string or mapping, got %T", ErrBadArgs, command, args)
	}
}

func requireKey(m argMap, key, command string) (string, error) {
	s := m.str(key)
	if s == "" {
		return "", fmt.Errorf("%w: %s requires %q", ErrBadArgs, command, key)
	}
	return s, nil
}

// Wait modes, in the fixed priority order they are checked.
const (
	waitModeSelector = "selector"
	waitModeDuration = "duration"
	waitModeURL      = "url"
	waitModeMessage  = "message"
)

// waitMode picks the wait mode from the argument shape. A bare duration-like
// argument is a duration wait; any other bare string is a selector wait.
// For maps the keys are checked in fixed priority order.
func waitMode(args any) (mode string, m argMap, err error) {
	switch v := args.(type) {
	case nil:
		return "", nil, fmt.Errorf("%w: wait requires an argument", ErrBadArgs)
	case string, int, int64, float64:
		if d, ok := parseDurationArg(v); ok {
			return waitModeDuration, argMap{"duration": d.String()}, nil
		}
		return waitModeSelector, argMap{"selector": fmt.Sprintf("%v", v)}, nil
	case map[string]any:
		m := argMap(v)
		for _, mode := range []string{waitModeSelector, waitModeDuration, waitModeURL, waitModeMessage} {
			if m.has(mode) {
				return mode, m, nil
			}
		}
		return "", nil, fmt.Errorf("%w: wait requires one of selector, duration, url, message", ErrBadArgs)
	default:
		return "", nil, fmt.Errorf("%w: wait wants a string, number, or mapping, got %T", ErrBadArgs, args)
	}
}
