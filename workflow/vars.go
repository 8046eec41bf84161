package workflow

import "regexp"

var varRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Substitute replaces every ${name} occurrence in v with the bound value from
// vars, recursing through maps and slices so nested step arguments are
// covered. Unbound names substitute to the empty string; this preserves the
// historical behavior and is deliberately not an error (see SubstituteString).
func Substitute(v any, vars map[string]string) any {
	switch val := v.(type) {
	case string:
		return SubstituteString(val, vars)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Substitute(item, vars)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Substitute(item, vars)
		}
		return out
	default:
		return v
	}
}

// SubstituteString applies ${name} substitution to one string. An unresolved
// name becomes the empty string rather than an error, which can mask operator
// typos; callers wanting stricter behavior can pre-check with UnboundNames.
func SubstituteString(s string, vars map[string]string) string {
	return varRe.ReplaceAllStringFunc(s, func(m string) string {
		name := varRe.FindStringSubmatch(m)[1]
		return vars[name]
	})
}

// UnboundNames returns the variable names referenced in v, recursively, that
// have no binding in vars.
func UnboundNames(v any, vars map[string]string) []string {
	seen := make(map[string]bool)
	var unbound []string
	var walk func(v any)
	walk = func(v any) {
		switch val := v.(type) {
		case string:
			for _, m := range varRe.FindAllStringSubmatch(val, -1) {
				name := m[1]
				if _, ok := vars[name]; !ok && !seen[name] {
					seen[name] = true
					unbound = append(unbound, name)
				}
			}
		case map[string]any:
			for _, item := range val {
				walk(item)
			}
		case []any:
			for _, item := range val {
				walk(item)
			}
		}
	}
	walk(v)
	return unbound
}
