// Package selector provides normalization, validation, ranking, and
// disambiguation of CSS selectors against a live target page.
package selector

import (
	"fmt"
	"regexp"
	"strings"
)

// Attribute-selector quoting variants, all rewritten to double quotes.
var (
	attrEscapedRe = regexp.MustCompile(`\[\s*([-\w]+)\s*([~^$*|]?=)\s*\\'((?:[^'\\]|\\.)*)\\'\s*\]`)
	attrSingleRe  = regexp.MustCompile(`\[\s*([-\w]+)\s*([~^$*|]?=)\s*'([^']*)'\s*\]`)
	attrDoubleRe  = regexp.MustCompile(`\[\s*([-\w]+)\s*([~^$*|]?=)\s*"([^"]*)"\s*\]`)
	attrBareRe    = regexp.MustCompile(`\[\s*([-\w]+)\s*([~^$*|]?=)\s*([^"'\]\s]+)\s*\]`)
)

// Normalize rewrites attribute-selector value quoting to one canonical
// double-quoted form and trims surrounding whitespace. The escaped-quote,
// single-quoted, double-quoted, and bare variants of the same selector all
// converge to the same string, and Normalize is idempotent.
func Normalize(sel string) string {
	sel = strings.TrimSpace(sel)
	sel = attrEscapedRe.ReplaceAllString(sel, `[$1$2"$3"]`)
	sel = attrSingleRe.ReplaceAllString(sel, `[$1$2"$3"]`)
	sel = attrDoubleRe.ReplaceAllString(sel, `[$1$2"$3"]`)
	sel = attrBareRe.ReplaceAllString(sel, `[$1$2"$3"]`)
	return sel
}

// IsValid reports whether sel is structurally usable: non-empty, free of
// control characters, with balanced brackets and paired quotes. Balance is
// tracked in a single left-to-right scan with an escape flag; quotes toggle
// parity only outside the other quote type.
func IsValid(sel string) bool {
	if strings.TrimSpace(sel) == "" {
		return false
	}

	depth := 0
	inSingle, inDouble := false, false
	escaped := false
	for _, r := range sel {
		if r < 0x20 || r == 0x7f {
			return false
		}
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '[':
			if !inSingle && !inDouble {
				depth++
			}
		case ']':
			if !inSingle && !inDouble {
				depth--
				if depth < 0 {
					return false
				}
			}
		}
	}
	return depth == 0 && !inSingle && !inDouble && !escaped
}

var xpathLikeRe = regexp.MustCompile(`^\(?//`)

// SuggestFixes pattern-matches a failing selector, and optionally the error
// text that accompanied it, against a fixed rule table and returns actionable
// suggestions. The suggestions are advisory only; the selector is never
// rewritten on the caller's behalf.
func SuggestFixes(sel, errText string) []string {
	var suggestions []string

	if strings.Contains(sel, "'") && strings.Contains(sel, `"`) {
		suggestions = append(suggestions,
			"selector mixes single and double quotes; use one quote style, e.g. "+Normalize(sel))
	}
	if attrBareRe.MatchString(sel) {
		suggestions = append(suggestions,
			"attribute value is unquoted; quote it: "+Normalize(sel))
	}
	if strings.Contains(sel, ":contains(") {
		suggestions = append(suggestions,
			":contains() is not standard CSS; match on a stable attribute or assert on text instead")
	}
	if xpathLikeRe.MatchString(sel) {
		suggestions = append(suggestions,
			"selector looks like XPath; use a CSS selector, e.g. div > span instead of //div/span")
	}

	lower := strings.ToLower(errText)
	if strings.Contains(lower, "multiple") || multiMatchRe.MatchString(lower) {
		suggestions = append(suggestions,
			"selector matches more than one element; qualify it with an id, extra class, or :nth-child()")
	}
	if strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out") {
		suggestions = append(suggestions,
			fmt.Sprintf("element %q may render late; add a wait step before interacting with it", sel))
	}

	return suggestions
}

var multiMatchRe = regexp.MustCompile(`matche?[sd] \d+`)
