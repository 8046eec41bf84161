package selector

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/BaSui01/pageflow/target"
)

// maxCandidates caps how many matched elements Resolve describes.
const maxCandidates = 10

// candidateTextCap bounds the trimmed text carried per candidate.
const candidateTextCap = 50

// Candidate is one element a multi-match selector resolved to, together with
// a derived selector that uniquely identifies it on the current page. It
// carries enough context for a human or caller to pick without re-querying.
type Candidate struct {
	Selector string             `json:"selector"`
	Tag      string             `json:"tag"`
	Text     string             `json:"text,omitempty"`
	Visible  bool               `json:"visible"`
	ID       string             `json:"id,omitempty"`
	Classes  []string           `json:"classes,omitempty"`
	Box      target.BoundingBox `json:"box"`
}

// Resolution is the outcome of resolving a selector. Candidates is populated
// only when the selector matched more than one element.
type Resolution struct {
	Selector   string      `json:"selector"`
	Count      int         `json:"count"`
	Candidates []Candidate `json:"candidates,omitempty"`
}

// Describe renders the resolution for an operator choosing among candidates.
func (r *Resolution) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "selector %q matches %d elements:\n", r.Selector, r.Count)
	for i, c := range r.Candidates {
		vis := "visible"
		if !c.Visible {
			vis = "hidden"
		}
		fmt.Fprintf(&b, "  %d. %s  <%s> %s", i+1, c.Selector, c.Tag, vis)
		if c.Text != "" {
			fmt.Fprintf(&b, "  %q", c.Text)
		}
		fmt.Fprintf(&b, "  at (%.0f,%.0f)\n", c.Box.X, c.Box.Y)
	}
	return b.String()
}

// Disambiguator derives per-element unique selectors for selectors that
// match more than one element. It only queries the target, never mutates it.
type Disambiguator struct {
	target target.Target
	logger *zap.Logger
}

// NewDisambiguator creates a Disambiguator.
func NewDisambiguator(t target.Target, logger *zap.Logger) *Disambiguator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Disambiguator{
		target: t,
		logger: logger.With(zap.String("component", "selector_disambiguator")),
	}
}

// Resolve counts the elements matching sel. With zero or one match it returns
// just the count; the per-element probe is skipped since describing up to ten
// elements is comparatively expensive. With multiple matches it derives a
// unique selector per element, preferring id, then a minimal unique class
// combination, then tag:nth-child, then tag:nth-of-type.
func (d *Disambiguator) Resolve(ctx context.Context, sel string) (*Resolution, error) {
	sel = Normalize(sel)
	count, err := d.target.QueryCount(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("count %q: %w", sel, err)
	}

	res := &Resolution{Selector: sel, Count: count}
	if count <= 1 {
		return res, nil
	}

	elements, err := d.target.QueryElements(ctx, sel, maxCandidates)
	if err != nil {
		return nil, fmt.Errorf("describe %q: %w", sel, err)
	}

	for _, el := range elements {
		res.Candidates = append(res.Candidates, Candidate{
			Selector: d.uniqueSelector(ctx, el),
			Tag:      el.Tag,
			Text:     clipText(el.Text, candidateTextCap),
			Visible:  el.Visible,
			ID:       el.ID,
			Classes:  el.Classes,
			Box:      el.Box,
		})
	}

	d.logger.Debug("disambiguated selector",
		zap.String("selector", sel),
		zap.Int("count", count),
		zap.Int("candidates", len(res.Candidates)))
	return res, nil
}

// uniqueSelector derives a selector matching exactly el, in strict priority
// order: id, unique class combination (1 class, then up to 3), nth-child,
// nth-of-type as last resort.
func (d *Disambiguator) uniqueSelector(ctx context.Context, el target.ElementInfo) string {
	if el.ID != "" {
		sel := "#" + el.ID
		if d.matchesOne(ctx, sel) {
			return sel
		}
	}

	for _, cls := range el.Classes {
		sel := "." + cls
		if d.matchesOne(ctx, sel) {
			return sel
		}
	}
	for width := 2; width <= 3 && width <= len(el.Classes); width++ {
		sel := "." + strings.Join(el.Classes[:width], ".")
		if d.matchesOne(ctx, sel) {
			return sel
		}
	}

	sel := fmt.Sprintf("%s:nth-child(%d)", el.Tag, el.NthChild)
	if d.matchesOne(ctx, sel) {
		return sel
	}
	return fmt.Sprintf("%s:nth-of-type(%d)", el.Tag, el.NthOfType)
}

func (d *Disambiguator) matchesOne(ctx context.Context, sel string) bool {
	count, err := d.target.QueryCount(ctx, sel)
	return err == nil && count == 1
}

// clipText cuts s to at most max bytes without splitting a rune.
func clipText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
