// Package digest builds bounded structural summaries of a target page. A
// digest captures the page's repeated selector patterns, a sample of its
// visible text, and its data/aria attribute vocabulary, and is used to seed
// selector suggestions and operator diagnostics.
package digest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/pageflow/target"
)

const (
	// minPatternCount is the occurrence floor for a selector pattern to be
	// considered a repeated structure. One or two occurrences are noise.
	minPatternCount = 3
	// maxPatterns caps the merged pattern list.
	maxPatterns = 30
	// maxTextSamples caps the sampled text nodes.
	maxTextSamples = 30
	// maxDataAttrs caps the collected data/aria attribute names.
	maxDataAttrs = 20
	// Text samples outside this exclusive length range are dropped:
	// shorter ones are labels and glyphs, longer ones are prose.
	minTextLen = 10
	maxTextLen = 100
)

// semanticTags is the allow-list of tags meaningful enough to tally on
// their own.
var semanticTags = map[string]bool{
	"article": true, "section": true, "nav": true, "header": true,
	"footer": true, "main": true, "aside": true,
}

// Pattern is one recurring selector with its occurrence count.
type Pattern struct {
	Selector string `json:"selector"`
	Count    int    `json:"count"`
}

// Digest is a bounded structural summary of one page. It is valid only for
// the URL it was collected against.
type Digest struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Patterns    []Pattern `json:"patterns"`
	TextSamples []string  `json:"text_samples,omitempty"`
	DataAttrs   []string  `json:"data_attrs,omitempty"`
	CollectedAt time.Time `json:"collected_at"`
}

// Describe renders the digest for operator diagnostics.
func (d *Digest) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "page %q (%s), %d repeated patterns\n", d.Title, d.URL, len(d.Patterns))
	for _, p := range d.Patterns {
		fmt.Fprintf(&b, "  %-40s x%d\n", p.Selector, p.Count)
	}
	if len(d.DataAttrs) > 0 {
		fmt.Fprintf(&b, "  data attributes: %s\n", strings.Join(d.DataAttrs, ", "))
	}
	return b.String()
}

// CacheMetrics receives digest cache outcomes. Satisfied by
// internal/metrics.Collector.
type CacheMetrics interface {
	DigestCache(hit bool)
}

// Collector collects digests and caches the last one per URL. The cache is
// invalidated by URL mismatch: a digest collected at URL A is never returned
// while the target is at URL B.
type Collector struct {
	target  target.Target
	logger  *zap.Logger
	metrics CacheMetrics
	cached  *Digest
}

// NewCollector creates a Collector. metrics may be nil.
func NewCollector(t target.Target, logger *zap.Logger, metrics CacheMetrics) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		target:  t,
		logger:  logger.With(zap.String("component", "digest_collector")),
		metrics: metrics,
	}
}

// Collect returns the digest for the target's current page, reusing the
// cached digest when the URL has not changed since it was collected.
func (c *Collector) Collect(ctx context.Context) (*Digest, error) {
	url, err := c.target.URL(ctx)
	if err != nil {
		return nil, fmt.Errorf("current url: %w", err)
	}
	if c.cached != nil && c.cached.URL == url {
		if c.metrics != nil {
			c.metrics.DigestCache(true)
		}
		return c.cached, nil
	}
	if c.metrics != nil {
		c.metrics.DigestCache(false)
	}

	scan, err := c.target.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect digest: %w", err)
	}

	d := build(scan)
	c.cached = d
	c.logger.Debug("digest collected",
		zap.String("url", d.URL),
		zap.Int("patterns", len(d.Patterns)),
		zap.Int("text_samples", len(d.TextSamples)))
	return d, nil
}

// Invalidate drops the cached digest.
func (c *Collector) Invalidate() {
	c.cached = nil
}

// build applies thresholds, ordering, and caps to a raw page scan.
func build(scan *target.PageScan) *Digest {
	var patterns []Pattern
	for cls, n := range scan.ClassCounts {
		if n >= minPatternCount {
			patterns = append(patterns, Pattern{Selector: "." + cls, Count: n})
		}
	}
	for role, n := range scan.RoleCounts {
		if n >= minPatternCount {
			patterns = append(patterns, Pattern{Selector: fmt.Sprintf("[role=%q]", role), Count: n})
		}
	}
	for tag, n := range scan.TagCounts {
		if semanticTags[tag] && n >= minPatternCount {
			patterns = append(patterns, Pattern{Selector: tag, Count: n})
		}
	}
	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Count != patterns[j].Count {
			return patterns[i].Count > patterns[j].Count
		}
		return patterns[i].Selector < patterns[j].Selector
	})
	if len(patterns) > maxPatterns {
		patterns = patterns[:maxPatterns]
	}

	seen := make(map[string]bool)
	var texts []string
	for _, raw := range scan.TextSamples {
		text := strings.TrimSpace(raw)
		if len(text) <= minTextLen || len(text) >= maxTextLen {
			continue
		}
		if seen[text] {
			continue
		}
		seen[text] = true
		texts = append(texts, text)
		if len(texts) >= maxTextSamples {
			break
		}
	}

	seenAttr := make(map[string]bool)
	var attrs []string
	for _, a := range scan.DataAttrs {
		if seenAttr[a] {
			continue
		}
		seenAttr[a] = true
		attrs = append(attrs, a)
		if len(attrs) >= maxDataAttrs {
			break
		}
	}
	sort.Strings(attrs)

	return &Digest{
		URL:         scan.URL,
		Title:       scan.Title,
		Patterns:    patterns,
		TextSamples: texts,
		DataAttrs:   attrs,
		CollectedAt: time.Now(),
	}
}
