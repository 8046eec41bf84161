package digest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/pageflow/target"
	"github.com/BaSui01/pageflow/target/targettest"
)

func scanFixture() *target.PageScan {
	return &target.PageScan{
		ClassCounts: map[string]int{
			"result-item": 12,
			"price":       12,
			"one-off":     1,
			"pair":        2,
		},
		RoleCounts: map[string]int{
			"listitem": 12,
			"dialog":   1,
		},
		TagCounts: map[string]int{
			"article": 12,
			"div":     500,
			"nav":     2,
		},
		TextSamples: []string{
			"Widget A $19.99",
			"Widget A $19.99",
			"  Widget B $24.99  ",
			"short",
			strings.Repeat("long prose ", 20),
		},
		DataAttrs: []string{"data-testid", "aria-label", "data-testid"},
	}
}

func TestBuild_Thresholds(t *testing.T) {
	d := build(scanFixture())

	selectors := make(map[string]int)
	for _, p := range d.Patterns {
		selectors[p.Selector] = p.Count
	}

	// Classes and roles at or above the occurrence floor survive.
	assert.Equal(t, 12, selectors[".result-item"])
	assert.Equal(t, 12, selectors[`[role="listitem"]`])
	// Below the floor they are noise.
	assert.NotContains(t, selectors, ".one-off")
	assert.NotContains(t, selectors, ".pair")
	assert.NotContains(t, selectors, `[role="dialog"]`)
	// Only semantic tags are tallied, and only above the floor.
	assert.Equal(t, 12, selectors["article"])
	assert.NotContains(t, selectors, "div")
	assert.NotContains(t, selectors, "nav")
}

func TestBuild_PatternOrdering(t *testing.T) {
	scan := &target.PageScan{
		ClassCounts: map[string]int{"b-cls": 5, "a-cls": 5, "top": 9},
	}
	d := build(scan)
	require.Len(t, d.Patterns, 3)
	assert.Equal(t, ".top", d.Patterns[0].Selector)
	// Equal counts order by selector.
	assert.Equal(t, ".a-cls", d.Patterns[1].Selector)
	assert.Equal(t, ".b-cls", d.Patterns[2].Selector)
}

func TestBuild_PatternCap(t *testing.T) {
	scan := &target.PageScan{ClassCounts: map[string]int{}}
	for i := 0; i < 50; i++ {
		scan.ClassCounts[fmt.Sprintf("cls-%02d", i)] = 3 + i
	}
	d := build(scan)
	assert.Len(t, d.Patterns, maxPatterns)
	// The cap keeps the most frequent patterns.
	assert.Equal(t, ".cls-49", d.Patterns[0].Selector)
}

func TestBuild_TextSamples(t *testing.T) {
	d := build(scanFixture())

	// Trimmed, deduplicated, and length-filtered.
	assert.Equal(t, []string{"Widget A $19.99", "Widget B $24.99"}, d.TextSamples)
}

func TestBuild_TextLengthBoundsAreExclusive(t *testing.T) {
	scan := &target.PageScan{
		TextSamples: []string{
			strings.Repeat("a", minTextLen),   // too short
			strings.Repeat("b", minTextLen+1), // kept
			strings.Repeat("c", maxTextLen-1), // kept
			strings.Repeat("d", maxTextLen),   // too long
		},
	}
	d := build(scan)
	assert.Len(t, d.TextSamples, 2)
}

func TestBuild_TextSampleCap(t *testing.T) {
	scan := &target.PageScan{}
	for i := 0; i < 100; i++ {
		scan.TextSamples = append(scan.TextSamples, fmt.Sprintf("sample text number %03d", i))
	}
	d := build(scan)
	assert.Len(t, d.TextSamples, maxTextSamples)
}

func TestBuild_DataAttrs(t *testing.T) {
	d := build(scanFixture())
	assert.Equal(t, []string{"aria-label", "data-testid"}, d.DataAttrs)

	scan := &target.PageScan{}
	for i := 0; i < 50; i++ {
		scan.DataAttrs = append(scan.DataAttrs, fmt.Sprintf("data-a%02d", i))
	}
	assert.Len(t, build(scan).DataAttrs, maxDataAttrs)
}

type fakeCacheMetrics struct {
	hits, misses int
}

func (m *fakeCacheMetrics) DigestCache(hit bool) {
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func TestCollector_CacheByURL(t *testing.T) {
	fake := &targettest.FakeTarget{
		PageURL:   "https://shop.example/results",
		PageTitle: "Results",
		Scan:      scanFixture(),
	}
	metrics := &fakeCacheMetrics{}
	c := NewCollector(fake, nil, metrics)
	ctx := context.Background()

	first, err := c.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/results", first.URL)
	assert.Equal(t, 0, metrics.hits)
	assert.Equal(t, 1, metrics.misses)

	// Same URL: the cached digest is returned, no new snapshot.
	second, err := c.Collect(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, metrics.hits)

	snapshots := 0
	for _, call := range fake.Calls {
		if call == "snapshot" {
			snapshots++
		}
	}
	assert.Equal(t, 1, snapshots)

	// Navigation invalidates by URL mismatch.
	fake.PageURL = "https://shop.example/item/42"
	third, err := c.Collect(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, "https://shop.example/item/42", third.URL)
	assert.Equal(t, 2, metrics.misses)
}

func TestCollector_Invalidate(t *testing.T) {
	fake := &targettest.FakeTarget{PageURL: "https://x.example/", Scan: scanFixture()}
	c := NewCollector(fake, nil, nil)
	ctx := context.Background()

	first, err := c.Collect(ctx)
	require.NoError(t, err)
	c.Invalidate()
	second, err := c.Collect(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestDigest_Describe(t *testing.T) {
	d := &Digest{
		URL:       "https://x.example/",
		Title:     "X",
		Patterns:  []Pattern{{Selector: ".item", Count: 12}},
		DataAttrs: []string{"data-testid"},
	}
	out := d.Describe()
	assert.Contains(t, out, "1 repeated patterns")
	assert.Contains(t, out, ".item")
	assert.Contains(t, out, "x12")
	assert.Contains(t, out, "data-testid")
}
