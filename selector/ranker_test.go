package selector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/pageflow/target"
	"github.com/BaSui01/pageflow/target/targettest"
)

func TestRanker_Rank_PrefersQualifiedRepeatedSelector(t *testing.T) {
	fake := &targettest.FakeTarget{}
	// A page with 500 bare divs and 12 structured result items.
	for i := 0; i < 500; i++ {
		fake.AddElement("div", target.ElementInfo{Tag: "div"})
	}
	fake.SetText(".result-item", "Widget A $19.99", "Widget B $24.99")
	for i := 0; i < 10; i++ {
		fake.AddElement(".result-item", target.ElementInfo{Tag: "div", Visible: true})
	}

	r := NewRanker(fake, DefaultWeights(), nil, nil)
	ranked, err := r.Rank(context.Background(), []string{"div", ".result-item"})
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	assert.Equal(t, ".result-item", ranked[0].Selector)
	assert.Equal(t, 12, ranked[0].Matches)
	assert.Greater(t, ranked[0].Confidence, ranked[1].Confidence)
	assert.Equal(t, "div", ranked[1].Selector)
}

func TestRanker_Rank_DropsZeroMatches(t *testing.T) {
	fake := &targettest.FakeTarget{}
	fake.SetText(".present", "some text long enough")

	r := NewRanker(fake, DefaultWeights(), nil, nil)
	ranked, err := r.Rank(context.Background(), []string{".absent", ".present"})
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, ".present", ranked[0].Selector)
}

func TestRanker_Rank_NormalizesCandidates(t *testing.T) {
	fake := &targettest.FakeTarget{}
	fake.SetText(`a[href="/x"]`, "link text")

	r := NewRanker(fake, DefaultWeights(), nil, nil)
	ranked, err := r.Rank(context.Background(), []string{`a[href='/x']`})
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, `a[href="/x"]`, ranked[0].Selector)
}

func TestRanker_Rank_SkipsFailingProbes(t *testing.T) {
	fake := &targettest.FakeTarget{
		FailWith: map[string]error{"query_count .broken": assert.AnError},
	}
	fake.SetText(".ok", "visible row text here")

	r := NewRanker(fake, DefaultWeights(), nil, nil)
	ranked, err := r.Rank(context.Background(), []string{".broken", ".ok"})
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, ".ok", ranked[0].Selector)
}

func TestRanker_Confidence(t *testing.T) {
	r := NewRanker(&targettest.FakeTarget{}, DefaultWeights(), nil, nil)

	tests := []struct {
		name     string
		sel      string
		count    int
		samples  []string
		expected float64
	}{
		{
			// base + many + qualified + container + uniform
			name:     "repeated container class",
			sel:      ".result-item",
			count:    12,
			samples:  []string{"Widget A $19.99", "Widget B $24.99"},
			expected: 1.0,
		},
		{
			// base - generic penalty
			name:     "bare generic tag",
			sel:      "div",
			count:    3,
			samples:  nil,
			expected: 0.2,
		},
		{
			// base + some + qualified
			name:     "some matches",
			sel:      ".name",
			count:    5,
			samples:  nil,
			expected: 0.7,
		},
		{
			// base only
			name:     "single semantic tag",
			sel:      "article",
			count:    1,
			samples:  nil,
			expected: 0.5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, r.confidence(tt.sel, tt.count, tt.samples), 1e-9)
		})
	}
}

func TestRanker_Confidence_Clamped(t *testing.T) {
	w := DefaultWeights()
	w.GenericPenalty = 2.0
	r := NewRanker(&targettest.FakeTarget{}, w, nil, nil)
	assert.Equal(t, 0.0, r.confidence("div", 1, nil))

	w = DefaultWeights()
	w.Base = 0.9
	r = NewRanker(&targettest.FakeTarget{}, w, nil, nil)
	assert.Equal(t, 1.0, r.confidence(".result-item", 50, []string{"aaaa", "aaab"}))
}

func TestUniformLengths(t *testing.T) {
	assert.False(t, uniformLengths(nil))
	assert.False(t, uniformLengths([]string{"only one"}))
	assert.True(t, uniformLengths([]string{"Widget A $19.99", "Widget B $24.99"}))
	assert.False(t, uniformLengths([]string{"x", "a much longer piece of sampled text than the first"}))
}

func TestRanker_FindAlternatives(t *testing.T) {
	fake := &targettest.FakeTarget{
		Classes: []string{"result-card", "result-row", "nav-bar"},
	}
	fake.SetText(".result-card", "alpha")
	fake.SetText("#list", "beta")
	fake.SetText("ul", "gamma")

	r := NewRanker(fake, DefaultWeights(), nil, nil)

	// The compound selector fails as a whole; its tokens are probed one at
	// a time, and class prefixes catch the renamed class.
	alts, err := r.FindAlternatives(context.Background(), "ul#list .result-item", 5)
	require.NoError(t, err)

	assert.Contains(t, alts, "#list")
	assert.Contains(t, alts, "ul")
	assert.Contains(t, alts, ".result-card")
	assert.NotContains(t, alts, ".result-item")
}

func TestRanker_FindAlternatives_RespectsLimit(t *testing.T) {
	fake := &targettest.FakeTarget{}
	fake.SetText(".a-one", "x")
	fake.SetText("#b", "y")
	fake.SetText("div", "z")

	r := NewRanker(fake, DefaultWeights(), nil, nil)
	alts, err := r.FindAlternatives(context.Background(), "div#b.a-one", 1)
	require.NoError(t, err)
	assert.Len(t, alts, 1)
}

func TestRanker_FindAlternatives_NothingMatches(t *testing.T) {
	r := NewRanker(&targettest.FakeTarget{}, DefaultWeights(), nil, nil)
	alts, err := r.FindAlternatives(context.Background(), ".gone", 5)
	require.NoError(t, err)
	assert.Empty(t, alts)
}
