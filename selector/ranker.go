package selector

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/pageflow/target"
)

// Ranked is one candidate selector scored against the live page.
type Ranked struct {
	Selector   string   `json:"selector"`
	Matches    int      `json:"matches"`
	Samples    []string `json:"samples,omitempty"`
	Confidence float64  `json:"confidence"`
}

// Weights are the ranking heuristic's tunable constants. The defaults are the
// empirically chosen values the heuristic shipped with; they break ties among
// structurally plausible selectors, nothing more.
type Weights struct {
	Base           float64 `yaml:"base" json:"base"`
	ManyMatches    float64 `yaml:"many_matches" json:"many_matches"`
	SomeMatches    float64 `yaml:"some_matches" json:"some_matches"`
	Qualified      float64 `yaml:"qualified" json:"qualified"`
	GenericPenalty float64 `yaml:"generic_penalty" json:"generic_penalty"`
	ContainerBonus float64 `yaml:"container_bonus" json:"container_bonus"`
	UniformBonus   float64 `yaml:"uniform_bonus" json:"uniform_bonus"`
	ManyThreshold  int     `yaml:"many_threshold" json:"many_threshold"`
	SomeThreshold  int     `yaml:"some_threshold" json:"some_threshold"`
}

// DefaultWeights returns the stock ranking constants.
func DefaultWeights() Weights {
	return Weights{
		Base:           0.5,
		ManyMatches:    0.2,
		SomeMatches:    0.1,
		Qualified:      0.1,
		GenericPenalty: 0.3,
		ContainerBonus: 0.1,
		UniformBonus:   0.1,
		ManyThreshold:  10,
		SomeThreshold:  5,
	}
}

// sampleLimit is how many matched elements' text the ranker inspects.
const sampleLimit = 2

var genericTags = map[string]bool{"div": true, "span": true}

var containerKeywords = []string{"item", "card", "row", "result"}

// RankMetrics receives ranking pass counts. Satisfied by
// internal/metrics.Collector.
type RankMetrics interface {
	SelectorRanked()
}

// Ranker scores candidate selectors against a live target.
type Ranker struct {
	target  target.Target
	weights Weights
	logger  *zap.Logger
	metrics RankMetrics
}

// NewRanker creates a Ranker with the given weights. metrics may be nil.
func NewRanker(t target.Target, weights Weights, logger *zap.Logger, metrics RankMetrics) *Ranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ranker{
		target:  t,
		weights: weights,
		logger:  logger.With(zap.String("component", "selector_ranker")),
		metrics: metrics,
	}
}

// Rank probes each candidate against the target and returns the ones that
// match at least one element, ordered by confidence descending with raw match
// count breaking ties. Candidates matching zero elements are dropped.
func (r *Ranker) Rank(ctx context.Context, candidates []string) ([]Ranked, error) {
	if r.metrics != nil {
		r.metrics.SelectorRanked()
	}
	var ranked []Ranked
	for _, cand := range candidates {
		sel := Normalize(cand)
		count, err := r.target.QueryCount(ctx, sel)
		if err != nil {
			r.logger.Debug("candidate probe failed", zap.String("selector", sel), zap.Error(err))
			continue
		}
		if count == 0 {
			continue
		}

		samples, err := r.target.QueryTextAll(ctx, sel, sampleLimit)
		if err != nil {
			samples = nil
		}

		ranked = append(ranked, Ranked{
			Selector:   sel,
			Matches:    count,
			Samples:    samples,
			Confidence: r.confidence(sel, count, samples),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		return ranked[i].Matches > ranked[j].Matches
	})
	return ranked, nil
}

// confidence scores a selector in [0,1] from its match count, shape, and the
// uniformity of its sampled text.
func (r *Ranker) confidence(sel string, count int, samples []string) float64 {
	w := r.weights
	score := w.Base

	switch {
	case count >= w.ManyThreshold:
		score += w.ManyMatches
	case count >= w.SomeThreshold:
		score += w.SomeMatches
	}

	if strings.ContainsAny(sel, ".[#") {
		score += w.Qualified
	}
	if genericTags[sel] {
		score -= w.GenericPenalty
	}

	lower := strings.ToLower(sel)
	for _, kw := range containerKeywords {
		if strings.Contains(lower, kw) {
			score += w.ContainerBonus
			break
		}
	}

	if uniformLengths(samples) {
		score += w.UniformBonus
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// uniformLengths reports whether the sampled texts look like repeated
// structured data: at least two samples whose length variance is low.
func uniformLengths(samples []string) bool {
	if len(samples) < 2 {
		return false
	}
	mean := 0.0
	for _, s := range samples {
		mean += float64(len(s))
	}
	mean /= float64(len(samples))

	variance := 0.0
	for _, s := range samples {
		d := float64(len(s)) - mean
		variance += d * d
	}
	variance /= float64(len(samples))
	return variance <= 100
}

var (
	classTokenRe = regexp.MustCompile(`\.[-\w]+`)
	idTokenRe    = regexp.MustCompile(`#[-\w]+`)
	attrTokenRe  = regexp.MustCompile(`\[[^\]]+\]`)
	tagTokenRe   = regexp.MustCompile(`^[a-zA-Z][-\w]*`)
)

// classPrefixLen is how many leading characters of a class token are used as
// a fuzzy probe for renamed or hash-suffixed class names.
const classPrefixLen = 3

// FindAlternatives decomposes a failed selector into its component tokens,
// re-probes each token individually, and additionally searches for classes
// sharing the first characters of any class token. It returns up to limit
// selectors that currently match something; the result is not ranked.
func (r *Ranker) FindAlternatives(ctx context.Context, failed string, limit int) ([]string, error) {
	failed = Normalize(failed)

	tokens := classTokenRe.FindAllString(failed, -1)
	tokens = append(tokens, idTokenRe.FindAllString(failed, -1)...)
	tokens = append(tokens, attrTokenRe.FindAllString(failed, -1)...)
	if tag := tagTokenRe.FindString(failed); tag != "" {
		tokens = append(tokens, tag)
	}

	seen := map[string]bool{failed: true}
	var alternatives []string
	probe := func(sel string) {
		if len(alternatives) >= limit || seen[sel] {
			return
		}
		seen[sel] = true
		count, err := r.target.QueryCount(ctx, sel)
		if err == nil && count > 0 {
			alternatives = append(alternatives, sel)
		}
	}

	for _, tok := range tokens {
		probe(tok)
	}

	// Fuzzy pass: classes that share a prefix with any failed class token
	// catch renamed and build-hashed class names.
	for _, tok := range classTokenRe.FindAllString(failed, -1) {
		name := strings.TrimPrefix(tok, ".")
		if len(name) < classPrefixLen {
			continue
		}
		classes, err := r.target.SearchClasses(ctx, name[:classPrefixLen], limit)
		if err != nil {
			continue
		}
		for _, c := range classes {
			probe("." + c)
		}
	}

	return alternatives, nil
}
