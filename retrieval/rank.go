package retrieval

import (
	"sort"
	"strings"

	"github.com/Sir-Shaedy/Diablo/finding"
)

// Score bands. Tag overlap dominates, severity breaks ties between equal
// overlaps, and free-text term overlap breaks ties below that. The term
// band is capped so it can never bleed into the severity band.
const (
	tagOverlapBand = 10000
	severityBand   = 100
	maxTermScore   = severityBand - 1
)

// severityBonus maps severities to their ranking bonus within the severity
// band. Higher severity always outranks lower at equal tag overlap.
var severityBonus = map[finding.Severity]int{
	finding.SeverityCritical: 12,
	finding.SeverityHigh:     8,
	finding.SeverityMedium:   4,
	finding.SeverityLow:      2,
	finding.SeverityGas:      0,
}

// Scored pairs a finding with its composite relevance score.
type Scored struct {
	Finding finding.Finding
	Score   int
}

// Result is an ordered sequence of scored findings, strictly non-increasing
// by score, with no duplicate IDs, capped at the query limit.
type Result struct {
	Items []Scored
}

// Len returns the number of ranked findings.
func (r Result) Len() int {
	return len(r.Items)
}

// Empty reports whether the result holds no findings. An empty result is a
// valid terminal outcome, not a failure.
func (r Result) Empty() bool {
	return len(r.Items) == 0
}

// Findings returns the ranked findings without scores.
func (r Result) Findings() []finding.Finding {
	out := make([]finding.Finding, len(r.Items))
	for i, item := range r.Items {
		out[i] = item.Finding
	}
	return out
}

// Rank scores the candidates against the query and returns them ordered by
// composite score. Given identical inputs, the output is byte-identical
// across calls: the sort uses a total order (score, quality, ID) and no
// map iteration feeds the result.
//
// The result-size cap is enforced here, before any downstream generation
// ever sees the findings.
func Rank(q Query, candidates []finding.Finding) Result {
	terms := q.Terms()
	allowed := map[finding.Severity]bool{}
	for _, sev := range q.Severities {
		allowed[sev] = true
	}

	scored := make([]Scored, 0, len(candidates))
	seen := map[string]bool{}
	for _, f := range candidates {
		if len(allowed) > 0 && !allowed[f.Severity] {
			continue
		}
		if seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		scored = append(scored, Scored{Finding: f, Score: score(q, terms, f)})
	}

	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Finding.QualityScore != b.Finding.QualityScore {
			return a.Finding.QualityScore > b.Finding.QualityScore
		}
		return a.Finding.ID < b.Finding.ID
	})

	if q.Limit > 0 && len(scored) > q.Limit {
		scored = scored[:q.Limit]
	}
	return Result{Items: scored}
}

// score computes the composite relevance score of one finding.
func score(q Query, terms []string, f finding.Finding) int {
	overlap := 0
	for _, tag := range q.Tags {
		if f.HasTag(tag) {
			overlap++
		}
	}

	termHits := 0
	if len(terms) > 0 {
		hay := f.Haystack()
		for _, term := range terms {
			if strings.Contains(hay, term) {
				termHits++
			}
		}
		if termHits > maxTermScore {
			termHits = maxTermScore
		}
	}

	return overlap*tagOverlapBand + severityBonus[f.Severity]*severityBand + termHits
}
