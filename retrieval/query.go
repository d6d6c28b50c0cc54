package retrieval

import (
	"fmt"
	"strings"

	"github.com/Sir-Shaedy/Diablo/finding"
)

// Depth selects how much grounding material an operation retrieves.
type Depth string

const (
	// DepthQuick retrieves a handful of findings for fast responses.
	DepthQuick Depth = "quick"

	// DepthStandard is the default depth.
	DepthStandard Depth = "standard"

	// DepthDeep retrieves a large grounding set for thorough reports.
	DepthDeep Depth = "deep"
)

// depthCaps maps each depth to its result-size cap.
var depthCaps = map[Depth]int{
	DepthQuick:    5,
	DepthStandard: 20,
	DepthDeep:     50,
}

// Cap returns the result-size cap for the depth. Unknown depths fall back
// to the standard cap.
func (d Depth) Cap() int {
	if n, ok := depthCaps[d]; ok {
		return n
	}
	return depthCaps[DepthStandard]
}

// IsValid returns true if the depth is one of quick, standard, or deep.
func (d Depth) IsValid() bool {
	_, ok := depthCaps[d]
	return ok
}

// ParseDepth parses a depth string case-insensitively. An empty string
// yields DepthStandard.
func ParseDepth(s string) (Depth, error) {
	if strings.TrimSpace(s) == "" {
		return DepthStandard, nil
	}
	d := Depth(strings.ToLower(strings.TrimSpace(s)))
	if !d.IsValid() {
		return "", fmt.Errorf("invalid depth: %s", s)
	}
	return d, nil
}

// Query is the value object consumed by Rank. It is never mutated after
// construction; build a new Query per request.
type Query struct {
	// Text is an optional free-text query.
	Text string

	// Tags is an optional tag set, from a code signal or an explicit topic.
	Tags []string

	// Severities is the severity allow-set. Empty allows all.
	Severities []finding.Severity

	// Limit is the hard cap on result size. Zero means no cap.
	Limit int
}

// Terms returns the lowercase free-text terms of the query, dropping short
// noise words.
func (q Query) Terms() []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(q.Text)) {
		if len(w) > 2 {
			terms = append(terms, w)
		}
	}
	return terms
}
