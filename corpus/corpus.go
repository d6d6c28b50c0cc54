package corpus

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/Sir-Shaedy/Diablo/finding"
	"github.com/google/uuid"
)

// Snapshot is one immutable, consistent view of the finding corpus. A
// snapshot is built once and never mutated, so any number of concurrent
// readers can share it without coordination.
type Snapshot struct {
	findings []finding.Finding
	byID     map[string]int
	version  string
	taken    time.Time
}

// emptySnapshot backs Index.Snapshot before the first load.
var emptySnapshot = &Snapshot{byID: map[string]int{}}

// newSnapshot builds a snapshot, dropping duplicate IDs (first wins) and
// records that fail validation.
func newSnapshot(findings []finding.Finding) *Snapshot {
	s := &Snapshot{
		findings: make([]finding.Finding, 0, len(findings)),
		byID:     make(map[string]int, len(findings)),
		version:  uuid.New().String(),
		taken:    time.Now(),
	}
	for _, f := range findings {
		if f.Validate() != nil {
			continue
		}
		if _, dup := s.byID[f.ID]; dup {
			continue
		}
		s.byID[f.ID] = len(s.findings)
		s.findings = append(s.findings, f)
	}
	return s
}

// Len returns the number of findings in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.findings)
}

// Version returns the snapshot's unique version identifier.
func (s *Snapshot) Version() string {
	return s.version
}

// Taken returns when the snapshot was built.
func (s *Snapshot) Taken() time.Time {
	return s.taken
}

// Get returns the finding with the given ID.
func (s *Snapshot) Get(id string) (finding.Finding, bool) {
	idx, ok := s.byID[id]
	if !ok {
		return finding.Finding{}, false
	}
	return s.findings[idx], true
}

// Lookup describes a candidate query against a snapshot. Exact topic lookup
// (Text only) and structural-signal lookup (Tags only) both reduce to this
// one primitive.
type Lookup struct {
	// Tags selects findings sharing at least one exact tag. No stemming.
	Tags []string

	// Text selects findings whose title, tags, or body contain at least
	// one query term. Matching is case-insensitive substring overlap.
	Text string

	// Severities is the severity allow-set. Empty allows all severities.
	Severities []finding.Severity

	// Limit caps the number of candidates returned. Zero means no cap.
	Limit int
}

// Candidates returns the findings matching the lookup, in snapshot order.
// A lookup that matches nothing returns an empty slice, a valid terminal
// outcome rather than an error.
func (s *Snapshot) Candidates(q Lookup) []finding.Finding {
	terms := queryTerms(q.Text)
	allowed := map[finding.Severity]bool{}
	for _, sev := range q.Severities {
		allowed[sev] = true
	}

	var out []finding.Finding
	for _, f := range s.findings {
		if len(allowed) > 0 && !allowed[f.Severity] {
			continue
		}
		if !matchesTopic(f, q.Tags, terms) {
			continue
		}
		out = append(out, f)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out
}

// matchesTopic reports whether the finding matches the tag set or the text
// terms. With neither specified, every finding matches (severity-only scan).
func matchesTopic(f finding.Finding, tags []string, terms []string) bool {
	if len(tags) == 0 && len(terms) == 0 {
		return true
	}
	for _, tag := range tags {
		if f.HasTag(tag) {
			return true
		}
	}
	if len(terms) > 0 {
		hay := f.Haystack()
		for _, term := range terms {
			if strings.Contains(hay, term) {
				return true
			}
		}
	}
	return false
}

// queryTerms splits free text into lowercase match terms, dropping short
// noise words.
func queryTerms(text string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if len(w) > 2 {
			terms = append(terms, w)
		}
	}
	return terms
}

// Index owns the current corpus snapshot behind an atomic pointer. Readers
// never block on a refresh and never observe a torn snapshot: Replace swaps
// the whole snapshot in one atomic store.
type Index struct {
	snap atomic.Pointer[Snapshot]
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	ix := &Index{}
	ix.snap.Store(emptySnapshot)
	return ix
}

// Snapshot returns the current snapshot. The result stays consistent for
// the caller's whole request even if a refresh lands meanwhile.
func (ix *Index) Snapshot() *Snapshot {
	return ix.snap.Load()
}

// Replace builds a snapshot from the given findings and atomically swaps it
// in. In-flight readers keep their old snapshot.
func (ix *Index) Replace(findings []finding.Finding) *Snapshot {
	s := newSnapshot(findings)
	ix.snap.Store(s)
	return s
}
