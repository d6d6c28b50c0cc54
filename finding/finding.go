package finding

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Finding is an immutable historical audit-report record. Findings are
// loaded once per corpus snapshot and never mutated; a corpus refresh
// replaces the whole snapshot rather than editing records in place.
type Finding struct {
	// ID is a stable identifier for the finding. Upstream sources usually
	// provide a slug; NewFinding generates a UUID when none exists.
	ID string `json:"id"`

	// Title is a brief summary of the finding.
	Title string `json:"title"`

	// Body is the report text. It may contain markdown or HTML code fences.
	Body string `json:"body"`

	// Severity classifies the finding (critical > high > medium > low > gas).
	Severity Severity `json:"severity"`

	// Tags are labels used for exact-intersection matching during retrieval.
	// Insertion order carries no meaning.
	Tags []string `json:"tags,omitempty"`

	// Firm is the audit firm that published the finding.
	Firm string `json:"firm"`

	// Protocol is the audited protocol the finding was reported against.
	Protocol string `json:"protocol"`

	// QualityScore rates the report quality from 0 to 5. It is used only
	// for display and as the final ranking tie-break.
	QualityScore float64 `json:"quality_score"`

	// SourceLink points at the published report.
	SourceLink string `json:"source_link,omitempty"`

	// GithubLink points at the affected code, when known.
	GithubLink string `json:"github_link,omitempty"`
}

// New creates a Finding with required fields and a generated ID.
func New(title, body string, severity Severity) Finding {
	return Finding{
		ID:       uuid.New().String(),
		Title:    title,
		Body:     body,
		Severity: severity,
	}
}

// Validate checks that the finding has all required fields and valid values.
func (f Finding) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("finding ID is required")
	}
	if f.Title == "" {
		return fmt.Errorf("title is required")
	}
	if !f.Severity.IsValid() {
		return fmt.Errorf("invalid severity: %s", f.Severity)
	}
	if f.QualityScore < 0 || f.QualityScore > 5 {
		return fmt.Errorf("quality score must be between 0 and 5, got %g", f.QualityScore)
	}
	return nil
}

// HasTag reports whether the finding carries the given tag. Matching is
// exact and case-insensitive; no stemming is applied.
func (f Finding) HasTag(tag string) bool {
	for _, t := range f.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Link returns the best available reference link: the published report if
// present, otherwise the code link.
func (f Finding) Link() string {
	if f.SourceLink != "" {
		return f.SourceLink
	}
	return f.GithubLink
}

// Excerpt returns the body truncated to at most max runes, with an ellipsis
// appended when truncation occurred. Truncation is rune-safe so multi-byte
// report text never yields invalid UTF-8.
func (f Finding) Excerpt(max int) string {
	if max <= 0 || utf8.RuneCountInString(f.Body) <= max {
		return f.Body
	}
	runes := []rune(f.Body)
	return string(runes[:max]) + "..."
}

// Haystack returns the lowercase concatenation of title, tags, and a bounded
// body prefix, used for free-text term matching. The body is bounded so
// relevance reflects the finding's summary rather than appendix noise.
func (f Finding) Haystack() string {
	const bodyBound = 1200
	parts := []string{strings.ToLower(f.Title), strings.ToLower(strings.Join(f.Tags, " "))}
	body := f.Body
	if len(body) > bodyBound {
		body = body[:bodyBound]
	}
	parts = append(parts, strings.ToLower(body))
	return strings.Join(parts, " ")
}
