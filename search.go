package diablo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sir-Shaedy/Diablo/finding"
	"github.com/Sir-Shaedy/Diablo/genai"
	"github.com/Sir-Shaedy/Diablo/retrieval"
)

// summaryTitleCap bounds how many finding titles feed the search summary.
const summaryTitleCap = 10

// SearchOptions tune a dictionary-style search.
type SearchOptions struct {
	// Severities is the severity allow-set. Empty uses the engine default.
	Severities []finding.Severity

	// Limit caps the result size. Zero uses the standard depth cap.
	Limit int

	// WithSummary requests an executive summary of the top findings. The
	// summary is best-effort: a generation failure never fails the search.
	WithSummary bool
}

// SearchResult is the outcome of a dictionary search.
type SearchResult struct {
	// Query is the free-text query that was searched.
	Query string

	// Findings holds the ranked matches.
	Findings []finding.Finding

	// Summary is the optional executive summary. Empty when not requested
	// or when summary generation failed.
	Summary string
}

// Search looks up findings by free text and ranks them. An empty result is
// a valid outcome, not an error.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) (SearchResult, error) {
	const op = "Engine.Search"
	if strings.TrimSpace(query) == "" {
		return SearchResult{}, NewValidationError(op, fmt.Errorf("empty query"))
	}

	ctx, span := e.startSpan(ctx, "diablo.search")
	defer endSpan(span)

	limit := opts.Limit
	if limit <= 0 {
		limit = retrieval.DepthStandard.Cap()
	}

	result := e.retrieve(ctx, op, retrieval.Query{
		Text:       query,
		Severities: e.severitiesOrDefault(opts.Severities),
		Limit:      limit,
	})

	out := SearchResult{
		Query:    query,
		Findings: result.Findings(),
	}

	if opts.WithSummary && !result.Empty() {
		summary, err := e.summarize(ctx, query, out.Findings)
		if err != nil {
			// Never fail search results because summary generation failed.
			e.logger.Warn("search summary generation failed", "query", query, "error", err)
		} else {
			out.Summary = summary
		}
	}
	return out, nil
}

// summarize generates a short executive summary from finding titles.
func (e *Engine) summarize(ctx context.Context, query string, findings []finding.Finding) (string, error) {
	var titles strings.Builder
	for i, f := range findings {
		if i >= summaryTitleCap {
			break
		}
		fmt.Fprintf(&titles, "- [%s] %s (%s / %s)\n",
			strings.ToUpper(f.Severity.String()), f.Title, f.Firm, f.Protocol)
	}

	return e.generate(ctx, "Engine.Search", genai.Request{
		System:    genai.SummarySystem,
		Prompt:    fmt.Sprintf("Query: %s\n\nTop findings:\n%s", query, titles.String()),
		MaxTokens: 300,
	})
}
