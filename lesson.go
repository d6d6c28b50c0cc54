package diablo

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/Sir-Shaedy/Diablo/finding"
	"github.com/Sir-Shaedy/Diablo/genai"
	"github.com/Sir-Shaedy/Diablo/retrieval"
	"github.com/Sir-Shaedy/Diablo/verify"
)

// DefaultQuizCount is the number of quiz questions a lesson requests.
const DefaultQuizCount = 5

// Reference points from generated content back to a corpus finding. The ID
// is the citation label (F1, F2, ...) when the reference grounds generated
// content, or empty for plain source listings.
type Reference struct {
	ID       string           `json:"id,omitempty"`
	Title    string           `json:"title"`
	Firm     string           `json:"firm"`
	Protocol string           `json:"protocol"`
	Severity finding.Severity `json:"severity"`
	Link     string           `json:"link"`
}

// references builds the reference list for a grounding set. labeled adds
// citation IDs matching the grounding block order.
func references(findings []finding.Finding, labeled bool) []Reference {
	refs := make([]Reference, 0, len(findings))
	for i, f := range findings {
		r := Reference{
			Title:    f.Title,
			Firm:     f.Firm,
			Protocol: f.Protocol,
			Severity: f.Severity,
			Link:     f.Link(),
		}
		if labeled {
			r.ID = genai.CitationLabel(i)
		}
		refs = append(refs, r)
	}
	return refs
}

// Lesson is a generated, citation-verified lesson on a security topic.
type Lesson struct {
	// Topic is the topic the lesson covers.
	Topic string

	// Depth is the retrieval depth the lesson was built at.
	Depth retrieval.Depth

	// FindingCount is the number of findings that grounded the lesson.
	// Zero means no findings matched; ContentHTML then carries the
	// no-findings notice instead of a lesson.
	FindingCount int

	// ContentHTML is the verified lesson content.
	ContentHTML string

	// Quiz holds the parsed quiz questions with normalized answer indices.
	Quiz []verify.Question

	// Sources lists the findings that grounded the lesson.
	Sources []Reference
}

// Lesson generates a structured lesson on topic, grounded in corpus
// findings and verified against them. Lessons are strict: content with
// unresolved citations is regenerated once and then rejected with
// ErrUngroundedContent.
//
// A topic with no matching findings returns a lesson whose content is a
// notice, not an error.
func (e *Engine) Lesson(ctx context.Context, topic string, depth retrieval.Depth, quizCount int) (Lesson, error) {
	const op = "Engine.Lesson"
	if strings.TrimSpace(topic) == "" {
		return Lesson{}, NewValidationError(op, fmt.Errorf("empty topic"))
	}
	if !depth.IsValid() {
		depth = retrieval.DepthStandard
	}
	if quizCount <= 0 {
		quizCount = DefaultQuizCount
	}

	ctx, span := e.startSpan(ctx, "diablo.lesson")
	defer endSpan(span)

	result := e.retrieve(ctx, op, retrieval.Query{
		Text:       topic,
		Severities: e.defaultSeverities,
		Limit:      depth.Cap(),
	})
	if result.Empty() {
		return Lesson{
			Topic:       topic,
			Depth:       depth,
			ContentHTML: noFindingsHTML(topic),
		}, nil
	}

	grounding := result.Findings()
	prompt := genai.LessonPrompt(topic, len(grounding), quizCount,
		genai.GroundingBlock(grounding, genai.LessonExcerptLen))

	verifier := verify.New(verify.Policy{}, verify.WithLogger(e.logger))
	outcome, err := verifier.Run(ctx, func(ctx context.Context) (string, error) {
		return e.generate(ctx, op, genai.Request{
			System:      genai.Persona,
			Prompt:      prompt,
			Temperature: 0.7,
			MaxTokens:   8192,
		})
	}, grounding)
	e.recordVerify(ctx, op, string(outcome.Status))
	if err != nil {
		return Lesson{}, NewGenerationError(op, ErrGenerationUnavailable).
			WithContext(map[string]any{"cause": err.Error()})
	}
	if outcome.Status == verify.StatusRejected {
		return Lesson{}, NewVerificationError(op, ErrUngroundedContent).
			WithContext(map[string]any{"reason": outcome.RejectReason})
	}

	return Lesson{
		Topic:        topic,
		Depth:        depth,
		FindingCount: len(grounding),
		ContentHTML:  outcome.Content,
		Quiz:         outcome.Quiz,
		Sources:      references(grounding, false),
	}, nil
}

// noFindingsHTML renders the notice shown when a topic matches nothing.
func noFindingsHTML(topic string) string {
	return fmt.Sprintf(
		`<div class="no-findings"><h2>No findings found</h2>`+
			`<p>The corpus returned no results for "<strong>%s</strong>".</p>`+
			`<p>Try a more specific term like "reentrancy in DEX" or "ERC4626 inflation".</p></div>`,
		html.EscapeString(topic))
}
