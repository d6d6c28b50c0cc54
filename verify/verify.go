package verify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Sir-Shaedy/Diablo/finding"
	"github.com/Sir-Shaedy/Diablo/genai"
)

// Status is the terminal state of a verification pass.
type Status string

const (
	// StatusAccepted means the content passed all checks, possibly after
	// repair, and is safe to release.
	StatusAccepted Status = "accepted"

	// StatusRejected means grounding could not be established. Rejected
	// content is never released as if it were grounded.
	StatusRejected Status = "rejected"
)

// DefaultCodePlaceholder fills code blocks the generator left empty.
const DefaultCodePlaceholder = "// Source snippet unavailable in finding body."

// Policy configures how strictly an artifact type is verified.
type Policy struct {
	// TolerateUnresolved strips unresolved citation markers instead of
	// rejecting the artifact. Conversational artifacts (pitfall cards)
	// tolerate partial citation; lessons and reports do not.
	TolerateUnresolved bool

	// CodePlaceholder replaces empty code blocks. Defaults to
	// DefaultCodePlaceholder.
	CodePlaceholder string

	// MaxRetries bounds automatic regeneration attempts in Run after a
	// rejection. Defaults to 1.
	MaxRetries int
}

// withDefaults fills zero-valued policy fields.
func (p Policy) withDefaults() Policy {
	if p.CodePlaceholder == "" {
		p.CodePlaceholder = DefaultCodePlaceholder
	}
	if p.MaxRetries == 0 {
		p.MaxRetries = 1
	}
	return p
}

// Outcome is the result of verifying one generated artifact.
type Outcome struct {
	// Status is the terminal state: Accepted or Rejected.
	Status Status

	// Content is the sanitized content. Empty when Status is Rejected.
	Content string

	// Quiz holds the structured quiz questions parsed from the content,
	// with answer indices normalized to zero-based.
	Quiz []Question

	// Citations lists the resolved citation labels, in first-use order.
	Citations []string

	// Unresolved lists citation labels that did not resolve to a grounding
	// finding. Non-empty together with StatusAccepted only under a
	// tolerant policy, after the markers were stripped.
	Unresolved []string

	// Warnings describes every repair and coercion applied.
	Warnings []string

	// Repaired is true when the content was modified by any repair step.
	Repaired bool

	// RejectReason explains a rejection. Empty when Status is Accepted.
	RejectReason string
}

// Verifier validates generated content against the exact finding set that
// grounded it. A Verifier is stateless and safe for concurrent use.
type Verifier struct {
	policy Policy
	logger *slog.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithLogger sets a custom logger. If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// New creates a Verifier with the given policy.
func New(policy Policy, opts ...Option) *Verifier {
	v := &Verifier{
		policy: policy.withDefaults(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify runs the parse → resolve → normalize → repair pipeline over one
// generated artifact. Content that is already clean is returned unchanged.
func (v *Verifier) Verify(content string, grounding []finding.Finding) Outcome {
	out := Outcome{Status: StatusAccepted}

	// Parse: collect citation markers.
	citations := extractCitations(content)

	// Resolve: every marker must map to a supplied grounding finding.
	valid := map[string]bool{}
	for i := range grounding {
		valid[genai.CitationLabel(i)] = true
	}
	for _, c := range citations {
		if valid[c] {
			out.Citations = append(out.Citations, c)
		} else {
			out.Unresolved = append(out.Unresolved, c)
		}
	}

	if len(out.Unresolved) > 0 {
		if !v.policy.TolerateUnresolved {
			out.Status = StatusRejected
			out.RejectReason = fmt.Sprintf("unresolved citations: %s", strings.Join(out.Unresolved, ", "))
			return out
		}
		content = stripMarkers(content, out.Unresolved)
		out.Repaired = true
		out.Warnings = append(out.Warnings, fmt.Sprintf("stripped unresolved citations: %s", strings.Join(out.Unresolved, ", ")))
	}

	// Normalize: quiz answer indices become valid zero-based integers.
	normalized, quiz, warnings, changed := normalizeQuiz(content)
	content = normalized
	out.Quiz = quiz
	out.Warnings = append(out.Warnings, warnings...)
	if changed {
		out.Repaired = true
	}

	// Repair: no blank code blocks, no inline styling.
	repaired, repairWarnings := repairContent(content, v.policy.CodePlaceholder)
	if repaired != content {
		out.Repaired = true
		content = repaired
	}
	out.Warnings = append(out.Warnings, repairWarnings...)

	out.Content = content
	return out
}

// Run drives generation plus verification with a bounded retry: when the
// generated artifact is rejected, generation is attempted once more before
// the rejection becomes final.
//
// A generation error, including context cancellation or timeout, is
// treated as "no content": Run returns a Rejected outcome along with the
// error, never a partially sanitized result.
func (v *Verifier) Run(ctx context.Context, generate func(context.Context) (string, error), grounding []finding.Finding) (Outcome, error) {
	attempts := 1 + v.policy.MaxRetries

	var last Outcome
	for attempt := 1; attempt <= attempts; attempt++ {
		content, err := generate(ctx)
		if err != nil {
			return Outcome{Status: StatusRejected, RejectReason: "generation unavailable"}, err
		}
		if err := ctx.Err(); err != nil {
			return Outcome{Status: StatusRejected, RejectReason: "generation cancelled"}, err
		}

		last = v.Verify(content, grounding)
		if last.Status == StatusAccepted {
			return last, nil
		}
		if attempt < attempts {
			v.logger.Warn("generated content rejected, retrying",
				"attempt", attempt,
				"reason", last.RejectReason)
		}
	}
	return last, nil
}
