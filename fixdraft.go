package diablo

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/Sir-Shaedy/Diablo/analyzer"
	"github.com/Sir-Shaedy/Diablo/finding"
	"github.com/Sir-Shaedy/Diablo/genai"
	"github.com/Sir-Shaedy/Diablo/retrieval"
	"github.com/Sir-Shaedy/Diablo/verify"
)

const (
	// maxDraftQueries caps the fan-out of one fix-draft lookup.
	maxDraftQueries = 5

	// perDraftQuery is how many candidates each fan-out query contributes.
	perDraftQuery = 3

	// draftGrounding is how many findings ground the draft.
	draftGrounding = 3

	// draftExcerptLen bounds each reference excerpt in the draft prompt.
	draftExcerptLen = 1200
)

// FixDraft is a generated patch draft for an editor selection, referencing
// historical findings that motivate the fix.
type FixDraft struct {
	// Signal is the merged structural analysis of the selection and its
	// surrounding code.
	Signal analyzer.Signal

	// DraftHTML is the verified draft content. When generation fails, this
	// carries a skeleton draft instead.
	DraftHTML string

	// References lists the findings the draft cites, with citation labels.
	References []Reference

	// QueryUsed is the primary query derived from the selection.
	QueryUsed string
}

// FixDraft generates a concise, auditable patch draft for the selected
// code. Like pitfall cards, drafts degrade instead of failing: a dead
// generator yields a skeleton draft the user can fill in.
func (e *Engine) FixDraft(ctx context.Context, filename, selection, surrounding string) (FixDraft, error) {
	const op = "Engine.FixDraft"
	if strings.TrimSpace(selection) == "" {
		return FixDraft{}, NewValidationError(op, fmt.Errorf("empty selection"))
	}

	ctx, span := e.startSpan(ctx, "diablo.fixdraft")
	defer endSpan(span)

	sig := e.mergedSignal(selection, surrounding)
	selName := selectionName(selection)

	queries := draftQueries(selName, sig)
	queryUsed := selection
	if len(queries) > 0 {
		queryUsed = queries[0]
	}

	candidates := e.fanOut(ctx, op, queries, perDraftQuery)
	ranked := retrieval.RankBySelection(selName, sig.RiskTags, candidates, draftGrounding)
	grounding := ranked.Findings()

	refBlock := ""
	if len(grounding) > 0 {
		refBlock = genai.GroundingBlock(grounding, draftExcerptLen)
	}

	fn := selName
	if names := sig.FunctionNames(); len(names) > 0 {
		fn = names[0]
	}
	prompt := genai.FixDraftPrompt(filename, fn,
		strings.Join(sig.RiskTags, ", "), selection, surrounding, refBlock)

	draft := e.generateDraft(ctx, op, prompt, grounding)
	if draft == "" {
		draft = fallbackDraft(fn)
	}

	return FixDraft{
		Signal:     sig,
		DraftHTML:  draft,
		References: references(grounding, true),
		QueryUsed:  queryUsed,
	}, nil
}

// generateDraft runs the tolerant generate-and-verify pass for a draft.
// Returns the empty string when generation or verification fails.
func (e *Engine) generateDraft(ctx context.Context, op, prompt string, grounding []finding.Finding) string {
	verifier := verify.New(verify.Policy{TolerateUnresolved: true}, verify.WithLogger(e.logger))
	outcome, err := verifier.Run(ctx, func(ctx context.Context) (string, error) {
		return e.generate(ctx, op, genai.Request{
			System:      genai.FixDraftSystem,
			Prompt:      prompt,
			Temperature: 0.2,
			MaxTokens:   1800,
		})
	}, grounding)
	e.recordVerify(ctx, op, string(outcome.Status))
	if err != nil {
		e.logger.Warn("fix draft generation failed", "error", err)
		return ""
	}
	if outcome.Status == verify.StatusRejected {
		return ""
	}
	return outcome.Content
}

// draftQueries builds the fan-out query list for a fix draft.
func draftQueries(selName string, sig analyzer.Signal) []string {
	var queries []string
	if selName != "" {
		queries = append(queries, selName, selName+" vulnerability")
	}
	if sig.FunctionType != "" {
		queries = append(queries, sig.FunctionType)
	}
	risks := sig.RiskTags
	if len(risks) > 2 {
		risks = risks[:2]
	}
	queries = append(queries, risks...)
	keywords := sig.Keywords
	if len(keywords) > 2 {
		keywords = keywords[:2]
	}
	queries = append(queries, keywords...)

	queries = dedupeQueries(queries)
	if len(queries) > maxDraftQueries {
		queries = queries[:maxDraftQueries]
	}
	return queries
}

// fallbackDraft renders a skeleton draft when generation is unavailable.
func fallbackDraft(functionName string) string {
	fn := html.EscapeString(orDefault(functionName, "selectedFunction"))
	return "<h3>Risk</h3><p>Potential accounting/state-order issue detected. Validate assumptions before merge.</p>" +
		"<h3>Patch Draft</h3>" +
		"<pre><code>" +
		"// Draft patch for " + fn + "\n" +
		"// 1) Validate preconditions early\n" +
		"// 2) Apply checks-effects-interactions ordering\n" +
		"// 3) Add explicit state/accounting assertions\n" +
		"</code></pre>" +
		"<h3>Why</h3><ul><li>Reduces state desynchronization risk.</li></ul>" +
		"<h3>References</h3><p>No close historical references available for this selection.</p>"
}
