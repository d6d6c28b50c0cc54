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
	// maxCardQueries caps the fan-out of one pitfall lookup.
	maxCardQueries = 6

	// perCardQuery is how many candidates each fan-out query contributes.
	perCardQuery = 4

	// cardCandidates is how many findings selection ranking keeps.
	cardCandidates = 5

	// cardGrounding is how many findings ground the generated card.
	cardGrounding = 3
)

// PitfallCard is a conversational warning card for an editor selection,
// grounded in historical findings that match the highlighted code.
type PitfallCard struct {
	// HasPitfall reports whether any relevant finding matched. When false
	// the card is empty and nothing should be shown.
	HasPitfall bool

	// Signal is the merged structural analysis of the selection and its
	// surrounding code.
	Signal analyzer.Signal

	// CardHTML is the verified card content. When generation fails but
	// findings matched, this carries a plain evidence card instead.
	CardHTML string

	// Findings lists the findings that ground the card.
	Findings []Reference

	// QueryUsed is the primary query derived from the selection.
	QueryUsed string
}

// PitfallCard analyzes an editor selection in context and, when the corpus
// knows similar bugs, produces a short warning card. Cards are tolerant:
// unresolved citations are stripped rather than rejected, and a generation
// failure degrades to a plain evidence card instead of an error.
func (e *Engine) PitfallCard(ctx context.Context, selection, surrounding string) (PitfallCard, error) {
	const op = "Engine.PitfallCard"
	if strings.TrimSpace(selection) == "" {
		return PitfallCard{}, NewValidationError(op, fmt.Errorf("empty selection"))
	}

	ctx, span := e.startSpan(ctx, "diablo.pitfall")
	defer endSpan(span)

	sig := e.mergedSignal(selection, surrounding)
	selName := selectionName(selection)

	queries := selectionQueries(selName, selection, sig, maxCardQueries)
	queryUsed := selection
	if len(queries) > 0 {
		queryUsed = queries[0]
	}

	candidates := e.fanOut(ctx, op, queries, perCardQuery)
	ranked := retrieval.RankBySelection(selName, sig.RiskTags, candidates, cardCandidates)
	if ranked.Empty() {
		return PitfallCard{Signal: sig, QueryUsed: queryUsed}, nil
	}

	grounding := ranked.Findings()
	if len(grounding) > cardGrounding {
		grounding = grounding[:cardGrounding]
	}

	cardHTML := e.generateCard(ctx, op, selection, selName, sig, grounding)
	if cardHTML == "" {
		cardHTML = fallbackCard(sig, grounding)
	}

	return PitfallCard{
		HasPitfall: true,
		Signal:     sig,
		CardHTML:   cardHTML,
		Findings:   references(grounding, true),
		QueryUsed:  queryUsed,
	}, nil
}

// generateCard runs the tolerant generate-and-verify pass for a card.
// Returns the empty string when generation or verification fails; the
// caller falls back to a plain evidence card.
func (e *Engine) generateCard(ctx context.Context, op, selection, selName string, sig analyzer.Signal, grounding []finding.Finding) string {
	prompt := genai.PitfallPrompt(selection,
		selectionSummary(selName, sig),
		genai.GroundingBlock(grounding, genai.CardExcerptLen))

	verifier := verify.New(verify.Policy{TolerateUnresolved: true}, verify.WithLogger(e.logger))
	outcome, err := verifier.Run(ctx, func(ctx context.Context) (string, error) {
		return e.generate(ctx, op, genai.Request{
			System:      genai.Persona,
			Prompt:      prompt,
			Temperature: 0.7,
			MaxTokens:   2048,
		})
	}, grounding)
	e.recordVerify(ctx, op, string(outcome.Status))
	if err != nil {
		e.logger.Warn("pitfall card generation failed", "error", err)
		return ""
	}
	if outcome.Status == verify.StatusRejected {
		return ""
	}
	return outcome.Content
}

// mergedSignal analyzes the selection and its surrounding code separately
// and merges them: the selection wins on identity, the surrounding code
// supplements types and risk tags.
func (e *Engine) mergedSignal(selection, surrounding string) analyzer.Signal {
	sig := e.analyzer.Analyze(selection)
	if strings.TrimSpace(surrounding) == "" {
		return sig
	}

	full := e.analyzer.Analyze(surrounding)
	if len(sig.Functions) == 0 && len(full.Functions) > 0 {
		sig.Functions = full.Functions
	}
	if sig.FunctionType == "" {
		sig.FunctionType = full.FunctionType
	}
	if sig.ProtocolType == "" {
		sig.ProtocolType = full.ProtocolType
	}
	for _, risk := range full.RiskTags {
		if !sig.HasRisk(risk) {
			sig.RiskTags = append(sig.RiskTags, risk)
		}
	}
	return sig
}

// selectionName reduces a raw selection to the identifier the user most
// likely highlighted: the last token before any parameter list, with
// leading underscores dropped.
func selectionName(selection string) string {
	s := strings.TrimSpace(selection)
	if idx := strings.IndexByte(s, '('); idx >= 0 {
		s = s[:idx]
	}
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimLeft(fields[len(fields)-1], "_")
}

// selectionQueries builds the fan-out query list for a selection, keeping
// selection-specific intent first.
func selectionQueries(selName, selection string, sig analyzer.Signal, limit int) []string {
	var queries []string
	if selName != "" {
		queries = append(queries, selName, selName+" vulnerability")
	}
	for _, fn := range sig.Functions {
		if !strings.EqualFold(fn.Name, selName) {
			queries = append(queries, fn.Name)
			break
		}
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
	if len(keywords) > 3 {
		keywords = keywords[:3]
	}
	queries = append(queries, keywords...)

	raw := strings.TrimSpace(selection)
	if raw != "" && raw != selName {
		if len(raw) > 120 {
			raw = raw[:120]
		}
		queries = append(queries, raw)
	}

	queries = dedupeQueries(queries)
	if len(queries) > limit {
		queries = queries[:limit]
	}
	return queries
}

// fanOut runs each query against the snapshot and merges the candidates,
// deduplicating by ID across queries.
func (e *Engine) fanOut(ctx context.Context, op string, queries []string, perQuery int) []finding.Finding {
	var merged []finding.Finding
	seen := map[string]bool{}
	for _, query := range queries {
		result := e.retrieve(ctx, op, retrieval.Query{
			Text:       query,
			Severities: e.defaultSeverities,
			Limit:      perQuery,
		})
		for _, f := range result.Findings() {
			if seen[f.ID] {
				continue
			}
			seen[f.ID] = true
			merged = append(merged, f)
		}
	}
	return merged
}

// selectionSummary renders the analysis facts the card prompt leans on.
func selectionSummary(selName string, sig analyzer.Signal) string {
	fn := selName
	if names := sig.FunctionNames(); len(names) > 0 {
		fn = names[0]
	}
	calls := sig.ExternalCalls
	if len(calls) > 5 {
		calls = calls[:5]
	}
	return fmt.Sprintf(
		"- Function: %s\n- Type: %s\n- Protocol Type: %s\n- Risk Patterns: %s\n- External Calls: %s\n",
		orUnknown(fn),
		orUnknown(sig.FunctionType),
		orUnknown(sig.ProtocolType),
		orDefault(strings.Join(sig.RiskTags, ", "), "none detected"),
		orDefault(strings.Join(calls, ", "), "none"),
	)
}

// fallbackCard renders a plain evidence card when generation is down but
// the corpus matched real findings.
func fallbackCard(sig analyzer.Signal, findings []finding.Finding) string {
	funcLabel := "this code"
	if names := sig.FunctionNames(); len(names) > 0 {
		funcLabel = names[0]
	}
	risks := "potential issues"
	if len(sig.RiskTags) > 0 {
		risks = strings.Join(sig.RiskTags, ", ")
	}

	var items strings.Builder
	for _, f := range findings {
		fmt.Fprintf(&items,
			`<div class="pitfall-item"><div class="pitfall-title">%s</div>`+
				`<div class="pitfall-meta">%s · %s · <span class="severity-%s">%s</span></div></div>`,
			html.EscapeString(f.Title),
			html.EscapeString(f.Firm),
			html.EscapeString(f.Protocol),
			f.Severity,
			strings.ToUpper(f.Severity.String()))
	}

	return fmt.Sprintf(
		`<div class="pitfall-card"><div class="pitfall-heading">`+
			`Potential issue found in %d related audit finding(s)</div>`+
			`<div class="pitfall-summary"><code>%s</code> matches patterns related to `+
			`<strong>%s</strong>. Here are real audit findings from past security reviews:</div>%s</div>`,
		len(findings),
		html.EscapeString(funcLabel),
		html.EscapeString(risks),
		items.String())
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
