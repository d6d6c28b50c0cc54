package diablo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sir-Shaedy/Diablo/analyzer"
	"github.com/Sir-Shaedy/Diablo/finding"
	"github.com/Sir-Shaedy/Diablo/genai"
	"github.com/Sir-Shaedy/Diablo/retrieval"
	"github.com/Sir-Shaedy/Diablo/verify"
)

// maxReportQueries caps the query fan-out of one report so a pattern-heavy
// contract cannot scan the corpus dozens of times.
const maxReportQueries = 8

// minPerQuery is the floor for findings fetched per fan-out query.
const minPerQuery = 3

// AuditReport is a generated, citation-verified security report for one
// code sample.
type AuditReport struct {
	// ContractName is the analyzed contract's name, or "Analyzed Contract".
	ContractName string

	// Signal is the structural analysis the report was built from.
	Signal analyzer.Signal

	// FindingCount is the number of historical findings that grounded the
	// report.
	FindingCount int

	// SeverityBreakdown counts grounding findings per severity.
	SeverityBreakdown map[finding.Severity]int

	// ContentHTML is the verified report content, with an evidence map
	// appended.
	ContentHTML string

	// Matched lists the grounding findings with their citation labels.
	Matched []Reference
}

// AuditReport cross-references a code sample against the corpus and
// generates a verified security report. Each detected risk pattern,
// function type, protocol type, and interface tag contributes one corpus
// query; the merged, deduplicated findings ground the generation.
func (e *Engine) AuditReport(ctx context.Context, code, docs string, depth retrieval.Depth) (AuditReport, error) {
	const op = "Engine.AuditReport"
	if strings.TrimSpace(code) == "" {
		return AuditReport{}, NewValidationError(op, fmt.Errorf("empty code sample"))
	}
	if !depth.IsValid() {
		depth = retrieval.DepthStandard
	}

	ctx, span := e.startSpan(ctx, "diablo.report")
	defer endSpan(span)

	sig := e.analyzer.Analyze(code)
	grounding := e.crossReference(ctx, op, sig, depth.Cap())

	name := sig.ContractName
	if name == "" {
		name = "Analyzed Contract"
	}

	prompt := genai.ReportPrompt(code, contractSummary(sig), docs,
		genai.GroundingBlock(grounding, genai.ReportExcerptLen), len(grounding))

	verifier := verify.New(verify.Policy{}, verify.WithLogger(e.logger))
	outcome, err := verifier.Run(ctx, func(ctx context.Context) (string, error) {
		return e.generate(ctx, op, genai.Request{
			System:      genai.Persona,
			Prompt:      prompt,
			Temperature: 0.5,
			MaxTokens:   8192,
		})
	}, grounding)
	e.recordVerify(ctx, op, string(outcome.Status))
	if err != nil {
		return AuditReport{}, NewGenerationError(op, ErrGenerationUnavailable).
			WithContext(map[string]any{"cause": err.Error()})
	}
	if outcome.Status == verify.StatusRejected {
		return AuditReport{}, NewVerificationError(op, ErrUngroundedContent).
			WithContext(map[string]any{"reason": outcome.RejectReason})
	}

	breakdown := map[finding.Severity]int{}
	for _, f := range grounding {
		breakdown[f.Severity]++
	}

	return AuditReport{
		ContractName:      name,
		Signal:            sig,
		FindingCount:      len(grounding),
		SeverityBreakdown: breakdown,
		ContentHTML:       outcome.Content + verify.EvidenceMap(grounding),
		Matched:           references(grounding, true),
	}, nil
}

// crossReference fans one signal out into per-pattern corpus queries and
// merges the results. Findings are deduplicated by title across queries so
// the same issue reported by two firms does not crowd out other patterns.
func (e *Engine) crossReference(ctx context.Context, op string, sig analyzer.Signal, limit int) []finding.Finding {
	var queries []string
	for _, risk := range sig.RiskTags {
		queries = append(queries, risk)
	}
	if sig.FunctionType != "" {
		queries = append(queries, sig.FunctionType+" vulnerability")
	}
	if sig.ProtocolType != "" {
		queries = append(queries, sig.ProtocolType+" exploit")
	}
	for _, tag := range sig.InterfaceTags {
		queries = append(queries, tag+" vulnerability")
	}
	queries = dedupeQueries(queries)
	if len(queries) > maxReportQueries {
		queries = queries[:maxReportQueries]
	}

	perQuery := minPerQuery
	if len(queries) > 0 && limit/len(queries) > perQuery {
		perQuery = limit / len(queries)
	}

	var merged []finding.Finding
	seenTitles := map[string]bool{}
	for _, query := range queries {
		result := e.retrieve(ctx, op, retrieval.Query{
			Text:       query,
			Severities: e.defaultSeverities,
			Limit:      perQuery,
		})
		for _, f := range result.Findings() {
			if seenTitles[f.Title] {
				continue
			}
			seenTitles[f.Title] = true
			merged = append(merged, f)
		}
	}

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// dedupeQueries removes case-insensitive duplicates, keeping first
// occurrence order.
func dedupeQueries(queries []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		key := strings.ToLower(q)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
	}
	return out
}

// contractSummary renders the analysis facts the report prompt leans on.
func contractSummary(sig analyzer.Signal) string {
	name := sig.ContractName
	if name == "" {
		name = "Unknown"
	}
	return fmt.Sprintf(
		"Contract: %s\nLines of code: %d\nInterfaces detected: %s\nFunctions: %d\n"+
			"External calls: %d\nRisks detected: %s\nFunction type: %s\nProtocol type: %s\n",
		name,
		sig.LineCount,
		orNone(strings.Join(sig.InterfaceTags, ", ")),
		len(sig.Functions),
		sig.ExternalCallCount,
		orNone(strings.Join(sig.RiskTags, ", ")),
		orNone(sig.FunctionType),
		orNone(sig.ProtocolType),
	)
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
