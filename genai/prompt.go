package genai

import (
	"fmt"
	"strings"

	"github.com/Sir-Shaedy/Diablo/finding"
)

// Persona is the default system instruction shared by the narrative
// operations. It pins the citation contract the verifier later enforces.
const Persona = `You are Diablo, a blunt, battle-scarred smart-contract security mentor.
You teach from real audit findings, never from invented examples.
Every factual claim about a vulnerability must cite one of the supplied
findings inline using its bracketed ID, for example [F1] or [F3].
Never cite a finding that was not supplied. Never use inline CSS styles.`

// SummarySystem instructs the executive-summary generation used by search.
const SummarySystem = `You are Diablo, a sharp smart-contract security expert. ` +
	`Given a set of audit findings, write a 3-4 sentence executive summary ` +
	`of the vulnerability pattern. Mention which protocols were affected ` +
	`and the typical impact. Be direct and precise.`

// FixDraftSystem instructs patch-draft generation.
const FixDraftSystem = `You are a senior Solidity security engineer. Draft a minimal, auditable fix.
Return ONLY HTML using sections: <h3>Risk</h3>, <h3>Patch Draft</h3>, <h3>Why</h3>, <h3>References</h3>.
Rules: concise bullets, no emojis, no inline styles, cite references as [F1], [F2].
If uncertain, mark assumptions explicitly.`

// excerpt bounds for grounding blocks. Reports quote less per finding than
// lessons because they ground more findings at once.
const (
	LessonExcerptLen = 800
	ReportExcerptLen = 600
	CardExcerptLen   = 1500
)

// CitationLabel returns the inline citation label for the i-th grounding
// finding (zero-based): F1, F2, ...
func CitationLabel(i int) string {
	return fmt.Sprintf("F%d", i+1)
}

// GroundingBlock serializes the findings that back a generation call. Each
// finding is labeled with its citation ID so generated content can reference
// it, and the same labels are what the verifier later resolves.
func GroundingBlock(findings []finding.Finding, excerptLen int) string {
	parts := make([]string, 0, len(findings))
	for i, f := range findings {
		parts = append(parts, fmt.Sprintf(
			"### [%s] %s\n- **Firm:** %s\n- **Protocol:** %s\n- **Severity:** %s\n- **Tags:** %s\n\n%s\n",
			CitationLabel(i),
			f.Title,
			f.Firm,
			f.Protocol,
			strings.ToUpper(f.Severity.String()),
			strings.Join(f.Tags, ", "),
			f.Excerpt(excerptLen),
		))
	}
	return strings.Join(parts, "\n---\n")
}

// LessonPrompt builds the user prompt for lesson generation.
func LessonPrompt(topic string, findingCount, quizCount int, grounding string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Teach a structured lesson on %q, grounded in the %d real audit findings below.\n", topic, findingCount)
	fmt.Fprintf(&b, "Close the lesson with %d quiz questions built from the findings.\n\n", quizCount)
	b.WriteString("## Findings Data\n\n")
	b.WriteString(grounding)
	b.WriteString("\n\nGenerate the lesson now. Format the output as HTML that can be ")
	b.WriteString("rendered in an editor webview. Use <h2>, <h3>, <pre><code>, <ul>, <li> etc. ")
	b.WriteString(`For quiz questions, wrap each in a <div class="quiz-question" data-correct="INDEX"> `)
	b.WriteString(`with <div class="quiz-option" data-index="N"> for each option.`)
	return b.String()
}

// ReportPrompt builds the user prompt for a full audit report.
func ReportPrompt(code, contractSummary, docs, grounding string, findingCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a security report for the contract below, citing the %d historical findings supplied.\n\n", findingCount)
	b.WriteString("## Contract Code\n\n```solidity\n")
	b.WriteString(truncate(code, 6000))
	b.WriteString("\n```\n\n## Contract Analysis\n\n")
	b.WriteString(contractSummary)
	if strings.TrimSpace(docs) != "" {
		b.WriteString("\n## Project Documentation\n\n")
		b.WriteString(truncate(docs, 3000))
		b.WriteString("\n")
	}
	b.WriteString("\n## Historical Findings Data\n\n")
	b.WriteString(grounding)
	b.WriteString("\n\nGenerate the report now. Format the output as HTML that can be ")
	b.WriteString("rendered in an editor webview. Use <h2>, <h3>, <pre><code>, <ul>, <li>, <table> etc.")
	return b.String()
}

// PitfallPrompt builds the user prompt for a pitfall card over an editor
// selection.
func PitfallPrompt(selection, analysisSummary, grounding string) string {
	var b strings.Builder
	b.WriteString("## User's Code Selection\n```solidity\n")
	b.WriteString(truncate(selection, 4000))
	b.WriteString("\n```\n\n## Code Analysis\n")
	b.WriteString(analysisSummary)
	b.WriteString("\n## Matching Findings\n")
	b.WriteString(grounding)
	b.WriteString("\n\nGenerate the Pitfall Card HTML now. Keep it short and conversational, ")
	b.WriteString("cite findings inline as [F1], [F2].")
	return b.String()
}

// FixDraftPrompt builds the user prompt for a patch draft.
func FixDraftPrompt(filename, functionName, risks, selection, surrounding, references string) string {
	if references == "" {
		references = "No close references found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Filename: %s\n", orUnknown(filename))
	fmt.Fprintf(&b, "Function: %s\n", orUnknown(functionName))
	fmt.Fprintf(&b, "Risk patterns: %s\n\n", orUnknown(risks))
	b.WriteString("Selected Solidity:\n```solidity\n")
	b.WriteString(truncate(selection, 4000))
	b.WriteString("\n```\n\n")
	if strings.TrimSpace(surrounding) != "" {
		b.WriteString("Surrounding Solidity:\n```solidity\n")
		b.WriteString(truncate(surrounding, 5000))
		b.WriteString("\n```\n\n")
	}
	b.WriteString("Historical references:\n")
	b.WriteString(references)
	b.WriteString("\n\nProduce a patch draft now.")
	return b.String()
}

// StripFences removes a surrounding markdown code fence that providers
// sometimes wrap HTML output in.
func StripFences(s string) string {
	out := strings.TrimSpace(s)
	if !strings.HasPrefix(out, "```") {
		return s
	}
	// Drop the opening fence line (``` or ```html).
	if idx := strings.IndexByte(out, '\n'); idx >= 0 {
		out = out[idx+1:]
	} else {
		return s
	}
	out = strings.TrimSpace(out)
	out = strings.TrimSuffix(out, "```")
	return strings.TrimSpace(out)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
