package verify

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/Sir-Shaedy/Diablo/finding"
	"github.com/Sir-Shaedy/Diablo/genai"
)

// evidenceMapRows caps the evidence table appended to reports.
const evidenceMapRows = 8

var (
	emptyCodeRe    = regexp.MustCompile(`(?is)<pre[^>]*>\s*<code[^>]*>\s*</code>\s*</pre>`)
	styleAttrRe    = regexp.MustCompile(`(?i)\sstyle="[^"]*"`)
	styleAttrAltRe = regexp.MustCompile(`(?i)\sstyle='[^']*'`)
)

// repairContent applies display-safety repairs: blank code blocks receive a
// placeholder and model-injected inline styling is removed so themes stay
// readable.
func repairContent(content, placeholder string) (string, []string) {
	var warnings []string

	if n := len(emptyCodeRe.FindAllStringIndex(content, -1)); n > 0 {
		content = emptyCodeRe.ReplaceAllString(content, "<pre><code>"+placeholder+"</code></pre>")
		warnings = append(warnings, fmt.Sprintf("filled %d empty code block(s)", n))
	}

	stripped := styleAttrRe.ReplaceAllString(content, "")
	stripped = styleAttrAltRe.ReplaceAllString(stripped, "")
	if stripped != content {
		content = stripped
		warnings = append(warnings, "removed inline style attributes")
	}
	return content, warnings
}

// EvidenceMap renders an HTML table mapping citation labels to the grounding
// findings, so every claim in a report can be traced back to its source.
// At most the first eight findings are listed. Returns the empty string for
// an empty grounding set.
func EvidenceMap(grounding []finding.Finding) string {
	if len(grounding) == 0 {
		return ""
	}
	var rows strings.Builder
	for i, f := range grounding {
		if i >= evidenceMapRows {
			break
		}
		rows.WriteString("<tr>")
		rows.WriteString("<td>" + genai.CitationLabel(i) + "</td>")
		rows.WriteString("<td>" + html.EscapeString(f.Title) + "</td>")
		rows.WriteString("<td>" + html.EscapeString(f.Firm) + "</td>")
		rows.WriteString("<td>" + html.EscapeString(f.Protocol) + "</td>")
		rows.WriteString("<td>" + html.EscapeString(string(f.Severity)) + "</td>")
		rows.WriteString("</tr>")
	}
	return "<h2>Evidence Map</h2>" +
		"<p>Use citation IDs (for example, [F1]) to trace each claim to a real finding.</p>" +
		"<table><thead><tr><th>ID</th><th>Finding</th><th>Firm</th>" +
		"<th>Protocol</th><th>Severity</th></tr></thead>" +
		"<tbody>" + rows.String() + "</tbody></table>"
}
