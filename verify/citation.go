package verify

import (
	"regexp"
	"strings"
)

var citationRe = regexp.MustCompile(`\[(F\d+)\]`)

// extractCitations returns the citation labels referenced in content, in
// first-use order with duplicates removed.
func extractCitations(content string) []string {
	matches := citationRe.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := map[string]bool{}
	var labels []string
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		labels = append(labels, m[1])
	}
	return labels
}

// stripMarkers removes every occurrence of the given citation markers,
// tidying up double spaces left behind.
func stripMarkers(content string, labels []string) string {
	for _, label := range labels {
		content = strings.ReplaceAll(content, "["+label+"]", "")
	}
	content = strings.ReplaceAll(content, "  ", " ")
	return content
}
