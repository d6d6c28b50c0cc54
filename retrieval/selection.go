package retrieval

import (
	"sort"
	"strings"

	"github.com/Sir-Shaedy/Diablo/finding"
)

// Selection relevance weights. Title hits dominate so the top cards align
// with what the user actually highlighted.
const (
	selTitleWeight    = 80
	selTagWeight      = 50
	selHaystackWeight = 30
	selBridgeWeight   = 35
	selRiskWeight     = 20
	maxScoredRisks    = 3
)

// balanceSelections are selections that commonly denote accounting state.
var balanceSelections = map[string]bool{
	"balance":   true,
	"balances":  true,
	"_balances": true,
}

// accountingTokens bridge balance-style selections to accounting findings
// that never mention the literal identifier.
var accountingTokens = []string{
	"accounting",
	"claim",
	"double",
	"share",
	"totalassets",
	"totalsupply",
	"rounding",
}

// SelectionScore scores a finding against an editor selection. selName is
// the cleaned identifier the user highlighted; riskTags are the risk tags
// detected around the selection. Higher is more relevant.
func SelectionScore(f finding.Finding, selName string, riskTags []string) int {
	title := strings.ToLower(f.Title)
	tags := strings.ToLower(strings.Join(f.Tags, " "))
	hay := f.Haystack()

	score := 0
	if selName != "" {
		sel := strings.ToLower(selName)
		if strings.Contains(title, sel) {
			score += selTitleWeight
		}
		if strings.Contains(tags, sel) {
			score += selTagWeight
		}
		if strings.Contains(hay, sel) {
			score += selHaystackWeight
		}
		if balanceSelections[sel] {
			for _, token := range accountingTokens {
				if strings.Contains(hay, token) {
					score += selBridgeWeight
					break
				}
			}
		}
	}

	risks := riskTags
	if len(risks) > maxScoredRisks {
		risks = risks[:maxScoredRisks]
	}
	for _, risk := range risks {
		if strings.Contains(hay, strings.ToLower(risk)) {
			score += selRiskWeight
		}
	}

	return score + severityBonus[f.Severity]
}

// RankBySelection orders candidates by selection relevance, removing
// duplicate IDs and capping the result. The ordering is deterministic:
// equal scores fall back to quality, then ID.
func RankBySelection(selName string, riskTags []string, candidates []finding.Finding, limit int) Result {
	scored := make([]Scored, 0, len(candidates))
	seen := map[string]bool{}
	for _, f := range candidates {
		if seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		scored = append(scored, Scored{Finding: f, Score: SelectionScore(f, selName, riskTags)})
	}

	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Finding.QualityScore != b.Finding.QualityScore {
			return a.Finding.QualityScore > b.Finding.QualityScore
		}
		return a.Finding.ID < b.Finding.ID
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return Result{Items: scored}
}
