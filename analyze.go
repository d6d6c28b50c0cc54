package diablo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sir-Shaedy/Diablo/analyzer"
	"github.com/Sir-Shaedy/Diablo/finding"
	"github.com/Sir-Shaedy/Diablo/retrieval"
)

// protocolSearchMap maps protocol types to corpus terms that index better
// than the type name itself.
var protocolSearchMap = map[string]string{
	"DEX":     "amm",
	"Vault":   "vault",
	"Lending": "lending",
	"Staking": "staking",
	"Bridge":  "bridge",
	"Oracle":  "oracle",
	"NFT":     "nft",
}

// hintProtocolMap resolves a free-form user hint to a protocol type. First
// match in hintKeys order wins.
var hintProtocolMap = map[string]string{
	"vault":       "Vault",
	"erc4626":     "Vault",
	"lending":     "Lending",
	"borrow":      "Lending",
	"aave":        "Lending",
	"dex":         "DEX",
	"swap":        "DEX",
	"amm":         "DEX",
	"uniswap":     "DEX",
	"staking":     "Staking",
	"stake":       "Staking",
	"bridge":      "Bridge",
	"cross-chain": "Bridge",
	"oracle":      "Oracle",
	"price":       "Oracle",
}

// hintKeys fixes the evaluation order of hintProtocolMap so hint resolution
// never depends on map iteration.
var hintKeys = []string{
	"vault", "erc4626", "lending", "borrow", "aave",
	"dex", "swap", "amm", "uniswap", "staking", "stake",
	"bridge", "cross-chain", "oracle", "price",
}

const (
	maxQueryTerms  = 3
	maxHintExtras  = 3
	minHintWordLen = 3
)

// Analysis is the outcome of a context-aware code analysis.
type Analysis struct {
	// Signal is the structural fingerprint extracted from the code.
	Signal analyzer.Signal

	// Findings holds the corpus findings matched against the signal.
	Findings []finding.Finding

	// QueryUsed is the derived free-text query that produced the matches.
	QueryUsed string
}

// AnalyzeCode analyzes a code sample and retrieves the corpus findings most
// relevant to its structure. The optional hint enriches the analysis with
// user-supplied context such as "ERC4626 vault".
//
// A low-confidence signal degrades the analysis, it never fails it: the
// result carries whatever structure was recognized plus best-effort matches.
func (e *Engine) AnalyzeCode(ctx context.Context, code, hint string, limit int) (Analysis, error) {
	const op = "Engine.AnalyzeCode"
	if strings.TrimSpace(code) == "" {
		return Analysis{}, NewValidationError(op, fmt.Errorf("empty code sample"))
	}

	ctx, span := e.startSpan(ctx, "diablo.analyze")
	defer endSpan(span)

	sig := e.analyzer.Analyze(code)
	if hint != "" {
		sig = applyHint(sig, hint)
	}
	if sig.LowConfidence {
		e.logger.Debug("low-confidence signal", "confidence", sig.Confidence)
	}

	if limit <= 0 {
		limit = retrieval.DepthStandard.Cap()
	}

	query := buildSignalQuery(sig)
	result := e.retrieve(ctx, op, retrieval.Query{
		Text:       query,
		Tags:       sig.RiskTags,
		Severities: e.defaultSeverities,
		Limit:      limit,
	})

	return Analysis{
		Signal:    sig,
		Findings:  result.Findings(),
		QueryUsed: query,
	}, nil
}

// applyHint enriches a signal with a user-supplied context hint.
func applyHint(sig analyzer.Signal, hint string) analyzer.Signal {
	lower := strings.ToLower(hint)
	for _, key := range hintKeys {
		if strings.Contains(lower, key) {
			sig.ProtocolType = hintProtocolMap[key]
			break
		}
	}

	extras := 0
	for _, w := range strings.Fields(hint) {
		if len(w) < minHintWordLen || extras >= maxHintExtras {
			continue
		}
		sig.Keywords = append(sig.Keywords, strings.ToLower(w))
		extras++
	}
	return sig
}

// buildSignalQuery derives the free-text query for a signal: function type,
// mapped protocol term, then the first risk tag, capped at three terms.
// Signals with no typed structure fall back to suggested keywords.
func buildSignalQuery(sig analyzer.Signal) string {
	var terms []string
	if sig.FunctionType != "" {
		terms = append(terms, sig.FunctionType)
	}
	if sig.ProtocolType != "" {
		mapped, ok := protocolSearchMap[sig.ProtocolType]
		if !ok {
			mapped = strings.ToLower(sig.ProtocolType)
		}
		terms = append(terms, mapped)
	}
	if len(sig.RiskTags) > 0 && len(terms) < maxQueryTerms {
		terms = append(terms, strings.ToLower(sig.RiskTags[0]))
	}

	if len(terms) == 0 && len(sig.Keywords) > 0 {
		terms = sig.Keywords
		if len(terms) > 2 {
			terms = terms[:2]
		}
	}
	if len(terms) > maxQueryTerms {
		terms = terms[:maxQueryTerms]
	}
	return strings.Join(terms, " ")
}
