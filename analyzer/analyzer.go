package analyzer

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

// Extraction regexes. These tolerate incomplete snippets: a highlighted
// fragment that matches nothing degrades to an empty signal, never an error.
var (
	contractRe = regexp.MustCompile(`contract\s+(\w+)`)
	importRe   = regexp.MustCompile(`import\s+[{"]([^"};]+)`)
	stateVarRe = regexp.MustCompile(`(?m)^\s+(?:mapping|uint|int|address|bool|bytes|string|IERC\w+)\S*\s+(?:public|private|internal|immutable|constant)?\s*(\w+)`)
	functionRe = regexp.MustCompile(`function\s+(\w+)\s*\(([^)]*)\)\s*((?:external|public|internal|private|view|pure|payable|virtual|override|returns\s*\([^)]*\)|\s)*)`)
	modifierRe = regexp.MustCompile(`modifier\s+(\w+)`)
	callRe     = regexp.MustCompile(`(\w+)\s*\.\s*(\w+)\s*\(`)
	assignRe   = regexp.MustCompile(`(\w+)\s*(?:\+=|-=|\*=|/=|=[^=])`)
)

// localReceivers are call receivers that never denote an external contract.
var localReceivers = map[string]bool{
	"msg":     true,
	"block":   true,
	"tx":      true,
	"abi":     true,
	"require": true,
	"assert":  true,
	"this":    true,
	"super":   true,
}

const (
	maxStateVariables = 30
	maxExternalCalls  = 10
	maxStateChanges   = 5
	maxKeywords       = 5
)

// lowConfidenceFloor is the confidence below which a signal is flagged as
// degraded even when some structure was found.
const lowConfidenceFloor = 0.3

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithTables replaces the built-in pattern tables.
func WithTables(t *Tables) Option {
	return func(a *Analyzer) {
		a.tables = t
	}
}

// WithLogger sets a custom logger. If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// Analyzer extracts a structural Signal from raw source text using the
// versioned pattern tables. An Analyzer is immutable after construction and
// safe for concurrent use.
type Analyzer struct {
	tables   *Tables
	compiled *compiledTables
	logger   *slog.Logger
}

// New creates an Analyzer, compiling the pattern tables. Table problems are
// reported here so Analyze itself can never fail.
func New(opts ...Option) (*Analyzer, error) {
	a := &Analyzer{
		tables: DefaultTables(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}

	compiled, err := a.tables.compile()
	if err != nil {
		return nil, fmt.Errorf("compile pattern tables: %w", err)
	}
	a.compiled = compiled
	return a, nil
}

// TableVersion returns the version of the loaded pattern tables.
func (a *Analyzer) TableVersion() int {
	return a.compiled.version
}

// Analyze produces a Signal from a code sample. The input is assumed close
// to valid source but need not be compilable; malformed input yields a
// best-effort partial signal with LowConfidence set, never an error.
func (a *Analyzer) Analyze(code string) Signal {
	sig := Signal{LineCount: lineCount(code)}

	// Structure.
	if m := contractRe.FindStringSubmatch(code); m != nil {
		sig.ContractName = m[1]
	}
	for _, m := range importRe.FindAllStringSubmatch(code, -1) {
		sig.Imports = append(sig.Imports, strings.TrimSpace(m[1]))
	}
	for _, m := range stateVarRe.FindAllStringSubmatch(code, -1) {
		if len(sig.StateVariables) >= maxStateVariables {
			break
		}
		sig.StateVariables = append(sig.StateVariables, m[1])
	}
	for _, m := range functionRe.FindAllStringSubmatch(code, -1) {
		sig.Functions = append(sig.Functions, Function{
			Name:      m[1],
			Params:    strings.TrimSpace(m[2]),
			Modifiers: strings.TrimSpace(m[3]),
		})
	}
	for _, m := range modifierRe.FindAllStringSubmatch(code, -1) {
		sig.ModifiersDeclared = append(sig.ModifiersDeclared, m[1])
	}

	// External call sites: receiver must not be a builtin or a symbol the
	// sample itself declares. Cross-file symbol resolution is out of scope.
	declared := map[string]bool{}
	if sig.ContractName != "" {
		declared[sig.ContractName] = true
	}
	seenCalls := map[string]bool{}
	for _, m := range callRe.FindAllStringSubmatch(code, -1) {
		receiver, method := m[1], m[2]
		if localReceivers[receiver] || declared[receiver] {
			continue
		}
		site := receiver + "." + method
		if seenCalls[site] {
			continue
		}
		seenCalls[site] = true
		sig.ExternalCallCount++
		if len(sig.ExternalCalls) < maxExternalCalls {
			sig.ExternalCalls = append(sig.ExternalCalls, site)
		}
	}

	// Assigned identifiers, sorted for determinism.
	assignSeen := map[string]bool{}
	var assigns []string
	for _, m := range assignRe.FindAllStringSubmatch(code, -1) {
		if !assignSeen[m[1]] {
			assignSeen[m[1]] = true
			assigns = append(assigns, m[1])
		}
	}
	sort.Strings(assigns)
	if len(assigns) > maxStateChanges {
		assigns = assigns[:maxStateChanges]
	}
	sig.StateChanges = assigns

	// Categories: first matching rule wins, rules evaluated in table order.
	for _, r := range a.compiled.functionTypes {
		if r.re.MatchString(code) {
			sig.FunctionType = r.typ
			break
		}
	}
	for _, r := range a.compiled.protocolTypes {
		if r.re.MatchString(code) {
			sig.ProtocolType = r.typ
			break
		}
	}

	// Risk rules fire independently, in table order.
	facts := conditionFacts{
		externalCalls: sig.ExternalCallCount,
		functions:     len(sig.Functions),
		hasModifiers:  len(sig.ModifiersDeclared) > 0,
		loc:           sig.LineCount,
	}
	riskSeen := map[string]bool{}
	keywordSet := map[string]bool{}
	for _, r := range a.compiled.risks {
		if !r.re.MatchString(code) || !r.eval(facts) {
			continue
		}
		if !riskSeen[r.tag] {
			riskSeen[r.tag] = true
			sig.RiskTags = append(sig.RiskTags, r.tag)
		}
		for _, kw := range r.keywords {
			keywordSet[kw] = true
		}
	}

	// Interface conformance: a sample must satisfy the threshold fraction of
	// an interface's signature set to be tagged. No partial tags.
	for _, iface := range a.compiled.interfaces {
		matched := 0
		for _, sigRe := range iface.sigs {
			if sigRe.MatchString(code) {
				matched++
			}
		}
		if float64(matched) >= iface.threshold*float64(len(iface.sigs)) {
			sig.InterfaceTags = append(sig.InterfaceTags, iface.name)
		}
	}

	// Suggested keywords, sorted and capped.
	if sig.FunctionType != "" {
		keywordSet[sig.FunctionType] = true
	}
	if sig.ProtocolType != "" {
		keywordSet[strings.ToLower(sig.ProtocolType)] = true
	}
	keywords := make([]string, 0, len(keywordSet))
	for kw := range keywordSet {
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	sig.Keywords = keywords

	sig.Confidence = confidence(sig)
	sig.LowConfidence = len(sig.Functions) == 0 || sig.Confidence < lowConfidenceFloor

	return sig
}

// confidence scores how much structure was recognized. Additive so each
// recognized dimension contributes independently, capped at 1.0.
func confidence(sig Signal) float64 {
	c := 0.0
	if len(sig.Functions) > 0 {
		c += 0.1
	}
	if sig.FunctionType != "" {
		c += 0.2
	}
	if sig.ProtocolType != "" {
		c += 0.3
	}
	if n := len(sig.RiskTags); n > 0 {
		bonus := float64(n) * 0.1
		if bonus > 0.3 {
			bonus = 0.3
		}
		c += bonus
	}
	if sig.ExternalCallCount > 0 {
		c += 0.1
	}
	if c > 1.0 {
		c = 1.0
	}
	return c
}

func lineCount(code string) int {
	if code == "" {
		return 0
	}
	n := strings.Count(code, "\n") + 1
	if strings.HasSuffix(code, "\n") {
		n--
	}
	return n
}
