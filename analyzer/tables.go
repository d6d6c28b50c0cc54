package analyzer

import (
	"fmt"
	"regexp"

	"github.com/google/cel-go/cel"
	"gopkg.in/yaml.v3"
)

// DefaultTableVersion is the version of the built-in pattern tables.
const DefaultTableVersion = 1

// defaultInterfaceThreshold is the fraction of an interface's signature set
// that a sample must satisfy to be tagged with that interface. Partial
// matches below the threshold produce no tag at all.
const defaultInterfaceThreshold = 0.8

// TypeRule maps a textual trigger to a category label. Rules are evaluated
// in order and the first match wins.
type TypeRule struct {
	// Match is a case-insensitive regular expression.
	Match string `yaml:"match"`

	// Type is the category assigned when Match fires.
	Type string `yaml:"type"`
}

// RiskRule maps a textual and optional structural trigger to a risk tag.
// Every rule fires independently; multiple rules may co-fire on one sample
// and may contribute the same tag.
type RiskRule struct {
	// Tag is the risk-pattern tag emitted when the rule fires.
	Tag string `yaml:"tag"`

	// Trigger is a case-insensitive regular expression over the sample text.
	Trigger string `yaml:"trigger"`

	// Keywords are search terms suggested when the rule fires.
	Keywords []string `yaml:"keywords,omitempty"`

	// Condition is an optional CEL expression over structural facts that
	// must also hold for the rule to fire. Available variables:
	// external_calls (int), functions (int), has_modifiers (bool), loc (int).
	Condition string `yaml:"condition,omitempty"`
}

// InterfaceRule describes a well-known interface by its signature set.
type InterfaceRule struct {
	// Name is the interface tag (e.g. "ERC20").
	Name string `yaml:"name"`

	// Signatures are case-insensitive regular expressions, one per
	// characteristic function signature.
	Signatures []string `yaml:"signatures"`

	// Threshold overrides the default match fraction when > 0.
	Threshold float64 `yaml:"threshold,omitempty"`
}

// Tables is the full, versioned rule set driving the analyzer. New patterns
// are additive data: extend the tables instead of changing analyzer logic.
type Tables struct {
	// Version identifies the table revision, echoed in logs.
	Version int `yaml:"version"`

	// FunctionTypes categorize what the sampled code does (deposit, swap, ...).
	FunctionTypes []TypeRule `yaml:"function_types"`

	// ProtocolTypes categorize the protocol family (Vault, Lending, DEX, ...).
	ProtocolTypes []TypeRule `yaml:"protocol_types"`

	// RiskRules is the risk-pattern trigger table.
	RiskRules []RiskRule `yaml:"risk_rules"`

	// Interfaces is the interface-conformance signature table.
	Interfaces []InterfaceRule `yaml:"interfaces"`
}

// LoadTables parses a YAML table definition, so deployments can version and
// override the built-in rules without code changes.
func LoadTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse tables: %w", err)
	}
	if t.Version == 0 {
		t.Version = DefaultTableVersion
	}
	return &t, nil
}

// DefaultTables returns the built-in pattern tables.
func DefaultTables() *Tables {
	return &Tables{
		Version: DefaultTableVersion,
		FunctionTypes: []TypeRule{
			{Match: `deposit|stake|supply`, Type: "deposit"},
			{Match: `withdraw|unstake|redeem`, Type: "withdraw"},
			{Match: `mint`, Type: "mint"},
			{Match: `burn`, Type: "burn"},
			{Match: `swap`, Type: "swap"},
			{Match: `addLiquidity|add_liquidity`, Type: "add_liquidity"},
			{Match: `removeLiquidity|remove_liquidity`, Type: "remove_liquidity"},
			{Match: `borrow`, Type: "borrow"},
			{Match: `repay`, Type: "repay"},
			{Match: `liquidat`, Type: "liquidate"},
			{Match: `collateral`, Type: "collateral"},
			{Match: `transfer|send`, Type: "transfer"},
			{Match: `approve`, Type: "approve"},
			{Match: `claim|harvest`, Type: "claim"},
			{Match: `balance|balances`, Type: "accounting"},
			{Match: `set|update|change`, Type: "admin"},
			{Match: `pause|unpause`, Type: "pause"},
			{Match: `initialize|init`, Type: "initialize"},
		},
		ProtocolTypes: []TypeRule{
			{Match: `ERC4626|convertToShares|convertToAssets|previewDeposit|previewRedeem`, Type: "Vault"},
			{Match: `vault`, Type: "Vault"},
			{Match: `borrow|repay|liquidat|collateral|healthFactor|LTV`, Type: "Lending"},
			{Match: `Aave|Compound|Euler`, Type: "Lending"},
			{Match: `swap|getAmountOut|getAmountIn|reserves|k\s*=`, Type: "DEX"},
			{Match: `Uniswap|Curve|Balancer|SushiSwap`, Type: "DEX"},
			{Match: `addLiquidity|removeLiquidity|LP|liquidity`, Type: "DEX"},
			{Match: `stake|unstake|reward|rewardRate|earned`, Type: "Staking"},
			{Match: `bridge|cross.*chain|relay|message`, Type: "Bridge"},
			{Match: `oracle|price|latestRoundData|chainlink|getPrice`, Type: "Oracle"},
			{Match: `ERC721|ERC1155|tokenURI|ownerOf`, Type: "NFT"},
		},
		RiskRules: []RiskRule{
			{
				Tag:       "Reentrancy",
				Trigger:   `\.call\{|\.call\(|\(bool\s+success`,
				Keywords:  []string{"reentrancy", "external call"},
				Condition: "external_calls > 0",
			},
			{
				Tag:      "Reentrancy",
				Trigger:  `transferFrom|safeTransferFrom|transfer\(`,
				Keywords: []string{"token transfer", "reentrancy"},
			},
			{
				Tag:      "Oracle",
				Trigger:  `latestRoundData|getPrice|oracle`,
				Keywords: []string{"oracle manipulation", "price"},
			},
			{
				Tag:      "Oracle",
				Trigger:  `TWAP|twap`,
				Keywords: []string{"TWAP", "time-weighted"},
			},
			{
				Tag:      "Precision",
				Trigger:  `/\s*\d+|mulDiv|/\s*1e`,
				Keywords: []string{"precision loss", "rounding"},
			},
			{
				Tag:      "Precision",
				Trigger:  `unchecked\s*\{`,
				Keywords: []string{"overflow", "underflow"},
			},
			{
				Tag:      "Flash Loan",
				Trigger:  `flashLoan|flash.*loan`,
				Keywords: []string{"flash loan"},
			},
			{
				Tag:      "Access Control",
				Trigger:  `onlyOwner|require\(msg\.sender|onlyRole`,
				Keywords: []string{"access control"},
			},
			{
				Tag:      "Access Control",
				Trigger:  `Ownable|AccessControl`,
				Keywords: []string{"access control"},
			},
			{
				Tag:       "Missing Access Control",
				Trigger:   `function\s+(?:set|update|upgrade|withdraw)\w*\s*\([^)]*\)\s*(?:external|public)\s*\{`,
				Keywords:  []string{"missing access control", "privilege"},
				Condition: "!has_modifiers",
			},
			{
				Tag:      "Slippage",
				Trigger:  `slippage|deadline|minAmount|amountOutMin`,
				Keywords: []string{"slippage", "frontrunning"},
			},
			{
				Tag:      "Timestamp",
				Trigger:  `block\.timestamp|\bnow\b`,
				Keywords: []string{"timestamp"},
			},
			{
				Tag:      "Delegatecall",
				Trigger:  `delegatecall`,
				Keywords: []string{"delegatecall", "proxy"},
			},
			{
				Tag:      "Signature",
				Trigger:  `ecrecover|signature|ECDSA`,
				Keywords: []string{"signature", "replay"},
			},
			{
				Tag:      "Unbounded Loop",
				Trigger:  `for\s*\([^;]*;\s*\w+\s*<\s*\w+\.length`,
				Keywords: []string{"unbounded loop", "dos"},
			},
			{
				Tag:      "Balance Accounting",
				Trigger:  `\bbalance(?:s|Of)?\b|_balances\b|userBalance|totalBalance|pendingBalance`,
				Keywords: []string{"balance accounting", "state sync", "double claim", "incorrect accounting"},
			},
			{
				Tag:      "Balance Accounting",
				Trigger:  `shareBalance|creatorBalance|ownerBalance|claimable|accrued|pending`,
				Keywords: []string{"claim accounting", "reward accounting", "balance desync"},
			},
			{
				Tag:      "Balance Accounting",
				Trigger:  `totalSupply|totalAssets|convertToShares|convertToAssets`,
				Keywords: []string{"share accounting", "asset accounting", "vault accounting"},
			},
		},
		Interfaces: []InterfaceRule{
			{
				Name: "ERC20",
				Signatures: []string{
					`totalSupply`, `balanceOf`, `transfer\s*\(`, `approve\s*\(`, `transferFrom`,
				},
			},
			{
				Name: "ERC721",
				Signatures: []string{
					`ownerOf`, `safeTransferFrom`, `tokenURI`, `approve\s*\(`, `setApprovalForAll`,
				},
			},
			{
				Name: "ERC1155",
				Signatures: []string{
					`balanceOfBatch`, `safeBatchTransferFrom`, `safeTransferFrom`, `setApprovalForAll`, `uri\s*\(`,
				},
			},
			{
				Name: "ERC4626",
				Signatures: []string{
					`convertToShares`, `convertToAssets`, `maxDeposit`, `previewMint`, `previewRedeem`,
				},
			},
		},
	}
}

// compiledTypeRule is a TypeRule with its trigger compiled.
type compiledTypeRule struct {
	re  *regexp.Regexp
	typ string
}

// compiledRiskRule is a RiskRule with its trigger and condition compiled.
type compiledRiskRule struct {
	tag      string
	re       *regexp.Regexp
	keywords []string
	cond     cel.Program
}

// compiledInterface is an InterfaceRule with its signatures compiled.
type compiledInterface struct {
	name      string
	sigs      []*regexp.Regexp
	threshold float64
}

// compiledTables holds fully compiled rule sets in table order, so
// evaluation never depends on map iteration.
type compiledTables struct {
	version       int
	functionTypes []compiledTypeRule
	protocolTypes []compiledTypeRule
	risks         []compiledRiskRule
	interfaces    []compiledInterface
}

// newConditionEnv builds the CEL environment exposing structural facts to
// risk-rule conditions.
func newConditionEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("external_calls", cel.IntType),
		cel.Variable("functions", cel.IntType),
		cel.Variable("has_modifiers", cel.BoolType),
		cel.Variable("loc", cel.IntType),
	)
}

// compile validates and compiles the tables. Invalid regular expressions or
// CEL conditions are configuration errors surfaced at construction time,
// never at analysis time.
func (t *Tables) compile() (*compiledTables, error) {
	env, err := newConditionEnv()
	if err != nil {
		return nil, fmt.Errorf("condition env: %w", err)
	}

	ct := &compiledTables{version: t.Version}

	compileType := func(kind string, rules []TypeRule) ([]compiledTypeRule, error) {
		out := make([]compiledTypeRule, 0, len(rules))
		for i, r := range rules {
			re, err := regexp.Compile(`(?i)` + r.Match)
			if err != nil {
				return nil, fmt.Errorf("%s rule %d (%s): %w", kind, i, r.Type, err)
			}
			out = append(out, compiledTypeRule{re: re, typ: r.Type})
		}
		return out, nil
	}

	if ct.functionTypes, err = compileType("function type", t.FunctionTypes); err != nil {
		return nil, err
	}
	if ct.protocolTypes, err = compileType("protocol type", t.ProtocolTypes); err != nil {
		return nil, err
	}

	for i, r := range t.RiskRules {
		re, err := regexp.Compile(`(?i)` + r.Trigger)
		if err != nil {
			return nil, fmt.Errorf("risk rule %d (%s): %w", i, r.Tag, err)
		}
		cr := compiledRiskRule{tag: r.Tag, re: re, keywords: r.Keywords}
		if r.Condition != "" {
			ast, iss := env.Compile(r.Condition)
			if iss != nil && iss.Err() != nil {
				return nil, fmt.Errorf("risk rule %d (%s) condition: %w", i, r.Tag, iss.Err())
			}
			if !ast.OutputType().IsExactType(cel.BoolType) {
				return nil, fmt.Errorf("risk rule %d (%s) condition: must evaluate to bool, got %s", i, r.Tag, ast.OutputType())
			}
			prg, err := env.Program(ast)
			if err != nil {
				return nil, fmt.Errorf("risk rule %d (%s) condition: %w", i, r.Tag, err)
			}
			cr.cond = prg
		}
		ct.risks = append(ct.risks, cr)
	}

	for i, ir := range t.Interfaces {
		if len(ir.Signatures) == 0 {
			return nil, fmt.Errorf("interface rule %d (%s): no signatures", i, ir.Name)
		}
		ci := compiledInterface{name: ir.Name, threshold: ir.Threshold}
		if ci.threshold <= 0 {
			ci.threshold = defaultInterfaceThreshold
		}
		for j, sig := range ir.Signatures {
			re, err := regexp.Compile(`(?i)` + sig)
			if err != nil {
				return nil, fmt.Errorf("interface rule %d (%s) signature %d: %w", i, ir.Name, j, err)
			}
			ci.sigs = append(ci.sigs, re)
		}
		ct.interfaces = append(ct.interfaces, ci)
	}

	return ct, nil
}

// conditionFacts are the structural facts visible to risk-rule conditions.
type conditionFacts struct {
	externalCalls int
	functions     int
	hasModifiers  bool
	loc           int
}

// eval runs a compiled condition against the facts. Evaluation errors
// disable the rule for this sample instead of failing the analysis.
func (r compiledRiskRule) eval(facts conditionFacts) bool {
	if r.cond == nil {
		return true
	}
	out, _, err := r.cond.Eval(map[string]any{
		"external_calls": int64(facts.externalCalls),
		"functions":      int64(facts.functions),
		"has_modifiers":  facts.hasModifiers,
		"loc":            int64(facts.loc),
	})
	if err != nil {
		return false
	}
	ok, _ := out.Value().(bool)
	return ok
}
