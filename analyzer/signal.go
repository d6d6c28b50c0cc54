package analyzer

// Function describes one function declaration detected in a code sample.
type Function struct {
	// Name is the declared function name.
	Name string `json:"name"`

	// Params is the raw parameter list text between the parentheses.
	Params string `json:"params"`

	// Modifiers is the raw visibility/mutability text following the
	// parameter list (e.g. "external payable").
	Modifiers string `json:"modifiers"`
}

// Signal is the structural fingerprint extracted from a single code sample.
// It is derived, ephemeral, and owned by the analysis call that produced it.
//
// Determinism invariant: analyzing identical input byte-for-byte yields an
// identical Signal. All collection fields are either in source order or
// sorted; none depend on map iteration order.
type Signal struct {
	// ContractName is the first contract declaration found, if any.
	ContractName string `json:"contract_name,omitempty"`

	// Functions lists detected function declarations in source order.
	Functions []Function `json:"functions,omitempty"`

	// Imports lists import targets in source order.
	Imports []string `json:"imports,omitempty"`

	// StateVariables lists detected state variable names in source order,
	// capped at 30.
	StateVariables []string `json:"state_variables,omitempty"`

	// ModifiersDeclared lists modifier declarations in source order.
	ModifiersDeclared []string `json:"modifiers_declared,omitempty"`

	// FunctionType is the dominant function category (deposit, swap, ...)
	// from the function-type table, or empty.
	FunctionType string `json:"function_type,omitempty"`

	// ProtocolType is the protocol category (Vault, Lending, DEX, ...)
	// from the protocol-type table, or empty.
	ProtocolType string `json:"protocol_type,omitempty"`

	// InterfaceTags lists standard interfaces whose signature sets the
	// sample satisfies at or above the table threshold, in table order.
	InterfaceTags []string `json:"interface_tags,omitempty"`

	// RiskTags lists risk-pattern tags that fired, in table order with
	// duplicates removed. Multiple rules may contribute the same tag.
	RiskTags []string `json:"risk_tags,omitempty"`

	// Keywords are suggested search terms derived from fired rules plus
	// the function and protocol types. Sorted, capped at 5.
	Keywords []string `json:"keywords,omitempty"`

	// ExternalCalls lists call sites whose receiver is not a local symbol,
	// in first-seen order, capped at 10.
	ExternalCalls []string `json:"external_calls,omitempty"`

	// ExternalCallCount is the total number of external call sites detected,
	// before the ExternalCalls display cap.
	ExternalCallCount int `json:"external_call_count"`

	// StateChanges lists assigned identifiers, sorted, capped at 5.
	StateChanges []string `json:"state_changes,omitempty"`

	// LineCount is the total number of lines in the sample.
	LineCount int `json:"line_count"`

	// Confidence scores how much structure was recognized, from 0 to 1.
	Confidence float64 `json:"confidence"`

	// LowConfidence marks best-effort partial signals: no functions were
	// recognized or too few structural cues were found. Callers should
	// treat the signal as degraded, never as an error.
	LowConfidence bool `json:"low_confidence"`
}

// FunctionNames returns the detected function names in source order.
func (s Signal) FunctionNames() []string {
	names := make([]string, 0, len(s.Functions))
	for _, fn := range s.Functions {
		names = append(names, fn.Name)
	}
	return names
}

// HasRisk reports whether the given risk tag fired on this signal.
func (s Signal) HasRisk(tag string) bool {
	for _, t := range s.RiskTags {
		if t == tag {
			return true
		}
	}
	return false
}
