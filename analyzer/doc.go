// Package analyzer extracts structural signals from smart-contract source
// samples using versioned, data-driven pattern tables.
//
// The analyzer never fails: malformed or fragmentary input produces a
// best-effort partial Signal with the LowConfidence flag set. Re-running
// the analyzer on byte-identical input yields a byte-identical Signal:
// all rule tables are ordered slices and all set-valued outputs are sorted,
// so nothing depends on map iteration order.
//
// Three rule families drive detection:
//
//   - function/protocol type rules: first-match categorization
//   - risk rules: independent triggers, each a case-insensitive regular
//     expression plus an optional CEL condition over structural facts
//   - interface rules: signature sets with a conformance threshold
//     (default 80%); partial matches below the threshold produce no tag
//
// Tables can be replaced wholesale from YAML via LoadTables, keeping new
// patterns additive data rather than logic changes:
//
//	tables, err := analyzer.LoadTables(yamlBytes)
//	if err != nil {
//	    return err
//	}
//	a, err := analyzer.New(analyzer.WithTables(tables))
package analyzer
