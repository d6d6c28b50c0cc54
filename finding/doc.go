// Package finding defines the historical audit-report record shared by the
// corpus, retrieval, and verification layers.
//
// A Finding is immutable once loaded: the corpus index replaces whole
// snapshots instead of mutating records, so findings can be shared between
// concurrent requests without coordination.
//
// The Severity type carries the ordered risk vocabulary used across the
// module (critical > high > medium > low > gas), with numeric weights for
// ranking:
//
//	sev, err := finding.ParseSeverity("HIGH")
//	if err != nil {
//	    // unknown severity string
//	}
//	bonus := sev.Weight() // 7.5
package finding
