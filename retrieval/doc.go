// Package retrieval ranks corpus candidates against structural signals and
// free-text queries.
//
// Scoring is banded: exact tag overlap dominates, severity priority breaks
// ties between equal overlaps, and free-text term overlap breaks ties below
// that. A finding's quality score is only the final tie-break, followed by
// ID to make the total order deterministic: identical inputs always
// produce byte-identical results.
//
// Result-size caps are enforced inside Rank, before any downstream
// generation call can observe the findings. A query that matches nothing
// returns an explicitly empty Result, never an error.
package retrieval
