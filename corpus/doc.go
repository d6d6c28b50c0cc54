// Package corpus maintains the queryable in-memory index of historical
// findings and the sources that feed it.
//
// The corpus is organized around immutable snapshots: a refresh builds a
// whole new Snapshot and swaps it into the Index with a single atomic
// pointer store. Concurrent readers hold the snapshot they started with for
// their whole request, so no reader ever blocks on a refresh or observes a
// mix of old and new data.
//
// Both retrieval access patterns, exact topic lookup and structural-signal
// lookup, reduce to the one Candidates primitive on Snapshot:
//
//	snap := index.Snapshot()
//	cands := snap.Candidates(corpus.Lookup{
//	    Tags:       signal.RiskTags,
//	    Severities: []finding.Severity{finding.SeverityHigh, finding.SeverityMedium},
//	})
//
// Sources supply full snapshots; RedisSource keeps the whole corpus under a
// single key so publishes stay atomic from the reader's point of view.
package corpus
