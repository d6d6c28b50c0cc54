// Package diablo provides an evidence-grounded retrieval and citation
// verification engine for smart-contract security findings.
//
// The engine turns a corpus of historical audit findings into grounded,
// verifiable artifacts: structural code analysis, ranked finding retrieval,
// and generated lessons, reports, pitfall cards, and patch drafts whose
// every claim cites a real finding.
//
// # Core Concepts
//
// The engine is organized around a few key concepts:
//
//   - Findings: historical audit findings with severity, tags, and provenance
//   - Signals: structural fingerprints extracted from code samples
//   - Retrieval: deterministic ranked lookup over an immutable corpus snapshot
//   - Grounding: the exact finding set supplied to an external generation call
//   - Verification: enforcement that generated content cites only its grounding
//
// # Data Flow
//
// Analyzer signals or a free-text query feed the retrieval engine, which
// produces a ranked, capped finding set. That set grounds an opaque external
// generation call, and the verifier then resolves every inline citation
// against it before any content is released. Content that cannot be grounded
// is rejected, regenerated once, and finally surfaced as ErrUngroundedContent.
//
// # Getting Started
//
// Create an engine, load a corpus, and run operations:
//
//	engine, err := diablo.New(
//		diablo.WithGenerator(gen),
//		diablo.WithSource(src),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := engine.RefreshCorpus(ctx); err != nil {
//		log.Fatal(err)
//	}
//
//	lesson, err := engine.Lesson(ctx, "reentrancy", retrieval.DepthStandard, 5)
//
// Evidence-only operations (Search, AnalyzeCode) work without a generator;
// narrative operations return ErrGenerationUnavailable when none is
// configured.
//
// # Subpackages
//
//   - finding: the Finding record and severity vocabulary
//   - analyzer: the structural code analyzer and its versioned pattern tables
//   - corpus: the immutable snapshot index and corpus sources
//   - retrieval: deterministic ranking and depth caps
//   - genai: the opaque generation boundary and prompt construction
//   - verify: citation verification and output sanitizing
package diablo
