package corpus

import (
	"context"

	"github.com/Sir-Shaedy/Diablo/finding"
)

// Source is the corpus-source collaborator: it produces complete Finding
// snapshots on demand. The index dictates only the field contract, not the
// storage or transport mechanics behind a Source.
type Source interface {
	// Fetch returns a full corpus snapshot's findings. An empty slice is a
	// valid result (an empty corpus), not an error.
	Fetch(ctx context.Context) ([]finding.Finding, error)
}

// SourceFunc adapts a plain function to the Source interface.
type SourceFunc func(ctx context.Context) ([]finding.Finding, error)

// Fetch implements Source.
func (fn SourceFunc) Fetch(ctx context.Context) ([]finding.Finding, error) {
	return fn(ctx)
}

// StaticSource serves a fixed set of findings, useful for tests and for
// embedding a bundled corpus.
type StaticSource struct {
	findings []finding.Finding
}

// NewStaticSource creates a Source over a fixed finding set.
func NewStaticSource(findings []finding.Finding) *StaticSource {
	return &StaticSource{findings: findings}
}

// Fetch returns a copy of the fixed finding set.
func (s *StaticSource) Fetch(ctx context.Context) ([]finding.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]finding.Finding, len(s.findings))
	copy(out, s.findings)
	return out, nil
}
