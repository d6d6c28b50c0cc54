package diablo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Sir-Shaedy/Diablo/finding"
	"github.com/Sir-Shaedy/Diablo/genai"
	"github.com/Sir-Shaedy/Diablo/retrieval"
)

func TestWithDefaultSeverities(t *testing.T) {
	e, err := New(WithDefaultSeverities(finding.SeverityGas))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	e.LoadFindings(testCorpus())

	res, err := e.Search(context.Background(), "reward loop", SearchOptions{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(res.Findings) != 1 || res.Findings[0].Severity != finding.SeverityGas {
		t.Errorf("Findings = %v, want only the gas finding", res.Findings)
	}
}

func TestWithGenerationTimeout(t *testing.T) {
	gen := genai.Func(func(ctx context.Context, req genai.Request) (genai.Response, error) {
		select {
		case <-ctx.Done():
			return genai.Response{}, ctx.Err()
		case <-time.After(5 * time.Second):
			return genai.Response{Content: "too late"}, nil
		}
	})
	e := newTestEngine(t,
		WithGenerator(gen),
		WithGenerationTimeout(10*time.Millisecond))

	_, err := e.Lesson(context.Background(), "reentrancy", retrieval.DepthStandard, 1)
	if !errors.Is(err, ErrGenerationUnavailable) {
		t.Errorf("Lesson() error = %v, want ErrGenerationUnavailable after timeout", err)
	}
}

func TestWithLogger(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e, err := New(WithLogger(logger))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if e.logger != logger {
		t.Error("custom logger not applied")
	}
}
