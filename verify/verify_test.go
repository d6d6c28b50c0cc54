package verify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Sir-Shaedy/Diablo/finding"
)

func testGrounding(n int) []finding.Finding {
	var fs []finding.Finding
	for i := 0; i < n; i++ {
		fs = append(fs, finding.Finding{
			ID:       string(rune('a' + i)),
			Title:    "Reentrancy in withdraw",
			Severity: finding.SeverityHigh,
			Firm:     "Trail of Bits",
			Protocol: "VaultX",
			Body:     "External call before state update.",
		})
	}
	return fs
}

const cleanLesson = `<h2>Reentrancy</h2>` +
	`<p>State updates must precede external calls [F1].</p>` +
	`<pre><code>balances[msg.sender] = 0;</code></pre>` +
	`<div class="quiz-question" data-correct="0">` +
	`<p>Which line is unsafe?</p>` +
	`<div class="quiz-option" data-index="0">The external call</div>` +
	`<div class="quiz-option" data-index="1">The event emit</div>` +
	`<div class="quiz-explanation">The call happens before the balance reset [F2].</div>` +
	`</div>`

func TestVerify_CleanContentUnchanged(t *testing.T) {
	v := New(Policy{})
	out := v.Verify(cleanLesson, testGrounding(2))

	if out.Status != StatusAccepted {
		t.Fatalf("Status = %q, want %q (reason %q)", out.Status, StatusAccepted, out.RejectReason)
	}
	if out.Content != cleanLesson {
		t.Errorf("clean content was modified:\n got %q\nwant %q", out.Content, cleanLesson)
	}
	if out.Repaired {
		t.Error("Repaired = true for clean content")
	}
	if len(out.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", out.Warnings)
	}
	if got := []string{"F1", "F2"}; len(out.Citations) != 2 || out.Citations[0] != got[0] || out.Citations[1] != got[1] {
		t.Errorf("Citations = %v, want %v", out.Citations, got)
	}
	if len(out.Quiz) != 1 || out.Quiz[0].CorrectIndex != 0 || out.Quiz[0].IndexCoerced {
		t.Errorf("Quiz = %+v, want one question with index 0, not coerced", out.Quiz)
	}
}

func TestVerify_VerifyIsIdempotent(t *testing.T) {
	dirty := `<h2 style="color:#222">Summary [F1] [F9]</h2>` +
		`<pre><code></code></pre>` +
		`<div class="quiz-question" data-correct="7">` +
		`<p>Q?</p>` +
		`<div class="quiz-option">a</div><div class="quiz-option">b</div>` +
		`</div>`

	v := New(Policy{TolerateUnresolved: true})
	first := v.Verify(dirty, testGrounding(1))
	if first.Status != StatusAccepted {
		t.Fatalf("first pass rejected: %q", first.RejectReason)
	}
	if !first.Repaired {
		t.Error("first pass should report repairs")
	}

	second := v.Verify(first.Content, testGrounding(1))
	if second.Content != first.Content {
		t.Errorf("second pass changed content:\n got %q\nwant %q", second.Content, first.Content)
	}
	if second.Repaired {
		t.Errorf("second pass reported repairs: %v", second.Warnings)
	}
}

func TestVerify_UnresolvedCitationRejects(t *testing.T) {
	content := `<p>As seen in [F9], the vault is unsafe.</p>`

	v := New(Policy{})
	out := v.Verify(content, testGrounding(2))

	if out.Status != StatusRejected {
		t.Fatalf("Status = %q, want %q", out.Status, StatusRejected)
	}
	if out.Content != "" {
		t.Errorf("rejected outcome carries content %q", out.Content)
	}
	if !strings.Contains(out.RejectReason, "F9") {
		t.Errorf("RejectReason = %q, want mention of F9", out.RejectReason)
	}
}

func TestVerify_UnresolvedCitationTolerated(t *testing.T) {
	content := `<p>As seen in [F9], the vault drains [F1].</p>`

	v := New(Policy{TolerateUnresolved: true})
	out := v.Verify(content, testGrounding(1))

	if out.Status != StatusAccepted {
		t.Fatalf("Status = %q, want %q", out.Status, StatusAccepted)
	}
	if strings.Contains(out.Content, "[F9]") {
		t.Errorf("unresolved marker survived: %q", out.Content)
	}
	if !strings.Contains(out.Content, "[F1]") {
		t.Errorf("resolved marker stripped: %q", out.Content)
	}
	if len(out.Unresolved) != 1 || out.Unresolved[0] != "F9" {
		t.Errorf("Unresolved = %v, want [F9]", out.Unresolved)
	}
	if !out.Repaired {
		t.Error("Repaired = false after stripping markers")
	}
}

func TestVerify_QuizIndexNormalization(t *testing.T) {
	quiz := func(correct, explanation string) string {
		return `<div class="quiz-question" data-correct="` + correct + `">` +
			`<p>Q?</p>` +
			`<div class="quiz-option">a</div>` +
			`<div class="quiz-option">b</div>` +
			`<div class="quiz-option">c</div>` +
			`<div class="quiz-option">d</div>` +
			`<div class="quiz-explanation">` + explanation + `</div>` +
			`</div>`
	}

	tests := []struct {
		name        string
		content     string
		wantIndex   int
		wantCoerced bool
	}{
		{"out of range clamps to last", quiz("7", "x"), 3, true},
		{"valid zero-based kept", quiz("2", "x"), 2, false},
		{"one past end treated as one-based", quiz("4", "x"), 3, true},
		{"letter hint wins", quiz("0", "Answer: C, the loop is unbounded."), 2, true},
		{"letter hint agreeing is not coercion", quiz("1", "Correct: B"), 1, false},
		{"non-numeric falls back to zero", quiz("abc", "x"), 0, true},
	}
	v := New(Policy{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := v.Verify(tt.content, nil)
			if len(out.Quiz) != 1 {
				t.Fatalf("parsed %d questions, want 1", len(out.Quiz))
			}
			q := out.Quiz[0]
			if q.CorrectIndex != tt.wantIndex {
				t.Errorf("CorrectIndex = %d, want %d", q.CorrectIndex, tt.wantIndex)
			}
			if q.IndexCoerced != tt.wantCoerced {
				t.Errorf("IndexCoerced = %v, want %v", q.IndexCoerced, tt.wantCoerced)
			}
			wantAttr := `data-correct="` + map[int]string{0: "0", 1: "1", 2: "2", 3: "3"}[tt.wantIndex] + `"`
			if !strings.Contains(out.Content, wantAttr) {
				t.Errorf("content attr not rewritten, want %s in %q", wantAttr, out.Content)
			}
		})
	}
}

func TestVerify_QuizParsesStructure(t *testing.T) {
	content := `<div class="quiz-question" data-correct="1">` +
		`<p>What guards the withdraw?</p>` +
		`<pre><code>function withdraw() external {}</code></pre>` +
		`<div class="quiz-option">nothing</div>` +
		`<div class="quiz-option">a reentrancy lock</div>` +
		`<div class="quiz-explanation">No modifier is declared.</div>` +
		`</div>`

	out := New(Policy{}).Verify(content, nil)
	if len(out.Quiz) != 1 {
		t.Fatalf("parsed %d questions, want 1", len(out.Quiz))
	}
	q := out.Quiz[0]
	if q.Question != "What guards the withdraw?" {
		t.Errorf("Question = %q", q.Question)
	}
	if q.CodeSnippet != "function withdraw() external {}" {
		t.Errorf("CodeSnippet = %q", q.CodeSnippet)
	}
	if len(q.Options) != 2 || q.Options[1] != "a reentrancy lock" {
		t.Errorf("Options = %v", q.Options)
	}
	if q.Explanation != "No modifier is declared." {
		t.Errorf("Explanation = %q", q.Explanation)
	}
}

func TestVerify_EmptyCodeBlockFilled(t *testing.T) {
	content := `<p>Patch:</p><pre><code>  </code></pre>`

	out := New(Policy{}).Verify(content, nil)
	if strings.Contains(out.Content, "<pre><code>  </code></pre>") {
		t.Errorf("empty code block survived: %q", out.Content)
	}
	if !strings.Contains(out.Content, DefaultCodePlaceholder) {
		t.Errorf("placeholder missing from %q", out.Content)
	}
	if !out.Repaired {
		t.Error("Repaired = false after filling code block")
	}
}

func TestVerify_InlineStylesStripped(t *testing.T) {
	content := `<h2 style="color:#222">Summary</h2><p style='font-size:9px'>tiny</p>`

	out := New(Policy{}).Verify(content, nil)
	if strings.Contains(out.Content, "style=") {
		t.Errorf("style attribute survived: %q", out.Content)
	}
	if !strings.Contains(out.Content, "<h2>Summary</h2>") {
		t.Errorf("markup damaged: %q", out.Content)
	}
}

func TestRun_RetriesOnceThenRejects(t *testing.T) {
	calls := 0
	generate := func(context.Context) (string, error) {
		calls++
		return `<p>See [F9].</p>`, nil
	}

	v := New(Policy{})
	out, err := v.Run(context.Background(), generate, testGrounding(2))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("generate called %d times, want 2", calls)
	}
	if out.Status != StatusRejected {
		t.Errorf("Status = %q, want %q", out.Status, StatusRejected)
	}
}

func TestRun_RetrySucceeds(t *testing.T) {
	calls := 0
	generate := func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return `<p>See [F9].</p>`, nil
		}
		return `<p>See [F1].</p>`, nil
	}

	out, err := New(Policy{}).Run(context.Background(), generate, testGrounding(1))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Status != StatusAccepted {
		t.Errorf("Status = %q after successful retry", out.Status)
	}
	if calls != 2 {
		t.Errorf("generate called %d times, want 2", calls)
	}
}

func TestRun_GenerationErrorRejects(t *testing.T) {
	genErr := errors.New("model offline")
	generate := func(context.Context) (string, error) { return "", genErr }

	out, err := New(Policy{}).Run(context.Background(), generate, testGrounding(1))
	if !errors.Is(err, genErr) {
		t.Fatalf("Run() error = %v, want %v", err, genErr)
	}
	if out.Status != StatusRejected {
		t.Errorf("Status = %q, want %q", out.Status, StatusRejected)
	}
}

func TestRun_CancelledContextRejects(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	generate := func(context.Context) (string, error) { return `<p>ok [F1]</p>`, nil }

	out, err := New(Policy{}).Run(ctx, generate, testGrounding(1))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if out.Status != StatusRejected {
		t.Errorf("Status = %q, want %q", out.Status, StatusRejected)
	}
}

func TestEvidenceMap(t *testing.T) {
	if got := EvidenceMap(nil); got != "" {
		t.Errorf("EvidenceMap(nil) = %q, want empty", got)
	}

	out := EvidenceMap(testGrounding(10))
	if !strings.Contains(out, "<td>F1</td>") || !strings.Contains(out, "<td>F8</td>") {
		t.Errorf("missing expected rows in %q", out)
	}
	if strings.Contains(out, "<td>F9</td>") {
		t.Error("evidence map exceeded row cap")
	}
	if !strings.Contains(out, "Trail of Bits") {
		t.Error("firm column missing")
	}

	escaped := EvidenceMap([]finding.Finding{{Title: "Unsafe <script>", Severity: finding.SeverityLow}})
	if strings.Contains(escaped, "<script>") {
		t.Errorf("title not escaped: %q", escaped)
	}
}
