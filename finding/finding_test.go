package finding

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	f := New("Reentrancy in withdraw", "Attacker re-enters before state update.", SeverityHigh)

	if f.ID == "" {
		t.Error("New() did not generate an ID")
	}
	if f.Title != "Reentrancy in withdraw" {
		t.Errorf("Title = %q", f.Title)
	}
	if f.Severity != SeverityHigh {
		t.Errorf("Severity = %v, want %v", f.Severity, SeverityHigh)
	}
	if err := f.Validate(); err != nil {
		t.Errorf("Validate() on fresh finding = %v", err)
	}
}

func TestFinding_Validate(t *testing.T) {
	valid := Finding{
		ID:           "codearena-123",
		Title:        "Oracle staleness unchecked",
		Body:         "latestRoundData answer is used without checking updatedAt.",
		Severity:     SeverityMedium,
		QualityScore: 3,
	}

	tests := []struct {
		name    string
		mutate  func(f *Finding)
		wantErr bool
	}{
		{"valid finding", func(f *Finding) {}, false},
		{"missing ID", func(f *Finding) { f.ID = "" }, true},
		{"missing title", func(f *Finding) { f.Title = "" }, true},
		{"invalid severity", func(f *Finding) { f.Severity = "severe" }, true},
		{"quality below range", func(f *Finding) { f.QualityScore = -1 }, true},
		{"quality above range", func(f *Finding) { f.QualityScore = 5.5 }, true},
		{"empty body allowed", func(f *Finding) { f.Body = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid
			tt.mutate(&f)
			err := f.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFinding_HasTag(t *testing.T) {
	f := Finding{Tags: []string{"Reentrancy", "vault"}}

	tests := []struct {
		name string
		tag  string
		want bool
	}{
		{"exact match", "Reentrancy", true},
		{"case-insensitive match", "reentrancy", true},
		{"second tag", "vault", true},
		{"no stemming", "reentran", false},
		{"absent tag", "oracle", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.HasTag(tt.tag); got != tt.want {
				t.Errorf("HasTag(%q) = %v, want %v", tt.tag, got, tt.want)
			}
		})
	}
}

func TestFinding_Link(t *testing.T) {
	f := Finding{SourceLink: "https://solodit.example/f1", GithubLink: "https://github.example/f1"}
	if got := f.Link(); got != "https://solodit.example/f1" {
		t.Errorf("Link() = %q, want source link", got)
	}

	f.SourceLink = ""
	if got := f.Link(); got != "https://github.example/f1" {
		t.Errorf("Link() = %q, want github link fallback", got)
	}
}

func TestFinding_Excerpt(t *testing.T) {
	f := Finding{Body: "abcdefghij"}

	if got := f.Excerpt(20); got != "abcdefghij" {
		t.Errorf("Excerpt(20) = %q, want full body", got)
	}
	if got := f.Excerpt(4); got != "abcd..." {
		t.Errorf("Excerpt(4) = %q, want %q", got, "abcd...")
	}
	if got := f.Excerpt(0); got != "abcdefghij" {
		t.Errorf("Excerpt(0) = %q, want full body when max is zero", got)
	}

	// Multi-byte bodies must never be cut mid-rune.
	f.Body = "héllo wörld"
	got := f.Excerpt(6)
	if !strings.HasPrefix(got, "héllo ") {
		t.Errorf("Excerpt(6) on multi-byte body = %q", got)
	}
}

func TestFinding_Haystack(t *testing.T) {
	f := Finding{
		Title: "Flash Loan Price Manipulation",
		Tags:  []string{"Oracle", "Flash Loan"},
		Body:  "Spot price read during swap.",
	}
	hay := f.Haystack()

	for _, term := range []string{"flash loan", "oracle", "spot price"} {
		if !strings.Contains(hay, term) {
			t.Errorf("Haystack() missing %q: %q", term, hay)
		}
	}
	if hay != strings.ToLower(hay) {
		t.Error("Haystack() is not lowercase")
	}
}
