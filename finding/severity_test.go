package finding

import "testing"

func TestSeverity_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		severity Severity
		want     bool
	}{
		{"critical is valid", SeverityCritical, true},
		{"high is valid", SeverityHigh, true},
		{"medium is valid", SeverityMedium, true},
		{"low is valid", SeverityLow, true},
		{"gas is valid", SeverityGas, true},
		{"empty is invalid", Severity(""), false},
		{"unknown is invalid", Severity("unknown"), false},
		{"info is invalid", Severity("info"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.severity.IsValid(); got != tt.want {
				t.Errorf("Severity.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSeverity_Weight(t *testing.T) {
	tests := []struct {
		name     string
		severity Severity
		want     float64
	}{
		{"critical weight", SeverityCritical, 10.0},
		{"high weight", SeverityHigh, 7.5},
		{"medium weight", SeverityMedium, 5.0},
		{"low weight", SeverityLow, 2.5},
		{"gas weight", SeverityGas, 1.0},
		{"invalid weight", Severity("invalid"), 0.0},
		{"empty weight", Severity(""), 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.severity.Weight(); got != tt.want {
				t.Errorf("Severity.Weight() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Severity
		wantErr bool
	}{
		{"lowercase critical", "critical", SeverityCritical, false},
		{"uppercase high", "HIGH", SeverityHigh, false},
		{"mixed case medium", "Medium", SeverityMedium, false},
		{"padded low", "  low ", SeverityLow, false},
		{"gas", "gas", SeverityGas, false},
		{"unknown", "severe", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSeverity(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSeverity(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSeverity(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCompareSeverity(t *testing.T) {
	tests := []struct {
		name string
		s1   Severity
		s2   Severity
		want int
	}{
		{"critical above high", SeverityCritical, SeverityHigh, 1},
		{"high above medium", SeverityHigh, SeverityMedium, 1},
		{"gas below low", SeverityGas, SeverityLow, -1},
		{"equal severities", SeverityMedium, SeverityMedium, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompareSeverity(tt.s1, tt.s2)
			if (got > 0) != (tt.want > 0) || (got < 0) != (tt.want < 0) {
				t.Errorf("CompareSeverity(%v, %v) = %d, want sign of %d", tt.s1, tt.s2, got, tt.want)
			}
		})
	}
}

func TestAllSeverities_Order(t *testing.T) {
	all := AllSeverities()
	if len(all) != 5 {
		t.Fatalf("AllSeverities() returned %d levels, want 5", len(all))
	}
	for i := 1; i < len(all); i++ {
		if CompareSeverity(all[i-1], all[i]) <= 0 {
			t.Errorf("AllSeverities() not strictly descending at index %d: %v then %v", i, all[i-1], all[i])
		}
	}
}
