package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"integer", "60", 6000, false},
		{"dot separator", "12.34", 1234, false},
		{"comma separator", "12,34", 1234, false},
		{"single decimal", "12.3", 1230, false},
		{"rounds half up", "12.346", 1235, false},
		{"rounds down", "12.344", 1234, false},
		{"leading dot", ".50", 50, false},
		{"trailing spaces", " 58.00 ", 5800, false},
		{"empty", "", 0, true},
		{"zero", "0", 0, true},
		{"zero decimal", "0.00", 0, true},
		{"negative", "-5", 0, true},
		{"explicit plus", "+5", 0, true},
		{"letters", "abc", 0, true},
		{"two separators", "1.2.3", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimalToCents(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDecimalToCents(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMoneyString(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{6000, "60.00"},
		{1234, "12.34"},
		{5, "0.05"},
		{-180000, "-1800.00"},
		{0, "0.00"},
	}
	for _, tt := range tests {
		if got := (Money{Cents: tt.cents}).String(); got != tt.want {
			t.Errorf("Money{%d}.String() = %q, want %q", tt.cents, got, tt.want)
		}
	}
}
