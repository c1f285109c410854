package main

import (
	"errors"
	"testing"

	"budgetcal/internal/core"
)

func TestParseWindowFlags(t *testing.T) {
	tests := []struct {
		from, to  string
		wantStart string
		wantErr   bool
	}{
		{"", "", "", false},
		{"2024-01-01", "2024-03-31", "2024-01-01", false},
		{"2024-01-01", "", "", true},
		{"", "2024-03-31", "", true},
		{"2024-03-31", "2024-01-01", "", true},
		{"2024-02-30", "2024-03-31", "", true},
		{"1900-01-01", "2999-12-31", "", true},
		{"2024-01-01", "2028-12-31", "2024-01-01", false},
	}
	for _, tt := range tests {
		flagFrom, flagTo = tt.from, tt.to
		start, _, err := parseWindow()
		if (err != nil) != tt.wantErr {
			t.Errorf("parseWindow(%q, %q) error = %v, wantErr %v", tt.from, tt.to, err, tt.wantErr)
			continue
		}
		if tt.wantStart == "" {
			if !start.IsZero() {
				t.Errorf("parseWindow(%q, %q) start = %s, want zero", tt.from, tt.to, start)
			}
		} else if start.String() != tt.wantStart {
			t.Errorf("parseWindow(%q, %q) start = %s, want %s", tt.from, tt.to, start, tt.wantStart)
		}
	}
	flagFrom, flagTo = "", ""
}

func TestParseMonthArg(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-03", "2024-03-01"},
		{"2024-02-29", "2024-02-01"},
	}
	for _, tt := range tests {
		got, err := parseMonth(tt.in)
		if err != nil || got.String() != tt.want {
			t.Errorf("parseMonth(%q) = %s, %v; want %s", tt.in, got, err, tt.want)
		}
	}
	if _, err := parseMonth("March"); !errors.Is(err, core.ErrInvalidDate) {
		t.Errorf("parseMonth(March) error = %v, want ErrInvalidDate", err)
	}
}

func TestIsWorkbook(t *testing.T) {
	for path, want := range map[string]bool{
		"ledger.xlsx": true,
		"LEDGER.XLSX": true,
		"ledger.yaml": false,
		"-":           false,
	} {
		if got := isWorkbook(path); got != want {
			t.Errorf("isWorkbook(%q) = %v, want %v", path, got, want)
		}
	}
}
