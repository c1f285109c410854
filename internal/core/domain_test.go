package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2024-01-31", true},
		{" 2024-02-29 ", true},
		{"2023-02-29", false},
		{"2024-1-5", false},
		{"31/01/2024", false},
		{"", false},
	}
	for _, tc := range cases {
		_, err := ParseDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q expected ok, got %v", tc.in, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
			if !errors.Is(err, ErrInvalidDate) {
				t.Fatalf("%q expected ErrInvalidDate, got %v", tc.in, err)
			}
		}
	}
}

func TestDateArithmetic(t *testing.T) {
	d := NewDate(2024, time.January, 31)

	if got := d.AddMonthsClamped(1).String(); got != "2024-02-29" {
		t.Errorf("AddMonthsClamped(1) = %s, want 2024-02-29", got)
	}
	if got := d.AddMonthsClamped(2).String(); got != "2024-03-31" {
		t.Errorf("AddMonthsClamped(2) = %s, want 2024-03-31", got)
	}
	if got := NewDate(2023, time.January, 31).AddMonthsClamped(1).String(); got != "2023-02-28" {
		t.Errorf("non-leap AddMonthsClamped(1) = %s, want 2023-02-28", got)
	}
	// 2024-01-31 is a Wednesday
	if got := d.StartOfWeek().String(); got != "2024-01-28" {
		t.Errorf("StartOfWeek() = %s, want 2024-01-28", got)
	}
	if got := d.EndOfWeek().String(); got != "2024-02-03" {
		t.Errorf("EndOfWeek() = %s, want 2024-02-03", got)
	}
	if got := NewDate(2024, time.February, 10).EndOfMonth().String(); got != "2024-02-29" {
		t.Errorf("EndOfMonth() = %s, want 2024-02-29", got)
	}
	if got := d.MonthsUntil(NewDate(2025, time.March, 1)); got != 14 {
		t.Errorf("MonthsUntil() = %d, want 14", got)
	}
	if got := d.DaysUntil(NewDate(2024, time.March, 1)); got != 30 {
		t.Errorf("DaysUntil() = %d, want 30", got)
	}
}

func TestTodayUsesLocation(t *testing.T) {
	// 02:00 UTC on Jan 1 is still Dec 31 in New York.
	now := time.Date(2024, time.January, 1, 2, 0, 0, 0, time.UTC)
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	if got := Today(now, ny).String(); got != "2023-12-31" {
		t.Errorf("Today(NY) = %s, want 2023-12-31", got)
	}
	if got := Today(now, nil).String(); got != "2024-01-01" {
		t.Errorf("Today(UTC) = %s, want 2024-01-01", got)
	}
}

func TestParseRecurrence(t *testing.T) {
	tests := []struct {
		in      string
		want    Recurrence
		wantErr bool
	}{
		{"", None, false},
		{"none", None, false},
		{"Weekly", Weekly, false},
		{"bi-weekly", BiWeekly, false},
		{"every-3-months", Quarterly, false},
		{"6months", SemiAnnual, false},
		{"annual", Annual, false},
		{"fortnightly", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRecurrence(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRecurrence(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrUnknownRecurrence) {
				t.Fatalf("ParseRecurrence(%q) error = %v, want ErrUnknownRecurrence", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseRecurrence(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMasterEntryJSON(t *testing.T) {
	raw := `{
		"id": "rent",
		"date": "2024-01-31",
		"name": "Rent",
		"amount": 100.5,
		"type": "bill",
		"recurrence": "monthly",
		"isPaid": false,
		"exceptions": {"2024-02-29": {"isPaid": true, "movedTo": "2024-03-01"}},
		"order": 1.5
	}`
	var e MasterEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Date.String() != "2024-01-31" {
		t.Errorf("Date = %s, want 2024-01-31", e.Date)
	}
	if !e.Amount.Equal(decimal.RequireFromString("100.5")) {
		t.Errorf("Amount = %s, want 100.5", e.Amount)
	}
	x := e.Exceptions["2024-02-29"]
	if x.IsPaid == nil || !*x.IsPaid || x.MovedTo == nil || x.MovedTo.String() != "2024-03-01" {
		t.Errorf("unexpected exception: %+v", x)
	}

	bad := `{"id": "x", "date": "2024-13-01"}`
	if err := json.Unmarshal([]byte(bad), &e); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate for bad date, got %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	paid := true
	e := MasterEntry{ID: "a", Exceptions: map[string]Exception{"2024-01-01": {IsPaid: &paid}}}
	c := e.Clone()
	*c.Exceptions["2024-01-01"].IsPaid = false
	c.Exceptions["2024-02-01"] = Exception{}

	if !*e.Exceptions["2024-01-01"].IsPaid {
		t.Fatal("clone shares IsPaid pointer with original")
	}
	if len(e.Exceptions) != 1 {
		t.Fatal("clone shares exception map with original")
	}
}

func TestInstanceID(t *testing.T) {
	if got := InstanceID("abc", NewDate(2024, time.March, 5)); got != "abc-20240305" {
		t.Errorf("InstanceID() = %q, want abc-20240305", got)
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"1.005", "1.01", true},
		{" 2.50 ", "2.5", true},
		{"0", "0", true},
		{"-1", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}
