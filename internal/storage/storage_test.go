package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"budgetcal/internal/core"
)

func backends(t *testing.T) map[string]KV {
	t.Helper()
	sqlite, err := NewSQLiteKV(filepath.Join(t.TempDir(), "data", "budget.db"))
	if err != nil {
		t.Fatalf("NewSQLiteKV() error = %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]KV{
		"memory": NewMemoryKV(),
		"sqlite": sqlite,
	}
}

func TestKV(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := kv.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
			}
			if err := kv.Set(ctx, "k", []byte("one")); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if err := kv.Set(ctx, "k", []byte("two")); err != nil {
				t.Fatalf("Set() overwrite error = %v", err)
			}
			got, err := kv.Get(ctx, "k")
			if err != nil || string(got) != "two" {
				t.Fatalf("Get(k) = %q, %v; want two", got, err)
			}
			if err := kv.Delete(ctx, "k"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := kv.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get after Delete error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestSQLiteKV_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "budget.db")

	kv, err := NewSQLiteKV(path)
	if err != nil {
		t.Fatalf("NewSQLiteKV() error = %v", err)
	}
	if err := kv.Set(ctx, KeyTimezone, []byte(`"Europe/Rome"`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	kv.Close()

	kv, err = NewSQLiteKV(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer kv.Close()
	got, err := kv.Get(ctx, KeyTimezone)
	if err != nil || string(got) != `"Europe/Rome"` {
		t.Errorf("Get() after reopen = %q, %v", got, err)
	}
}

func TestSnapshots(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshots(NewMemoryKV())

	entries, err := s.Entries(ctx)
	if err != nil || entries == nil || len(entries) != 0 {
		t.Fatalf("Entries() on empty store = %v, %v", entries, err)
	}

	d, _ := core.ParseDate("2024-01-31")
	in := []core.MasterEntry{{ID: "rent", Date: d, Name: "Rent", Amount: decimal.RequireFromString("950.50"), Type: core.Bill, Recurrence: core.Monthly}}
	if err := s.SaveEntries(ctx, in); err != nil {
		t.Fatalf("SaveEntries() error = %v", err)
	}
	out, err := s.Entries(ctx)
	if err != nil || len(out) != 1 || !out[0].Date.Equal(d) || !out[0].Amount.Equal(in[0].Amount) {
		t.Fatalf("Entries() = %+v, %v", out, err)
	}

	r, err := s.Rollover(ctx, core.Carryover)
	if err != nil || r != core.Carryover {
		t.Errorf("Rollover() default = %q, %v", r, err)
	}
	if err := s.SaveRollover(ctx, core.Reset); err != nil {
		t.Fatalf("SaveRollover() error = %v", err)
	}
	if r, _ := s.Rollover(ctx, core.Carryover); r != core.Reset {
		t.Errorf("Rollover() = %q, want reset", r)
	}
	if err := s.SaveRollover(ctx, "monthly"); !errors.Is(err, core.ErrUnknownRollover) {
		t.Errorf("SaveRollover(monthly) error = %v", err)
	}

	if tz, _ := s.Timezone(ctx, "UTC"); tz != "UTC" {
		t.Errorf("Timezone() default = %q", tz)
	}
}

func TestSnapshots_ScoreHistory(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshots(NewMemoryKV())
	start, _ := core.ParseDate("2024-01-01")

	for i := 0; i < MaxScoreHistory+10; i++ {
		if _, err := s.RecordScore(ctx, core.BudgetScore{Score: i % 100, Date: start.AddDays(i)}); err != nil {
			t.Fatalf("RecordScore() error = %v", err)
		}
	}
	// Re-recording a day replaces it.
	last := start.AddDays(MaxScoreHistory + 9)
	history, err := s.RecordScore(ctx, core.BudgetScore{Score: 42, Date: last})
	if err != nil {
		t.Fatalf("RecordScore() error = %v", err)
	}
	if len(history) != MaxScoreHistory {
		t.Fatalf("history length = %d, want %d", len(history), MaxScoreHistory)
	}
	if !history[0].Date.Equal(start.AddDays(10)) {
		t.Errorf("oldest kept = %s, want %s", history[0].Date, start.AddDays(10))
	}
	if got := history[len(history)-1]; got.Score != 42 || !got.Date.Equal(last) {
		t.Errorf("latest = %+v", got)
	}
}
