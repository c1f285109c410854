package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budgetcal/internal/core"
	"budgetcal/internal/ledger"
	ports "budgetcal/internal/sheets"
)

func TestExportProjectionIntoStore(t *testing.T) {
	entries := []core.MasterEntry{
		{ID: "pay", Date: core.NewDate(2024, time.January, 1), Name: "Pay", Amount: decimal.NewFromInt(2000), Type: core.Income, Recurrence: core.Monthly},
		{ID: "rent", Date: core.NewDate(2024, time.January, 3), Name: "Rent", Amount: decimal.NewFromInt(900), Type: core.Bill, Category: "Housing", Recurrence: core.Monthly},
	}
	start, end := core.NewDate(2024, time.January, 1), core.NewDate(2024, time.February, 29)
	instances, err := ledger.Materialize(entries, start, end)
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	weeks := ledger.AggregateWeekly(instances, core.Carryover)
	months := ledger.SummarizeMonths(instances, weeks, start, end)

	store := New()
	if err := ports.ExportProjection(context.Background(), store, instances, weeks, months); err != nil {
		t.Fatalf("ExportProjection() error = %v", err)
	}
	if store.Writes() != 3 {
		t.Fatalf("Writes() = %d, want 3", store.Writes())
	}

	inst, ok := store.Table(ports.TabInstances)
	if !ok || len(inst.Rows) != 4 {
		t.Fatalf("instances tab = %+v, want 4 rows", inst)
	}
	if got := inst.Rows[0][0]; got != "2024-01-01" {
		t.Errorf("first row date = %v, want 2024-01-01", got)
	}

	m, _ := store.Table(ports.TabMonths)
	if len(m.Rows) != 2 || m.Rows[1][0] != "2024-02" {
		t.Fatalf("months tab = %+v", m.Rows)
	}
	// Two months of +2000 -900.
	if got := m.Rows[1][5]; got != 2200.0 {
		t.Errorf("February end balance = %v, want 2200", got)
	}

	w, _ := store.Table(ports.TabWeeks)
	if len(w.Header) != 5 || len(w.Rows) == 0 {
		t.Errorf("weeks tab = %+v", w)
	}
}
