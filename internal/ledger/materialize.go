package ledger

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"budgetcal/internal/core"
	"budgetcal/internal/recurrence"
)

// Materialize expands every master entry into the instances whose effective
// date lies in [start, end].
//
// An occurrence moved out of the window is dropped, and one moved into the
// window from outside is picked up as long as its exception key is still a
// real occurrence of the entry. The result is sorted with SortInstances, so
// identical inputs always produce identical output.
func Materialize(entries []core.MasterEntry, start, end core.Date) ([]core.EntryInstance, error) {
	out := []core.EntryInstance{}
	if end.Before(start) {
		return out, nil
	}
	for _, entry := range entries {
		instances, err := expand(entry, start, end)
		if err != nil {
			return nil, err
		}
		out = append(out, instances...)
	}
	SortInstances(out)
	return out, nil
}

func expand(entry core.MasterEntry, start, end core.Date) ([]core.EntryInstance, error) {
	dates, err := recurrence.Occurrences(entry, start, end)
	if err != nil {
		return nil, err
	}

	out := make([]core.EntryInstance, 0, len(dates))
	inWindow := make(map[string]bool, len(dates))
	for _, d := range dates {
		inWindow[d.String()] = true
		inst := instanceOf(entry, d)
		if inst.Date.Between(start, end) {
			out = append(out, inst)
		}
	}

	for _, key := range slices.Sorted(maps.Keys(entry.Exceptions)) {
		x := entry.Exceptions[key]
		if inWindow[key] || x.MovedTo == nil || !x.MovedTo.Between(start, end) {
			continue
		}
		original, err := core.ParseDate(key)
		if err != nil {
			return nil, fmt.Errorf("entry %s exception: %w", entry.ID, err)
		}
		ok, err := recurrence.IsOccurrence(entry, original)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Stale key left behind by an edit to the anchor date.
			continue
		}
		out = append(out, instanceOf(entry, original))
	}
	return out, nil
}

func instanceOf(entry core.MasterEntry, original core.Date) core.EntryInstance {
	res := Resolve(entry, original)
	rec, err := entry.Recurrence.Canonical()
	if err != nil {
		rec = entry.Recurrence
	}
	return core.EntryInstance{
		ID:           core.InstanceID(entry.ID, original),
		MasterID:     entry.ID,
		OriginalDate: original,
		Date:         res.EffectiveDate,
		Name:         entry.Name,
		Amount:       entry.Amount,
		Type:         entry.Type,
		Category:     entry.Category,
		Recurrence:   rec,
		IsPaid:       res.IsPaid,
		Order:        res.Order,
	}
}

// SortInstances orders instances by date, then order, then ID.
func SortInstances(instances []core.EntryInstance) {
	slices.SortFunc(instances, func(a, b core.EntryInstance) int {
		if c := a.Date.Compare(b.Date.Time); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
