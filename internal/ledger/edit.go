package ledger

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"budgetcal/internal/core"
	"budgetcal/internal/recurrence"
)

var ErrInstanceNotFound = errors.New("instance not found")

// ParseInstanceID splits an instance ID of the form <masterID>-<YYYYMMDD>.
// Master IDs may themselves contain dashes, so the split is on the last one.
func ParseInstanceID(id string) (string, core.Date, error) {
	i := strings.LastIndex(id, "-")
	if i <= 0 || len(id)-i-1 != 8 {
		return "", core.Date{}, fmt.Errorf("%w: malformed id %q", ErrInstanceNotFound, id)
	}
	raw := id[i+1:]
	d, err := core.ParseDate(raw[0:4] + "-" + raw[4:6] + "-" + raw[6:8])
	if err != nil {
		return "", core.Date{}, fmt.Errorf("%w: malformed id %q", ErrInstanceNotFound, id)
	}
	return id[:i], d, nil
}

// Reorder moves an instance to targetDate with sort position targetOrder.
//
// On a recurring master the move is recorded as an exception under the
// original occurrence date; moving back onto the original date clears
// MovedTo. A one-off master is edited in place.
func Reorder(entries []core.MasterEntry, instanceID string, targetDate core.Date, targetOrder float64) ([]core.MasterEntry, error) {
	if err := targetDate.Validate(); err != nil {
		return nil, err
	}
	return edit(entries, instanceID, func(e *core.MasterEntry, original core.Date) {
		if !e.Recurrence.IsRecurring() {
			e.Date = targetDate
			e.Order = targetOrder
			return
		}
		x := e.Exceptions[original.String()]
		if targetDate.Equal(original) {
			x.MovedTo = nil
		} else {
			moved := targetDate
			x.MovedTo = &moved
		}
		order := targetOrder
		x.Order = &order
		setException(e, original, x)
	})
}

// SetPaid marks one instance paid or unpaid.
func SetPaid(entries []core.MasterEntry, instanceID string, paid bool) ([]core.MasterEntry, error) {
	return edit(entries, instanceID, func(e *core.MasterEntry, original core.Date) {
		if !e.Recurrence.IsRecurring() {
			e.IsPaid = paid
			return
		}
		x := e.Exceptions[original.String()]
		x.IsPaid = &paid
		setException(e, original, x)
	})
}

// ClearException drops any override on one instance so it follows the
// master again.
func ClearException(entries []core.MasterEntry, instanceID string) ([]core.MasterEntry, error) {
	return edit(entries, instanceID, func(e *core.MasterEntry, original core.Date) {
		setException(e, original, core.Exception{})
	})
}

// edit clones entries, locates the master owning instanceID, checks that the
// encoded date is a real occurrence and applies fn to the clone.
func edit(entries []core.MasterEntry, instanceID string, fn func(e *core.MasterEntry, original core.Date)) ([]core.MasterEntry, error) {
	masterID, original, err := ParseInstanceID(instanceID)
	if err != nil {
		return nil, err
	}
	idx := slices.IndexFunc(entries, func(e core.MasterEntry) bool { return e.ID == masterID })
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, instanceID)
	}
	ok, err := recurrence.IsOccurrence(entries[idx], original)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, instanceID)
	}

	out := make([]core.MasterEntry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	fn(&out[idx], original)
	return out, nil
}

func setException(e *core.MasterEntry, original core.Date, x core.Exception) {
	key := original.String()
	if x.IsEmpty() {
		delete(e.Exceptions, key)
		if len(e.Exceptions) == 0 {
			e.Exceptions = nil
		}
		return
	}
	if e.Exceptions == nil {
		e.Exceptions = map[string]core.Exception{}
	}
	e.Exceptions[key] = x
}
