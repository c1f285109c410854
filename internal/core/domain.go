package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Bill   EntryType = "bill"
	Income EntryType = "income"
)

const (
	None       Recurrence = "none"
	Weekly     Recurrence = "weekly"
	BiWeekly   Recurrence = "bi-weekly"
	Monthly    Recurrence = "monthly"
	BiMonthly  Recurrence = "bimonthly"
	Quarterly  Recurrence = "3months"
	SemiAnnual Recurrence = "6months"
	Annual     Recurrence = "annual"
)

const (
	Carryover Rollover = "carryover"
	Reset     Rollover = "reset"
)

type (
	EntryType string

	// Recurrence is the cadence tag of a master entry.
	Recurrence string

	// Rollover decides whether a week's ending balance opens the next week.
	Rollover string

	// Exception overrides a single occurrence of a master entry. It is stored
	// under the date the occurrence would have had without any override.
	Exception struct {
		IsPaid  *bool    `json:"isPaid,omitempty" yaml:"isPaid,omitempty"`
		MovedTo *Date    `json:"movedTo,omitempty" yaml:"movedTo,omitempty"`
		Order   *float64 `json:"order,omitempty" yaml:"order,omitempty"`
	}

	// MasterEntry is the durable, user-edited record every occurrence derives from.
	MasterEntry struct {
		ID         string               `json:"id" yaml:"id"`
		Date       Date                 `json:"date" yaml:"date"`
		Name       string               `json:"name" yaml:"name"`
		Amount     decimal.Decimal      `json:"amount" yaml:"amount"`
		Type       EntryType            `json:"type" yaml:"type"`
		Category   string               `json:"category,omitempty" yaml:"category,omitempty"`
		Recurrence Recurrence           `json:"recurrence,omitempty" yaml:"recurrence,omitempty"`
		IsPaid     bool                 `json:"isPaid" yaml:"isPaid"`
		Exceptions map[string]Exception `json:"exceptions,omitempty" yaml:"exceptions,omitempty"`
		Order      float64              `json:"order" yaml:"order"`
	}

	// EntryInstance is one dated materialization of a MasterEntry. Instances
	// are derived on every projection and never persisted.
	EntryInstance struct {
		ID           string          `json:"id"`
		MasterID     string          `json:"masterId"`
		OriginalDate Date            `json:"originalDate"`
		Date         Date            `json:"date"`
		Name         string          `json:"name"`
		Amount       decimal.Decimal `json:"amount"`
		Type         EntryType       `json:"type"`
		Category     string          `json:"category,omitempty"`
		Recurrence   Recurrence      `json:"recurrence"`
		IsPaid       bool            `json:"isPaid"`
		Order        float64         `json:"order"`
	}
)

var (
	ErrInvalidDate       = errors.New("invalid date")
	ErrUnknownRecurrence = errors.New("unknown recurrence")
	ErrUnknownRollover   = errors.New("unknown rollover preference")
	ErrUnknownEntryType  = errors.New("unknown entry type")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrDuplicateEntry    = errors.New("duplicate entry id")
)

var recurrenceAliases = map[string]Recurrence{
	"":               None,
	"none":           None,
	"weekly":         Weekly,
	"bi-weekly":      BiWeekly,
	"biweekly":       BiWeekly,
	"monthly":        Monthly,
	"bimonthly":      BiMonthly,
	"bi-monthly":     BiMonthly,
	"3months":        Quarterly,
	"every-3-months": Quarterly,
	"quarterly":      Quarterly,
	"6months":        SemiAnnual,
	"every-6-months": SemiAnnual,
	"annual":         Annual,
	"yearly":         Annual,
}

// ParseRecurrence maps a stored tag to its canonical Recurrence. Unknown
// tags are an error and are never defaulted to None.
func ParseRecurrence(s string) (Recurrence, error) {
	r, ok := recurrenceAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRecurrence, s)
	}
	return r, nil
}

// Canonical returns the canonical form of r, or an error for unknown tags.
func (r Recurrence) Canonical() (Recurrence, error) {
	return ParseRecurrence(string(r))
}

// IsRecurring reports whether r produces more than one occurrence.
func (r Recurrence) IsRecurring() bool {
	c, err := r.Canonical()
	return err == nil && c != None
}

func ParseRollover(s string) (Rollover, error) {
	switch Rollover(strings.ToLower(strings.TrimSpace(s))) {
	case Carryover:
		return Carryover, nil
	case Reset:
		return Reset, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRollover, s)
	}
}

func ParseEntryType(s string) (EntryType, error) {
	switch EntryType(strings.ToLower(strings.TrimSpace(s))) {
	case Bill:
		return Bill, nil
	case Income:
		return Income, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEntryType, s)
	}
}

// IsEmpty reports whether the exception overrides nothing.
func (x Exception) IsEmpty() bool {
	return x.IsPaid == nil && x.MovedTo == nil && x.Order == nil
}

// Clone returns a deep copy so callers can derive edited entries without
// touching the original.
func (e MasterEntry) Clone() MasterEntry {
	out := e
	if e.Exceptions != nil {
		out.Exceptions = make(map[string]Exception, len(e.Exceptions))
		for k, x := range e.Exceptions {
			out.Exceptions[k] = x.clone()
		}
	}
	return out
}

func (x Exception) clone() Exception {
	out := Exception{}
	if x.IsPaid != nil {
		v := *x.IsPaid
		out.IsPaid = &v
	}
	if x.MovedTo != nil {
		v := *x.MovedTo
		out.MovedTo = &v
	}
	if x.Order != nil {
		v := *x.Order
		out.Order = &v
	}
	return out
}

// InstanceID builds the deterministic identifier of the occurrence of
// masterID originally due on date.
func InstanceID(masterID string, original Date) string {
	return masterID + "-" + original.Compact()
}

// Signed returns the instance amount as a balance delta: income adds, bills subtract.
func (i EntryInstance) Signed() decimal.Decimal {
	if i.Type == Income {
		return i.Amount
	}
	return i.Amount.Neg()
}
