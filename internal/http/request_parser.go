package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"budgetcal/internal/core"
	"budgetcal/internal/ledger"
)

const (
	maxBodyBytes = 1 << 20
	maxNameLen   = 200
)

var (
	// errMalformedBody marks request bodies that are not valid JSON for the
	// expected shape.
	errMalformedBody = errors.New("malformed request body")
	errBadParam      = errors.New("invalid query parameter")
)

// Validator checks request payloads against their validate tags.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(masterEntryRules, core.MasterEntry{})
	return &Validator{validate: v}
}

func (v *Validator) Validate(i any) error {
	return v.validate.Struct(i)
}

// masterEntryRules enforces what the ledger cannot repair on its own: a
// display name and an anchor date. Types and recurrences are normalized
// later by the ledger service.
func masterEntryRules(sl validator.StructLevel) {
	e := sl.Current().Interface().(core.MasterEntry)
	name := strings.TrimSpace(e.Name)
	switch {
	case name == "":
		sl.ReportError(e.Name, "name", "Name", "required", "")
	case len(name) > maxNameLen:
		sl.ReportError(e.Name, "name", "Name", "max", strconv.Itoa(maxNameLen))
	}
	if e.Date.IsZero() {
		sl.ReportError(e.Date, "date", "Date", "required", "")
	}
	if e.Amount.IsNegative() {
		sl.ReportError(e.Amount, "amount", "Amount", "gte", "0")
	}
}

type entriesRequest struct {
	Entries []core.MasterEntry `json:"entries" validate:"max=10000,dive"`
}

type rolloverRequest struct {
	Rollover string `json:"rollover" validate:"required,oneof=carryover reset"`
}

type reorderRequest struct {
	TargetDate  string   `json:"targetDate" validate:"required,datetime=2006-01-02"`
	TargetOrder *float64 `json:"targetOrder" validate:"required"`
}

type paidRequest struct {
	Paid *bool `json:"paid" validate:"required"`
}

type exportRequest struct {
	From string `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `json:"to" validate:"omitempty,datetime=2006-01-02"`
}

// decodeJSON reads at most maxBodyBytes of JSON into dst and validates it.
// Domain errors raised while decoding (such as a bad date) are kept
// distinguishable from syntax errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v *Validator, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if isDomainError(err) {
			return err
		}
		return fmt.Errorf("%w: %w", errMalformedBody, err)
	}
	if v == nil {
		return nil
	}
	return v.Validate(dst)
}

// parseDateParam reads a YYYY-MM-DD query parameter. ok is false when the
// parameter is absent.
func parseDateParam(q url.Values, key string) (d core.Date, ok bool, err error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return core.Date{}, false, nil
	}
	d, err = core.ParseDate(raw)
	if err != nil {
		return core.Date{}, false, fmt.Errorf("%s: %w", key, err)
	}
	return d, true, nil
}

// parseWindow reads from/to. Both or neither must be present; ok is false
// when neither is. Windows over ledger.MaxWindowMonths are a bad parameter.
func parseWindow(q url.Values) (start, end core.Date, ok bool, err error) {
	start, hasStart, err := parseDateParam(q, "from")
	if err != nil {
		return core.Date{}, core.Date{}, false, err
	}
	end, hasEnd, err := parseDateParam(q, "to")
	if err != nil {
		return core.Date{}, core.Date{}, false, err
	}
	if hasStart != hasEnd {
		return core.Date{}, core.Date{}, false, fmt.Errorf("%w: from and to must be given together", core.ErrInvalidDate)
	}
	if hasStart && end.Before(start) {
		return core.Date{}, core.Date{}, false, fmt.Errorf("%w: to %s is before from %s", core.ErrInvalidDate, end, start)
	}
	if hasStart {
		if err := ledger.CheckWindow(start, end); err != nil {
			return core.Date{}, core.Date{}, false, fmt.Errorf("%w: %w", errBadParam, err)
		}
	}
	return start, end, hasStart, nil
}

// parseMonth accepts YYYY-MM or any YYYY-MM-DD inside the month.
func parseMonth(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if len(s) == len("2006-01") {
		s += "-01"
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, err
	}
	return d.StartOfMonth(), nil
}

// parseIntParam returns def when key is absent and an error when it is not
// a non-negative integer no larger than maxValue.
func parseIntParam(q url.Values, key string, def, maxValue int) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > maxValue {
		return 0, fmt.Errorf("%w: %s must be an integer between 0 and %d", errBadParam, key, maxValue)
	}
	return n, nil
}
