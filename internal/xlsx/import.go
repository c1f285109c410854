package xlsx

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"budgetcal/internal/bundle"
	"budgetcal/internal/core"
)

var ErrMissingColumn = errors.New("missing required column")

// Column headers recognised by ImportEntries, matched case-insensitively.
var columnAliases = map[string]string{
	"id":          "id",
	"date":        "date",
	"start date":  "date",
	"name":        "name",
	"description": "name",
	"amount":      "amount",
	"type":        "type",
	"category":    "category",
	"recurrence":  "recurrence",
	"repeat":      "recurrence",
	"paid":        "paid",
	"order":       "order",
}

var requiredColumns = []string{"date", "name", "amount", "type"}

// Besides YYYY-MM-DD, dates typed by hand in a spreadsheet.
var dateLayouts = []string{"01/02/2006", "2006/01/02", "2 Jan 2006", "02-Jan-06"}

// ImportEntries reads master entries from the first worksheet. The first
// row is the header; blank rows are skipped. Errors name the offending row.
func ImportEntries(r io.Reader) ([]core.MasterEntry, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return []core.MasterEntry{}, nil
	}

	cols := map[string]int{}
	for i, h := range rows[0] {
		if key, ok := columnAliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			cols[key] = i
		}
	}
	for _, req := range requiredColumns {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, req)
		}
	}

	entries := []core.MasterEntry{}
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		e, err := parseRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func parseRow(row []string, cols map[string]int) (core.MasterEntry, error) {
	get := func(key string) string {
		idx, ok := cols[key]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var e core.MasterEntry
	var err error
	e.ID = get("id")
	e.Name = get("name")
	e.Category = get("category")
	if e.Date, err = parseDate(get("date")); err != nil {
		return e, err
	}
	if e.Amount, err = core.ParseAmount(get("amount")); err != nil {
		return e, err
	}
	if e.Type, err = core.ParseEntryType(get("type")); err != nil {
		return e, err
	}
	if e.Recurrence, err = core.ParseRecurrence(get("recurrence")); err != nil {
		return e, err
	}
	if e.IsPaid, err = parsePaid(get("paid")); err != nil {
		return e, err
	}
	if s := get("order"); s != "" {
		if e.Order, err = strconv.ParseFloat(s, 64); err != nil {
			return e, fmt.Errorf("order %q: %w", s, err)
		}
	}
	if err := bundle.NormalizeEntry(&e); err != nil {
		return e, err
	}
	return e, nil
}

func parseDate(s string) (core.Date, error) {
	if d, err := core.ParseDate(s); err == nil {
		return d, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.DateOf(t), nil
		}
	}
	return core.Date{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
}

func parsePaid(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", "no", "n", "false", "0":
		return false, nil
	case "yes", "y", "x", "true", "1", "paid":
		return true, nil
	default:
		return false, fmt.Errorf("paid %q: not a yes/no value", s)
	}
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
