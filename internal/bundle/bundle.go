// Package bundle encodes the shareable snapshot of a ledger: its master
// entries, rollover preference and timezone. Bundles are what the
// "export" and "import" commands and the /api/bundle route exchange.
package bundle

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"budgetcal/internal/core"
)

// Version is written into every encoded bundle.
const Version = 1

type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

var ErrUnsupportedFormat = errors.New("unsupported bundle format")

type Bundle struct {
	Version    int                `json:"version" yaml:"version"`
	ExportedAt time.Time          `json:"exportedAt" yaml:"exportedAt"`
	Rollover   core.Rollover      `json:"rollover" yaml:"rollover"`
	Timezone   string             `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	Entries    []core.MasterEntry `json:"entries" yaml:"entries"`
}

func New(entries []core.MasterEntry, rollover core.Rollover, timezone string) Bundle {
	if entries == nil {
		entries = []core.MasterEntry{}
	}
	return Bundle{
		Version:    Version,
		ExportedAt: time.Now().UTC(),
		Rollover:   rollover,
		Timezone:   timezone,
		Entries:    entries,
	}
}

// FormatFromPath picks the format from a file extension; anything that is
// not .yaml or .yml is treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", JSON:
		return JSON, nil
	case YAML, "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

func Encode(w io.Writer, b Bundle, format Format) error {
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(b); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Decode reads a bundle and normalizes it: recurrence aliases are
// canonicalized, missing IDs get a fresh UUID and an empty rollover
// becomes carryover. Malformed dates, unknown recurrences or entry types and
// duplicate IDs are rejected.
func Decode(r io.Reader, format Format) (Bundle, error) {
	var b Bundle
	switch format {
	case JSON:
		if err := json.NewDecoder(r).Decode(&b); err != nil {
			return Bundle{}, fmt.Errorf("decode bundle: %w", err)
		}
	case YAML:
		if err := yaml.NewDecoder(r).Decode(&b); err != nil {
			return Bundle{}, fmt.Errorf("decode bundle: %w", err)
		}
	default:
		return Bundle{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err := b.normalize(); err != nil {
		return Bundle{}, err
	}
	return b, nil
}

func (b *Bundle) normalize() error {
	if b.Version == 0 {
		b.Version = Version
	}
	if b.Version > Version {
		return fmt.Errorf("bundle version %d is newer than supported version %d", b.Version, Version)
	}
	if b.Rollover == "" {
		b.Rollover = core.Carryover
	}
	rollover, err := core.ParseRollover(string(b.Rollover))
	if err != nil {
		return err
	}
	b.Rollover = rollover
	if b.Timezone != "" {
		if _, err := time.LoadLocation(b.Timezone); err != nil {
			return fmt.Errorf("bundle timezone %q: %w", b.Timezone, err)
		}
	}
	if b.Entries == nil {
		b.Entries = []core.MasterEntry{}
	}

	seen := make(map[string]bool, len(b.Entries))
	for i := range b.Entries {
		e := &b.Entries[i]
		if err := NormalizeEntry(e); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		if seen[e.ID] {
			return fmt.Errorf("entry %d: %w: %q", i, core.ErrDuplicateEntry, e.ID)
		}
		seen[e.ID] = true
	}
	return nil
}

// NormalizeEntry canonicalizes e in place and assigns an ID if it has none.
func NormalizeEntry(e *core.MasterEntry) error {
	if strings.TrimSpace(e.ID) == "" {
		e.ID = uuid.NewString()
	}
	if err := e.Date.Validate(); err != nil {
		return fmt.Errorf("entry %s: %w", e.ID, err)
	}
	typ, err := core.ParseEntryType(string(e.Type))
	if err != nil {
		return fmt.Errorf("entry %s: %w", e.ID, err)
	}
	e.Type = typ
	rec, err := e.Recurrence.Canonical()
	if err != nil {
		return fmt.Errorf("entry %s: %w", e.ID, err)
	}
	e.Recurrence = rec
	if e.Amount.IsNegative() {
		return fmt.Errorf("entry %s: %w", e.ID, core.ErrInvalidAmount)
	}
	for key := range e.Exceptions {
		if _, err := core.ParseDate(key); err != nil {
			return fmt.Errorf("entry %s exception %q: %w", e.ID, key, err)
		}
	}
	return nil
}
