// Package services orchestrates the pure ledger engine with persistence,
// memoization and messaging. Handlers, CLI commands and workers talk to
// these services rather than to storage directly.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"budgetcal/internal/amqp"
	"budgetcal/internal/bundle"
	"budgetcal/internal/core"
	"budgetcal/internal/ledger"
	"budgetcal/internal/log"
	"budgetcal/internal/score"
	"budgetcal/internal/storage"
)

var ErrExportsDisabled = errors.New("export queue is not configured")

// ExportPublisher enqueues projection exports.
type ExportPublisher interface {
	PublishExportRequest(ctx context.Context, req *amqp.ExportRequest) error
}

type LedgerConfig struct {
	DefaultRollover core.Rollover
	// Location is used when no timezone has been stored.
	Location *time.Location
	// Now overrides the wall clock. Nil means time.Now.
	Now func() time.Time
}

// LedgerService owns the stored master entries. Edits are applied with the
// pure ledger functions and written back as a whole document.
type LedgerService struct {
	store       *storage.Snapshots
	projections *ProjectionService
	exports     ExportPublisher
	config      LedgerConfig
	now         func() time.Time
	logger      *log.Logger

	mu sync.Mutex // serializes read-modify-write of entries
}

func NewLedgerService(store *storage.Snapshots, projections *ProjectionService, config LedgerConfig, logger *log.Logger) *LedgerService {
	if config.DefaultRollover == "" {
		config.DefaultRollover = core.Carryover
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LedgerService{
		store:       store,
		projections: projections,
		config:      config,
		now:         config.Now,
		logger:      logger.WithComponent(log.ComponentLedger),
	}
}

// SetExportPublisher enables RequestExport. A nil publisher disables it.
func (s *LedgerService) SetExportPublisher(p ExportPublisher) {
	s.exports = p
}

func (s *LedgerService) Entries(ctx context.Context) ([]core.MasterEntry, error) {
	entries, err := s.store.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	return entries, nil
}

// ReplaceEntries normalizes and stores entries as the new master list.
func (s *LedgerService) ReplaceEntries(ctx context.Context, entries []core.MasterEntry) ([]core.MasterEntry, error) {
	out := make([]core.MasterEntry, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		e = e.Clone()
		if err := bundle.NormalizeEntry(&e); err != nil {
			return nil, err
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("%w: %q", core.ErrDuplicateEntry, e.ID)
		}
		seen[e.ID] = true
		out[i] = e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.save(ctx, log.OpSave, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *LedgerService) save(ctx context.Context, op string, entries []core.MasterEntry) error {
	if err := s.store.SaveEntries(ctx, entries); err != nil {
		return fmt.Errorf("save entries: %w", err)
	}
	s.projections.Invalidate()
	s.logger.InfoContext(ctx, "Entries saved", log.FieldOperation, op, log.FieldEntries, len(entries))
	return nil
}

func (s *LedgerService) Rollover(ctx context.Context) (core.Rollover, error) {
	return s.store.Rollover(ctx, s.config.DefaultRollover)
}

func (s *LedgerService) SetRollover(ctx context.Context, r core.Rollover) error {
	r, err := core.ParseRollover(string(r))
	if err != nil {
		return err
	}
	if err := s.store.SaveRollover(ctx, r); err != nil {
		return fmt.Errorf("save rollover: %w", err)
	}
	s.logger.InfoContext(ctx, "Rollover preference changed", log.FieldRollover, string(r))
	return nil
}

// Location returns the stored timezone, falling back to the configured one.
func (s *LedgerService) Location(ctx context.Context) (*time.Location, error) {
	tz, err := s.store.Timezone(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	if tz == "" {
		return s.config.Location, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.logger.WarnContext(ctx, "Stored timezone is invalid, using default", "timezone", tz, log.FieldError, err)
		return s.config.Location, nil
	}
	return loc, nil
}

func (s *LedgerService) SetTimezone(ctx context.Context, tz string) error {
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("timezone %q: %w", tz, err)
	}
	return s.store.SaveTimezone(ctx, tz)
}

// Today returns the current civil date in the ledger's timezone.
func (s *LedgerService) Today(ctx context.Context) (core.Date, error) {
	loc, err := s.Location(ctx)
	if err != nil {
		return core.Date{}, err
	}
	return core.Today(s.now(), loc), nil
}

// Project returns the memoized projection of the stored entries. Windows
// longer than ledger.MaxWindowMonths are refused.
func (s *LedgerService) Project(ctx context.Context, start, end core.Date) (*Projection, error) {
	if err := ledger.CheckWindow(start, end); err != nil {
		return nil, err
	}
	entries, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}
	rollover, err := s.Rollover(ctx)
	if err != nil {
		return nil, err
	}
	return s.projections.Project(ctx, entries, start, end, rollover)
}

// Dashboard projects the default window around today and keeps its weekly
// balances as the last snapshot.
func (s *LedgerService) Dashboard(ctx context.Context) (*Projection, error) {
	today, err := s.Today(ctx)
	if err != nil {
		return nil, err
	}
	start, end := ledger.DefaultWindow(today)
	p, err := s.Project(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveWeeklySnapshot(ctx, p.Weeks); err != nil {
		s.logger.WarnContext(ctx, "Failed to save weekly snapshot", log.FieldError, err)
	}
	return p, nil
}

// LastWeeklySnapshot returns the weekly balances saved by the most recent
// Dashboard call.
func (s *LedgerService) LastWeeklySnapshot(ctx context.Context) (core.WeeklyBalances, error) {
	return s.store.WeeklySnapshot(ctx)
}

// Month summarizes one month. The balance chain starts at the dashboard
// window start, or at the month itself when it lies before that window.
func (s *LedgerService) Month(ctx context.Context, month core.Date) (core.MonthlySummary, error) {
	today, err := s.Today(ctx)
	if err != nil {
		return core.MonthlySummary{}, err
	}
	start, _ := ledger.DefaultWindow(today)
	monthStart, monthEnd := ledger.MonthWindow(month)
	if monthStart.Before(start) {
		start = monthStart
	}
	p, err := s.Project(ctx, start, monthEnd)
	if err != nil {
		return core.MonthlySummary{}, err
	}
	return ledger.SummarizeMonth(p.Instances, p.Weeks, monthStart), nil
}

// Score computes the budget score as of asOf. Only a rated score for today
// is recorded in the history; past or future dates are read-only.
func (s *LedgerService) Score(ctx context.Context, asOf core.Date) (core.BudgetScore, error) {
	today, err := s.Today(ctx)
	if err != nil {
		return core.BudgetScore{}, err
	}
	entries, err := s.Entries(ctx)
	if err != nil {
		return core.BudgetScore{}, err
	}
	result, err := score.CalculateFromMasters(entries, asOf)
	if err != nil {
		return core.BudgetScore{}, err
	}
	s.logger.InfoContext(ctx, "Budget score calculated",
		log.FieldScore, result.Score, log.FieldRank, result.Rank, "as_of", asOf.String())
	if score.IsUnrated(result) || !asOf.Equal(today) {
		return result, nil
	}
	if _, err := s.store.RecordScore(ctx, result); err != nil {
		return core.BudgetScore{}, fmt.Errorf("record score: %w", err)
	}
	return result, nil
}

func (s *LedgerService) ScoreHistory(ctx context.Context) ([]core.BudgetScore, error) {
	return s.store.ScoreHistory(ctx)
}

// Reorder moves an instance to targetDate at targetOrder.
func (s *LedgerService) Reorder(ctx context.Context, instanceID string, targetDate core.Date, targetOrder float64) ([]core.MasterEntry, error) {
	return s.mutate(ctx, log.OpReorder, instanceID, func(entries []core.MasterEntry) ([]core.MasterEntry, error) {
		return ledger.Reorder(entries, instanceID, targetDate, targetOrder)
	})
}

func (s *LedgerService) SetPaid(ctx context.Context, instanceID string, paid bool) ([]core.MasterEntry, error) {
	return s.mutate(ctx, log.OpSetPaid, instanceID, func(entries []core.MasterEntry) ([]core.MasterEntry, error) {
		return ledger.SetPaid(entries, instanceID, paid)
	})
}

func (s *LedgerService) ClearException(ctx context.Context, instanceID string) ([]core.MasterEntry, error) {
	return s.mutate(ctx, log.OpClear, instanceID, func(entries []core.MasterEntry) ([]core.MasterEntry, error) {
		return ledger.ClearException(entries, instanceID)
	})
}

func (s *LedgerService) mutate(ctx context.Context, op, instanceID string, fn func([]core.MasterEntry) ([]core.MasterEntry, error)) ([]core.MasterEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}
	updated, err := fn(entries)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, op, updated); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Instance edited", log.FieldOperation, op, log.FieldInstanceID, instanceID)
	return updated, nil
}

// Bundle snapshots the ledger for sharing.
func (s *LedgerService) Bundle(ctx context.Context) (bundle.Bundle, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return bundle.Bundle{}, err
	}
	rollover, err := s.Rollover(ctx)
	if err != nil {
		return bundle.Bundle{}, err
	}
	tz, err := s.store.Timezone(ctx, s.config.Location.String())
	if err != nil {
		return bundle.Bundle{}, err
	}
	return bundle.New(entries, rollover, tz), nil
}

// Import replaces the ledger with a decoded bundle.
func (s *LedgerService) Import(ctx context.Context, b bundle.Bundle) error {
	if _, err := s.ReplaceEntries(ctx, b.Entries); err != nil {
		return err
	}
	if b.Rollover != "" {
		if err := s.SetRollover(ctx, b.Rollover); err != nil {
			return err
		}
	}
	if b.Timezone != "" {
		if err := s.SetTimezone(ctx, b.Timezone); err != nil {
			return err
		}
	}
	s.logger.InfoContext(ctx, "Bundle imported", log.FieldOperation, log.OpImport, log.FieldEntries, len(b.Entries))
	return nil
}

// RequestExport enqueues an export of [start, end] for the export worker.
func (s *LedgerService) RequestExport(ctx context.Context, start, end core.Date) (*amqp.ExportRequest, error) {
	if s.exports == nil {
		return nil, ErrExportsDisabled
	}
	req := amqp.NewExportRequest(start, end)
	if err := s.exports.PublishExportRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("enqueue export: %w", err)
	}
	return req, nil
}
