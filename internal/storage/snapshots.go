package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"budgetcal/internal/core"
)

// Keys of the documents kept in the KV store.
const (
	KeyEntries        = "entries"
	KeyRollover       = "rollover"
	KeyTimezone       = "timezone"
	KeyScoreHistory   = "score_history"
	KeyWeeklySnapshot = "weekly_snapshot"
)

// MaxScoreHistory bounds the number of daily scores kept.
const MaxScoreHistory = 90

// Snapshots reads and writes the ledger documents as JSON over a KV.
type Snapshots struct {
	kv KV
	mu sync.Mutex // serializes read-modify-write of score history
}

func NewSnapshots(kv KV) *Snapshots {
	return &Snapshots{kv: kv}
}

func (s *Snapshots) getJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Snapshots) setJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.kv.Set(ctx, key, raw)
}

// Entries returns the stored master entries, or an empty list.
func (s *Snapshots) Entries(ctx context.Context) ([]core.MasterEntry, error) {
	entries := []core.MasterEntry{}
	if _, err := s.getJSON(ctx, KeyEntries, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Snapshots) SaveEntries(ctx context.Context, entries []core.MasterEntry) error {
	if entries == nil {
		entries = []core.MasterEntry{}
	}
	return s.setJSON(ctx, KeyEntries, entries)
}

// Rollover returns the stored preference, or fallback when none is stored.
func (s *Snapshots) Rollover(ctx context.Context, fallback core.Rollover) (core.Rollover, error) {
	var raw string
	ok, err := s.getJSON(ctx, KeyRollover, &raw)
	if err != nil || !ok {
		return fallback, err
	}
	return core.ParseRollover(raw)
}

func (s *Snapshots) SaveRollover(ctx context.Context, r core.Rollover) error {
	if _, err := core.ParseRollover(string(r)); err != nil {
		return err
	}
	return s.setJSON(ctx, KeyRollover, r)
}

// Timezone returns the stored IANA zone name, or fallback.
func (s *Snapshots) Timezone(ctx context.Context, fallback string) (string, error) {
	var tz string
	ok, err := s.getJSON(ctx, KeyTimezone, &tz)
	if err != nil || !ok || tz == "" {
		return fallback, err
	}
	return tz, nil
}

func (s *Snapshots) SaveTimezone(ctx context.Context, tz string) error {
	return s.setJSON(ctx, KeyTimezone, tz)
}

// ScoreHistory returns recorded scores oldest first.
func (s *Snapshots) ScoreHistory(ctx context.Context) ([]core.BudgetScore, error) {
	history := []core.BudgetScore{}
	if _, err := s.getJSON(ctx, KeyScoreHistory, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// RecordScore stores score, replacing any score for the same date and
// keeping only the most recent MaxScoreHistory days.
func (s *Snapshots) RecordScore(ctx context.Context, score core.BudgetScore) ([]core.BudgetScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.ScoreHistory(ctx)
	if err != nil {
		return nil, err
	}
	history = slices.DeleteFunc(history, func(b core.BudgetScore) bool { return b.Date.Equal(score.Date) })
	history = append(history, score)
	slices.SortFunc(history, func(a, b core.BudgetScore) int { return a.Date.Compare(b.Date.Time) })
	if len(history) > MaxScoreHistory {
		history = history[len(history)-MaxScoreHistory:]
	}
	if err := s.setJSON(ctx, KeyScoreHistory, history); err != nil {
		return nil, err
	}
	return history, nil
}

func (s *Snapshots) WeeklySnapshot(ctx context.Context) (core.WeeklyBalances, error) {
	weeks := core.WeeklyBalances{}
	if _, err := s.getJSON(ctx, KeyWeeklySnapshot, &weeks); err != nil {
		return nil, err
	}
	return weeks, nil
}

func (s *Snapshots) SaveWeeklySnapshot(ctx context.Context, weeks core.WeeklyBalances) error {
	return s.setJSON(ctx, KeyWeeklySnapshot, weeks)
}
