package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/singleflight"

	"budgetcal/internal/cache"
	"budgetcal/internal/core"
	"budgetcal/internal/ledger"
	"budgetcal/internal/log"
)

// Projection is everything derived from the master entries for one window.
// Cached projections are shared between callers and must not be modified.
type Projection struct {
	Start     core.Date             `json:"start"`
	End       core.Date             `json:"end"`
	Rollover  core.Rollover         `json:"rollover"`
	Instances []core.EntryInstance  `json:"instances"`
	Weeks     core.WeeklyBalances   `json:"weeks"`
	Months    []core.MonthlySummary `json:"months"`
}

// ProjectionService memoizes projections by a content hash of their inputs,
// so a recomputation only happens when entries, window or rollover change.
// Concurrent requests for the same inputs share one computation.
type ProjectionService struct {
	cache  cache.Cache[*Projection]
	group  singleflight.Group
	logger *log.Logger
}

func NewProjectionService(c cache.Cache[*Projection], logger *log.Logger) *ProjectionService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ProjectionService{
		cache:  c,
		logger: logger.WithComponent(log.ComponentProjection),
	}
}

// Project materializes entries over [start, end] and aggregates weeks and months.
func (s *ProjectionService) Project(ctx context.Context, entries []core.MasterEntry, start, end core.Date, rollover core.Rollover) (*Projection, error) {
	rollover, err := checkRollover(rollover)
	if err != nil {
		return nil, err
	}
	key, err := ProjectionKey(entries, start, end, rollover)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if p, ok := s.cache.Get(key); ok {
			s.logger.DebugContext(ctx, "Projection cache hit", log.FieldCacheHit, true)
			return p, nil
		}
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		p, err := Compute(entries, start, end, rollover)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.Set(key, p)
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	p := v.(*Projection)
	s.logger.DebugContext(ctx, "Projection computed",
		log.FieldCacheHit, false,
		"shared", shared,
		log.FieldEntries, len(entries),
		log.FieldInstances, len(p.Instances),
		log.FieldWindowStart, start.String(),
		log.FieldWindowEnd, end.String())
	return p, nil
}

// Invalidate drops every memoized projection.
func (s *ProjectionService) Invalidate() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

// Compute runs the pipeline without memoization. An empty rollover means
// carryover; any other unknown value is an error.
func Compute(entries []core.MasterEntry, start, end core.Date, rollover core.Rollover) (*Projection, error) {
	rollover, err := checkRollover(rollover)
	if err != nil {
		return nil, err
	}
	instances, err := ledger.Materialize(entries, start, end)
	if err != nil {
		return nil, fmt.Errorf("project %s..%s: %w", start, end, err)
	}
	weeks := ledger.AggregateWeekly(instances, rollover)
	return &Projection{
		Start:     start,
		End:       end,
		Rollover:  rollover,
		Instances: instances,
		Weeks:     weeks,
		Months:    ledger.SummarizeMonths(instances, weeks, start, end),
	}, nil
}

func checkRollover(r core.Rollover) (core.Rollover, error) {
	if r == "" {
		return core.Carryover, nil
	}
	return core.ParseRollover(string(r))
}

// ProjectionKey hashes the projection inputs. JSON encoding sorts map keys,
// so equal entries always hash the same.
func ProjectionKey(entries []core.MasterEntry, start, end core.Date, rollover core.Rollover) (string, error) {
	h := sha256.New()
	enc := json.NewEncoder(h)
	if err := enc.Encode(entries); err != nil {
		return "", fmt.Errorf("hash entries: %w", err)
	}
	fmt.Fprintf(h, "%s|%s|%s", start, end, rollover)
	return hex.EncodeToString(h.Sum(nil)), nil
}
