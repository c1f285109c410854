package services

import (
	"context"
	"errors"
	"fmt"

	"budgetcal/internal/amqp"
	"budgetcal/internal/core"
	"budgetcal/internal/ledger"
	"budgetcal/internal/log"
)

// ReminderPublisher delivers due-bill reminders.
type ReminderPublisher interface {
	PublishReminder(ctx context.Context, msg *amqp.ReminderMessage) error
}

// ReminderService finds unpaid bills falling due in the next few days and
// publishes one reminder per occurrence. Due dates come from the same
// materializer the calendar uses, so moved or paid occurrences are honoured.
type ReminderService struct {
	publisher ReminderPublisher
	logger    *log.Logger
}

func NewReminderService(publisher ReminderPublisher, logger *log.Logger) *ReminderService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ReminderService{
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentReminder),
	}
}

// Due returns the unpaid bill instances dated in [today, today+leadDays].
func Due(entries []core.MasterEntry, today core.Date, leadDays int) ([]core.EntryInstance, error) {
	if leadDays < 0 {
		leadDays = 0
	}
	instances, err := ledger.Materialize(entries, today, today.AddDays(leadDays))
	if err != nil {
		return nil, fmt.Errorf("find due bills: %w", err)
	}
	due := instances[:0]
	for _, inst := range instances {
		if inst.Type == core.Bill && !inst.IsPaid {
			due = append(due, inst)
		}
	}
	return due, nil
}

// Publish sends a reminder per instance. It keeps going after a failed
// publish and returns how many succeeded with the joined errors.
func (s *ReminderService) Publish(ctx context.Context, due []core.EntryInstance, today core.Date) (int, error) {
	if s.publisher == nil {
		return 0, errors.New("reminder publisher not configured")
	}
	var (
		sent int
		errs []error
	)
	for _, inst := range due {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := s.publisher.PublishReminder(ctx, amqp.NewReminderMessage(inst, today)); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish reminder",
				log.FieldInstanceID, inst.ID, log.FieldError, err)
			errs = append(errs, fmt.Errorf("%s: %w", inst.ID, err))
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

// Run loads the ledger, finds what is due today and publishes it.
func (s *ReminderService) Run(ctx context.Context, ledgerSvc *LedgerService, leadDays int) (int, error) {
	today, err := ledgerSvc.Today(ctx)
	if err != nil {
		return 0, err
	}
	entries, err := ledgerSvc.Entries(ctx)
	if err != nil {
		return 0, err
	}
	due, err := Due(entries, today, leadDays)
	if err != nil {
		return 0, err
	}

	sent, err := s.Publish(ctx, due, today)
	s.logger.InfoContext(ctx, "Reminder run complete",
		log.FieldOperation, log.OpRemind,
		"today", today.String(),
		"due", len(due),
		"sent", sent)
	return sent, err
}
