// Package worker holds the long-running consumers started by the worker
// binaries.
package worker

import (
	"context"
	"fmt"
	"time"

	"budgetcal/internal/amqp"
	"budgetcal/internal/core"
	"budgetcal/internal/log"
	"budgetcal/internal/services"
	"budgetcal/internal/sheets"
)

// Projector is the part of the ledger service the export worker needs.
type Projector interface {
	Project(ctx context.Context, start, end core.Date) (*services.Projection, error)
	Dashboard(ctx context.Context) (*services.Projection, error)
}

// ExportWorker recomputes a projection per export request and pushes it to
// a spreadsheet. Requests never carry ledger data, so a late or duplicate
// message always exports the current state.
type ExportWorker struct {
	ledger  Projector
	writer  sheets.TableWriter
	timeout time.Duration
	logger  *log.Logger
}

func NewExportWorker(ledger Projector, writer sheets.TableWriter, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ExportWorker{
		ledger:  ledger,
		writer:  writer,
		timeout: 2 * time.Minute,
		logger:  logger.WithComponent(log.ComponentExport),
	}
}

// HandleExportRequest processes one export request. A request with a zero
// window exports the dashboard window.
func (w *ExportWorker) HandleExportRequest(ctx context.Context, req *amqp.ExportRequest) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	var (
		p   *services.Projection
		err error
	)
	if req.From.IsZero() || req.To.IsZero() {
		p, err = w.ledger.Dashboard(ctx)
	} else {
		p, err = w.ledger.Project(ctx, req.From, req.To)
	}
	if err != nil {
		return fmt.Errorf("project for export %s: %w", req.ID, err)
	}

	if err := sheets.ExportProjection(ctx, w.writer, p.Instances, p.Weeks, p.Months); err != nil {
		return fmt.Errorf("export %s: %w", req.ID, err)
	}

	w.logger.InfoContext(ctx, "Projection exported",
		log.FieldOperation, log.OpExport,
		"request_id", req.ID,
		log.FieldWindowStart, p.Start.String(),
		log.FieldWindowEnd, p.End.String(),
		log.FieldInstances, len(p.Instances),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// ExportOnStartup pushes the dashboard once so the spreadsheet is fresh
// even if requests were lost while the worker was down.
func (w *ExportWorker) ExportOnStartup(ctx context.Context) error {
	return w.HandleExportRequest(ctx, &amqp.ExportRequest{ID: "startup"})
}
