package http

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"budgetcal/internal/bundle"
	"budgetcal/internal/core"
	"budgetcal/internal/log"
	"budgetcal/internal/services"
	"budgetcal/internal/xlsx"
)

const (
	maxUploadBytes   = 10 << 20
	maxReminderDays  = 366
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	yamlContentType  = "application/yaml"
	defaultExportTag = "projection"
)

type entriesResponse struct {
	Entries []core.MasterEntry `json:"entries"`
}

func (s *Server) writeEntries(w http.ResponseWriter, entries []core.MasterEntry) {
	if entries == nil {
		entries = []core.MasterEntry{}
	}
	NewJSONResponse().JSON(entriesResponse{Entries: entries}).Write(w)
}

func (s *Server) handleGetEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.ledger.Entries(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writeEntries(w, entries)
}

func (s *Server) handlePutEntries(w http.ResponseWriter, r *http.Request) {
	var req entriesRequest
	if err := decodeJSON(w, r, s.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.ledger.ReplaceEntries(r.Context(), req.Entries)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writeEntries(w, saved)
}

// handleImportEntries replaces the ledger with the rows of an uploaded
// workbook.
func (s *Server) handleImportEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := xlsx.ImportEntries(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.ledger.ReplaceEntries(r.Context(), entries)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Workbook imported",
		log.FieldOperation, log.OpImport, log.FieldEntries, len(saved))
	s.writeEntries(w, saved)
}

type rolloverResponse struct {
	Rollover core.Rollover `json:"rollover"`
}

func (s *Server) handleGetRollover(w http.ResponseWriter, r *http.Request) {
	rollover, err := s.ledger.Rollover(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(rolloverResponse{Rollover: rollover}).Write(w)
}

func (s *Server) handlePutRollover(w http.ResponseWriter, r *http.Request) {
	var req rolloverRequest
	if err := decodeJSON(w, r, s.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.SetRollover(r.Context(), core.Rollover(req.Rollover)); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(rolloverResponse{Rollover: core.Rollover(req.Rollover)}).Write(w)
}

// projection returns the requested window, or the dashboard window when
// from and to are both absent.
func (s *Server) projection(r *http.Request) (*services.Projection, error) {
	start, end, ok, err := parseWindow(r.URL.Query())
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.ledger.Dashboard(r.Context())
	}
	return s.ledger.Project(r.Context(), start, end)
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	p, err := s.projection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(p).Write(w)
}

func (s *Server) handleProjectionXLSX(w http.ResponseWriter, r *http.Request) {
	p, err := s.projection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := xlsx.ExportProjection(&buf, p.Instances, p.Weeks, p.Months); err != nil {
		writeError(w, r, err)
		return
	}
	filename := fmt.Sprintf("%s-%s-%s.xlsx", defaultExportTag, p.Start.Compact(), p.End.Compact())
	NewJSONResponse().
		Header("Content-Disposition", `attachment; filename="`+filename+`"`).
		Raw(xlsxContentType, buf.Bytes()).
		Write(w)
}

func (s *Server) handleWeeklySnapshot(w http.ResponseWriter, r *http.Request) {
	weeks, err := s.ledger.LastWeeklySnapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(weeks).Write(w)
}

func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonth(r.PathValue("month"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.ledger.Month(r.Context(), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(summary).Write(w)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	asOf, ok, err := parseDateParam(r.URL.Query(), "asOf")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		if asOf, err = s.ledger.Today(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
	}
	result, err := s.ledger.Score(r.Context(), asOf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(result).Write(w)
}

func (s *Server) handleScoreHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.ledger.ScoreHistory(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if history == nil {
		history = []core.BudgetScore{}
	}
	NewJSONResponse().JSON(history).Write(w)
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeJSON(w, r, s.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	target, err := core.ParseDate(req.TargetDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := s.ledger.Reorder(r.Context(), r.PathValue("id"), target, *req.TargetOrder)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writeEntries(w, entries)
}

func (s *Server) handleSetPaid(w http.ResponseWriter, r *http.Request) {
	var req paidRequest
	if err := decodeJSON(w, r, s.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := s.ledger.SetPaid(r.Context(), r.PathValue("id"), *req.Paid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writeEntries(w, entries)
}

func (s *Server) handleClearException(w http.ResponseWriter, r *http.Request) {
	entries, err := s.ledger.ClearException(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writeEntries(w, entries)
}

// bundleFormat picks the format from ?format=, then from the content type.
func bundleFormat(r *http.Request, contentType string) (bundle.Format, error) {
	if f := r.URL.Query().Get("format"); f != "" {
		return bundle.ParseFormat(f)
	}
	if strings.Contains(strings.ToLower(contentType), "yaml") {
		return bundle.YAML, nil
	}
	return bundle.JSON, nil
}

func (s *Server) handleGetBundle(w http.ResponseWriter, r *http.Request) {
	format, err := bundleFormat(r, r.Header.Get("Accept"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.ledger.Bundle(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := bundle.Encode(&buf, b, format); err != nil {
		writeError(w, r, err)
		return
	}
	contentType := "application/json; charset=utf-8"
	if format == bundle.YAML {
		contentType = yamlContentType
	}
	NewJSONResponse().Raw(contentType, buf.Bytes()).Write(w)
}

func (s *Server) handlePostBundle(w http.ResponseWriter, r *http.Request) {
	format, err := bundleFormat(r, r.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := bundle.Decode(http.MaxBytesReader(w, r.Body, maxUploadBytes), format)
	if err != nil {
		if !isDomainError(err) {
			err = fmt.Errorf("%w: %w", errMalformedBody, err)
		}
		writeError(w, r, err)
		return
	}
	if err := s.ledger.Import(r.Context(), b); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type remindersResponse struct {
	Today    core.Date            `json:"today"`
	LeadDays int                  `json:"leadDays"`
	Due      []core.EntryInstance `json:"due"`
}

func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	days, err := parseIntParam(r.URL.Query(), "days", s.reminderLeadDays, maxReminderDays)
	if err != nil {
		writeError(w, r, err)
		return
	}
	today, err := s.ledger.Today(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := s.ledger.Entries(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	due, err := services.Due(entries, today, days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if due == nil {
		due = []core.EntryInstance{}
	}
	NewJSONResponse().JSON(remindersResponse{Today: today, LeadDays: days, Due: due}).Write(w)
}

func (s *Server) handleRequestExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeJSON(w, r, s.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	start, end, _, err := parseWindow(url.Values{"from": {req.From}, "to": {req.To}})
	if err != nil {
		writeError(w, r, err)
		return
	}
	queued, err := s.ledger.RequestExport(r.Context(), start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Export queued",
		log.FieldOperation, log.OpExport, "export_id", queued.ID)
	NewJSONResponse().Status(http.StatusAccepted).JSON(queued).Write(w)
}
