package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budgetcal/internal/amqp"
	"budgetcal/internal/cache"
	"budgetcal/internal/core"
	"budgetcal/internal/middleware/trace"
	"budgetcal/internal/services"
	"budgetcal/internal/storage"
)

const fixtureEntries = `{"entries": [
	{"id": "pay", "date": "2024-01-01", "name": "Pay", "amount": 3000, "type": "income", "recurrence": "monthly"},
	{"id": "rent", "date": "2024-01-05", "name": "Rent", "amount": 1200, "type": "bill", "category": "Housing", "recurrence": "monthly"},
	{"id": "card", "date": "2024-01-20", "name": "Card", "amount": 200, "type": "bill", "category": "Credit Card", "recurrence": "monthly"}
]}`

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fakeExports struct{ got []*amqp.ExportRequest }

func (f *fakeExports) PublishExportRequest(_ context.Context, req *amqp.ExportRequest) error {
	f.got = append(f.got, req)
	return nil
}

func newTestServer(t *testing.T, opts Options) (*Server, *services.LedgerService) {
	t.Helper()
	if opts.Ledger == nil {
		projections := services.NewProjectionService(cache.NewLRUCache[*services.Projection](16, 0), nil)
		opts.Ledger = services.NewLedgerService(storage.NewSnapshots(storage.NewMemoryKV()), projections, services.LedgerConfig{
			Now: func() time.Time { return time.Date(2024, time.February, 10, 9, 0, 0, 0, time.UTC) },
		}, nil)
	}
	if opts.ReminderLeadDays == 0 {
		opts.ReminderLeadDays = 3
	}
	srv, err := NewServer(opts)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, opts.Ledger
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func seeded(t *testing.T) *Server {
	t.Helper()
	srv, _ := newTestServer(t, Options{})
	if rr := do(t, srv, http.MethodPut, "/api/entries", fixtureEntries); rr.Code != http.StatusOK {
		t.Fatalf("seed entries status = %d: %s", rr.Code, rr.Body)
	}
	return srv
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rr.Body)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := do(t, srv, http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rr.Code)
		}
	}

	down, _ := newTestServer(t, Options{Pinger: fakePinger{err: errors.New("db gone")}})
	if rr := do(t, down, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("/readyz with failing storage = %d, want 503", rr.Code)
	}
}

func TestMiddlewareHeaders(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	rr := do(t, srv, http.MethodGet, "/api/entries", "")
	if rr.Header().Get(trace.Header) == "" {
		t.Error("response has no request id")
	}
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rr.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestPutEntries(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", fixtureEntries, http.StatusOK},
		{"malformed json", `{"entries": [`, http.StatusBadRequest},
		{"bad date", `{"entries": [{"id": "a", "date": "2024-02-30", "name": "A", "amount": 1, "type": "bill"}]}`, http.StatusUnprocessableEntity},
		{"missing name", `{"entries": [{"id": "a", "date": "2024-02-01", "amount": 1, "type": "bill"}]}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"entries": [{"id": "a", "date": "2024-02-01", "name": "A", "amount": -5, "type": "bill"}]}`, http.StatusUnprocessableEntity},
		{"unknown recurrence", `{"entries": [{"id": "a", "date": "2024-02-01", "name": "A", "amount": 1, "type": "bill", "recurrence": "daily"}]}`, http.StatusUnprocessableEntity},
		{"duplicate ids", `{"entries": [{"id": "a", "date": "2024-02-01", "name": "A", "amount": 1, "type": "bill"}, {"id": "a", "date": "2024-02-02", "name": "B", "amount": 1, "type": "bill"}]}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, Options{})
			rr := do(t, srv, http.MethodPut, "/api/entries", tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.want, rr.Body)
			}
		})
	}
}

func TestValidationErrorListsFields(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	rr := do(t, srv, http.MethodPut, "/api/entries", `{"entries": [{"id": "a", "date": "2024-02-01", "amount": 1, "type": "bill"}]}`)
	body := decode[ErrorBody](t, rr)
	if len(body.Fields) != 1 || body.Fields[0].Rule != "required" || !strings.HasSuffix(body.Fields[0].Field, "name") {
		t.Errorf("fields = %+v, want one required error on name", body.Fields)
	}
	if body.RequestID == "" {
		t.Error("error body has no request id")
	}
}

func TestGetEntries(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	empty := decode[entriesResponse](t, do(t, srv, http.MethodGet, "/api/entries", ""))
	if empty.Entries == nil || len(empty.Entries) != 0 {
		t.Errorf("empty ledger entries = %v, want []", empty.Entries)
	}

	srv = seeded(t)
	got := decode[entriesResponse](t, do(t, srv, http.MethodGet, "/api/entries", ""))
	if len(got.Entries) != 3 {
		t.Errorf("got %d entries, want 3", len(got.Entries))
	}
}

func TestRollover(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	if got := decode[rolloverResponse](t, do(t, srv, http.MethodGet, "/api/rollover", "")); got.Rollover != core.Carryover {
		t.Errorf("default rollover = %s", got.Rollover)
	}
	if rr := do(t, srv, http.MethodPut, "/api/rollover", `{"rollover": "reset"}`); rr.Code != http.StatusOK {
		t.Fatalf("PUT rollover status = %d", rr.Code)
	}
	if got := decode[rolloverResponse](t, do(t, srv, http.MethodGet, "/api/rollover", "")); got.Rollover != core.Reset {
		t.Errorf("rollover = %s, want reset", got.Rollover)
	}
	if rr := do(t, srv, http.MethodPut, "/api/rollover", `{"rollover": "sometimes"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("bogus rollover status = %d, want 422", rr.Code)
	}
}

func TestProjection(t *testing.T) {
	srv := seeded(t)

	rr := do(t, srv, http.MethodGet, "/api/projection?from=2024-01-01&to=2024-03-31", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body)
	}
	p := decode[services.Projection](t, rr)
	if len(p.Instances) != 9 || len(p.Months) != 3 {
		t.Errorf("got %d instances, %d months; want 9 and 3", len(p.Instances), len(p.Months))
	}

	dash := decode[services.Projection](t, do(t, srv, http.MethodGet, "/api/projection", ""))
	if dash.Start.String() != "2023-08-01" || dash.End.String() != "2025-01-31" {
		t.Errorf("dashboard window = %s..%s", dash.Start, dash.End)
	}

	bad := []string{
		"/api/projection?from=2024-01-01",
		"/api/projection?from=2024-03-01&to=2024-01-01",
		"/api/projection?from=2024-13-01&to=2024-12-31",
	}
	for _, path := range bad {
		if rr := do(t, srv, http.MethodGet, path, ""); rr.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s status = %d, want 422", path, rr.Code)
		}
	}

	oversized := []string{
		"/api/projection?from=0001-01-01&to=9999-12-31",
		"/api/projection/xlsx?from=1900-01-01&to=2999-12-31",
		"/api/months/2100-01",
	}
	for _, path := range oversized {
		if rr := do(t, srv, http.MethodGet, path, ""); rr.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", path, rr.Code)
		}
	}
}

func TestProjectionXLSX(t *testing.T) {
	srv := seeded(t)
	rr := do(t, srv, http.MethodGet, "/api/projection/xlsx?from=2024-01-01&to=2024-01-31", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != xlsxContentType {
		t.Errorf("Content-Type = %q", got)
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "projection-20240101-20240131.xlsx") {
		t.Errorf("Content-Disposition = %q", rr.Header().Get("Content-Disposition"))
	}
	if !strings.HasPrefix(rr.Body.String(), "PK") {
		t.Error("body is not a zip container")
	}
}

func TestWeeklySnapshotAfterDashboard(t *testing.T) {
	srv := seeded(t)
	do(t, srv, http.MethodGet, "/api/projection", "")
	weeks := decode[core.WeeklyBalances](t, do(t, srv, http.MethodGet, "/api/weeks/snapshot", ""))
	if _, ok := weeks["2024-02-04"]; !ok {
		t.Errorf("snapshot missing week of 2024-02-04 (%d weeks)", len(weeks))
	}
}

func TestMonth(t *testing.T) {
	srv := seeded(t)
	for _, path := range []string{"/api/months/2024-03", "/api/months/2024-03-17"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rr.Code)
		}
		m := decode[core.MonthlySummary](t, rr)
		if m.Month.String() != "2024-03-01" || !m.Net.Equal(decimal.NewFromInt(1600)) {
			t.Errorf("%s: month %s net %s, want 2024-03-01 and 1600", path, m.Month, m.Net)
		}
	}
	if rr := do(t, srv, http.MethodGet, "/api/months/March", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad month status = %d, want 422", rr.Code)
	}
}

func TestScore(t *testing.T) {
	srv := seeded(t)

	s := decode[core.BudgetScore](t, do(t, srv, http.MethodGet, "/api/score?asOf=2024-02-25", ""))
	if s.Score <= 0 || s.Score > 100 || s.Date.String() != "2024-02-25" {
		t.Errorf("score = %+v", s)
	}
	today := decode[core.BudgetScore](t, do(t, srv, http.MethodGet, "/api/score", ""))
	if today.Date.String() != "2024-02-10" {
		t.Errorf("default asOf = %s, want 2024-02-10", today.Date)
	}

	history := decode[[]core.BudgetScore](t, do(t, srv, http.MethodGet, "/api/score/history", ""))
	if len(history) != 1 || history[0].Date.String() != "2024-02-10" {
		t.Errorf("history = %+v, want only today's score", history)
	}
}

func TestInstanceEdits(t *testing.T) {
	srv := seeded(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"mark paid", http.MethodPost, "/api/instances/rent-20240205/paid", `{"paid": true}`, http.StatusOK},
		{"paid missing flag", http.MethodPost, "/api/instances/rent-20240205/paid", `{}`, http.StatusUnprocessableEntity},
		{"paid unknown master", http.MethodPost, "/api/instances/ghost-20240205/paid", `{"paid": true}`, http.StatusNotFound},
		{"paid not an occurrence", http.MethodPost, "/api/instances/rent-20240206/paid", `{"paid": true}`, http.StatusNotFound},
		{"reorder", http.MethodPost, "/api/instances/rent-20240205/reorder", `{"targetDate": "2024-02-07", "targetOrder": 2}`, http.StatusOK},
		{"reorder bad date", http.MethodPost, "/api/instances/rent-20240205/reorder", `{"targetDate": "07/02/2024", "targetOrder": 2}`, http.StatusUnprocessableEntity},
		{"clear exception", http.MethodDelete, "/api/instances/rent-20240205/exception", "", http.StatusOK},
		{"malformed id", http.MethodDelete, "/api/instances/rent/exception", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.method, tt.path, tt.body)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rr.Code, tt.want, rr.Body)
			}
		})
	}

	entries := decode[entriesResponse](t, do(t, srv, http.MethodGet, "/api/entries", ""))
	for _, e := range entries.Entries {
		if e.ID == "rent" && len(e.Exceptions) != 0 {
			t.Errorf("rent exceptions after clear = %+v", e.Exceptions)
		}
	}
}

func TestBundleRoundTrip(t *testing.T) {
	src := seeded(t)

	yamlResp := do(t, src, http.MethodGet, "/api/bundle?format=yaml", "")
	if rr := yamlResp; rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != yamlContentType {
		t.Fatalf("yaml bundle: status %d, type %q", rr.Code, rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(yamlResp.Body.String(), "rollover: carryover") {
		t.Errorf("yaml bundle missing rollover:\n%s", yamlResp.Body)
	}

	jsonBundle := do(t, src, http.MethodGet, "/api/bundle", "").Body.String()

	dst, _ := newTestServer(t, Options{})
	if rr := do(t, dst, http.MethodPost, "/api/bundle", jsonBundle); rr.Code != http.StatusNoContent {
		t.Fatalf("import status = %d: %s", rr.Code, rr.Body)
	}
	got := decode[entriesResponse](t, do(t, dst, http.MethodGet, "/api/entries", ""))
	if len(got.Entries) != 3 {
		t.Errorf("imported %d entries, want 3", len(got.Entries))
	}

	if rr := do(t, dst, http.MethodPost, "/api/bundle?format=toml", jsonBundle); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("unsupported format status = %d, want 422", rr.Code)
	}
	if rr := do(t, dst, http.MethodPost, "/api/bundle", "not json"); rr.Code != http.StatusBadRequest {
		t.Errorf("garbage bundle status = %d, want 400", rr.Code)
	}
}

func TestReminders(t *testing.T) {
	srv := seeded(t)

	got := decode[remindersResponse](t, do(t, srv, http.MethodGet, "/api/reminders?days=14", ""))
	if got.Today.String() != "2024-02-10" || len(got.Due) != 1 || got.Due[0].ID != "card-20240220" {
		t.Errorf("reminders = %+v", got)
	}

	def := decode[remindersResponse](t, do(t, srv, http.MethodGet, "/api/reminders", ""))
	if def.LeadDays != 3 || len(def.Due) != 0 {
		t.Errorf("default reminders = %+v, want lead 3 and nothing due", def)
	}

	if rr := do(t, srv, http.MethodGet, "/api/reminders?days=lots", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad days status = %d, want 400", rr.Code)
	}
}

func TestRequestExport(t *testing.T) {
	srv, ledgerSvc := newTestServer(t, Options{})
	body := `{"from": "2024-01-01", "to": "2024-06-30"}`
	if rr := do(t, srv, http.MethodPost, "/api/exports", body); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("export without queue status = %d, want 503", rr.Code)
	}

	pub := &fakeExports{}
	ledgerSvc.SetExportPublisher(pub)
	rr := do(t, srv, http.MethodPost, "/api/exports", body)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body)
	}
	req := decode[amqp.ExportRequest](t, rr)
	if len(pub.got) != 1 || pub.got[0].ID != req.ID || req.From.String() != "2024-01-01" {
		t.Errorf("queued %+v, response %+v", pub.got, req)
	}

	if rr := do(t, srv, http.MethodPost, "/api/exports", `{"from": "2024-01-01"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("half window status = %d, want 422", rr.Code)
	}
	if rr := do(t, srv, http.MethodPost, "/api/exports", `{"from": "1900-01-01", "to": "2999-12-31"}`); rr.Code != http.StatusBadRequest {
		t.Errorf("oversized window status = %d, want 400", rr.Code)
	}
	if len(pub.got) != 1 {
		t.Errorf("oversized window was queued: %+v", pub.got)
	}
}

func TestRateLimitOnWrites(t *testing.T) {
	srv, _ := newTestServer(t, Options{RateLimitPerMinute: 1})

	var last int
	for i := 0; i < 11; i++ {
		last = do(t, srv, http.MethodPut, "/api/rollover", `{"rollover": "reset"}`).Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("11th write status = %d, want 429", last)
	}
	if rr := do(t, srv, http.MethodGet, "/api/rollover", ""); rr.Code != http.StatusOK {
		t.Errorf("read after throttling status = %d, want 200", rr.Code)
	}
}
