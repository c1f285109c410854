package amqp

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budgetcal/internal/core"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{15, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("connection refused"), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("broken pipe"), true},
		{"closed network connection", errors.New("use of closed network connection"), true},
		{"delivery channel closed", errors.New("message channel closed"), true},
		{"other error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", exportQueue: "test_queue"}

	if client.isCircuitOpen() {
		t.Fatal("circuit should be closed initially")
	}

	for i := 0; i < maxFailures; i++ {
		client.recordFailure()
	}
	if !client.isCircuitOpen() {
		t.Fatal("circuit should be open after max failures")
	}

	client.lastFailure = time.Now().Add(-openTimeout - time.Second)
	if client.isCircuitOpen() {
		t.Fatal("circuit should go half-open after the timeout")
	}
	if got := atomic.LoadInt32(&client.state); got != StateHalfOpen {
		t.Fatalf("state = %d, want StateHalfOpen", got)
	}

	client.recordFailure()
	if got := atomic.LoadInt32(&client.state); got != StateOpen {
		t.Fatalf("failure while half-open: state = %d, want StateOpen", got)
	}

	client.recordSuccess()
	if client.isCircuitOpen() || atomic.LoadInt64(&client.failureCount) != 0 {
		t.Fatal("success should close the circuit and reset failures")
	}
}

func TestClient_PublishGuards(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", exportQueue: "test_queue"}
	req := NewExportRequest(core.NewDate(2024, time.January, 1), core.NewDate(2024, time.June, 30))

	atomic.StoreInt32(&client.state, StateOpen)
	client.lastFailure = time.Now()
	if err := client.PublishExportRequest(context.Background(), req); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open circuit: error = %v, want ErrCircuitOpen", err)
	}

	client.recordSuccess()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.PublishExportRequest(ctx, req); err != context.Canceled {
		t.Fatalf("cancelled context: error = %v, want context.Canceled", err)
	}

	// No channel: counts as a failure.
	if err := client.PublishExportRequest(context.Background(), req); err == nil {
		t.Fatal("expected error without a connection")
	}
	if atomic.LoadInt64(&client.failureCount) != 1 {
		t.Errorf("failureCount = %d, want 1", client.failureCount)
	}
}

func TestReminderMessage(t *testing.T) {
	today := core.NewDate(2024, time.March, 1)
	inst := core.EntryInstance{
		ID:       "rent-20240303",
		MasterID: "rent",
		Name:     "Rent",
		Amount:   decimal.RequireFromString("950.00"),
		Type:     core.Bill,
		Date:     core.NewDate(2024, time.March, 3),
	}

	msg := NewReminderMessage(inst, today)
	if msg.DaysUntil != 2 {
		t.Errorf("DaysUntil = %d, want 2", msg.DaysUntil)
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	parsed, err := ReminderMessageFromJSON(body)
	if err != nil {
		t.Fatalf("ReminderMessageFromJSON() error = %v", err)
	}
	if parsed.DueDate != inst.Date || !parsed.Amount.Equal(inst.Amount) || parsed.InstanceID != inst.ID {
		t.Errorf("parsed = %+v, want fields of %+v", parsed, inst)
	}
}

func TestExportRequestFromJSON_Invalid(t *testing.T) {
	if _, err := ExportRequestFromJSON([]byte(`{"from": "2024-13-01"}`)); err == nil {
		t.Fatal("expected error for an invalid date")
	}
}
