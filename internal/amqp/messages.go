package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budgetcal/internal/core"
)

// ReminderMessage announces an unpaid bill falling due soon. Consumers
// deliver it as a notification; delivery itself is not handled here.
type ReminderMessage struct {
	InstanceID string          `json:"instanceId"`
	MasterID   string          `json:"masterId"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Category   string          `json:"category,omitempty"`
	DueDate    core.Date       `json:"dueDate"`
	DaysUntil  int             `json:"daysUntil"`
	Timestamp  time.Time       `json:"timestamp"`
}

func NewReminderMessage(inst core.EntryInstance, today core.Date) *ReminderMessage {
	return &ReminderMessage{
		InstanceID: inst.ID,
		MasterID:   inst.MasterID,
		Name:       inst.Name,
		Amount:     inst.Amount,
		Category:   inst.Category,
		DueDate:    inst.Date,
		DaysUntil:  today.DaysUntil(inst.Date),
		Timestamp:  time.Now(),
	}
}

func (m *ReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReminderMessageFromJSON(data []byte) (*ReminderMessage, error) {
	var msg ReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ExportRequest asks the export worker to push the projection of
// [From, To] to the configured spreadsheet. It carries no ledger data; the
// worker reads the current entries itself.
type ExportRequest struct {
	ID          string    `json:"id"`
	From        core.Date `json:"from"`
	To          core.Date `json:"to"`
	RequestedAt time.Time `json:"requestedAt"`
}

func NewExportRequest(from, to core.Date) *ExportRequest {
	return &ExportRequest{
		ID:          uuid.NewString(),
		From:        from,
		To:          to,
		RequestedAt: time.Now(),
	}
}

func (r *ExportRequest) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

func ExportRequestFromJSON(data []byte) (*ExportRequest, error) {
	var req ExportRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
