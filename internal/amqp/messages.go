package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/events"
)

var errMissingDebtID = errors.New("message has no debt id")

// DebtPaymentMessage is the wire form of a debt payment event.
type DebtPaymentMessage struct {
	DebtID    string          `json:"debtId"`
	Amount    decimal.Decimal `json:"paymentAmount"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewDebtPaymentMessage wraps e, stamping it now when it carries no timestamp.
func NewDebtPaymentMessage(e events.DebtPayment) *DebtPaymentMessage {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return &DebtPaymentMessage{DebtID: e.DebtID, Amount: e.Amount, Timestamp: ts}
}

func (m *DebtPaymentMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Event converts the message back to the domain event.
func (m *DebtPaymentMessage) Event() events.DebtPayment {
	return events.DebtPayment{DebtID: m.DebtID, Amount: m.Amount, Timestamp: m.Timestamp}
}

// DebtPaymentMessageFromJSON decodes a message and rejects one without a debt id.
func DebtPaymentMessageFromJSON(data []byte) (*DebtPaymentMessage, error) {
	var msg DebtPaymentMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.DebtID == "" {
		return nil, errMissingDebtID
	}
	return &msg, nil
}
