package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"farmledger/internal/ports"
)

// ChangeMessage is the body published for every accepted expense mutation:
// {op, id, record, timestamp}. The record carries the wire field names,
// payment_method included, and is omitted for deletions.
type ChangeMessage struct {
	Op        ports.ChangeOp `json:"op"`
	ID        string         `json:"id"`
	Record    *ports.Record  `json:"record,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewChangeMessage wraps c, stamping it now when it carries no timestamp.
func NewChangeMessage(c ports.Change) *ChangeMessage {
	ts := c.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &ChangeMessage{Op: c.Op, ID: c.ID, Record: c.Record, Timestamp: ts}
}

func (m *ChangeMessage) Change() ports.Change {
	return ports.Change{Op: m.Op, ID: m.ID, Record: m.Record, Timestamp: m.Timestamp}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes and validates a message body.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (m *ChangeMessage) validate() error {
	if m.ID == "" {
		return errors.New("change message without id")
	}
	switch m.Op {
	case ports.OpCreated, ports.OpUpdated:
		if m.Record == nil {
			return fmt.Errorf("%s message for %s without record", m.Op, m.ID)
		}
		if m.Record.ID == "" {
			m.Record.ID = m.ID
		}
		if m.Record.ID != m.ID {
			return fmt.Errorf("record id %s does not match message id %s", m.Record.ID, m.ID)
		}
	case ports.OpDeleted:
	default:
		return fmt.Errorf("unknown change op %q", m.Op)
	}
	return nil
}
