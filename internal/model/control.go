package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ControlRequest addresses one board on one serial port with a set of LED flags.
// On the wire the target fields and the flags share one flat object.
type ControlRequest struct {
	Board    string        `json:"board,omitempty"`
	Port     string        `json:"port,omitempty"`
	BaudRate int           `json:"baud_rate,omitempty"`
	Action   ActionRequest `json:"-"`
}

type controlTarget struct {
	Board    string `json:"board"`
	Port     string `json:"port"`
	BaudRate int    `json:"baud_rate"`
}

// UnmarshalJSON reads the target fields and the action flags from the same object
func (r *ControlRequest) UnmarshalJSON(data []byte) error {
	var target controlTarget
	if err := json.Unmarshal(data, &target); err != nil {
		return err
	}

	var action ActionRequest
	if err := json.Unmarshal(data, &action); err != nil {
		return err
	}

	r.Board = target.Board
	r.Port = target.Port
	r.BaudRate = target.BaudRate
	r.Action = action
	return nil
}

// ControlResult is what one LED control call produced
type ControlResult struct {
	ID         uuid.UUID       `json:"id"`
	Board      string          `json:"board"`
	Port       string          `json:"port"`
	Variant    ProtocolVariant `json:"variant"`
	Action     ActionKind      `json:"action"`
	Command    string          `json:"command"`
	Warnings   []string        `json:"warnings,omitempty"`
	Outcome    ResponseOutcome `json:"outcome"`
	Duration   time.Duration   `json:"-"`
	DurationMs int64           `json:"duration_ms"`
}
