// internal/model/event.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventCommandCompleted EventType = "LED_COMMAND_COMPLETED"
	EventCommandFailed    EventType = "LED_COMMAND_FAILED"
)

// LedEvent is published after every ControlLed call
type LedEvent struct {
	ID        uuid.UUID        `json:"id"`
	EventType EventType        `json:"event_type"`
	Board     string           `json:"board"`
	Port      string           `json:"port"`
	Action    ActionKind       `json:"action,omitempty"`
	Command   string           `json:"command,omitempty"`
	Outcome   *ResponseOutcome `json:"outcome,omitempty"`
	Warnings  []string         `json:"warnings,omitempty"`
	Error     string           `json:"error,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}
