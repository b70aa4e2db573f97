// internal/model/led.go
package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RgbColor represents a resolved color, one byte per channel
type RgbColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// White is the neutral default color for blink actions
var White = RgbColor{R: 255, G: 255, B: 255}

// String renders the color in wire order as "r,g,b"
func (c RgbColor) String() string {
	return fmt.Sprintf("%d,%d,%d", c.R, c.G, c.B)
}

// ProtocolVariant describes what the LED firmware on a board can render
type ProtocolVariant string

const (
	// VariantFullColor is an addressable RGB LED (WS2812 class)
	VariantFullColor ProtocolVariant = "full_color"
	// VariantBinaryOnly is a single on/off GPIO LED
	VariantBinaryOnly ProtocolVariant = "binary_only"
)

// IsValid checks if the variant is one of the known variants
func (v ProtocolVariant) IsValid() bool {
	return v == VariantFullColor || v == VariantBinaryOnly
}

// BlinkFlag is the blink request flag. A bare flag leaves Color empty;
// a flag given as a color string carries it.
type BlinkFlag struct {
	Color string
}

// UnmarshalJSON accepts `true`, `false` or a color string.
// `false` is handled by the caller via a nil pointer.
func (b *BlinkFlag) UnmarshalJSON(data []byte) error {
	var enabled bool
	if err := json.Unmarshal(data, &enabled); err == nil {
		b.Color = ""
		return nil
	}

	var color string
	if err := json.Unmarshal(data, &color); err != nil {
		return fmt.Errorf("blink must be a boolean or a color: %w", err)
	}
	b.Color = color
	return nil
}

// MarshalJSON renders a bare flag as `true` and a colored flag as its color
func (b BlinkFlag) MarshalJSON() ([]byte, error) {
	if b.Color == "" {
		return []byte("true"), nil
	}
	return json.Marshal(b.Color)
}

// ActionRequest is the set of independent flags a caller supplies in one
// invocation. Exactly one action is picked from it by the priority resolver.
type ActionRequest struct {
	On          bool       `json:"on,omitempty"`
	Off         bool       `json:"off,omitempty"`
	Rainbow     bool       `json:"rainbow,omitempty"`
	Blink       *BlinkFlag `json:"blink,omitempty"`
	Color       string     `json:"color,omitempty"`
	SecondColor string     `json:"second_color,omitempty"`
	Interval    *int       `json:"interval,omitempty"`
}

// UnmarshalJSON drops `"blink": false` so it reads as an absent flag
func (r *ActionRequest) UnmarshalJSON(data []byte) error {
	type plain ActionRequest
	aux := struct {
		*plain
		Blink json.RawMessage `json:"blink,omitempty"`
	}{plain: (*plain)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.Blink = nil
	raw := strings.TrimSpace(string(aux.Blink))
	if raw == "" || raw == "null" || raw == "false" {
		return nil
	}

	var flag BlinkFlag
	if err := json.Unmarshal(aux.Blink, &flag); err != nil {
		return err
	}
	r.Blink = &flag
	return nil
}

// ActionKind identifies the single action selected from a request
type ActionKind string

const (
	ActionTurnOn   ActionKind = "TURN_ON"
	ActionTurnOff  ActionKind = "TURN_OFF"
	ActionSetColor ActionKind = "SET_COLOR"
	ActionBlink    ActionKind = "BLINK"
	ActionBlink2   ActionKind = "BLINK2"
	ActionRainbow  ActionKind = "RAINBOW"
)

// ResolvedAction is exactly one LED action with its parameters.
// IntervalMs of zero means the caller did not supply one.
type ResolvedAction struct {
	Kind       ActionKind    `json:"kind"`
	Primary    RgbColor      `json:"primary"`
	Secondary  RgbColor      `json:"secondary"`
	IntervalMs int           `json:"interval_ms,omitempty"`
	Request    ActionRequest `json:"-"`
}

// WireCommand is the literal newline-terminated ASCII line sent to the device
type WireCommand string

// Line returns the command without its line terminator
func (w WireCommand) Line() string {
	return strings.TrimRight(string(w), "\r\n")
}

// ResponseStatus is how the in-flight command was resolved
type ResponseStatus string

const (
	ResponseAccepted ResponseStatus = "ACCEPTED"
	ResponseRejected ResponseStatus = "REJECTED"
	ResponseTimedOut ResponseStatus = "TIMED_OUT"
)

// ResponseOutcome is the soft result of a command: accept, reject or timeout
type ResponseOutcome struct {
	Status  ResponseStatus `json:"status"`
	Payload string         `json:"payload,omitempty"`
	Command string         `json:"command"`
}

// IsAccepted checks if the device acknowledged the command
func (o ResponseOutcome) IsAccepted() bool {
	return o.Status == ResponseAccepted
}
