package model

// LedType is the LED hardware named by a board definition
type LedType string

const (
	LedTypeWS2812  LedType = "ws2812"
	LedTypeDigital LedType = "digital"
)

// Board describes a supported microcontroller board
type Board struct {
	ID     string      `json:"id" mapstructure:"id"`
	Name   string      `json:"name" mapstructure:"name"`
	FQBN   string      `json:"fqbn" mapstructure:"fqbn"`
	Led    BoardLed    `json:"led" mapstructure:"led"`
	Serial BoardSerial `json:"serial" mapstructure:"serial"`
}

// BoardLed describes the LED attached to the board
type BoardLed struct {
	Type LedType `json:"type" mapstructure:"type"`
	Pin  int     `json:"pin" mapstructure:"pin"`
}

// BoardSerial holds the serial defaults of the board's firmware
type BoardSerial struct {
	BaudRate int `json:"baud_rate" mapstructure:"baud_rate"`
}

// Variant returns the protocol variant the board's firmware speaks
func (b *Board) Variant() ProtocolVariant {
	if b.Led.Type == LedTypeWS2812 {
		return VariantFullColor
	}
	return VariantBinaryOnly
}
