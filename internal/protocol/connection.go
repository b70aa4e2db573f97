package protocol

import (
	"io"

	"go.bug.st/serial"
)

// SerialConfig represents serial line settings shared by every port
type SerialConfig struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

// DefaultBaudRate is the firmware's serial speed unless a board says otherwise
const DefaultBaudRate = 9600

// DefaultSerialConfig returns 9600 8N1
func DefaultSerialConfig() SerialConfig {
	return SerialConfig{
		BaudRate: DefaultBaudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "none",
	}
}

// Port is the subset of an open serial port the channel needs
type Port interface {
	io.ReadWriteCloser
}

// PortOpener opens a named port with the given line settings
type PortOpener func(name string, mode *serial.Mode) (Port, error)

// OpenSerialPort opens a real device through go.bug.st/serial
func OpenSerialPort(name string, mode *serial.Mode) (Port, error) {
	return serial.Open(name, mode)
}

// toMode builds the go.bug.st/serial mode for a connection
func (c SerialConfig) toMode(baudRate int) *serial.Mode {
	if baudRate <= 0 {
		baudRate = c.BaudRate
	}
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: c.DataBits,
	}

	switch c.StopBits {
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		mode.StopBits = serial.OneStopBit
	}

	switch c.Parity {
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	default:
		mode.Parity = serial.NoParity
	}

	if mode.DataBits == 0 {
		mode.DataBits = 8
	}

	return mode
}
