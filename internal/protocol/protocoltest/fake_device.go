// Package protocoltest provides an in-memory serial device for tests.
package protocoltest

import (
	"errors"
	"io"
	"strings"
	"sync"

	"go.bug.st/serial"

	"led-service/internal/protocol"
)

// Responder maps a received command line to the lines the device sends back
type Responder func(line string) []string

// AcceptAll replies ACCEPTED,<command> to every command
func AcceptAll(line string) []string {
	return []string{"ACCEPTED," + line}
}

// Silent never replies
func Silent(string) []string {
	return nil
}

// FakeDevice hands out a fresh FakePort on every open and records traffic
type FakeDevice struct {
	Responder Responder
	OpenErr   error
	WriteErr  error

	mu       sync.Mutex
	commands []string
	names    []string
	modes    []*serial.Mode
	ports    []*FakePort
}

// NewFakeDevice creates a device that answers with responder
func NewFakeDevice(responder Responder) *FakeDevice {
	return &FakeDevice{Responder: responder}
}

// Open satisfies protocol.PortOpener
func (d *FakeDevice) Open(name string, mode *serial.Mode) (protocol.Port, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.OpenErr != nil {
		return nil, d.OpenErr
	}

	r, w := io.Pipe()
	port := &FakePort{device: d, reader: r, writer: w}
	d.names = append(d.names, name)
	d.modes = append(d.modes, mode)
	d.ports = append(d.ports, port)
	return port, nil
}

// Commands returns every line written to the device, terminators included
func (d *FakeDevice) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.commands...)
}

// OpenCount returns how many times the device was opened
func (d *FakeDevice) OpenCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.ports)
}

// LastMode returns the serial mode of the most recent open
func (d *FakeDevice) LastMode() *serial.Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.modes) == 0 {
		return nil
	}
	return d.modes[len(d.modes)-1]
}

// LastPort returns the most recently opened port
func (d *FakeDevice) LastPort() *FakePort {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.ports) == 0 {
		return nil
	}
	return d.ports[len(d.ports)-1]
}

// AllClosed reports whether every opened port has been closed
func (d *FakeDevice) AllClosed() bool {
	d.mu.Lock()
	ports := append([]*FakePort(nil), d.ports...)
	d.mu.Unlock()

	for _, p := range ports {
		if !p.Closed() {
			return false
		}
	}
	return true
}

func (d *FakeDevice) record(data string) (Responder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.WriteErr != nil {
		return nil, d.WriteErr
	}
	d.commands = append(d.commands, data)
	return d.Responder, nil
}

// FakePort is one open connection to a FakeDevice
type FakePort struct {
	device *FakeDevice
	reader *io.PipeReader
	writer *io.PipeWriter

	mu     sync.Mutex
	closed bool
}

// Read returns bytes sent by the device
func (p *FakePort) Read(b []byte) (int, error) {
	return p.reader.Read(b)
}

// Write records the command and schedules the device's replies
func (p *FakePort) Write(b []byte) (int, error) {
	if p.Closed() {
		return 0, errors.New("port closed")
	}

	responder, err := p.device.record(string(b))
	if err != nil {
		return 0, err
	}

	if responder != nil {
		replies := responder(strings.TrimRight(string(b), "\r\n"))
		if len(replies) > 0 {
			go func() {
				for _, reply := range replies {
					if _, err := p.writer.Write([]byte(reply + "\n")); err != nil {
						return
					}
				}
			}()
		}
	}

	return len(b), nil
}

// Inject sends raw bytes from the device, as if unsolicited
func (p *FakePort) Inject(data string) error {
	_, err := p.writer.Write([]byte(data))
	return err
}

// Close closes both pipe ends, unblocking any reader
func (p *FakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.writer.Close()
	return p.reader.Close()
}

// Closed reports whether Close was called
func (p *FakePort) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
