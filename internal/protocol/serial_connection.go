// internal/protocol/serial_connection.go
package protocol

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"led-service/internal/model"
)

// readLoopShutdownTimeout bounds how long Disconnect waits for the reader
const readLoopShutdownTimeout = time.Second

// SerialChannel owns one serial connection. It writes wire commands and
// forwards inbound frames to its line handler without interpreting them.
type SerialChannel struct {
	config SerialConfig
	opener PortOpener
	parser FrameParser
	logger *zap.Logger

	mutex    sync.RWMutex
	port     Port
	portName string
	isOpen   bool
	readDone chan struct{}
	handler  LineHandler

	bytesWritten   atomic.Int64
	bytesRead      atomic.Int64
	commandCount   atomic.Int64
	errorCount     atomic.Int64
	framesReceived atomic.Int64
	lastActivity   atomic.Int64
}

// ChannelOption customizes a SerialChannel
type ChannelOption func(*SerialChannel)

// WithPortOpener replaces the go.bug.st/serial opener
func WithPortOpener(opener PortOpener) ChannelOption {
	return func(sc *SerialChannel) {
		sc.opener = opener
	}
}

// WithFrameParser replaces the newline frame parser
func WithFrameParser(parser FrameParser) ChannelOption {
	return func(sc *SerialChannel) {
		sc.parser = parser
	}
}

// NewSerialChannel creates a closed channel
func NewSerialChannel(config SerialConfig, logger *zap.Logger, opts ...ChannelOption) *SerialChannel {
	sc := &SerialChannel{
		config: config,
		opener: OpenSerialPort,
		parser: ParseLine,
		logger: logger.With(zap.String("protocol", "serial")),
	}

	for _, opt := range opts {
		opt(sc)
	}

	return sc
}

// Connect opens the serial port and starts reading from it
func (sc *SerialChannel) Connect(ctx context.Context, portName string, baudRate int) error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if sc.isOpen {
		if sc.portName == portName {
			return nil
		}
		return fmt.Errorf("%w: channel already open on %s", model.ErrConnection, sc.portName)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	mode := sc.config.toMode(baudRate)

	sc.logger.Info("Opening serial port",
		zap.String("port", portName),
		zap.Int("baud_rate", mode.BaudRate),
	)

	port, err := sc.opener(portName, mode)
	if err != nil {
		sc.errorCount.Add(1)
		sc.logger.Error("Failed to open serial port",
			zap.String("port", portName),
			zap.Error(err),
		)
		return fmt.Errorf("%w: failed to open serial port %s: %w", model.ErrConnection, portName, err)
	}

	sc.port = port
	sc.portName = portName
	sc.isOpen = true
	sc.readDone = make(chan struct{})
	sc.touch()

	go sc.readLoop(port, sc.readDone)

	sc.logger.Info("Serial port opened successfully", zap.String("port", portName))
	return nil
}

// Disconnect closes the port if open. It never fails.
func (sc *SerialChannel) Disconnect() {
	sc.mutex.Lock()
	if !sc.isOpen || sc.port == nil {
		sc.mutex.Unlock()
		return
	}

	port := sc.port
	portName := sc.portName
	done := sc.readDone
	sc.port = nil
	sc.isOpen = false
	sc.mutex.Unlock()

	if err := port.Close(); err != nil {
		sc.logger.Warn("Failed to close serial port",
			zap.String("port", portName),
			zap.Error(err),
		)
	}

	select {
	case <-done:
	case <-time.After(readLoopShutdownTimeout):
		sc.logger.Warn("Serial read loop did not stop in time", zap.String("port", portName))
	}

	sc.logger.Info("Serial port closed", zap.String("port", portName))
}

// IsOpen returns whether the connection is open
func (sc *SerialChannel) IsOpen() bool {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.isOpen && sc.port != nil
}

// SetLineHandler registers the receiver of inbound frames
func (sc *SerialChannel) SetLineHandler(handler LineHandler) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	sc.handler = handler
}

// Write transmits one wire command
func (sc *SerialChannel) Write(ctx context.Context, cmd model.WireCommand) error {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()

	if !sc.isOpen || sc.port == nil {
		return model.ErrNotConnected
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data := []byte(cmd)
	n, err := sc.port.Write(data)
	if err != nil {
		sc.errorCount.Add(1)
		sc.logger.Error("Serial write failed",
			zap.String("port", sc.portName),
			zap.String("command", cmd.Line()),
			zap.Error(err),
		)
		return fmt.Errorf("%w: failed to write %q to %s: %w", model.ErrWriteFailure, cmd.Line(), sc.portName, err)
	}

	if n != len(data) {
		sc.errorCount.Add(1)
		return fmt.Errorf("%w: incomplete write to %s: wrote %d of %d bytes",
			model.ErrWriteFailure, sc.portName, n, len(data))
	}

	sc.bytesWritten.Add(int64(n))
	sc.commandCount.Add(1)
	sc.touch()

	sc.logger.Debug("Serial write completed",
		zap.String("command", cmd.Line()),
		zap.Int("bytes", n),
	)
	return nil
}

// Stats returns a snapshot of the channel counters
func (sc *SerialChannel) Stats() ChannelStats {
	sc.mutex.RLock()
	portName := sc.portName
	sc.mutex.RUnlock()

	return ChannelStats{
		Port:           portName,
		BytesWritten:   sc.bytesWritten.Load(),
		BytesRead:      sc.bytesRead.Load(),
		CommandCount:   sc.commandCount.Load(),
		ErrorCount:     sc.errorCount.Load(),
		FramesReceived: sc.framesReceived.Load(),
		LastActivity:   time.Unix(0, sc.lastActivity.Load()),
		IsConnected:    sc.IsOpen(),
	}
}

// readLoop reads until the port is closed, framing bytes into lines
func (sc *SerialChannel) readLoop(port Port, done chan struct{}) {
	defer close(done)

	buffer := make([]byte, 256)
	var pending []byte

	for {
		n, err := port.Read(buffer)
		if n > 0 {
			sc.bytesRead.Add(int64(n))
			sc.touch()
			pending = append(pending, buffer[:n]...)
			pending = sc.drainFrames(pending)
		}

		if err != nil {
			sc.handleReadError(port, err)
			return
		}
	}
}

// drainFrames delivers every complete frame in buf and returns the remainder
func (sc *SerialChannel) drainFrames(buf []byte) []byte {
	for {
		frame, rest, err := sc.parser(buf)
		if err != nil {
			sc.logger.Warn("Dropping unparseable serial data",
				zap.Int("bytes", len(buf)),
				zap.Error(err),
			)
			return nil
		}
		if frame == nil {
			return rest
		}

		sc.framesReceived.Add(1)
		sc.deliver(string(frame))
		buf = rest
	}
}

func (sc *SerialChannel) deliver(line string) {
	sc.mutex.RLock()
	handler := sc.handler
	sc.mutex.RUnlock()

	sc.logger.Debug("Serial line received", zap.String("line", line))

	if handler != nil {
		handler(line)
	}
}

// handleReadError marks the channel closed when the port failed on its own
func (sc *SerialChannel) handleReadError(port Port, err error) {
	sc.mutex.Lock()
	if sc.port != port {
		// Disconnect already closed it
		sc.mutex.Unlock()
		return
	}
	sc.port = nil
	sc.isOpen = false
	portName := sc.portName
	sc.mutex.Unlock()

	sc.errorCount.Add(1)
	sc.logger.Error("Serial port read failed, closing",
		zap.String("port", portName),
		zap.Error(err),
	)

	if closeErr := port.Close(); closeErr != nil && !errors.Is(closeErr, err) {
		sc.logger.Debug("Close after read failure", zap.Error(closeErr))
	}
}

func (sc *SerialChannel) touch() {
	sc.lastActivity.Store(time.Now().UnixNano())
}
