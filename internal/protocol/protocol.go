// internal/protocol/protocol.go
package protocol

import (
	"context"
	"time"

	"led-service/internal/model"
)

// LineHandler receives one inbound frame, without its terminator
type LineHandler func(line string)

// Channel is the transport a Correlator sends commands over
type Channel interface {
	IsOpen() bool
	Write(ctx context.Context, cmd model.WireCommand) error
	SetLineHandler(handler LineHandler)
}

// ChannelStats provides channel-level statistics
type ChannelStats struct {
	Port           string    `json:"port"`
	BytesWritten   int64     `json:"bytes_written"`
	BytesRead      int64     `json:"bytes_read"`
	CommandCount   int64     `json:"command_count"`
	ErrorCount     int64     `json:"error_count"`
	LastActivity   time.Time `json:"last_activity"`
	IsConnected    bool      `json:"is_connected"`
	FramesReceived int64     `json:"frames_received"`
}
