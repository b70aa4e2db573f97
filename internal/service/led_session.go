// internal/service/led_session.go
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"led-service/internal/led"
	"led-service/internal/model"
	"led-service/internal/protocol"
	"led-service/internal/utils"
)

// Target is the board and serial line one session talks to
type Target struct {
	Board    string
	Port     string
	BaudRate int
	Variant  model.ProtocolVariant
}

// LedSession runs one LED action end to end: connect, resolve, encode,
// send and await the reply. The port is closed on every path.
type LedSession struct {
	target     Target
	channel    *protocol.SerialChannel
	correlator *protocol.Correlator
	logger     *utils.BoardLogger
}

// NewLedSession creates a session with its own channel and correlator
func NewLedSession(
	target Target,
	serialConfig protocol.SerialConfig,
	timeout time.Duration,
	logger *zap.Logger,
	opts ...protocol.ChannelOption,
) *LedSession {
	if !target.Variant.IsValid() {
		target.Variant = model.VariantFullColor
	}

	boardLogger := utils.NewBoardLogger(logger, target.Board, target.Port)
	channel := protocol.NewSerialChannel(serialConfig, boardLogger.Logger, opts...)

	return &LedSession{
		target:     target,
		channel:    channel,
		correlator: protocol.NewCorrelator(channel, timeout, boardLogger.Logger),
		logger:     boardLogger,
	}
}

// ControlLed executes the single action selected from req.
// Rejected and timed out replies are returned in the result, not as errors.
func (s *LedSession) ControlLed(ctx context.Context, req model.ActionRequest) (*model.ControlResult, error) {
	id := uuid.New()
	opLogger := utils.NewOperationLogger(s.logger.Logger, "control_led", id.String())
	opLogger.Start(
		zap.String("variant", string(s.target.Variant)),
		zap.Int("baud_rate", s.target.BaudRate),
	)

	if err := s.channel.Connect(ctx, s.target.Port, s.target.BaudRate); err != nil {
		opLogger.Error(err)
		return nil, err
	}
	defer s.close()

	action, err := led.ResolveAction(req)
	if err != nil {
		opLogger.Error(err)
		return nil, err
	}

	cmd, warnings := led.Encode(action, s.target.Variant)
	s.logger.LogWarnings(cmd.Line(), warnings)

	outcome, err := s.correlator.SendAndAwait(ctx, cmd)
	if err != nil {
		opLogger.Error(err, zap.String("command", cmd.Line()))
		return nil, err
	}

	elapsed := opLogger.Elapsed()
	result := &model.ControlResult{
		ID:         id,
		Board:      s.target.Board,
		Port:       s.target.Port,
		Variant:    s.target.Variant,
		Action:     action.Kind,
		Command:    cmd.Line(),
		Warnings:   warnings,
		Outcome:    outcome,
		Duration:   elapsed,
		DurationMs: elapsed.Milliseconds(),
	}

	switch outcome.Status {
	case model.ResponseAccepted:
		opLogger.Success(
			zap.String("action", string(action.Kind)),
			zap.String("command", cmd.Line()),
			zap.String("reply", outcome.Payload),
		)
	default:
		s.logger.Warn("Command not acknowledged",
			zap.String("operation_id", id.String()),
			zap.String("command", cmd.Line()),
			zap.String("status", string(outcome.Status)),
			zap.String("reply", outcome.Payload),
			zap.Duration("reply_timeout", s.correlator.Timeout()),
		)
	}

	return result, nil
}

// Stats returns the channel counters of this session
func (s *LedSession) Stats() protocol.ChannelStats {
	return s.channel.Stats()
}

func (s *LedSession) close() {
	s.channel.Disconnect()

	stats := s.Stats()
	s.logger.Debug("Serial session closed",
		zap.Int64("bytes_written", stats.BytesWritten),
		zap.Int64("bytes_read", stats.BytesRead),
		zap.Int64("frames_received", stats.FramesReceived),
		zap.Int64("errors", stats.ErrorCount),
	)
}
