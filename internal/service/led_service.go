// internal/service/led_service.go
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"led-service/internal/board"
	"led-service/internal/config"
	"led-service/internal/metrics"
	"led-service/internal/model"
	"led-service/internal/protocol"
	"led-service/internal/utils"
)

// EventPublisher receives an event after every control call
type EventPublisher interface {
	Publish(event *model.LedEvent)
}

// LedService handles LED control requests for any registered board.
// Calls on the same serial port run one at a time; distinct ports run concurrently.
type LedService struct {
	boards       *board.Registry
	config       *config.Config
	serialConfig protocol.SerialConfig
	publisher    EventPublisher
	channelOpts  []protocol.ChannelOption
	logger       *utils.ServiceLogger

	slotsMu   sync.Mutex
	portSlots map[string]chan struct{}
}

// Option customizes a LedService
type Option func(*LedService)

// WithEventPublisher publishes a LedEvent for every call
func WithEventPublisher(publisher EventPublisher) Option {
	return func(s *LedService) {
		s.publisher = publisher
	}
}

// WithChannelOptions passes options to every serial channel the service opens
func WithChannelOptions(opts ...protocol.ChannelOption) Option {
	return func(s *LedService) {
		s.channelOpts = append(s.channelOpts, opts...)
	}
}

// NewLedService creates a new LED service instance
func NewLedService(boards *board.Registry, cfg *config.Config, logger *zap.Logger, opts ...Option) *LedService {
	s := &LedService{
		boards: boards,
		config: cfg,
		serialConfig: protocol.SerialConfig{
			BaudRate: cfg.Serial.BaudRate,
			DataBits: cfg.Serial.DataBits,
			StopBits: cfg.Serial.StopBits,
			Parity:   cfg.Serial.Parity,
		},
		logger:    utils.NewServiceLogger(logger, "led-service"),
		portSlots: make(map[string]chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ControlLed resolves the target board and port, then runs one LedSession on it
func (s *LedService) ControlLed(ctx context.Context, req *model.ControlRequest) (*model.ControlResult, error) {
	start := time.Now()

	target, err := s.resolveTarget(req)
	if err != nil {
		s.finish(target, nil, err, time.Since(start))
		return nil, err
	}

	release, err := s.acquirePort(ctx, target.Port)
	if err != nil {
		s.finish(target, nil, err, time.Since(start))
		return nil, err
	}
	defer release()

	session := NewLedSession(target, s.serialConfig, s.config.Led.ResponseTimeout, s.logger.Logger, s.channelOpts...)
	result, err := session.ControlLed(ctx, req.Action)

	s.finish(target, result, err, time.Since(start))
	return result, err
}

// ListBoards returns every registered board definition
func (s *LedService) ListBoards() []*model.Board {
	return s.boards.List()
}

// GetBoard returns one board definition
func (s *LedService) GetBoard(id string) (*model.Board, error) {
	return s.boards.Get(id)
}

// resolveTarget picks the board, port and baud rate for a request.
// Request values win over board defaults, which win over service config.
func (s *LedService) resolveTarget(req *model.ControlRequest) (Target, error) {
	target := Target{Board: req.Board, Port: req.Port}
	if target.Board == "" {
		target.Board = s.config.Led.DefaultBoard
	}
	if target.Port == "" {
		target.Port = s.config.Led.DefaultPort
	}

	b, err := s.boards.Get(target.Board)
	if err != nil {
		return target, err
	}
	target.Variant = b.Variant()

	if target.Port == "" {
		return target, fmt.Errorf("%w: no port given for board %s", model.ErrPortRequired, target.Board)
	}

	switch {
	case req.BaudRate > 0:
		target.BaudRate = req.BaudRate
	case b.Serial.BaudRate > 0:
		target.BaudRate = b.Serial.BaudRate
	default:
		target.BaudRate = s.serialConfig.BaudRate
	}

	return target, nil
}

// acquirePort waits for exclusive use of a serial port
func (s *LedService) acquirePort(ctx context.Context, port string) (func(), error) {
	s.slotsMu.Lock()
	slot, ok := s.portSlots[port]
	if !ok {
		slot = make(chan struct{}, 1)
		s.portSlots[port] = slot
	}
	s.slotsMu.Unlock()

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for port %s: %w", port, ctx.Err())
	}
}

// finish records metrics and publishes the event for one call
func (s *LedService) finish(target Target, result *model.ControlResult, err error, elapsed time.Duration) {
	event := &model.LedEvent{
		ID:        uuid.New(),
		EventType: model.EventCommandCompleted,
		Board:     target.Board,
		Port:      target.Port,
		Timestamp: time.Now(),
	}

	status := metrics.StatusError
	action := ""
	if err != nil {
		event.EventType = model.EventCommandFailed
		event.Error = err.Error()

		s.logger.Warn("LED control failed",
			zap.String("board", target.Board),
			zap.String("port", target.Port),
			zap.String("error_code", utils.ErrorCode(err)),
			zap.Error(err),
		)
	} else {
		event.ID = result.ID
		event.Action = result.Action
		event.Command = result.Command
		event.Warnings = result.Warnings
		outcome := result.Outcome
		event.Outcome = &outcome

		action = string(result.Action)
		status = statusLabel(result.Outcome.Status)
		metrics.RecordWarnings(target.Board, len(result.Warnings))
	}

	metrics.RecordCommand(target.Board, action, status, elapsed.Seconds())

	if s.publisher != nil {
		s.publisher.Publish(event)
	}
}

func statusLabel(status model.ResponseStatus) string {
	switch status {
	case model.ResponseAccepted:
		return metrics.StatusAccepted
	case model.ResponseRejected:
		return metrics.StatusRejected
	case model.ResponseTimedOut:
		return metrics.StatusTimedOut
	default:
		return metrics.StatusError
	}
}
