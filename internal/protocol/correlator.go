package protocol

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"led-service/internal/model"
)

// Reply prefixes sent by the firmware. Any other line is not a reply.
const (
	replyAccepted = "ACCEPTED,"
	replyRejected = "REJECT,"
)

// pendingResponse is the single in-flight command between send and resolution
type pendingResponse struct {
	command  model.WireCommand
	deadline time.Time
	resolve  chan string
}

// Correlator pairs the one outstanding command on a channel with its reply.
// The pending slot is nil while idle; a second send while it is set fails.
type Correlator struct {
	channel Channel
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	pending *pendingResponse
}

// NewCorrelator creates a correlator and registers it as the channel's line handler
func NewCorrelator(channel Channel, timeout time.Duration, logger *zap.Logger) *Correlator {
	c := &Correlator{
		channel: channel,
		timeout: timeout,
		logger:  logger.With(zap.String("component", "correlator")),
	}
	channel.SetLineHandler(c.HandleLine)
	return c
}

// SendAndAwait writes cmd and waits for an ACCEPTED/REJECT reply or the
// timeout. A timeout is reported as an outcome, not an error.
func (c *Correlator) SendAndAwait(ctx context.Context, cmd model.WireCommand) (model.ResponseOutcome, error) {
	if !c.channel.IsOpen() {
		return model.ResponseOutcome{}, model.ErrNotConnected
	}

	p, err := c.register(cmd)
	if err != nil {
		return model.ResponseOutcome{}, err
	}

	if err := c.channel.Write(ctx, cmd); err != nil {
		c.release(p)
		return model.ResponseOutcome{}, err
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case line := <-p.resolve:
		return classify(cmd, line), nil

	case <-timer.C:
		c.release(p)
		// A reply may have been handed over just before the slot was cleared
		select {
		case line := <-p.resolve:
			return classify(cmd, line), nil
		default:
		}

		c.logger.Warn("No reply from device before timeout",
			zap.String("command", cmd.Line()),
			zap.Duration("timeout", c.timeout),
		)
		return model.ResponseOutcome{Status: model.ResponseTimedOut, Command: cmd.Line()}, nil

	case <-ctx.Done():
		c.release(p)
		return model.ResponseOutcome{}, ctx.Err()
	}
}

// HandleLine resolves the pending command when line is a protocol reply
func (c *Correlator) HandleLine(line string) {
	if !IsReply(line) {
		c.logger.Debug("Ignoring non-protocol line", zap.String("line", line))
		return
	}

	c.mu.Lock()
	p := c.pending
	c.pending = nil
	c.mu.Unlock()

	if p == nil {
		c.logger.Debug("Reply received with no command pending", zap.String("line", line))
		return
	}

	p.resolve <- line
}

// Pending reports whether a command is awaiting its reply
func (c *Correlator) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

// Timeout returns the configured reply timeout
func (c *Correlator) Timeout() time.Duration {
	return c.timeout
}

// IsReply reports whether line carries one of the two reply prefixes
func IsReply(line string) bool {
	return strings.HasPrefix(line, replyAccepted) || strings.HasPrefix(line, replyRejected)
}

func (c *Correlator) register(cmd model.WireCommand) (*pendingResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending != nil {
		return nil, fmt.Errorf("%w: %q is still pending", model.ErrCommandInFlight, c.pending.command.Line())
	}

	c.pending = &pendingResponse{
		command:  cmd,
		deadline: time.Now().Add(c.timeout),
		resolve:  make(chan string, 1),
	}
	return c.pending, nil
}

// release clears the slot if it still belongs to p
func (c *Correlator) release(p *pendingResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == p {
		c.pending = nil
	}
}

func classify(cmd model.WireCommand, line string) model.ResponseOutcome {
	status := model.ResponseAccepted
	if strings.HasPrefix(line, replyRejected) {
		status = model.ResponseRejected
	}
	return model.ResponseOutcome{Status: status, Payload: line, Command: cmd.Line()}
}
