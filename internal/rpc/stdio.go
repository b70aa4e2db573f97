package rpc

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// maxLineSize bounds one newline-delimited request
const maxLineSize = 64 * 1024

// ServeStdio reads one request per line from r and writes one response per
// line to w, in order. It returns nil at end of input.
func ServeStdio(ctx context.Context, r io.Reader, w io.Writer, d *Dispatcher) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	writer := bufio.NewWriter(w)

	d.logger.Info("Serving JSON-RPC on stdio")

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		resp := d.HandleMessage(ctx, line)
		if resp == nil {
			continue
		}

		if _, err := writer.Write(append(resp, '\n')); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
		if err := writer.Flush(); err != nil {
			return fmt.Errorf("failed to flush response: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		d.logger.Error("Stdio read failed", zap.Error(err))
		return fmt.Errorf("failed to read request: %w", err)
	}
	return nil
}
