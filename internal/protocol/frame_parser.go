package protocol

import (
	"bytes"
	"fmt"
)

// FrameParser extracts one complete frame from the head of buf.
// It returns a nil frame when more bytes are needed; rest is kept for the
// next call. An error means buf should be discarded.
type FrameParser func(buf []byte) (frame []byte, rest []byte, err error)

// maxLineLength bounds a line without terminator before it is dropped
const maxLineLength = 1024

// ParseLine splits newline-terminated ASCII frames and strips a trailing CR
func ParseLine(buf []byte) ([]byte, []byte, error) {
	i := bytes.IndexByte(buf, '\n')
	if i < 0 {
		if len(buf) > maxLineLength {
			return nil, nil, fmt.Errorf("line exceeds %d bytes without terminator", maxLineLength)
		}
		return nil, buf, nil
	}
	frame := bytes.TrimRight(buf[:i], "\r")
	if frame == nil {
		frame = []byte{}
	}
	return frame, buf[i+1:], nil
}
