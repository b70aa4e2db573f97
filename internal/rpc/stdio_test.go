package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestServeStdio(t *testing.T) {
	ctrl := &fakeController{}
	d := NewDispatcher(ctrl, zaptest.NewLogger(t))

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"listBoards"}`,
		``,
		`{"jsonrpc":"2.0","method":"controlLed","params":{"port":"COM3","on":true}}`,
		`{"jsonrpc":"2.0","id":2,"method":"controlLed","params":{"port":"COM3","on":true}}`,
		`not json`,
	}, "\n") + "\n"

	var out bytes.Buffer
	if err := ServeStdio(context.Background(), strings.NewReader(input), &out, d); err != nil {
		t.Fatalf("ServeStdio() returned error: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d response lines, want 3:\n%s", len(lines), out.String())
	}

	wantIDs := []string{"1", "2", "null"}
	for i, line := range lines {
		var resp decodedResponse
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("line %d is not JSON: %v", i, err)
		}
		if string(resp.ID) != wantIDs[i] {
			t.Errorf("line %d id = %s, want %s", i, resp.ID, wantIDs[i])
		}
	}

	if len(ctrl.calls) != 2 {
		t.Errorf("controller called %d times, want 2", len(ctrl.calls))
	}
}

func TestServeStdio_CanceledContext(t *testing.T) {
	d := NewDispatcher(&fakeController{}, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := ServeStdio(ctx, strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"listBoards"}`+"\n"), &out, d)
	if err == nil {
		t.Error("ServeStdio() with canceled context should fail")
	}
	if out.Len() != 0 {
		t.Errorf("wrote %q after cancellation", out.String())
	}
}
