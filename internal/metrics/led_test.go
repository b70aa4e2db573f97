package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCommand(t *testing.T) {
	board := "test-board-commands"

	RecordCommand(board, "turn_on", StatusAccepted, 0.02)
	RecordCommand(board, "turn_on", StatusAccepted, 0.03)
	RecordCommand(board, "", StatusError, 0.001)

	if v := testutil.ToFloat64(ledCommands.WithLabelValues(board, "turn_on", StatusAccepted)); v != 2 {
		t.Errorf("accepted turn_on = %v, want 2", v)
	}
	if v := testutil.ToFloat64(ledCommands.WithLabelValues(board, "none", StatusError)); v != 1 {
		t.Errorf("error with no action = %v, want 1", v)
	}
}

func TestRecordWarnings(t *testing.T) {
	board := "test-board-warnings"

	RecordWarnings(board, 2)
	RecordWarnings(board, 0)
	RecordWarnings(board, -3)

	if v := testutil.ToFloat64(ledWarnings.WithLabelValues(board)); v != 2 {
		t.Errorf("warnings = %v, want 2", v)
	}
}
