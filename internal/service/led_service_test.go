package service_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"led-service/internal/board"
	"led-service/internal/config"
	"led-service/internal/model"
	"led-service/internal/protocol"
	"led-service/internal/protocol/protocoltest"
	"led-service/internal/service"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*model.LedEvent
}

func (p *recordingPublisher) Publish(event *model.LedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) Events() []*model.LedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*model.LedEvent(nil), p.events...)
}

func testConfig() *config.Config {
	return &config.Config{
		Serial: config.SerialConfig{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: "none"},
		Led: config.LedConfig{
			ResponseTimeout: 100 * time.Millisecond,
			DefaultBoard:    "esp32-ws2812",
		},
	}
}

func newService(t *testing.T, device *protocoltest.FakeDevice, opts ...service.Option) *service.LedService {
	t.Helper()

	logger := zaptest.NewLogger(t)
	registry := board.NewRegistry(logger)
	board.RegisterDefaultBoards(registry, logger)

	opts = append(opts, service.WithChannelOptions(protocol.WithPortOpener(device.Open)))
	return service.NewLedService(registry, testConfig(), logger, opts...)
}

func intPtr(v int) *int { return &v }

func TestLedService_WireCommands(t *testing.T) {
	tests := []struct {
		name    string
		board   string
		action  model.ActionRequest
		want    string
		kind    model.ActionKind
		warning bool
	}{
		{
			name:   "turn on",
			action: model.ActionRequest{On: true},
			want:   "ON\n",
			kind:   model.ActionTurnOn,
		},
		{
			name:   "blink green with interval",
			action: model.ActionRequest{Blink: &model.BlinkFlag{Color: "green"}, Interval: intPtr(300)},
			want:   "BLINK1,0,255,0,300\n",
			kind:   model.ActionBlink,
		},
		{
			name:   "rainbow default interval",
			action: model.ActionRequest{Rainbow: true},
			want:   "RAINBOW,50\n",
			kind:   model.ActionRainbow,
		},
		{
			name:   "two color blink",
			action: model.ActionRequest{Blink: &model.BlinkFlag{}, SecondColor: "blue"},
			want:   "BLINK2,255,255,255,0,0,255,500\n",
			kind:   model.ActionBlink2,
		},
		{
			name:    "binary board degrades color",
			board:   "arduino-uno",
			action:  model.ActionRequest{Color: "red"},
			want:    "ON\n",
			kind:    model.ActionSetColor,
			warning: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := protocoltest.NewFakeDevice(protocoltest.AcceptAll)
			svc := newService(t, device)

			result, err := svc.ControlLed(context.Background(), &model.ControlRequest{
				Board:  tt.board,
				Port:   "/dev/ttyUSB0",
				Action: tt.action,
			})
			if err != nil {
				t.Fatalf("ControlLed() returned error: %v", err)
			}

			if got := device.Commands(); !reflect.DeepEqual(got, []string{tt.want}) {
				t.Errorf("commands = %q, want [%q]", got, tt.want)
			}
			if result.Action != tt.kind {
				t.Errorf("Action = %s, want %s", result.Action, tt.kind)
			}
			if !result.Outcome.IsAccepted() {
				t.Errorf("Outcome = %+v, want Accepted", result.Outcome)
			}
			if got := len(result.Warnings) > 0; got != tt.warning {
				t.Errorf("warnings = %v, want present=%v", result.Warnings, tt.warning)
			}
			if !device.AllClosed() {
				t.Error("port left open after ControlLed")
			}
		})
	}
}

func TestLedSession_StatsAfterClose(t *testing.T) {
	device := protocoltest.NewFakeDevice(protocoltest.AcceptAll)
	session := service.NewLedSession(
		service.Target{Board: "esp32-ws2812", Port: "/dev/ttyUSB0", BaudRate: 9600},
		protocol.DefaultSerialConfig(),
		100*time.Millisecond,
		zaptest.NewLogger(t),
		protocol.WithPortOpener(device.Open),
	)

	result, err := session.ControlLed(context.Background(), model.ActionRequest{On: true})
	if err != nil {
		t.Fatalf("ControlLed() returned error: %v", err)
	}
	if result.Variant != model.VariantFullColor {
		t.Errorf("Variant = %s, want invalid variant to fall back to full color", result.Variant)
	}

	stats := session.Stats()
	if stats.IsConnected {
		t.Error("channel still connected after ControlLed returned")
	}
	if stats.Port != "/dev/ttyUSB0" {
		t.Errorf("Port = %q, want /dev/ttyUSB0", stats.Port)
	}
	if stats.BytesWritten != int64(len("ON\n")) || stats.CommandCount != 1 {
		t.Errorf("BytesWritten = %d, CommandCount = %d, want 3 and 1", stats.BytesWritten, stats.CommandCount)
	}
}

func TestLedService_ValidationFailureClosesPort(t *testing.T) {
	device := protocoltest.NewFakeDevice(protocoltest.AcceptAll)
	svc := newService(t, device)

	_, err := svc.ControlLed(context.Background(), &model.ControlRequest{
		Port:   "/dev/ttyUSB0",
		Action: model.ActionRequest{Color: "chartreuse"},
	})
	if !errors.Is(err, model.ErrInvalidColor) {
		t.Fatalf("ControlLed() error = %v, want ErrInvalidColor", err)
	}
	if !strings.Contains(err.Error(), "'chartreuse'") {
		t.Errorf("error %q does not echo the input", err)
	}
	if len(device.Commands()) != 0 {
		t.Errorf("commands = %q, want none", device.Commands())
	}
	if device.OpenCount() != 1 || !device.AllClosed() {
		t.Errorf("open count = %d, all closed = %v; want 1 open then closed", device.OpenCount(), device.AllClosed())
	}
}

func TestLedService_TimedOutIsNotAnError(t *testing.T) {
	device := protocoltest.NewFakeDevice(protocoltest.Silent)
	svc := newService(t, device)

	result, err := svc.ControlLed(context.Background(), &model.ControlRequest{
		Port:   "/dev/ttyUSB0",
		Action: model.ActionRequest{Off: true},
	})
	if err != nil {
		t.Fatalf("ControlLed() returned error: %v", err)
	}
	if result.Outcome.Status != model.ResponseTimedOut {
		t.Errorf("Outcome.Status = %s, want TIMED_OUT", result.Outcome.Status)
	}
	if !device.AllClosed() {
		t.Error("port left open after timeout")
	}
}

func TestLedService_Rejected(t *testing.T) {
	device := protocoltest.NewFakeDevice(func(line string) []string {
		return []string{"REJECT," + line}
	})
	svc := newService(t, device)

	result, err := svc.ControlLed(context.Background(), &model.ControlRequest{
		Port:   "/dev/ttyUSB0",
		Action: model.ActionRequest{On: true},
	})
	if err != nil {
		t.Fatalf("ControlLed() returned error: %v", err)
	}
	if result.Outcome.Status != model.ResponseRejected || result.Outcome.Payload != "REJECT,ON" {
		t.Errorf("Outcome = %+v, want Rejected with payload REJECT,ON", result.Outcome)
	}
}

func TestLedService_TargetResolution(t *testing.T) {
	t.Run("unknown board never opens the port", func(t *testing.T) {
		device := protocoltest.NewFakeDevice(protocoltest.AcceptAll)
		svc := newService(t, device)

		_, err := svc.ControlLed(context.Background(), &model.ControlRequest{
			Board:  "teensy",
			Port:   "/dev/ttyUSB0",
			Action: model.ActionRequest{On: true},
		})
		if !errors.Is(err, model.ErrBoardNotFound) {
			t.Errorf("error = %v, want ErrBoardNotFound", err)
		}
		if device.OpenCount() != 0 {
			t.Errorf("open count = %d, want 0", device.OpenCount())
		}
	})

	t.Run("missing port", func(t *testing.T) {
		device := protocoltest.NewFakeDevice(protocoltest.AcceptAll)
		svc := newService(t, device)

		_, err := svc.ControlLed(context.Background(), &model.ControlRequest{
			Action: model.ActionRequest{On: true},
		})
		if !errors.Is(err, model.ErrPortRequired) {
			t.Errorf("error = %v, want ErrPortRequired", err)
		}
	})

	t.Run("request baud rate wins", func(t *testing.T) {
		device := protocoltest.NewFakeDevice(protocoltest.AcceptAll)
		svc := newService(t, device)

		_, err := svc.ControlLed(context.Background(), &model.ControlRequest{
			Port:     "COM3",
			BaudRate: 115200,
			Action:   model.ActionRequest{On: true},
		})
		if err != nil {
			t.Fatalf("ControlLed() returned error: %v", err)
		}
		if mode := device.LastMode(); mode == nil || mode.BaudRate != 115200 {
			t.Errorf("mode = %+v, want baud 115200", mode)
		}
	})

	t.Run("board baud rate is the default", func(t *testing.T) {
		device := protocoltest.NewFakeDevice(protocoltest.AcceptAll)
		svc := newService(t, device)

		_, err := svc.ControlLed(context.Background(), &model.ControlRequest{
			Board:  "arduino-uno",
			Port:   "COM3",
			Action: model.ActionRequest{Off: true},
		})
		if err != nil {
			t.Fatalf("ControlLed() returned error: %v", err)
		}
		if mode := device.LastMode(); mode == nil || mode.BaudRate != 9600 {
			t.Errorf("mode = %+v, want baud 9600", mode)
		}
	})
}

func TestLedService_ConnectionError(t *testing.T) {
	device := protocoltest.NewFakeDevice(protocoltest.AcceptAll)
	device.OpenErr = errors.New("no such file or directory")
	svc := newService(t, device)

	_, err := svc.ControlLed(context.Background(), &model.ControlRequest{
		Port:   "/dev/ttyACM9",
		Action: model.ActionRequest{On: true},
	})
	if !errors.Is(err, model.ErrConnection) {
		t.Fatalf("error = %v, want ErrConnection", err)
	}
	if !strings.Contains(err.Error(), "/dev/ttyACM9") {
		t.Errorf("error %q does not name the port", err)
	}
}

func TestLedService_PublishesEvents(t *testing.T) {
	device := protocoltest.NewFakeDevice(protocoltest.AcceptAll)
	publisher := &recordingPublisher{}
	svc := newService(t, device, service.WithEventPublisher(publisher))

	result, err := svc.ControlLed(context.Background(), &model.ControlRequest{
		Port:   "/dev/ttyUSB0",
		Action: model.ActionRequest{Color: "purple"},
	})
	if err != nil {
		t.Fatalf("ControlLed() returned error: %v", err)
	}

	_, _ = svc.ControlLed(context.Background(), &model.ControlRequest{
		Port: "/dev/ttyUSB0",
	})

	events := publisher.Events()
	if len(events) != 2 {
		t.Fatalf("published %d events, want 2", len(events))
	}

	completed := events[0]
	if completed.EventType != model.EventCommandCompleted || completed.ID != result.ID {
		t.Errorf("first event = %+v, want completed with result ID", completed)
	}
	if completed.Command != "COLOR,128,0,128" || completed.Outcome == nil || !completed.Outcome.IsAccepted() {
		t.Errorf("first event = %+v, want accepted COLOR,128,0,128", completed)
	}

	failed := events[1]
	if failed.EventType != model.EventCommandFailed || !strings.Contains(failed.Error, "no action") {
		t.Errorf("second event = %+v, want failed with no action error", failed)
	}
}

func TestLedService_SerializesSamePort(t *testing.T) {
	device := protocoltest.NewFakeDevice(protocoltest.AcceptAll)
	svc := newService(t, device)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ControlLed(context.Background(), &model.ControlRequest{
				Port:   "/dev/ttyUSB0",
				Action: model.ActionRequest{On: true},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent ControlLed() returned error: %v", err)
		}
	}
	if got := len(device.Commands()); got != 4 {
		t.Errorf("commands = %d, want 4", got)
	}
	if !device.AllClosed() {
		t.Error("port left open")
	}
}

func TestLedService_ListBoards(t *testing.T) {
	svc := newService(t, protocoltest.NewFakeDevice(protocoltest.AcceptAll))

	boards := svc.ListBoards()
	if len(boards) == 0 {
		t.Fatal("ListBoards() returned no boards")
	}
	ids := make([]string, 0, len(boards))
	for _, b := range boards {
		ids = append(ids, b.ID)
	}
	for _, want := range []string{"arduino-uno", "esp32-ws2812"} {
		found := false
		for _, id := range ids {
			if id == want {
				found = true
			}
		}
		if !found {
			t.Errorf("ListBoards() = %v, missing %s", ids, want)
		}
	}
}
