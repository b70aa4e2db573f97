package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"

	"led-service/internal/board"
	"led-service/internal/config"
	"led-service/internal/model"
	"led-service/internal/protocol"
	"led-service/internal/protocol/protocoltest"
	"led-service/internal/rpc"
	"led-service/internal/service"
	"led-service/internal/utils"
)

type testEnv struct {
	engine    *gin.Engine
	device    *protocoltest.FakeDevice
	bus       *EventBus
	websocket *WebSocketHandler
}

func newTestEnv(t *testing.T, responder protocoltest.Responder) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zaptest.NewLogger(t)
	cfg := &config.Config{
		Serial: config.SerialConfig{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: "none"},
		Led: config.LedConfig{
			ResponseTimeout: 100 * time.Millisecond,
			DefaultBoard:    "esp32-ws2812",
		},
		App: config.AppConfig{Name: "led-service", Version: "test"},
	}

	registry := board.NewRegistry(logger)
	board.RegisterDefaultBoards(registry, logger)

	device := protocoltest.NewFakeDevice(responder)
	bus := NewEventBus(logger)
	go bus.Start()
	t.Cleanup(bus.Stop)

	svc := service.NewLedService(registry, cfg, logger,
		service.WithEventPublisher(bus),
		service.WithChannelOptions(protocol.WithPortOpener(device.Open)),
	)

	ws := NewWebSocketHandler(rpc.NewDispatcher(svc, logger), bus, nil, logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go ws.Run(ctx)
	// Runs after each test's client and server cleanups, so no pump logs late
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := ws.Shutdown(shutdownCtx); err != nil {
			t.Errorf("WebSocket pumps still running: %v", err)
		}
	})

	engine := gin.New()
	NewHealthHandler(registry, ws, cfg, logger).RegisterRoutes(engine)
	NewLedHandler(svc, logger).RegisterRoutes(engine.Group("/api/v1"))
	ws.RegisterRoutes(engine)

	return &testEnv{engine: engine, device: device, bus: bus, websocket: ws}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, utils.APIResponse) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)

	var resp utils.APIResponse
	if strings.HasPrefix(path, "/api/") {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("response %s is not an APIResponse: %v", rec.Body.String(), err)
		}
	}
	return rec, resp
}

func TestLedHandler_ControlLed(t *testing.T) {
	env := newTestEnv(t, protocoltest.AcceptAll)

	rec, resp := env.do(t, http.MethodPost, "/api/v1/led",
		`{"port":"/dev/ttyUSB0","blink":"green","interval":300}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if !resp.Success || resp.Message != "Command accepted" {
		t.Errorf("response = %+v, want accepted success", resp)
	}

	data, _ := json.Marshal(resp.Data)
	var result model.ControlResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("data is not a ControlResult: %v", err)
	}
	if result.Command != "BLINK1,0,255,0,300" {
		t.Errorf("Command = %q, want BLINK1,0,255,0,300", result.Command)
	}
	if got := env.device.Commands(); len(got) != 1 || got[0] != "BLINK1,0,255,0,300\n" {
		t.Errorf("device commands = %q", got)
	}
}

func TestLedHandler_ControlLedErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"malformed body", `{"port":`, http.StatusBadRequest, "BAD_REQUEST"},
		{"invalid color", `{"port":"/dev/ttyUSB0","color":"256,0,0"}`, http.StatusBadRequest, "INVALID_COLOR"},
		{"invalid interval", `{"port":"/dev/ttyUSB0","rainbow":true,"interval":10}`, http.StatusBadRequest, "INVALID_INTERVAL"},
		{"no action", `{"port":"/dev/ttyUSB0"}`, http.StatusBadRequest, "NO_ACTION_SPECIFIED"},
		{"second color without blink", `{"port":"/dev/ttyUSB0","color":"red","second_color":"blue"}`, http.StatusBadRequest, "INVALID_COMBINATION"},
		{"missing port", `{"on":true}`, http.StatusBadRequest, "PORT_REQUIRED"},
		{"unknown board", `{"board":"teensy","port":"/dev/ttyUSB0","on":true}`, http.StatusNotFound, "BOARD_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, protocoltest.AcceptAll)

			rec, resp := env.do(t, http.MethodPost, "/api/v1/led", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if resp.Success || resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", resp.Error, tt.wantCode)
			}
			if len(env.device.Commands()) != 0 {
				t.Errorf("device received %q on a failed request", env.device.Commands())
			}
		})
	}
}

func TestLedHandler_ConnectionFailure(t *testing.T) {
	env := newTestEnv(t, protocoltest.AcceptAll)
	env.device.OpenErr = errors.New("device or resource busy")

	rec, resp := env.do(t, http.MethodPost, "/api/v1/led", `{"port":"/dev/ttyUSB0","on":true}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != "CONNECTION_ERROR" {
		t.Errorf("error = %+v, want CONNECTION_ERROR", resp.Error)
	}
}

func TestLedHandler_TimedOut(t *testing.T) {
	env := newTestEnv(t, protocoltest.Silent)

	rec, resp := env.do(t, http.MethodPost, "/api/v1/led", `{"port":"/dev/ttyUSB0","off":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp.Message != "No reply from device" {
		t.Errorf("message = %q, want timeout message", resp.Message)
	}
}

func TestLedHandler_Boards(t *testing.T) {
	env := newTestEnv(t, protocoltest.AcceptAll)

	rec, resp := env.do(t, http.MethodGet, "/api/v1/boards", "")
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("list status = %d, response = %+v", rec.Code, resp)
	}
	if boards, ok := resp.Data.([]interface{}); !ok || len(boards) == 0 {
		t.Errorf("data = %v, want non-empty board list", resp.Data)
	}

	rec, _ = env.do(t, http.MethodGet, "/api/v1/boards/arduino-uno", "")
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d, want 200", rec.Code)
	}

	rec, _ = env.do(t, http.MethodGet, "/api/v1/boards/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing board status = %d, want 404", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	env := newTestEnv(t, protocoltest.AcceptAll)

	rec, _ := env.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var health HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("body is not a HealthResponse: %v", err)
	}
	if health.Status != "healthy" || health.Checks["boards"].Status != "healthy" {
		t.Errorf("health = %+v, want healthy with boards check", health)
	}
}

func dialWebSocket(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(env.engine)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial(%s) returned error: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketHandler_ShutdownWaitsForClients(t *testing.T) {
	env := newTestEnv(t, protocoltest.AcceptAll)
	conn := dialWebSocket(t, env)

	deadline := time.Now().Add(2 * time.Second)
	for env.websocket.connections.Count() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := env.websocket.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() returned error: %v", err)
	}
	if n := env.websocket.connections.Count(); n != 0 {
		t.Errorf("Count() = %d after Shutdown, want 0", n)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("connection still readable after Shutdown")
	}
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() returned error: %v", err)
	}

	var msg map[string]json.RawMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("message %s is not JSON: %v", data, err)
	}
	return msg
}

func TestWebSocketHandler_RPCAndEvents(t *testing.T) {
	env := newTestEnv(t, protocoltest.AcceptAll)
	conn := dialWebSocket(t, env)

	deadline := time.Now().Add(time.Second)
	for env.websocket.connections.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	req := `{"jsonrpc":"2.0","id":1,"method":"controlLed","params":{"port":"/dev/ttyUSB0","rainbow":true}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(req)); err != nil {
		t.Fatalf("WriteMessage() returned error: %v", err)
	}

	// The response and the event notification may arrive in either order
	var sawResponse, sawEvent bool
	for i := 0; i < 2; i++ {
		msg := readJSON(t, conn)

		if id, ok := msg["id"]; ok {
			sawResponse = true
			if string(id) != "1" {
				t.Errorf("response id = %s, want 1", id)
			}
			if _, failed := msg["error"]; failed {
				t.Errorf("response carries error: %s", msg["error"])
			}
			continue
		}

		var method string
		json.Unmarshal(msg["method"], &method)
		if method != rpc.MethodLedEvent {
			t.Errorf("notification method = %q, want %q", method, rpc.MethodLedEvent)
		}

		var event model.LedEvent
		if err := json.Unmarshal(msg["params"], &event); err != nil {
			t.Fatalf("event params are not a LedEvent: %v", err)
		}
		if event.Command != "RAINBOW,50" || event.EventType != model.EventCommandCompleted {
			t.Errorf("event = %+v, want completed RAINBOW,50", event)
		}
		sawEvent = true
	}

	if !sawResponse || !sawEvent {
		t.Errorf("saw response = %v, event = %v; want both", sawResponse, sawEvent)
	}
}

func TestWebSocketHandler_ListBoards(t *testing.T) {
	env := newTestEnv(t, protocoltest.AcceptAll)
	conn := dialWebSocket(t, env)

	if err := conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"jsonrpc":"2.0","id":"b","method":"listBoards"}`)); err != nil {
		t.Fatalf("WriteMessage() returned error: %v", err)
	}

	msg := readJSON(t, conn)
	if !bytes.Contains(msg["result"], []byte(`"esp32-ws2812"`)) {
		t.Errorf("result = %s, want the built-in boards", msg["result"])
	}
}

func TestEventBus_Filter(t *testing.T) {
	bus := NewEventBus(zaptest.NewLogger(t))
	go bus.Start()
	defer bus.Stop()

	failed := bus.Subscribe(model.EventCommandFailed)
	all := bus.Subscribe()

	bus.Publish(&model.LedEvent{EventType: model.EventCommandCompleted, Board: "a"})
	bus.Publish(&model.LedEvent{EventType: model.EventCommandFailed, Board: "b"})

	for _, want := range []string{"a", "b"} {
		select {
		case ev := <-all:
			if ev.Board != want {
				t.Errorf("all subscriber got board %s, want %s", ev.Board, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("all subscriber did not receive board %s", want)
		}
	}

	select {
	case ev := <-failed:
		if ev.EventType != model.EventCommandFailed {
			t.Errorf("filtered subscriber got %s", ev.EventType)
		}
	case <-time.After(time.Second):
		t.Fatal("filtered subscriber got nothing")
	}

	bus.Unsubscribe(failed)
	if _, ok := <-failed; ok {
		t.Error("unsubscribed channel still open")
	}
}
