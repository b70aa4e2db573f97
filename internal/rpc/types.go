// Package rpc exposes LED control as JSON-RPC 2.0 methods.
package rpc

import "encoding/json"

// Version is the only protocol version accepted
const Version = "2.0"

// Standard and application error codes
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeDeviceError    = -32000
)

// Method names
const (
	MethodControlLed = "controlLed"
	MethodListBoards = "listBoards"
	MethodLedEvent   = "ledEvent"
)

// Request is one JSON-RPC call. A request without an id is a notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the caller expects no response
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0
}

// Response carries either a result or an error
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC error object
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Notification is a server to client message with no id
type Notification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// NewNotification encodes a notification for method
func NewNotification(method string, params interface{}) ([]byte, error) {
	return json.Marshal(Notification{JSONRPC: Version, Method: method, Params: params})
}

var nullID = json.RawMessage("null")
