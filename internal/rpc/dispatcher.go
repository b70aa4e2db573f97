package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"led-service/internal/model"
	"led-service/internal/utils"
)

// LedController is the service the dispatcher calls into
type LedController interface {
	ControlLed(ctx context.Context, req *model.ControlRequest) (*model.ControlResult, error)
	ListBoards() []*model.Board
}

// Dispatcher decodes JSON-RPC requests and routes them to the controller
type Dispatcher struct {
	controller LedController
	logger     *zap.Logger
}

// NewDispatcher creates a dispatcher for controller
func NewDispatcher(controller LedController, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		controller: controller,
		logger:     logger.With(zap.String("component", "rpc")),
	}
}

// HandleMessage processes one raw message and returns the encoded response,
// or nil when the message was a notification.
func (d *Dispatcher) HandleMessage(ctx context.Context, data []byte) []byte {
	data = bytes.TrimSpace(data)

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		code := CodeParseError
		if json.Valid(data) {
			code = CodeInvalidRequest
		}
		return d.encode(&Response{
			JSONRPC: Version,
			ID:      nullID,
			Error:   &Error{Code: code, Message: errorMessage(code), Data: err.Error()},
		})
	}

	resp := d.Dispatch(ctx, &req)
	if resp == nil {
		return nil
	}
	return d.encode(resp)
}

// Dispatch runs one decoded request
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) *Response {
	if req.JSONRPC != Version || req.Method == "" {
		return &Response{
			JSONRPC: Version,
			ID:      idOrNull(req.ID),
			Error:   &Error{Code: CodeInvalidRequest, Message: errorMessage(CodeInvalidRequest)},
		}
	}

	d.logger.Debug("RPC call", zap.String("method", req.Method), zap.ByteString("id", req.ID))

	result, rpcErr := d.call(ctx, req)
	if req.IsNotification() {
		if rpcErr != nil {
			d.logger.Warn("RPC notification failed",
				zap.String("method", req.Method),
				zap.String("error", rpcErr.Message),
			)
		}
		return nil
	}

	resp := &Response{JSONRPC: Version, ID: req.ID}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}
	return resp
}

func (d *Dispatcher) call(ctx context.Context, req *Request) (interface{}, *Error) {
	switch req.Method {
	case MethodControlLed:
		var params model.ControlRequest
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &params); err != nil {
				return nil, &Error{
					Code:    CodeInvalidParams,
					Message: errorMessage(CodeInvalidParams),
					Data:    err.Error(),
				}
			}
		}

		result, err := d.controller.ControlLed(ctx, &params)
		if err != nil {
			return nil, ErrorFor(err)
		}
		return result, nil

	case MethodListBoards:
		return d.controller.ListBoards(), nil

	default:
		return nil, &Error{
			Code:    CodeMethodNotFound,
			Message: fmt.Sprintf("%s: %s", errorMessage(CodeMethodNotFound), req.Method),
		}
	}
}

// ErrorFor maps a control error to a JSON-RPC error
func ErrorFor(err error) *Error {
	code := CodeDeviceError
	switch {
	case model.IsValidationError(err), errors.Is(err, model.ErrBoardNotFound):
		code = CodeInvalidParams
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = CodeInternalError
	}

	rpcErr := &Error{Code: code, Message: err.Error()}
	if name := utils.ErrorCode(err); name != "" {
		rpcErr.Data = map[string]string{"error_code": name}
	}
	return rpcErr
}

func (d *Dispatcher) encode(resp *Response) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		d.logger.Error("Failed to encode RPC response", zap.Error(err))
		data, _ = json.Marshal(&Response{
			JSONRPC: Version,
			ID:      idOrNull(resp.ID),
			Error:   &Error{Code: CodeInternalError, Message: errorMessage(CodeInternalError)},
		})
	}
	return data
}

func idOrNull(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return nullID
	}
	return id
}

func errorMessage(code int) string {
	switch code {
	case CodeParseError:
		return "Parse error"
	case CodeInvalidRequest:
		return "Invalid request"
	case CodeMethodNotFound:
		return "Method not found"
	case CodeInvalidParams:
		return "Invalid params"
	case CodeInternalError:
		return "Internal error"
	default:
		return "Server error"
	}
}
