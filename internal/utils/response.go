// internal/utils/response.go
package utils

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"led-service/internal/model"
)

// APIResponse represents standard API response structure
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIError represents error information
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse sends a successful response
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: getRequestID(c),
	})
}

// ErrorResponse sends an error response
func ErrorResponse(c *gin.Context, statusCode int, message string, err error) {
	apiError := &APIError{
		Code:    getErrorCode(statusCode),
		Message: message,
	}

	if err != nil {
		apiError.Details = err.Error()
		if code := ErrorCode(err); code != "" {
			apiError.Code = code
		}
	}

	c.JSON(statusCode, APIResponse{
		Success:   false,
		Message:   message,
		Error:     apiError,
		Timestamp: time.Now(),
		RequestID: getRequestID(c),
	})
}

// StatusForError maps a control error to an HTTP status
func StatusForError(err error) int {
	switch {
	case model.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrBoardNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrCommandInFlight):
		return http.StatusConflict
	case errors.Is(err, model.ErrConnection), errors.Is(err, model.ErrNotConnected):
		return http.StatusServiceUnavailable
	case errors.Is(err, model.ErrWriteFailure):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode returns the taxonomy name of a control error, or "" if unknown
func ErrorCode(err error) string {
	codes := []struct {
		target error
		code   string
	}{
		{model.ErrInvalidColor, "INVALID_COLOR"},
		{model.ErrInvalidInterval, "INVALID_INTERVAL"},
		{model.ErrNoActionSpecified, "NO_ACTION_SPECIFIED"},
		{model.ErrInvalidCombination, "INVALID_COMBINATION"},
		{model.ErrPortRequired, "PORT_REQUIRED"},
		{model.ErrNotConnected, "NOT_CONNECTED"},
		{model.ErrConnection, "CONNECTION_ERROR"},
		{model.ErrWriteFailure, "WRITE_FAILURE"},
		{model.ErrCommandInFlight, "COMMAND_IN_FLIGHT"},
		{model.ErrBoardNotFound, "BOARD_NOT_FOUND"},
	}

	for _, c := range codes {
		if errors.Is(err, c.target) {
			return c.code
		}
	}
	return ""
}

// getRequestID extracts request ID from context
func getRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}

// getErrorCode returns error code based on HTTP status
func getErrorCode(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusBadGateway:
		return "BAD_GATEWAY"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	case http.StatusGatewayTimeout:
		return "GATEWAY_TIMEOUT"
	case http.StatusInternalServerError:
		return "INTERNAL_SERVER_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}
