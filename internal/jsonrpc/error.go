package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// ErrorCode is a JSON-RPC error code.
type ErrorCode int

// Error is a JSON-RPC error object. Code is nil when the server omitted it.
type Error struct {
	Code    *ErrorCode      `json:"code,omitempty"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

var _ error = &Error{}

func (e *Error) Error() string {
	if e.Code == nil {
		return e.Message
	}
	return fmt.Sprintf("%d: %s", *e.Code, e.Message)
}

// MessageOr returns the error message, or fallback when the server sent none.
func (e *Error) MessageOr(fallback string) string {
	if e.Message == "" {
		return fallback
	}
	return e.Message
}
