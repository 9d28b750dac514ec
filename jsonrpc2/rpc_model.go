package jsonrpc2

import (
	"encoding/json"
)

const Version = "2.0"

type RPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      string          `json:"id,omitempty"`
	Notif   bool            `json:"-"`
}

type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      string          `json:"id,omitempty"`
}

// RPCError carries an http status as its code.
type RPCError struct {
	Code    int                `json:"code"`
	Message string             `json:"message"`
	Params  []*InputFieldError `json:"params,omitempty"`
}

func (e *RPCError) Error() string {
	return e.Message
}

type InputFieldError struct {
	Error string `json:"error"`
	Field string `json:"field"`
}

func NewError(code int, err error) *RPCError {
	return &RPCError{Code: code, Message: err.Error()}
}

// InvalidInput wraps field errors into one error.
func InvalidInput(code int, fields []*InputFieldError) *RPCError {
	return &RPCError{Code: code, Message: "invalid input", Params: fields}
}
