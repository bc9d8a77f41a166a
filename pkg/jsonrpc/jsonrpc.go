// Package jsonrpc holds the JSON-RPC 2.0 envelopes shared by the node and its clients.
package jsonrpc

import (
	"encoding/json"
	"fmt"
)

const Version = "2.0"

const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeRejected       = -32000
)

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response - exactly one of Result and Error is set. A null result is the raw "null".
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (that *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", that.Code, that.Message)
}

func NewError(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Success(id json.RawMessage, result any) (Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal result: %w", err)
	}

	return Response{JSONRPC: Version, ID: id, Result: raw}, nil
}

func Failure(id json.RawMessage, err *Error) Response {
	return Response{JSONRPC: Version, ID: id, Error: err}
}
