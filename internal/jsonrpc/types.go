// Package jsonrpc holds the JSON-RPC 2.0 envelope types used by the MCP transport.
package jsonrpc

import "fmt"

// Version is the only protocol version accepted.
const Version = "2.0"

type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// IsNotification reports whether the request expects no response.
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id,omitempty"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Reply answers id with result, or with rpcErr when it is set.
func Reply(id, result any, rpcErr *Error) Response {
	if rpcErr != nil {
		return Response{JSONRPC: Version, ID: id, Error: rpcErr}
	}
	return Response{JSONRPC: Version, ID: id, Result: result}
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc %d: %s", e.Code, e.Message)
}

// JSON-RPC 2.0 standard error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// Server-defined error codes (-32000 ~ -32099)
const (
	ErrPermissionDenied = -32001 // Role may not invoke the tool
	ErrTenantMismatch   = -32002 // tenant_id argument differs from the caller's tenant
	ErrRateLimited      = -32003
)

// NewError builds an Error with the given code and message.
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}
