package domain

import (
	"fmt"
	"strings"
)

// ErrorKind is the closed set of failure categories a tool call can end in.
type ErrorKind int

const (
	// KindInvalidRequest means the tool name did not resolve.
	KindInvalidRequest ErrorKind = iota + 1
	// KindInvalidParams means required arguments are missing or malformed.
	KindInvalidParams
	// KindUpstream means the GitLab API call failed.
	KindUpstream
	// KindInternal covers everything else.
	KindInternal
)

// String returns the taxonomy name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidRequest:
		return "InvalidRequest"
	case KindInvalidParams:
		return "InvalidParams"
	case KindUpstream:
		return "UpstreamServiceError"
	case KindInternal:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// Code returns the JSON-RPC error code for the kind.
func (k ErrorKind) Code() int {
	switch k {
	case KindInvalidRequest:
		return InvalidRequest
	case KindInvalidParams:
		return InvalidParams
	case KindUpstream:
		return UpstreamServiceError
	default:
		return InternalError
	}
}

// ToolError is the classified failure of a tool call.
type ToolError struct {
	Kind    ErrorKind
	Message string
	Data    interface{}
	Err     error
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	return e.Message
}

// Unwrap exposes the underlying cause.
func (e *ToolError) Unwrap() error {
	return e.Err
}

// NewInvalidRequest builds an InvalidRequest error.
func NewInvalidRequest(format string, args ...interface{}) *ToolError {
	return &ToolError{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// NewInvalidParams builds an InvalidParams error.
func NewInvalidParams(format string, args ...interface{}) *ToolError {
	return &ToolError{Kind: KindInvalidParams, Message: fmt.Sprintf(format, args...)}
}

// NewMissingParams builds the InvalidParams error naming every missing field.
func NewMissingParams(names ...string) *ToolError {
	return &ToolError{
		Kind:    KindInvalidParams,
		Message: "Missing required parameter(s): " + strings.Join(names, ", "),
		Data:    map[string]interface{}{"missing": names},
	}
}

// UpstreamError is a failed exchange with the GitLab API.
// StatusCode is zero when no HTTP response was received.
type UpstreamError struct {
	StatusCode int
	// Detail is the most specific message the upstream gave, usually the
	// "message" or "error" field of its JSON error body.
	Detail string
	Body   []byte
	Err    error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	switch {
	case e.Detail != "" && e.StatusCode != 0:
		return fmt.Sprintf("GitLab API error (status %d): %s", e.StatusCode, e.Detail)
	case e.Detail != "":
		return e.Detail
	case e.Err != nil:
		return e.Err.Error()
	case e.StatusCode != 0:
		return fmt.Sprintf("GitLab API error (status %d)", e.StatusCode)
	default:
		return "GitLab API error"
	}
}

// Unwrap exposes the transport error, if any.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Message returns the detail to surface to callers: the structured upstream
// message when available, otherwise the transport error text.
func (e *UpstreamError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}
