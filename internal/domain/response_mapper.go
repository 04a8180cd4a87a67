package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultResponseMapper is the default implementation of ResponseMapper.
// It converts GitLab API payloads and tool failures into MCP-compliant envelopes.
type DefaultResponseMapper struct{}

// NewResponseMapper creates a new instance of DefaultResponseMapper.
func NewResponseMapper() ResponseMapper {
	return &DefaultResponseMapper{}
}

// MapToToolResponse wraps the payload as a single text content block holding
// its compact JSON serialization. Empty payloads (204 responses) become "{}".
func (m *DefaultResponseMapper) MapToToolResponse(payload json.RawMessage) (*ToolResponse, error) {
	text, err := CompactPayload(payload)
	if err != nil {
		return nil, err
	}

	return &ToolResponse{
		Content: []ContentBlock{
			{
				Type: "text",
				Text: text,
			},
		},
	}, nil
}

// CompactPayload returns the compact JSON text of payload, or "{}" when empty.
func CompactPayload(payload json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return "{}", nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return "", fmt.Errorf("failed to serialize payload: %w", err)
	}
	return buf.String(), nil
}

// MapError converts any failure into a JSON-RPC error object.
// Classified errors keep their kind and message; unclassified errors are
// classified here so nothing leaves the server without a code and a message.
func (m *DefaultResponseMapper) MapError(err error, defaultMessage string) *Error {
	if err == nil {
		return nil
	}

	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	return toRPCError(Classify(err, defaultMessage), defaultMessage)
}

// Classify turns err into a *ToolError. Errors that already carry a kind are
// returned unchanged; upstream failures and context deadlines become
// UpstreamServiceError; everything else becomes InternalError. defaultMessage
// prefixes the detail of newly classified errors.
func Classify(err error, defaultMessage string) *ToolError {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr
	}

	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return &ToolError{
			Kind:    KindUpstream,
			Message: joinMessage(defaultMessage, upErr.Message()),
			Data:    upstreamData(upErr),
			Err:     err,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &ToolError{
			Kind:    KindUpstream,
			Message: joinMessage(defaultMessage, "request timed out"),
			Err:     err,
		}
	}

	return &ToolError{
		Kind:    KindInternal,
		Message: joinMessage(defaultMessage, err.Error()),
		Err:     err,
	}
}

// toRPCError renders a classified error on the wire.
func toRPCError(e *ToolError, defaultMessage string) *Error {
	message := e.Message
	if message == "" {
		message = joinMessage(defaultMessage, e.Kind.String())
	}

	switch e.Kind {
	case KindInvalidRequest, KindInvalidParams, KindUpstream, KindInternal:
		return &Error{Code: e.Kind.Code(), Message: message, Data: e.Data}
	default:
		return &Error{Code: InternalError, Message: message, Data: e.Data}
	}
}

// upstreamData keeps the status and body of a failed call for the data field.
func upstreamData(upErr *UpstreamError) interface{} {
	data := map[string]interface{}{}
	if upErr.StatusCode != 0 {
		data["statusCode"] = upErr.StatusCode
	}
	if body := bytes.TrimSpace(upErr.Body); len(body) > 0 {
		if json.Valid(body) {
			data["body"] = json.RawMessage(body)
		} else {
			data["body"] = string(body)
		}
	}
	if len(data) == 0 {
		return nil
	}
	return data
}

func joinMessage(defaultMessage, detail string) string {
	switch {
	case defaultMessage == "":
		return detail
	case detail == "" || detail == defaultMessage:
		return defaultMessage
	default:
		return defaultMessage + ": " + detail
	}
}
