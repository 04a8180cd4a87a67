package domain

import (
	"encoding/json"
)

// ResponseMapper converts tool payloads and failures into the wire envelope.
type ResponseMapper interface {
	// MapToToolResponse wraps a raw upstream payload as a single text block.
	// Returns an error if the payload is not valid JSON.
	MapToToolResponse(payload json.RawMessage) (*ToolResponse, error)

	// MapError converts any failure into a JSON-RPC error with a stable code
	// and a non-empty message. defaultMessage is used as the message prefix
	// for errors that are not already classified.
	MapError(err error, defaultMessage string) *Error
}
