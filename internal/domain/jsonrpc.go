package domain

// Request represents a JSON-RPC 2.0 request message.
type Request struct {
	JSONRPC string      `json:"jsonrpc"` // Must be "2.0"
	ID      interface{} `json:"id,omitempty"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`

	// Session identifies the HTTP/SSE session the request arrived on.
	// Empty for stdio.
	Session string `json:"-"`
}

// IsNotification reports whether the request expects no response.
// Any request without an id is a notification, whatever its method.
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// Response represents a JSON-RPC 2.0 response message.
type Response struct {
	JSONRPC string      `json:"jsonrpc"` // Must be "2.0"
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`

	// Session routes the response back to the originating SSE stream.
	Session string `json:"-"`
}

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error implements the error interface for Error.
func (e *Error) Error() string {
	return e.Message
}

// JSON-RPC 2.0 error codes
const (
	// Standard JSON-RPC 2.0 error codes
	ParseError     = -32700 // Invalid JSON received
	InvalidRequest = -32600 // Invalid JSON-RPC request structure or unknown tool
	MethodNotFound = -32601 // Unknown MCP method
	InvalidParams  = -32602 // Missing or malformed tool arguments
	InternalError  = -32603 // Server internal error

	// Application-specific error codes
	UpstreamServiceError = -32003 // GitLab API call failed
)
