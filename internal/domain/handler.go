package domain

import (
	"context"
	"encoding/json"
)

// ToolCaller invokes a registered tool by name and returns its raw payload.
// The server's dispatcher satisfies it for in-process callers such as the
// review comment poster.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]interface{}) (json.RawMessage, error)
}
