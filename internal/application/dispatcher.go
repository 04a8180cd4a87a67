package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gitlab-mcp-server/internal/domain"
)

var errMalformedResponse = errors.New("response body is not valid JSON")

// HandlerContext carries the shared collaborators of every tool call.
// It is built once at startup and never mutated, so concurrent
// dispatches share it without locking.
type HandlerContext struct {
	Client  domain.GitLabClient
	Timeout time.Duration
	Logger  *StructuredLogger
}

// Dispatcher validates tool requests against the registry and runs them.
type Dispatcher struct {
	registry *Registry
}

// NewDispatcher creates a Dispatcher over registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Registry returns the registry the dispatcher resolves against.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch resolves req.Name, validates the arguments and invokes the
// handler under a per-call timeout. Any returned error is a *domain.ToolError.
// Validation failures never reach the network.
func (d *Dispatcher) Dispatch(ctx context.Context, hc *HandlerContext, req *domain.ToolRequest) (payload json.RawMessage, err error) {
	entry, ok := d.registry.Resolve(req.Name)
	if !ok {
		return nil, domain.NewInvalidRequest("Unknown tool: %s", req.Name)
	}

	args, err := normalizeArgs(req.Arguments)
	if err != nil {
		return nil, domain.Classify(err, entry.DefaultMessage())
	}

	if err := entry.validate(args); err != nil {
		return nil, err
	}

	if hc == nil {
		return nil, &domain.ToolError{
			Kind:    domain.KindInternal,
			Message: entry.DefaultMessage() + ": no handler context",
		}
	}

	timeout := hc.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			payload = nil
			err = domain.Classify(fmt.Errorf("panic: %v", r), entry.DefaultMessage())
		}
		if err != nil && hc.Logger != nil {
			hc.Logger.LogError("tool call failed", err, map[string]interface{}{
				"tool": req.Name,
			})
		}
	}()

	payload, err = entry.handler(callCtx, hc, args)
	if err != nil {
		return nil, domain.Classify(err, entry.DefaultMessage())
	}

	if len(payload) > 0 && !json.Valid(payload) {
		err = &domain.UpstreamError{Detail: "malformed response", Body: payload, Err: errMalformedResponse}
		return nil, domain.Classify(err, entry.DefaultMessage())
	}

	return payload, nil
}

// LocalCaller invokes tools in-process through a Dispatcher.
type LocalCaller struct {
	dispatcher *Dispatcher
	hc         *HandlerContext
}

// NewLocalCaller binds a dispatcher to a handler context.
func NewLocalCaller(dispatcher *Dispatcher, hc *HandlerContext) *LocalCaller {
	return &LocalCaller{dispatcher: dispatcher, hc: hc}
}

// CallTool implements domain.ToolCaller.
func (c *LocalCaller) CallTool(ctx context.Context, name string, args map[string]interface{}) (json.RawMessage, error) {
	return c.dispatcher.Dispatch(ctx, c.hc, &domain.ToolRequest{Name: name, Arguments: args})
}
