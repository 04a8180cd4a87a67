package application

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"gitlab-mcp-server/internal/domain"
)

// Server identity reported by initialize.
const ServerName = "gitlab-mcp-server"

// ServerVersion is overridden at build time with -ldflags.
var ServerVersion = "1.0.0"

// ProtocolVersion is the MCP revision this server speaks.
const ProtocolVersion = "2024-11-05"

type methodFunc func(ctx context.Context, req *domain.Request) (interface{}, error)

// Server is the main MCP server implementation.
// It reads requests from the transport, dispatches them concurrently and
// writes each response tagged with its request id.
type Server struct {
	transport  domain.Transport
	dispatcher *Dispatcher
	hc         *HandlerContext
	mapper     domain.ResponseMapper
	config     *domain.Config
	logger     *StructuredLogger
	methods    map[string]methodFunc

	inFlight *semaphore.Weighted
	wg       sync.WaitGroup
	done     chan struct{}
}

// NewServer creates a new MCP server instance.
func NewServer(
	transport domain.Transport,
	dispatcher *Dispatcher,
	hc *HandlerContext,
	config *domain.Config,
) *Server {
	logger := hc.Logger
	if logger == nil {
		logger = NewStructuredLogger()
	}

	maxInFlight := int64(config.Server.MaxInFlight)
	if maxInFlight <= 0 {
		maxInFlight = domain.DefaultMaxInFlight
	}

	s := &Server{
		transport:  transport,
		dispatcher: dispatcher,
		hc:         hc,
		mapper:     domain.NewResponseMapper(),
		config:     config,
		logger:     logger,
		inFlight:   semaphore.NewWeighted(maxInFlight),
		done:       make(chan struct{}),
	}

	s.methods = map[string]methodFunc{
		"initialize":     s.handleInitialize,
		"ping":           s.handlePing,
		"tools/list":     s.handleToolsList,
		"listTools":      s.handleToolsList,
		"tools/call":     s.handleToolsCall,
		"callTool":       s.handleToolsCall,
		"resources/list": s.handleResourcesList,
		"listResources":  s.handleResourcesList,
		"resources/read": s.handleResourcesRead,
		"readResource":   s.handleResourcesRead,
	}

	return s
}

// Start starts the transport and begins processing requests in the background.
func (s *Server) Start(ctx context.Context) error {
	if err := s.transport.Start(ctx); err != nil {
		s.logger.LogError("failed to start transport", err, map[string]interface{}{
			"transport_type": s.config.Transport.Type,
		})
		return fmt.Errorf("failed to start transport: %w", err)
	}

	s.logger.LogInfo("server started", map[string]interface{}{
		"transport_type": s.config.Transport.Type,
		"tools":          s.dispatcher.Registry().Len(),
		"max_in_flight":  s.config.Server.MaxInFlight,
	})

	go s.processRequests(ctx)

	return nil
}

// Done is closed once the request stream has ended and every accepted
// request has been answered.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

func (s *Server) processRequests(ctx context.Context) {
	defer close(s.done)
	defer s.wg.Wait()

	reqChan := s.transport.Receive()

	for {
		select {
		case <-ctx.Done():
			s.logger.LogInfo("server shutting down", nil)
			return
		case req, ok := <-reqChan:
			if !ok {
				s.logger.LogInfo("request stream closed", nil)
				return
			}

			if req.IsNotification() {
				s.logger.LogDebug("received notification", map[string]interface{}{
					"method": req.Method,
				})
				continue
			}

			if err := s.inFlight.Acquire(ctx, 1); err != nil {
				s.sendError(req, &domain.Error{Code: domain.InternalError, Message: "Server shutting down"})
				return
			}

			s.wg.Add(1)
			go func(req *domain.Request) {
				defer s.wg.Done()
				defer s.inFlight.Release(1)
				s.handleRequest(ctx, req)
			}(req)
		}
	}
}

// handleRequest processes a single JSON-RPC request and sends exactly one response.
func (s *Server) handleRequest(ctx context.Context, req *domain.Request) {
	s.logger.LogInfo("received request", map[string]interface{}{
		"method":     req.Method,
		"request_id": req.ID,
	})

	method, ok := s.methods[req.Method]
	if !ok {
		s.sendError(req, &domain.Error{
			Code:    domain.MethodNotFound,
			Message: "Method not found",
			Data:    fmt.Sprintf("unknown method: %s", req.Method),
		})
		return
	}

	result, err := method(ctx, req)
	if err != nil {
		s.logger.LogError("request processing failed", err, map[string]interface{}{
			"method":     req.Method,
			"request_id": req.ID,
		})
		s.sendError(req, s.mapper.MapError(err, "Request failed"))
		return
	}

	s.send(&domain.Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
		Session: req.Session,
	})
}

func (s *Server) handleInitialize(_ context.Context, _ *domain.Request) (interface{}, error) {
	return map[string]interface{}{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]interface{}{
			"tools":     map[string]interface{}{},
			"resources": map[string]interface{}{},
		},
		"serverInfo": map[string]interface{}{
			"name":    ServerName,
			"version": ServerVersion,
		},
	}, nil
}

func (s *Server) handlePing(_ context.Context, _ *domain.Request) (interface{}, error) {
	return map[string]interface{}{}, nil
}

func (s *Server) handleToolsList(_ context.Context, _ *domain.Request) (interface{}, error) {
	return map[string]interface{}{
		"tools": s.dispatcher.Registry().Definitions(),
	}, nil
}

func (s *Server) handleToolsCall(ctx context.Context, req *domain.Request) (interface{}, error) {
	toolReq, err := parseToolRequest(req.Params)
	if err != nil {
		return nil, err
	}

	payload, err := s.dispatcher.Dispatch(ctx, s.hc, toolReq)
	if err != nil {
		return nil, err
	}

	return s.mapper.MapToToolResponse(payload)
}

func (s *Server) handleResourcesList(_ context.Context, _ *domain.Request) (interface{}, error) {
	return map[string]interface{}{
		"resources": ListResources(),
	}, nil
}

func (s *Server) handleResourcesRead(ctx context.Context, req *domain.Request) (interface{}, error) {
	var params struct {
		URI string `json:"uri"`
	}
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	if params.URI == "" {
		return nil, domain.NewMissingParams("uri")
	}

	contents, err := ReadResource(ctx, NewLocalCaller(s.dispatcher, s.hc), params.URI)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"contents": []domain.ResourceContents{*contents},
	}, nil
}

// parseToolRequest parses the params field into a ToolRequest.
func parseToolRequest(params interface{}) (*domain.ToolRequest, error) {
	if params == nil {
		return nil, domain.NewInvalidParams("Invalid parameters: params is required for tools/call")
	}

	var toolReq domain.ToolRequest
	if err := decodeParams(params, &toolReq); err != nil {
		return nil, err
	}

	if toolReq.Name == "" {
		return nil, domain.NewMissingParams("name")
	}

	if toolReq.Arguments == nil {
		toolReq.Arguments = make(map[string]interface{})
	}

	return &toolReq, nil
}

// decodeParams converts the untyped params into v via a JSON round trip.
func decodeParams(params interface{}, v interface{}) error {
	if params == nil {
		return nil
	}

	data, err := json.Marshal(params)
	if err != nil {
		return domain.NewInvalidParams("Invalid parameters: %v", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return domain.NewInvalidParams("Invalid parameters: %v", err)
	}

	return nil
}

func (s *Server) sendError(req *domain.Request, rpcErr *domain.Error) {
	s.send(&domain.Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Error:   rpcErr,
		Session: req.Session,
	})
}

func (s *Server) send(response *domain.Response) {
	if err := s.transport.Send(response); err != nil {
		s.logger.LogError("failed to send response", err, map[string]interface{}{
			"request_id": response.ID,
		})
	}
}

// Close gracefully shuts down the server.
func (s *Server) Close() error {
	s.logger.LogInfo("closing server", nil)
	return s.transport.Close()
}
