package domain

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrTransportClosed is returned by Send and Start after Close.
var ErrTransportClosed = errors.New("transport is closed")

// Transport defines the interface for MCP transport mechanisms.
// Implementations handle communication between MCP clients and the server
// using either stdio or HTTP transport.
type Transport interface {
	// Start begins listening for incoming MCP messages.
	// Returns an error if the transport cannot be initialized.
	Start(ctx context.Context) error

	// Send transmits a JSON-RPC response to the client.
	// Safe for concurrent use.
	Send(response *Response) error

	// Receive returns a channel for incoming JSON-RPC requests.
	// The channel is closed when the input stream ends or the transport is shut down.
	Receive() <-chan *Request

	// Close gracefully shuts down the transport.
	Close() error
}

// StdioTransport implements Transport using stdin/stdout for communication.
// It reads newline-delimited JSON-RPC messages from stdin and writes
// responses to stdout, one message per line.
type StdioTransport struct {
	reader  *bufio.Reader
	writer  *bufio.Writer
	reqChan chan *Request
	logger  *slog.Logger
	mu      sync.Mutex
	closed  bool
}

// NewStdioTransport creates a StdioTransport bound to os.Stdin and os.Stdout.
func NewStdioTransport() *StdioTransport {
	return NewStdioTransportWithIO(os.Stdin, os.Stdout)
}

// NewStdioTransportWithIO creates a new StdioTransport with custom IO streams.
func NewStdioTransportWithIO(reader io.Reader, writer io.Writer) *StdioTransport {
	return &StdioTransport{
		reader:  bufio.NewReader(reader),
		writer:  bufio.NewWriter(writer),
		reqChan: make(chan *Request, 10),
		logger:  slog.Default(),
	}
}

// SetLogger replaces the logger used for transport diagnostics.
func (t *StdioTransport) SetLogger(logger *slog.Logger) {
	if logger != nil {
		t.logger = logger
	}
}

// Start begins reading JSON-RPC messages from stdin.
func (t *StdioTransport) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTransportClosed
	}
	t.mu.Unlock()

	go t.readLoop(ctx)
	return nil
}

// readLoop reads lines until EOF, forwarding well-formed requests and
// answering malformed ones directly.
func (t *StdioTransport) readLoop(ctx context.Context) {
	defer close(t.reqChan)

	for {
		if ctx.Err() != nil {
			return
		}

		line, err := t.reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			t.logger.Error("stdio read failed", "error", err)
			return
		}
		eof := err != nil

		if trimmed := strings.TrimSpace(line); trimmed != "" {
			if req := t.decode(trimmed); req != nil {
				select {
				case t.reqChan <- req:
				case <-ctx.Done():
					return
				}
			}
		}

		if eof {
			return
		}
	}
}

// decode parses one line. Malformed input is answered here and nil is returned.
func (t *StdioTransport) decode(line string) *Request {
	var req Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		t.logger.Warn("discarding malformed message", "error", err)
		t.sendError(nil, ParseError, "Parse error", err.Error())
		return nil
	}

	if req.JSONRPC != "2.0" {
		t.sendError(req.ID, InvalidRequest, "Invalid Request", "invalid jsonrpc version")
		return nil
	}

	if req.Method == "" {
		t.sendError(req.ID, InvalidRequest, "Invalid Request", "method is required")
		return nil
	}

	return &req
}

// Send writes a JSON-RPC response to stdout as a single line.
func (t *StdioTransport) Send(response *Response) error {
	if response.JSONRPC == "" {
		response.JSONRPC = "2.0"
	}

	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTransportClosed
	}

	if _, err := t.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}

	if err := t.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush response: %w", err)
	}

	return nil
}

// Receive returns the channel for incoming JSON-RPC requests.
func (t *StdioTransport) Receive() <-chan *Request {
	return t.reqChan
}

// Close marks the transport closed. The request channel is closed by the
// read loop once the input ends.
func (t *StdioTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	return nil
}

func (t *StdioTransport) sendError(id interface{}, code int, message string, data interface{}) {
	response := &Response{
		JSONRPC: "2.0",
		ID:      id,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
	if err := t.Send(response); err != nil {
		t.logger.Error("failed to send error response", "error", err)
	}
}

// HTTPTransport implements Transport using HTTP with SSE for communication.
// It exposes:
//  1. GET /mcp, the SSE stream for server-to-client messages
//  2. POST /mcp/message?sessionId=..., for client-to-server messages
//  3. GET /health, a liveness check
type HTTPTransport struct {
	host     string
	port     int
	server   *http.Server
	listener net.Listener
	reqChan  chan *Request
	logger   *slog.Logger
	mu       sync.Mutex
	closed   bool

	sessions   map[string]*sseSession
	sessionsMu sync.RWMutex
}

// sseSession represents an active SSE connection
type sseSession struct {
	id          string
	messageChan chan *Response
	done        chan struct{}
	closeOnce   sync.Once
}

func (s *sseSession) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// NewHTTPTransport creates a new HTTPTransport instance.
func NewHTTPTransport(host string, port int) *HTTPTransport {
	return &HTTPTransport{
		host:     host,
		port:     port,
		reqChan:  make(chan *Request, 64),
		logger:   slog.Default(),
		sessions: make(map[string]*sseSession),
	}
}

// SetLogger replaces the logger used for transport diagnostics.
func (t *HTTPTransport) SetLogger(logger *slog.Logger) {
	if logger != nil {
		t.logger = logger
	}
}

// Handler returns the HTTP handler serving the MCP endpoints.
func (t *HTTPTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", t.handleSSE)
	mux.HandleFunc("/mcp/message", t.handleMessage)
	mux.HandleFunc("/health", t.handleHealth)
	return mux
}

// Addr returns the bound listen address once Start has succeeded.
func (t *HTTPTransport) Addr() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return net.JoinHostPort(t.host, strconv.Itoa(t.port))
	}
	return t.listener.Addr().String()
}

// Start binds the listener and serves in the background.
func (t *HTTPTransport) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTransportClosed
	}

	addr := net.JoinHostPort(t.host, strconv.Itoa(t.port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		t.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	t.listener = listener
	t.server = &http.Server{
		Handler:           t.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := t.server
	t.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Error("http server stopped", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		_ = t.Close()
	}()

	t.logger.Info("http transport listening", "addr", listener.Addr().String())
	return nil
}

func (t *HTTPTransport) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	t.sessionsMu.RLock()
	active := len(t.sessions)
	t.sessionsMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":   "healthy",
		"sessions": active,
	})
}

// handleSSE handles SSE connections (GET requests) for server-to-client messages.
func (t *HTTPTransport) handleSSE(w http.ResponseWriter, r *http.Request) {
	t.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	session := &sseSession{
		id:          uuid.NewString(),
		messageChan: make(chan *Response, 32),
		done:        make(chan struct{}),
	}

	t.sessionsMu.Lock()
	t.sessions[session.id] = session
	t.sessionsMu.Unlock()

	defer func() {
		t.sessionsMu.Lock()
		delete(t.sessions, session.id)
		t.sessionsMu.Unlock()
		session.close()
	}()

	fmt.Fprintf(w, "event: endpoint\ndata: /mcp/message?sessionId=%s\n\n", session.id)
	flusher.Flush()

	t.logger.Info("sse session established", "session", session.id)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			t.logger.Info("sse session disconnected", "session", session.id)
			return
		case <-session.done:
			return
		case response := <-session.messageChan:
			data, err := json.Marshal(response)
			if err != nil {
				t.logger.Error("failed to marshal response", "session", session.id, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

// handleMessage handles HTTP POST requests for client-to-server messages.
func (t *HTTPTransport) handleMessage(w http.ResponseWriter, r *http.Request) {
	t.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "Missing sessionId parameter", http.StatusBadRequest)
		return
	}

	t.sessionsMu.RLock()
	session, exists := t.sessions[sessionID]
	t.sessionsMu.RUnlock()

	if !exists {
		http.Error(w, "Invalid session", http.StatusBadRequest)
		return
	}

	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		t.sendErrorToSession(session, nil, ParseError, "Parse error", err.Error())
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if req.JSONRPC != "2.0" {
		t.sendErrorToSession(session, req.ID, InvalidRequest, "Invalid Request", "invalid jsonrpc version")
		w.WriteHeader(http.StatusAccepted)
		return
	}

	req.Session = session.id

	// Close flips closed under mu before closing reqChan, so the send
	// below never races the close.
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}
	queued := false
	select {
	case t.reqChan <- &req:
		queued = true
	default:
	}
	t.mu.Unlock()

	if !queued {
		t.sendErrorToSession(session, req.ID, InternalError, "Internal error", "request queue full")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (t *HTTPTransport) sendErrorToSession(session *sseSession, id interface{}, code int, message string, data interface{}) {
	t.deliver(session, &Response{
		JSONRPC: "2.0",
		ID:      id,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
	})
}

func (t *HTTPTransport) deliver(session *sseSession, response *Response) {
	select {
	case session.messageChan <- response:
	case <-session.done:
	default:
		t.logger.Warn("dropping response: session queue full", "session", session.id)
	}
}

// Send routes a response to the SSE session its request arrived on.
// Responses without a session are broadcast to every open session.
func (t *HTTPTransport) Send(response *Response) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTransportClosed
	}
	t.mu.Unlock()

	if response.JSONRPC == "" {
		response.JSONRPC = "2.0"
	}

	t.sessionsMu.RLock()
	defer t.sessionsMu.RUnlock()

	if response.Session != "" {
		session, ok := t.sessions[response.Session]
		if !ok {
			return fmt.Errorf("session %s is no longer connected", response.Session)
		}
		t.deliver(session, response)
		return nil
	}

	if len(t.sessions) == 0 {
		return fmt.Errorf("no active sessions")
	}

	for _, session := range t.sessions {
		t.deliver(session, response)
	}

	return nil
}

// Receive returns the channel for incoming JSON-RPC requests.
func (t *HTTPTransport) Receive() <-chan *Request {
	return t.reqChan
}

// Close gracefully shuts down the HTTP server and all SSE sessions.
func (t *HTTPTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	server := t.server
	t.mu.Unlock()

	t.sessionsMu.Lock()
	for _, session := range t.sessions {
		session.close()
	}
	t.sessions = make(map[string]*sseSession)
	t.sessionsMu.Unlock()

	var err error
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = server.Shutdown(ctx)
	}

	close(t.reqChan)
	return err
}
