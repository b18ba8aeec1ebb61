// Package mcp exposes the option service to agent clients over
// JSON-RPC 2.0 on stdio: newline-delimited request and response
// objects, with search, lookup, listing, stats and refresh tools.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fwojciec/optsearch"
)

// ProtocolVersion is the MCP protocol revision the server speaks.
const ProtocolVersion = "2024-11-05"

// JSON-RPC 2.0 error codes, plus the implementation-defined range for
// tool failures.
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternal       = -32603
	ErrCodeToolNotFound   = -32001
	ErrCodeToolExecFailed = -32002
)

// maxLineBytes bounds a single request line. Far larger than any
// legitimate tool call, far smaller than a runaway stream.
const maxLineBytes = 4 << 20

// Request represents an incoming JSON-RPC request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response represents a JSON-RPC response.
type Response struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Server serves the option service over stdio.
type Server struct {
	service optsearch.OptionService
	logger  *slog.Logger
	name    string
	version string
	in      io.Reader
	out     io.Writer
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithServerInfo sets the name and version reported to clients.
func WithServerInfo(name, version string) ServerOption {
	return func(s *Server) {
		s.name = name
		s.version = version
	}
}

// WithStreams replaces stdin/stdout, primarily for tests.
func WithStreams(in io.Reader, out io.Writer) ServerOption {
	return func(s *Server) {
		s.in = in
		s.out = out
	}
}

// NewServer creates a server over the given service.
func NewServer(service optsearch.OptionService, opts ...ServerOption) *Server {
	s := &Server{
		service: service,
		logger:  slog.New(slog.DiscardHandler),
		name:    "optsearch",
		version: "dev",
		in:      os.Stdin,
		out:     os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run reads newline-delimited requests until EOF or context
// cancellation. Malformed lines produce a parse-error response rather
// than terminating the stream; notifications produce no response.
func (s *Server) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.write(Response{
				JSONRPC: "2.0",
				Error:   &RPCError{Code: ErrCodeParseError, Message: err.Error()},
			})
			continue
		}
		if req.ID == nil {
			// Notification; nothing to send back.
			s.logger.Debug("notification", slog.String("method", req.Method))
			continue
		}
		s.write(s.HandleRequest(ctx, req))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read requests: %w", err)
	}
	return nil
}

// HandleRequest dispatches one request and returns its response.
func (s *Server) HandleRequest(ctx context.Context, req Request) Response {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req.ID)
	case "ping":
		return Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{}}
	case "tools/list":
		return s.handleToolsList(req.ID)
	case "tools/call":
		return s.handleToolsCall(ctx, req.ID, req.Params)
	default:
		return Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &RPCError{
				Code:    ErrCodeMethodNotFound,
				Message: fmt.Sprintf("method %s not found", req.Method),
			},
		}
	}
}

func (s *Server) handleInitialize(id any) Response {
	return Response{
		JSONRPC: "2.0",
		ID:      id,
		Result: map[string]any{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    s.name,
				"version": s.version,
			},
		},
	}
}

func (s *Server) handleToolsList(id any) Response {
	tools := make([]map[string]any, 0, len(toolDefs))
	for _, def := range toolDefs {
		tools = append(tools, map[string]any{
			"name":        def.name,
			"description": def.description,
			"inputSchema": def.schema,
		})
	}
	return Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  map[string]any{"tools": tools},
	}
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (s *Server) handleToolsCall(ctx context.Context, id any, params json.RawMessage) Response {
	var call callParams
	if err := json.Unmarshal(params, &call); err != nil {
		return Response{
			JSONRPC: "2.0",
			ID:      id,
			Error:   &RPCError{Code: ErrCodeInvalidParams, Message: err.Error()},
		}
	}

	handler, ok := toolHandlers[call.Name]
	if !ok {
		return Response{
			JSONRPC: "2.0",
			ID:      id,
			Error: &RPCError{
				Code:    ErrCodeToolNotFound,
				Message: fmt.Sprintf("tool %s not found", call.Name),
			},
		}
	}

	result, err := handler(ctx, s.service, call.Arguments)
	if err != nil {
		switch optsearch.ErrorCode(err) {
		case optsearch.EINVALID:
			return Response{
				JSONRPC: "2.0",
				ID:      id,
				Error:   &RPCError{Code: ErrCodeInvalidParams, Message: optsearch.ErrorMessage(err)},
			}
		default:
			return Response{
				JSONRPC: "2.0",
				ID:      id,
				Error:   &RPCError{Code: ErrCodeToolExecFailed, Message: optsearch.ErrorMessage(err)},
			}
		}
	}
	return Response{JSONRPC: "2.0", ID: id, Result: toolResult(result)}
}

// toolResult wraps a payload in the MCP content envelope: one text
// block holding the JSON-encoded payload.
func toolResult(payload any) map[string]any {
	encoded, err := json.Marshal(payload)
	if err != nil {
		encoded = []byte(fmt.Sprintf(`{"error":%q}`, err.Error()))
	}
	return map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": string(encoded)},
		},
	}
}

func (s *Server) write(resp Response) {
	encoded, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("encode response", slog.Any("error", err))
		return
	}
	if _, err := s.out.Write(append(encoded, '\n')); err != nil {
		s.logger.Error("write response", slog.Any("error", err))
	}
}
