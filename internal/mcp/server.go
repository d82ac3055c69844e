package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// maxFrameSize bounds a single JSON-RPC line.
const maxFrameSize = 1 << 20

// Handler executes one tool call. A returned error becomes an isError tool
// result, not a protocol error.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

type registeredTool struct {
	tool    Tool
	handler Handler
}

// Server is a stdio MCP server. Register tools, then Serve; Serve returns
// when the input stream closes or the context is cancelled.
type Server struct {
	info   ServerInfo
	logger *slog.Logger

	tools  []registeredTool
	byName map[string]int

	out   io.Writer
	outMu sync.Mutex
}

// NewServer creates a server with the given identity.
func NewServer(name, version string, logger *slog.Logger) *Server {
	return &Server{
		info:   ServerInfo{Name: name, Version: version},
		logger: logger,
		byName: make(map[string]int),
	}
}

// Register adds a tool. Registration order is preserved in tools/list.
func (s *Server) Register(tool Tool, handler Handler) {
	s.byName[tool.Name] = len(s.tools)
	s.tools = append(s.tools, registeredTool{tool: tool, handler: handler})
}

// Serve reads newline-delimited JSON-RPC frames from in and writes
// responses to out. Notifications produce no response. Malformed frames
// are answered with a parse error and the loop continues.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.out = out

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, maxFrameSize), maxFrameSize)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req JSONRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("malformed frame", "error", err)
			s.writeError(nil, ErrCodeParseError, "parse error")
			continue
		}

		if req.ID == nil {
			s.handleNotification(req)
			continue
		}
		s.handleRequest(ctx, req)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read loop: %w", err)
	}
	return nil
}

func (s *Server) handleNotification(req JSONRPCRequest) {
	switch req.Method {
	case "notifications/initialized", "notifications/cancelled":
		s.logger.Debug("notification", "method", req.Method)
	default:
		s.logger.Debug("ignoring notification", "method", req.Method)
	}
}

func (s *Server) handleRequest(ctx context.Context, req JSONRPCRequest) {
	s.logger.Debug("request", "method", req.Method)

	switch req.Method {
	case "initialize":
		s.writeResult(req.ID, InitializeResult{
			ProtocolVersion: ProtocolVersion,
			ServerInfo:      s.info,
		})
	case "ping":
		s.writeResult(req.ID, struct{}{})
	case "tools/list":
		list := toolsListResult{Tools: make([]Tool, 0, len(s.tools))}
		for _, rt := range s.tools {
			list.Tools = append(list.Tools, rt.tool)
		}
		s.writeResult(req.ID, list)
	case "tools/call":
		s.handleToolCall(ctx, req)
	default:
		s.writeError(req.ID, ErrCodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

func (s *Server) handleToolCall(ctx context.Context, req JSONRPCRequest) {
	var params toolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.writeError(req.ID, ErrCodeInvalidParams, "invalid tools/call params")
		return
	}

	idx, ok := s.byName[params.Name]
	if !ok {
		s.writeError(req.ID, ErrCodeInvalidParams, fmt.Sprintf("unknown tool: %s", params.Name))
		return
	}
	if params.Arguments == nil {
		params.Arguments = json.RawMessage(`{}`)
	}

	payload, err := s.tools[idx].handler(ctx, params.Arguments)
	if err != nil {
		s.writeResult(req.ID, ToolCallResult{
			Content: []ToolResultContent{{Type: "text", Text: err.Error()}},
			IsError: true,
		})
		return
	}

	text, err := json.Marshal(payload)
	if err != nil {
		s.writeError(req.ID, ErrCodeInternalError, "cannot serialize tool result")
		return
	}
	s.writeResult(req.ID, ToolCallResult{
		Content: []ToolResultContent{{Type: "text", Text: string(text)}},
	})
}

func (s *Server) writeResult(id any, result any) {
	s.write(JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *Server) writeError(id any, code int, message string) {
	s.write(JSONRPCResponse{JSONRPC: "2.0", ID: id, Error: &JSONRPCError{Code: code, Message: message}})
}

func (s *Server) write(resp JSONRPCResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("cannot marshal response", "error", err)
		return
	}
	s.outMu.Lock()
	defer s.outMu.Unlock()
	s.out.Write(append(data, '\n'))
}
