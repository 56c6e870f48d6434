// Package mcp exposes the booking tools over the Model Context Protocol so
// external agents can call them through the same validator and executor as chat turns.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/lithammer/shortuuid/v4"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"

	"github.com/jamilsonokay/iam-ai-chatbot/server/agent/tool"
)

const serverName = "flightdesk"

// Server serves one registry on behalf of a fixed session.
type Server struct {
	executor  *tool.Executor
	session   tool.Session
	mcpServer *mcpserver.MCPServer
}

func NewServer(executor *tool.Executor, session tool.Session, version string) (*Server, error) {
	s := &Server{
		executor:  executor,
		session:   session,
		mcpServer: mcpserver.NewMCPServer(serverName, version, mcpserver.WithToolCapabilities(false)),
	}
	for _, descriptor := range executor.Registry().Descriptors() {
		schema, err := json.Marshal(descriptor.Schema.JSONSchema())
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode schema of %s", descriptor.Name)
		}
		s.mcpServer.AddTool(mcpgo.NewToolWithRawSchema(descriptor.Name, descriptor.Description, schema), s.handler(descriptor.Name))
	}
	return s, nil
}

// ServeStdio blocks serving JSON-RPC over stdin and stdout.
func (s *Server) ServeStdio() error {
	return mcpserver.ServeStdio(s.mcpServer)
}

func (s *Server) handler(name string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		var raw json.RawMessage
		if req.Params.Arguments != nil {
			encoded, err := json.Marshal(req.Params.Arguments)
			if err != nil {
				return mcpgo.NewToolResultError("arguments are not valid JSON"), nil
			}
			raw = encoded
		}

		result := s.executor.Dispatch(ctx, tool.Call{
			ID:        shortuuid.New(),
			Name:      name,
			Arguments: raw,
		}, s.session)
		if result.IsError {
			var failure tool.Failure
			if err := json.Unmarshal(result.Payload, &failure); err != nil || failure.Message == "" {
				failure.Message = string(result.Payload)
			}
			slog.Debug("mcp tool call failed", "tool", name, "error", failure.Message)
			return mcpgo.NewToolResultError(failure.Message), nil
		}
		return mcpgo.NewToolResultText(string(result.Payload)), nil
	}
}
