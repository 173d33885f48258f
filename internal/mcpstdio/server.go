// Package mcpstdio serves the tool registry over MCP stdio for local clients.
// There is no bearer auth on this transport: every tool runs as a trusted
// operator and tenant_id is taken from the arguments.
package mcpstdio

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"nciso/server/internal/middleware"
	"nciso/server/internal/modules"
)

// New builds an MCP server exposing every registered tool in lang.
func New(name, version, lang string) (*server.MCPServer, error) {
	s := server.NewMCPServer(name, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	for _, tool := range modules.AllTools() {
		schema, err := json.Marshal(tool.InputSchema)
		if err != nil {
			return nil, errors.Wrapf(err, "schema of %s", tool.Name)
		}
		s.AddTool(mcp.NewToolWithRawSchema(tool.Name, tool.Descriptions.Text(lang), schema), handler(tool.Name))
	}

	batch := modules.BatchTool()
	schema, err := json.Marshal(batch.InputSchema)
	if err != nil {
		return nil, errors.Wrap(err, "schema of batch")
	}
	s.AddTool(mcp.NewToolWithRawSchema(batch.Name, batch.Description, schema), runBatch)
	return s, nil
}

func handler(toolName string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx = middleware.WithRequestID(ctx, uuid.NewString())
		res, err := modules.Call(ctx, toolName, req.GetArguments())
		if err != nil {
			return nil, err
		}
		return convert(res), nil
	}
}

func runBatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	commands, err := req.RequireString("commands")
	if err != nil {
		return mcp.NewToolResultError(modules.Fail("commands é obrigatório").Encode()), nil
	}
	res, err := modules.Batch(middleware.WithRequestID(ctx, uuid.NewString()), commands)
	if err != nil {
		return nil, err
	}
	return convert(res), nil
}

func convert(res *modules.ToolCallResult) *mcp.CallToolResult {
	out := &mcp.CallToolResult{IsError: res.IsError}
	for _, block := range res.Content {
		out.Content = append(out.Content, mcp.NewTextContent(block.Text))
	}
	return out
}

// Serve runs s on stdin and stdout until the input closes.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
