// Package mcp answers MCP JSON-RPC methods over the tool registry.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"nciso/server/internal/jsonrpc"
	"nciso/server/internal/middleware"
	"nciso/server/internal/modules"
	"nciso/server/internal/observability"
)

type Handler struct {
	version string
	lang    string
}

// NewHandler creates a handler reporting version in serverInfo and listing
// tool descriptions in lang.
func NewHandler(version, lang string) *Handler {
	if lang == "" {
		lang = modules.DefaultLanguage
	}
	return &Handler{version: version, lang: lang}
}

// ProcessRequest routes a JSON-RPC request to the appropriate handler.
// Called by the transport middleware.
func (h *Handler) ProcessRequest(ctx context.Context, req *jsonrpc.Request) (any, *jsonrpc.Error) {
	switch req.Method {
	case "initialize":
		return h.handleInitialize(req), nil
	case "initialized", "notifications/initialized":
		return nil, nil
	case "ping":
		return struct{}{}, nil
	case "tools/list":
		return h.handleToolsList(ctx)
	case "tools/call":
		return h.handleToolCall(ctx, req)
	case "resources/list":
		return &ResourcesListResult{Resources: orEmpty(modules.AllResources())}, nil
	case "resources/read":
		return h.handleResourcesRead(ctx, req)
	default:
		return nil, &jsonrpc.Error{Code: MethodNotFound, Message: "Method not found"}
	}
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (h *Handler) handleInitialize(req *jsonrpc.Request) *InitializeResult {
	return &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools:     &ToolsCapability{},
			Resources: &ResourcesCapability{},
		},
		ServerInfo: ServerInfo{
			Name:    "nciso",
			Version: h.version,
		},
	}
}

func decodeParams(raw any, dst any) *jsonrpc.Error {
	paramsBytes, err := json.Marshal(raw)
	if err != nil {
		return &jsonrpc.Error{Code: InvalidParams, Message: "Invalid params"}
	}
	if err := json.Unmarshal(paramsBytes, dst); err != nil {
		return &jsonrpc.Error{Code: InvalidParams, Message: "Invalid params structure"}
	}
	return nil
}

func (h *Handler) handleToolsList(ctx context.Context) (*ToolsListResult, *jsonrpc.Error) {
	authCtx := middleware.GetAuthContext(ctx)
	if authCtx == nil {
		return nil, &jsonrpc.Error{Code: InternalError, Message: "auth context missing"}
	}
	return &ToolsListResult{Tools: modules.ToolsFor(authCtx.Role, h.lang)}, nil
}

func (h *Handler) handleToolCall(ctx context.Context, req *jsonrpc.Request) (*ToolCallResult, *jsonrpc.Error) {
	var params ToolCallParams
	if rpcErr := decodeParams(req.Params, &params); rpcErr != nil {
		return nil, rpcErr
	}
	if params.Arguments == nil {
		params.Arguments = make(map[string]any)
	}

	authCtx := middleware.GetAuthContext(ctx)
	if authCtx == nil {
		return nil, &jsonrpc.Error{Code: InternalError, Message: "auth context missing"}
	}

	if params.Name == "batch" {
		return h.handleBatch(ctx, authCtx, params.Arguments)
	}

	if _, _, ok := modules.FindTool(params.Name); !ok {
		return nil, &jsonrpc.Error{Code: InvalidParams, Message: fmt.Sprintf("Unknown tool: %s", params.Name)}
	}
	if err := authorizeCall(authCtx, params.Name, params.Arguments); err != nil {
		observability.LogSecurityEvent(middleware.GetRequestID(ctx), authCtx.UserID, "tool_permission_denied", map[string]any{
			"tool":   params.Name,
			"reason": err.Error(),
		})
		return nil, authErrorToRPC(err)
	}

	result, err := modules.Call(ctx, params.Name, params.Arguments)
	if err != nil {
		return nil, &jsonrpc.Error{Code: InternalError, Message: err.Error()}
	}
	return result, nil
}

// authorizeCall checks the role and, when the call names one, the tenant.
func authorizeCall(authCtx *middleware.AuthContext, tool string, args map[string]any) error {
	if err := authCtx.CanInvoke(tool); err != nil {
		return err
	}
	tenantID, _ := args["tenant_id"].(string)
	return authCtx.CheckTenant(tenantID)
}

func (h *Handler) handleBatch(ctx context.Context, authCtx *middleware.AuthContext, args map[string]any) (*ToolCallResult, *jsonrpc.Error) {
	commands, ok := args["commands"].(string)
	if !ok {
		return nil, &jsonrpc.Error{Code: InvalidParams, Message: "commands must be a string"}
	}

	// All-or-nothing: every command is checked before any runs.
	requestID := middleware.GetRequestID(ctx)
	if rpcErr := checkBatchPermissions(requestID, authCtx, commands); rpcErr != nil {
		return nil, rpcErr
	}

	result, err := modules.Batch(ctx, commands)
	if err != nil {
		return nil, &jsonrpc.Error{Code: InternalError, Message: err.Error()}
	}
	return result, nil
}

// checkBatchPermissions parses batch JSONL and checks all tools are permitted.
// The client receives a vague message; the security log records which tools were denied.
func checkBatchPermissions(requestID string, authCtx *middleware.AuthContext, commands string) *jsonrpc.Error {
	var denied []string
	toolCount := 0

	for _, line := range strings.Split(strings.TrimSpace(commands), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var cmd modules.BatchCommand
		if err := json.Unmarshal([]byte(line), &cmd); err != nil {
			continue // reported by modules.Batch
		}
		if cmd.Tool == "" {
			continue
		}
		toolCount++

		if err := authorizeCall(authCtx, cmd.Tool, cmd.Params); err != nil {
			var authErr *middleware.AuthError
			if errors.As(err, &authErr) {
				denied = append(denied, fmt.Sprintf("%s(%s)", cmd.Tool, authErr.Code))
			} else {
				denied = append(denied, cmd.Tool)
			}
		}
	}

	const maxBatchSize = 10
	if toolCount > maxBatchSize {
		return &jsonrpc.Error{
			Code:    InvalidParams,
			Message: fmt.Sprintf("batch too large: %d commands (max %d)", toolCount, maxBatchSize),
		}
	}

	if len(denied) > 0 {
		observability.LogSecurityEvent(requestID, authCtx.UserID, "batch_permission_denied", map[string]any{
			"denied_tools": denied,
		})
		return &jsonrpc.Error{
			Code:    ErrPermissionDenied,
			Message: "batch rejected: one or more tools are not permitted",
		}
	}
	return nil
}

func (h *Handler) handleResourcesRead(ctx context.Context, req *jsonrpc.Request) (*ResourcesReadResult, *jsonrpc.Error) {
	var params ResourcesReadParams
	if rpcErr := decodeParams(req.Params, &params); rpcErr != nil {
		return nil, rpcErr
	}
	if params.URI == "" {
		return nil, &jsonrpc.Error{Code: InvalidParams, Message: "uri is required"}
	}

	mimeType := ""
	for _, r := range modules.AllResources() {
		if r.URI == params.URI {
			mimeType = r.MimeType
		}
	}
	text, err := modules.ReadResource(ctx, params.URI)
	if err != nil {
		observability.L().Warn("resource read failed", zap.String("uri", params.URI), zap.Error(err))
		return nil, &jsonrpc.Error{Code: InvalidParams, Message: err.Error()}
	}
	return &ResourcesReadResult{Contents: []ResourceContents{{URI: params.URI, MimeType: mimeType, Text: text}}}, nil
}

// authErrorToRPC maps middleware.AuthError to the appropriate JSON-RPC error code.
func authErrorToRPC(err error) *jsonrpc.Error {
	var authErr *middleware.AuthError
	if !errors.As(err, &authErr) {
		return &jsonrpc.Error{Code: InternalError, Message: err.Error()}
	}
	switch authErr.Code {
	case "PERMISSION_DENIED", "UNKNOWN_ROLE":
		return &jsonrpc.Error{Code: ErrPermissionDenied, Message: authErr.Message}
	case "TENANT_MISMATCH":
		return &jsonrpc.Error{Code: ErrTenantMismatch, Message: authErr.Message}
	case "RATE_LIMIT_EXCEEDED":
		return &jsonrpc.Error{Code: ErrRateLimited, Message: authErr.Message}
	default:
		return &jsonrpc.Error{Code: InternalError, Message: authErr.Message}
	}
}
