// Package modules is the tool registry: tool definitions, parameter
// validation, the response envelope and single/batch execution.
package modules

import (
	"context"
	"fmt"
	"sort"
	"time"

	"nciso/server/internal/middleware"
	"nciso/server/internal/observability"
)

// =============================================================================
// Registry
// =============================================================================

// registry holds all registered modules
var registry = make(map[string]Module)

// RegisterModule adds a module to the registry
func RegisterModule(m Module) {
	registry[m.Name()] = m
}

// GetModule returns a module by name
func GetModule(name string) (Module, bool) {
	m, ok := registry[name]
	return m, ok
}

// ListModules returns all registered module names, sorted.
func ListModules() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindTool returns the module exposing toolName.
func FindTool(toolName string) (Module, Tool, bool) {
	for _, name := range ListModules() {
		m := registry[name]
		if tool, ok := findTool(m.Tools(), toolName); ok {
			return m, tool, true
		}
	}
	return nil, Tool{}, false
}

// =============================================================================
// Tool Listing
// =============================================================================

// ToolsFor returns the tools role may invoke, in lang, followed by the batch
// meta tool. An empty role lists every tool.
func ToolsFor(role, lang string) []Tool {
	var out []Tool
	for _, name := range ListModules() {
		for _, tool := range registry[name].Tools() {
			if role != "" && !middleware.Allowed(role, tool.Name) {
				continue
			}
			t := tool
			if len(t.Descriptions) > 0 {
				t.Description = t.Descriptions.Text(lang)
			}
			t.Descriptions = nil
			out = append(out, t)
		}
	}
	return append(out, BatchTool())
}

// AllTools returns every registered tool with all its descriptions.
func AllTools() []Tool {
	var out []Tool
	for _, name := range ListModules() {
		out = append(out, registry[name].Tools()...)
	}
	return out
}

// AllResources returns the resources of every registered module.
func AllResources() []Resource {
	var out []Resource
	for _, name := range ListModules() {
		out = append(out, registry[name].Resources()...)
	}
	return out
}

// ReadResource finds the module owning uri and reads it.
func ReadResource(ctx context.Context, uri string) (string, error) {
	for _, name := range ListModules() {
		m := registry[name]
		for _, r := range m.Resources() {
			if r.URI == uri {
				return m.ReadResource(ctx, uri)
			}
		}
	}
	return "", fmt.Errorf("unknown resource: %s", uri)
}

// =============================================================================
// Tool Execution
// =============================================================================

// toolTimeout is the maximum duration for a single tool execution.
const toolTimeout = 30 * time.Second

func errorResult(msg string) *ToolCallResult {
	return &ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: Fail(msg).Encode()}},
		IsError: true,
	}
}

// Call executes toolName on whichever module exposes it.
func Call(ctx context.Context, toolName string, params map[string]any) (*ToolCallResult, error) {
	m, _, ok := FindTool(toolName)
	if !ok {
		return errorResult(fmt.Sprintf("Ferramenta desconhecida: %s", toolName)), nil
	}
	return Run(ctx, m.Name(), toolName, params)
}

// Run executes a single tool in a module. Authorization, parameter
// validation, timeout, tracing and logging happen here so every module
// gets them.
func Run(ctx context.Context, moduleName, toolName string, params map[string]any) (*ToolCallResult, error) {
	start := time.Now()

	m, ok := registry[moduleName]
	if !ok {
		return errorResult(fmt.Sprintf("Módulo desconhecido: %s", moduleName)), nil
	}
	tool, found := findTool(m.Tools(), toolName)
	if !found {
		return errorResult(fmt.Sprintf("Ferramenta desconhecida: %s", toolName)), nil
	}

	requestID := middleware.GetRequestID(ctx)
	userID, tenantID := "", ""
	if authCtx := middleware.GetAuthContext(ctx); authCtx != nil {
		userID, tenantID = authCtx.UserID, authCtx.TenantID
		if err := authCtx.CanInvoke(toolName); err != nil {
			observability.LogSecurityEvent(requestID, userID, "tool_denied", map[string]any{
				"tool": toolName,
				"role": authCtx.Role,
			})
			return errorResult(err.Error()), nil
		}
	}

	validated, err := ValidateParams(tool.InputSchema, params)
	if err != nil {
		observability.LogToolCall(requestID, tenantID, userID, toolName, time.Since(start).Milliseconds(), "error", err.Error())
		return errorResult(err.Error()), nil
	}
	if tenantID == "" {
		tenantID, _ = validated["tenant_id"].(string)
	}

	ctx, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()
	ctx, span := observability.StartToolSpan(ctx, toolName, tenantID)

	text, err := m.ExecuteTool(ctx, toolName, validated)
	elapsed := time.Since(start)

	errMsg := ""
	if err != nil {
		errMsg = err.Error()
		if ctx.Err() == context.DeadlineExceeded {
			errMsg = fmt.Sprintf("A execução de %s excedeu o tempo limite de %s", toolName, toolTimeout)
		}
		text = Fail(errMsg).Encode()
	} else if e, decErr := DecodeEnvelope(text); decErr == nil && !e.Success {
		errMsg = e.Error
	}

	observability.EndToolSpan(ctx, span, toolName, elapsed, errMsg)
	status := "success"
	if errMsg != "" {
		status = "error"
	}
	observability.LogToolCall(requestID, tenantID, userID, toolName, elapsed.Milliseconds(), status, errMsg)

	return &ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: errMsg != "",
	}, nil
}
