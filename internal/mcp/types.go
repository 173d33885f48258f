package mcp

import (
	"nciso/server/internal/jsonrpc"
	"nciso/server/internal/modules"
)

// Re-export JSON-RPC types for use within this package
type Request = jsonrpc.Request
type Response = jsonrpc.Response
type Error = jsonrpc.Error

// Re-export JSON-RPC error codes
const (
	ParseError          = jsonrpc.ParseError
	InvalidRequest      = jsonrpc.InvalidRequest
	MethodNotFound      = jsonrpc.MethodNotFound
	InvalidParams       = jsonrpc.InvalidParams
	InternalError       = jsonrpc.InternalError
	ErrPermissionDenied = jsonrpc.ErrPermissionDenied
	ErrTenantMismatch   = jsonrpc.ErrTenantMismatch
	ErrRateLimited      = jsonrpc.ErrRateLimited
)

// ProtocolVersion is the MCP revision this server speaks.
const ProtocolVersion = "2025-03-26"

// MCP Protocol Types
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      ClientInfo         `json:"clientInfo"`
}

type ClientCapabilities struct {
	Roots    *RootsCapability    `json:"roots,omitempty"`
	Sampling *SamplingCapability `json:"sampling,omitempty"`
}

type RootsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type SamplingCapability struct{}

type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
}

type ServerCapabilities struct {
	Tools     *ToolsCapability     `json:"tools,omitempty"`
	Resources *ResourcesCapability `json:"resources,omitempty"`
}

type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type ResourcesCapability struct {
	Subscribe   bool `json:"subscribe,omitempty"`
	ListChanged bool `json:"listChanged,omitempty"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type ToolsListResult struct {
	Tools []modules.Tool `json:"tools"`
}

type ToolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Use modules types
type ToolCallResult = modules.ToolCallResult
type ContentBlock = modules.ContentBlock

// =============================================================================
// Resources Types
// =============================================================================

// ResourcesListResult represents the result of resources/list
type ResourcesListResult struct {
	Resources []modules.Resource `json:"resources"`
}

// ResourcesReadParams represents the parameters for resources/read
type ResourcesReadParams struct {
	URI string `json:"uri"`
}

// ResourcesReadResult represents the result of resources/read
type ResourcesReadResult struct {
	Contents []ResourceContents `json:"contents"`
}

// ResourceContents is the text body of one resource.
type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text"`
}
