package modules

import "context"

// LocalizedText maps a BCP47 tag (en-US, pt-BR) to a string.
type LocalizedText map[string]string

// Text returns the text for lang, falling back to DefaultLanguage.
func (t LocalizedText) Text(lang string) string {
	if s, ok := t[lang]; ok && s != "" {
		return s
	}
	return t[DefaultLanguage]
}

const DefaultLanguage = "en-US"

// Module is a named group of tools and resources served over MCP and REST.
// ExecuteTool returns an encoded Envelope; failures the caller should see
// are carried inside it rather than as the error.
type Module interface {
	Name() string
	Description() string
	Descriptions() LocalizedText
	APIVersion() string

	Tools() []Tool
	ExecuteTool(ctx context.Context, name string, params map[string]any) (string, error)

	Resources() []Resource
	ReadResource(ctx context.Context, uri string) (string, error)
}

// ToolAnnotations are the MCP behavior hints attached to a tool.
type ToolAnnotations struct {
	ReadOnlyHint    *bool `json:"readOnlyHint,omitempty"`
	DestructiveHint *bool `json:"destructiveHint,omitempty"`
	IdempotentHint  *bool `json:"idempotentHint,omitempty"`
	OpenWorldHint   *bool `json:"openWorldHint,omitempty"`
}

func hint(v bool) *bool { return &v }

func annotations(readOnly, destructive, idempotent, openWorld bool) *ToolAnnotations {
	a := &ToolAnnotations{ReadOnlyHint: hint(readOnly), OpenWorldHint: hint(openWorld)}
	if !readOnly {
		a.DestructiveHint = hint(destructive)
		a.IdempotentHint = hint(idempotent)
	}
	return a
}

var (
	AnnotateReadOnly = annotations(true, false, true, false)
	AnnotateCreate   = annotations(false, false, false, false)
	AnnotateUpdate   = annotations(false, false, true, false)
	AnnotateDelete   = annotations(false, true, true, false)
	// AnnotateExternal marks writes that also reach object storage.
	AnnotateExternal = annotations(false, false, false, true)
)

// Tool is one callable operation. ID is stable ("isms:list_policies");
// Name is the execution key.
type Tool struct {
	ID           string           `json:"id,omitempty"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Descriptions LocalizedText    `json:"descriptions,omitempty"`
	InputSchema  InputSchema      `json:"inputSchema"`
	Annotations  *ToolAnnotations `json:"annotations,omitempty"`
}

// InputSchema is the JSON Schema subset tools declare. ValidateParams
// enforces it.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

type Property struct {
	Type        string              `json:"type"`
	Description string              `json:"description"`
	Enum        []string            `json:"enum,omitempty"`
	Minimum     *float64            `json:"minimum,omitempty"`
	Maximum     *float64            `json:"maximum,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
}

// Bound returns a pointer for Minimum/Maximum.
func Bound(v float64) *float64 { return &v }

type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ToolCallResult is the MCP tools/call result body.
type ToolCallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
