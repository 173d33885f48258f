package mcpstdio_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ops "nciso/server/internal/isms"
	"nciso/server/internal/mcpstdio"
	"nciso/server/internal/modules"
	"nciso/server/internal/modules/isms"
)

func init() {
	modules.RegisterModule(isms.New(ops.New(nil)))
}

func send(t *testing.T, body string) map[string]any {
	t.Helper()
	s, err := mcpstdio.New("nciso-test", "test", "pt-BR")
	require.NoError(t, err)

	msg := s.HandleMessage(context.Background(), json.RawMessage(body))
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestToolsListed(t *testing.T) {
	out := send(t, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	result, ok := out["result"].(map[string]any)
	require.True(t, ok, "%v", out)
	tools, ok := result["tools"].([]any)
	require.True(t, ok)

	names := map[string]bool{}
	for _, tool := range tools {
		names[tool.(map[string]any)["name"].(string)] = true
	}
	assert.True(t, names["list_policies"])
	assert.True(t, names["generate_effectiveness_report"])
	assert.True(t, names["batch"])
	assert.Len(t, names, len(modules.AllTools())+1)
}

func TestToolCallWithoutStore(t *testing.T) {
	out := send(t, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"list_policies","arguments":{"tenant_id":"11111111-1111-1111-1111-111111111111"}}}`)
	result, ok := out["result"].(map[string]any)
	require.True(t, ok, "%v", out)
	assert.Equal(t, true, result["isError"])
	content := result["content"].([]any)
	require.Len(t, content, 1)
	assert.JSONEq(t, `{"success":false,"error":"Supabase não configurado","data":[]}`, content[0].(map[string]any)["text"].(string))
}

func TestMissingArgument(t *testing.T) {
	out := send(t, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"get_policy","arguments":{"tenant_id":"11111111-1111-1111-1111-111111111111"}}}`)
	result := out["result"].(map[string]any)
	text := result["content"].([]any)[0].(map[string]any)["text"].(string)
	assert.Contains(t, text, "id é obrigatório")
}
