package modules

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"nciso/server/internal/middleware"
)

// fakeModule answers list_policies with two rows and get_policy with the id it was given.
type fakeModule struct {
	calls atomic.Int32
}

func (m *fakeModule) Name() string                                         { return "fake" }
func (m *fakeModule) Description() string                                  { return "fake module" }
func (m *fakeModule) Descriptions() LocalizedText                          { return LocalizedText{"en-US": "fake module"} }
func (m *fakeModule) APIVersion() string                                   { return "test" }
func (m *fakeModule) Resources() []Resource                                { return nil }
func (m *fakeModule) ReadResource(context.Context, string) (string, error) { return "", nil }

func (m *fakeModule) Tools() []Tool {
	tenant := map[string]Property{"tenant_id": {Type: "string"}}
	return []Tool{
		{Name: "list_policies", Descriptions: LocalizedText{"en-US": "List", "pt-BR": "Listar"}, InputSchema: InputSchema{Type: "object", Properties: tenant, Required: []string{"tenant_id"}}},
		{Name: "get_policy", Descriptions: LocalizedText{"en-US": "Get"}, InputSchema: InputSchema{Type: "object", Properties: map[string]Property{"tenant_id": {Type: "string"}, "id": {Type: "string"}}, Required: []string{"tenant_id", "id"}}},
		{Name: "delete_policy", Descriptions: LocalizedText{"en-US": "Delete"}, InputSchema: InputSchema{Type: "object", Properties: tenant, Required: []string{"tenant_id"}}},
	}
}

func (m *fakeModule) ExecuteTool(_ context.Context, name string, params map[string]any) (string, error) {
	m.calls.Add(1)
	switch name {
	case "list_policies":
		env, err := List([]map[string]string{{"id": "p1"}, {"id": "p2"}})
		return env.Encode(), err
	case "get_policy":
		if params["id"] == "missing" {
			return Fail("política não encontrada").Encode(), nil
		}
		env, err := OK(map[string]any{"id": params["id"]})
		return env.Encode(), err
	default:
		env, err := OK(map[string]bool{"deleted": true})
		return env.Encode(), err
	}
}

func withFakeRegistry(t *testing.T) *fakeModule {
	t.Helper()
	orig := registry
	t.Cleanup(func() { registry = orig })
	registry = map[string]Module{}
	m := &fakeModule{}
	RegisterModule(m)
	return m
}

func asRole(role string) context.Context {
	return middleware.WithAuthContext(context.Background(), &middleware.AuthContext{
		UserID: "u1", TenantID: "t1", Role: role,
	})
}

func TestRun(t *testing.T) {
	m := withFakeRegistry(t)

	tests := []struct {
		name     string
		ctx      context.Context
		tool     string
		params   map[string]any
		wantErr  bool
		contains string
		executes bool
	}{
		{"list ok", context.Background(), "list_policies", map[string]any{"tenant_id": "t1"}, false, `"count":2`, true},
		{"missing tenant", context.Background(), "list_policies", nil, true, "tenant_id é obrigatório", false},
		{"handler failure", context.Background(), "get_policy", map[string]any{"tenant_id": "t1", "id": "missing"}, true, "não encontrada", true},
		{"unknown tool", context.Background(), "drop_table", nil, true, "Ferramenta desconhecida", false},
		{"viewer cannot delete", asRole(middleware.RoleViewer), "delete_policy", map[string]any{"tenant_id": "t1"}, true, "não pode executar", false},
		{"manager deletes", asRole(middleware.RoleManager), "delete_policy", map[string]any{"tenant_id": "t1"}, false, `"deleted":true`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := m.calls.Load()
			res, err := Call(tt.ctx, tt.tool, tt.params)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.IsError != tt.wantErr {
				t.Errorf("IsError = %v, want %v (%s)", res.IsError, tt.wantErr, res.Content[0].Text)
			}
			if !strings.Contains(res.Content[0].Text, tt.contains) {
				t.Errorf("text = %s, want substring %q", res.Content[0].Text, tt.contains)
			}
			if executed := m.calls.Load() != before; executed != tt.executes {
				t.Errorf("executed = %v, want %v", executed, tt.executes)
			}
		})
	}
}

func TestToolsFor(t *testing.T) {
	withFakeRegistry(t)

	names := func(tools []Tool) []string {
		var out []string
		for _, tool := range tools {
			out = append(out, tool.Name)
		}
		return out
	}

	viewer := names(ToolsFor(middleware.RoleViewer, DefaultLanguage))
	if strings.Join(viewer, ",") != "list_policies,get_policy,batch" {
		t.Errorf("viewer tools = %v", viewer)
	}
	admin := names(ToolsFor(middleware.RoleAdmin, DefaultLanguage))
	if len(admin) != 4 {
		t.Errorf("admin tools = %v", admin)
	}

	pt := ToolsFor("", "pt-BR")
	if pt[0].Description != "Listar" || pt[0].Descriptions != nil {
		t.Errorf("pt-BR tool = %+v", pt[0])
	}
}

func TestDetectCycle(t *testing.T) {
	tests := []struct {
		name      string
		tasks     map[string]*taskState
		wantCycle bool
	}{
		{
			"no cycle (linear)",
			map[string]*taskState{
				"a": {cmd: BatchCommand{ID: "a", After: nil}},
				"b": {cmd: BatchCommand{ID: "b", After: []string{"a"}}},
				"c": {cmd: BatchCommand{ID: "c", After: []string{"b"}}},
			},
			false,
		},
		{
			"no cycle (independent)",
			map[string]*taskState{
				"a": {cmd: BatchCommand{ID: "a"}},
				"b": {cmd: BatchCommand{ID: "b"}},
			},
			false,
		},
		{
			"cycle A→B→A",
			map[string]*taskState{
				"a": {cmd: BatchCommand{ID: "a", After: []string{"b"}}},
				"b": {cmd: BatchCommand{ID: "b", After: []string{"a"}}},
			},
			true,
		},
		{
			"self-reference",
			map[string]*taskState{
				"a": {cmd: BatchCommand{ID: "a", After: []string{"a"}}},
			},
			true,
		},
		{"empty tasks", map[string]*taskState{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := detectCycle(tt.tasks)
			if tt.wantCycle && result == "" {
				t.Error("expected cycle, got empty string")
			}
			if !tt.wantCycle && result != "" {
				t.Errorf("expected no cycle, got %q", result)
			}
		})
	}
}

func TestResolveStringVariables(t *testing.T) {
	store := &sync.Map{}
	store.Store("list", `{"success":true,"data":[{"id":"fw-123","score":85}],"count":1}`)
	store.Store("single", `{"success":true,"data":{"id":"pol-456"}}`)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"resolve from list", "${list.data[0].id}", "fw-123"},
		{"numeric field", "${list.data[0].score}", "85"},
		{"resolve from single row", "${single.data.id}", "pol-456"},
		{"no variable reference", "plain string", "plain string"},
		{"unknown task ID", "${unknown.data[0].id}", "${unknown.data[0].id}"},
		{"out of bounds index", "${list.data[99].id}", "${list.data[99].id}"},
		{"index into single row", "${single.data[0].id}", "${single.data[0].id}"},
		{"embedded in text", "Framework ${list.data[0].id} here", "Framework fw-123 here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveStringVariables(tt.input, store)
			if got != tt.want {
				t.Errorf("resolveStringVariables(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestResolveVariables(t *testing.T) {
	store := &sync.Map{}
	store.Store("task1", `{"success":true,"data":[{"id":"abc"}]}`)

	t.Run("nil params", func(t *testing.T) {
		if got := resolveVariables(nil, store); got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})

	t.Run("nested map and array", func(t *testing.T) {
		params := map[string]any{
			"id":     "${task1.data[0].id}",
			"nested": map[string]any{"ref": "${task1.data[0].id}"},
			"ids":    []any{"${task1.data[0].id}", "static"},
		}
		got := resolveVariables(params, store)
		if got["id"] != "abc" {
			t.Errorf("id = %v", got["id"])
		}
		if got["nested"].(map[string]any)["ref"] != "abc" {
			t.Errorf("nested.ref = %v", got["nested"])
		}
		ids := got["ids"].([]any)
		if ids[0] != "abc" || ids[1] != "static" {
			t.Errorf("ids = %v", ids)
		}
	})
}

func TestBatch(t *testing.T) {
	withFakeRegistry(t)

	commands := strings.Join([]string{
		`{"id":"all","tool":"list_policies","params":{"tenant_id":"t1"}}`,
		`{"id":"one","tool":"get_policy","params":{"tenant_id":"t1","id":"${all.data[1].id}"},"after":["all"],"output":true}`,
		`{"id":"bad","tool":"get_policy","params":{"tenant_id":"t1","id":"missing"}}`,
		`{"id":"dep","tool":"list_policies","params":{"tenant_id":"t1"},"after":["bad"],"output":true}`,
	}, "\n")

	res, err := Batch(context.Background(), commands)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("batch failed: %s", res.Content[0].Text)
	}

	var resp struct {
		Results map[string]struct {
			Success bool              `json:"success"`
			Data    map[string]string `json:"data"`
		} `json:"results"`
		Errors map[string]string `json:"errors"`
	}
	if err := json.Unmarshal([]byte(res.Content[0].Text), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := resp.Results["one"].Data["id"]; got != "p2" {
		t.Errorf("chained id = %q, want p2", got)
	}
	if _, ok := resp.Results["all"]; ok {
		t.Error("output:false task should not be in results")
	}
	if !strings.Contains(resp.Errors["bad"], "não encontrada") {
		t.Errorf("bad error = %q", resp.Errors["bad"])
	}
	if resp.Errors["dep"] == "" {
		t.Error("dependent of failed task should be skipped")
	}
}

func TestBatchRejects(t *testing.T) {
	withFakeRegistry(t)

	var eleven []string
	for i := 0; i < 11; i++ {
		eleven = append(eleven, `{"id":"t`+string(rune('a'+i))+`","tool":"list_policies"}`)
	}

	tests := []struct {
		name     string
		commands string
		contains string
	}{
		{"invalid json", `{`, "JSON inválido"},
		{"missing id", `{"tool":"list_policies"}`, "id é obrigatório"},
		{"duplicate id", "{\"id\":\"a\",\"tool\":\"list_policies\"}\n{\"id\":\"a\",\"tool\":\"list_policies\"}", "id duplicado"},
		{"unknown dependency", `{"id":"a","tool":"list_policies","after":["x"]}`, "dependência desconhecida"},
		{"cycle", "{\"id\":\"a\",\"tool\":\"list_policies\",\"after\":[\"b\"]}\n{\"id\":\"b\",\"tool\":\"list_policies\",\"after\":[\"a\"]}", "dependência circular"},
		{"too many", strings.Join(eleven, "\n"), "máximo de 10"},
		{"empty", "  ", "commands é obrigatório"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Batch(context.Background(), tt.commands)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !res.IsError || !strings.Contains(res.Content[0].Text, tt.contains) {
				t.Errorf("result = %+v, want error containing %q", res, tt.contains)
			}
		})
	}
}
