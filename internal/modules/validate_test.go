package modules

import (
	"testing"
)

func TestValidateParams_RequiredFields(t *testing.T) {
	schema := InputSchema{
		Type: "object",
		Properties: map[string]Property{
			"tenant_id": {Type: "string", Description: "Tenant"},
			"title":     {Type: "string", Description: "Policy title"},
		},
		Required: []string{"tenant_id", "title"},
	}

	tests := []struct {
		name    string
		params  map[string]any
		wantErr bool
		errMsg  string
	}{
		{
			name:   "all required present",
			params: map[string]any{"tenant_id": "t1", "title": "Backup"},
		},
		{
			name:    "missing one required",
			params:  map[string]any{"tenant_id": "t1"},
			wantErr: true,
			errMsg:  "title é obrigatório",
		},
		{
			name:    "missing all required",
			params:  map[string]any{},
			wantErr: true,
			errMsg:  "tenant_id é obrigatório; title é obrigatório",
		},
		{
			name:    "nil params",
			params:  nil,
			wantErr: true,
			errMsg:  "tenant_id é obrigatório; title é obrigatório",
		},
		{
			name:    "blank string for required field",
			params:  map[string]any{"tenant_id": "  ", "title": "Backup"},
			wantErr: true,
			errMsg:  "tenant_id é obrigatório",
		},
		{
			name:    "nil value for required field",
			params:  map[string]any{"tenant_id": nil, "title": "Backup"},
			wantErr: true,
			errMsg:  "tenant_id é obrigatório",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateParams(schema, tt.params)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got nil")
				} else if err.Error() != tt.errMsg {
					t.Errorf("expected error %q, got %q", tt.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateParams_TypeCheck(t *testing.T) {
	schema := InputSchema{
		Type: "object",
		Properties: map[string]Property{
			"name":   {Type: "string"},
			"limit":  {Type: "integer"},
			"score":  {Type: "number", Minimum: Bound(0), Maximum: Bound(100)},
			"active": {Type: "boolean"},
			"tags":   {Type: "array", Items: &Property{Type: "string"}},
			"meta":   {Type: "object"},
			"status": {Type: "string", Enum: []string{"draft", "active"}},
		},
	}

	tests := []struct {
		name    string
		params  map[string]any
		wantErr bool
		errMsg  string
	}{
		{"valid string", map[string]any{"name": "x"}, false, ""},
		{"string gets number", map[string]any{"name": 42.0}, true, "parâmetro name: esperado texto, recebido float64"},
		{"valid integer", map[string]any{"limit": 10.0}, false, ""},
		{"fractional integer", map[string]any{"limit": 1.5}, true, "parâmetro limit: esperado inteiro, recebido 1.5"},
		{"valid number", map[string]any{"score": 85.5}, false, ""},
		{"number gets string", map[string]any{"score": "85"}, true, "parâmetro score: esperado número, recebido string"},
		{"number below minimum", map[string]any{"score": -1.0}, true, "parâmetro score: deve ser no mínimo 0"},
		{"number above maximum", map[string]any{"score": 101.0}, true, "parâmetro score: deve ser no máximo 100"},
		{"valid boolean", map[string]any{"active": true}, false, ""},
		{"boolean gets string", map[string]any{"active": "true"}, true, "parâmetro active: esperado booleano, recebido string"},
		{"valid array", map[string]any{"tags": []any{"a"}}, false, ""},
		{"array gets string", map[string]any{"tags": "a"}, true, "parâmetro tags: esperado lista, recebido string"},
		{"array item mistyped", map[string]any{"tags": []any{"a", 2.0}}, true, "parâmetro tags[1]: esperado texto, recebido float64"},
		{"valid object", map[string]any{"meta": map[string]any{}}, false, ""},
		{"valid enum", map[string]any{"status": "draft"}, false, ""},
		{"invalid enum", map[string]any{"status": "gone"}, true, `parâmetro status: valor "gone" inválido (aceitos: draft, active)`},
		{"undeclared passes", map[string]any{"extra": 1.0}, false, ""},
		{"nil optional passes", map[string]any{"name": nil}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateParams(schema, tt.params)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if err.Error() != tt.errMsg {
					t.Errorf("error = %q, want %q", err.Error(), tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestFindTool(t *testing.T) {
	tools := []Tool{{Name: "list_policies"}, {Name: "create_policy"}}
	if _, ok := findTool(tools, "create_policy"); !ok {
		t.Error("create_policy should be found")
	}
	if _, ok := findTool(tools, "drop_table"); ok {
		t.Error("drop_table should not be found")
	}
}
