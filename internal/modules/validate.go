package modules

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// jsonKinds names each schema type in error messages and recognizes its
// decoded JSON value.
var jsonKinds = map[string]struct {
	label string
	match func(any) bool
}{
	"string":  {"texto", func(v any) bool { _, ok := v.(string); return ok }},
	"number":  {"número", func(v any) bool { _, ok := v.(float64); return ok }},
	"integer": {"inteiro", func(v any) bool { f, ok := v.(float64); return ok && f == math.Trunc(f) }},
	"boolean": {"booleano", func(v any) bool { _, ok := v.(bool); return ok }},
	"array":   {"lista", func(v any) bool { _, ok := v.([]any); return ok }},
	"object":  {"objeto", func(v any) bool { _, ok := v.(map[string]any); return ok }},
}

// ValidateParams checks params against schema and returns the same map.
// Every missing required field is reported at once; after that the first
// type, enum or bound violation wins. Undeclared params pass through.
func ValidateParams(schema InputSchema, params map[string]any) (map[string]any, error) {
	if params == nil {
		params = make(map[string]any)
	}

	var missing []string
	for _, key := range schema.Required {
		if blank(params[key]) {
			missing = append(missing, key+" é obrigatório")
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s", strings.Join(missing, "; "))
	}

	for key, val := range params {
		prop, declared := schema.Properties[key]
		if !declared || val == nil {
			continue
		}
		if err := checkValue(key, val, prop); err != nil {
			return nil, err
		}
	}
	return params, nil
}

func blank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func checkValue(key string, val any, prop Property) error {
	if kind, ok := jsonKinds[prop.Type]; ok && !kind.match(val) {
		if prop.Type == "integer" {
			return fmt.Errorf("parâmetro %s: esperado inteiro, recebido %v", key, val)
		}
		return fmt.Errorf("parâmetro %s: esperado %s, recebido %T", key, kind.label, val)
	}

	if len(prop.Enum) > 0 {
		s, _ := val.(string)
		if !slices.Contains(prop.Enum, s) {
			return fmt.Errorf("parâmetro %s: valor %q inválido (aceitos: %s)", key, s, strings.Join(prop.Enum, ", "))
		}
	}
	if f, ok := val.(float64); ok {
		if prop.Minimum != nil && f < *prop.Minimum {
			return fmt.Errorf("parâmetro %s: deve ser no mínimo %v", key, *prop.Minimum)
		}
		if prop.Maximum != nil && f > *prop.Maximum {
			return fmt.Errorf("parâmetro %s: deve ser no máximo %v", key, *prop.Maximum)
		}
	}

	if items, ok := val.([]any); ok && prop.Items != nil {
		for i, item := range items {
			if err := checkValue(fmt.Sprintf("%s[%d]", key, i), item, *prop.Items); err != nil {
				return err
			}
		}
	}
	return nil
}

func findTool(tools []Tool, name string) (Tool, bool) {
	i := slices.IndexFunc(tools, func(t Tool) bool { return t.Name == name })
	if i < 0 {
		return Tool{}, false
	}
	return tools[i], true
}
