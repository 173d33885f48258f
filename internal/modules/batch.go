package modules

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// maxBatchCommands bounds one batch call.
const maxBatchCommands = 10

// BatchTool is the meta tool that runs several tools as a dependency graph.
func BatchTool() Tool {
	return Tool{
		ID:   "batch",
		Name: "batch",
		Description: `Execute multiple ISMS tools in one call (JSONL, one command per line).

[Fields]
- id (required): Task identifier
- tool (required): Tool name
- module: Module name (defaults to the module exposing the tool)
- params: Parameters
- after: Dependency task ID array (waits for these to complete before executing)
- output: If true, includes the result envelope in the response

[Variable References]
${id.data.field} reads a field of a single-row result.
${id.data[N].field} reads a field of row N of a list result.

[Example]
{"id":"fw","tool":"list_frameworks","params":{"tenant_id":"..."}}
{"id":"gap","tool":"simulate_gap_report","params":{"tenant_id":"...","framework_id":"${fw.data[0].id}"},"after":["fw"],"output":true}

[Rules]
- Maximum 10 commands per batch
- No after -> parallel execution
- Circular dependency -> error
- Dependent task failure -> dependents are skipped`,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"commands": {
					Type:        "string",
					Description: "Commands in JSONL format",
				},
			},
			Required: []string{"commands"},
		},
		Annotations: AnnotateCreate,
	}
}

// BatchCommand represents a single command in batch execution
type BatchCommand struct {
	ID     string         `json:"id"`               // Task identifier (required)
	Module string         `json:"module,omitempty"` // Module name
	Tool   string         `json:"tool"`             // Tool name (required)
	Params map[string]any `json:"params,omitempty"` // Tool parameters
	After  []string       `json:"after,omitempty"`  // Dependency task IDs
	Output bool           `json:"output,omitempty"` // Include result in response
}

// BatchResponse represents the batch execution response
type BatchResponse struct {
	Results map[string]json.RawMessage `json:"results,omitempty"` // ID -> envelope (for output:true tasks)
	Errors  map[string]string          `json:"errors,omitempty"`  // ID -> error message
}

// taskState holds execution state for a task
type taskState struct {
	cmd     BatchCommand
	result  string
	err     error
	done    chan struct{}
	skipped bool
}

// Batch executes multiple tools from JSONL input with DAG-based parallel execution.
func Batch(ctx context.Context, commands string) (*ToolCallResult, error) {
	lines := strings.Split(strings.TrimSpace(commands), "\n")
	tasks := make(map[string]*taskState)
	order := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var cmd BatchCommand
		if err := json.Unmarshal([]byte(line), &cmd); err != nil {
			return errorResult(fmt.Sprintf("JSON inválido: %v", err)), nil
		}
		if cmd.ID == "" {
			return errorResult("id é obrigatório em todos os comandos"), nil
		}
		if cmd.Tool == "" {
			return errorResult(fmt.Sprintf("tool é obrigatório (tarefa %s)", cmd.ID)), nil
		}
		if _, exists := tasks[cmd.ID]; exists {
			return errorResult(fmt.Sprintf("id duplicado: %s", cmd.ID)), nil
		}
		if cmd.Module == "" {
			if m, _, ok := FindTool(cmd.Tool); ok {
				cmd.Module = m.Name()
			}
		}

		tasks[cmd.ID] = &taskState{cmd: cmd, done: make(chan struct{})}
		order = append(order, cmd.ID)
	}

	if len(order) == 0 {
		return errorResult("commands é obrigatório"), nil
	}
	if len(order) > maxBatchCommands {
		return errorResult(fmt.Sprintf("máximo de %d comandos por batch", maxBatchCommands)), nil
	}

	for _, id := range order {
		for _, dep := range tasks[id].cmd.After {
			if _, exists := tasks[dep]; !exists {
				return errorResult(fmt.Sprintf("dependência desconhecida %s na tarefa %s", dep, id)), nil
			}
		}
	}

	if cycle := detectCycle(tasks); cycle != "" {
		return errorResult(fmt.Sprintf("dependência circular: %s", cycle)), nil
	}

	var wg sync.WaitGroup
	resultStore := &sync.Map{}
	for _, id := range order {
		wg.Add(1)
		go func(taskID string) {
			defer wg.Done()
			executeTask(ctx, taskID, tasks, resultStore)
		}(id)
	}
	wg.Wait()

	response := BatchResponse{
		Results: make(map[string]json.RawMessage),
		Errors:  make(map[string]string),
	}
	for _, id := range order {
		state := tasks[id]
		switch {
		case state.err != nil:
			response.Errors[id] = state.err.Error()
		case state.skipped:
			response.Errors[id] = "ignorada por falha em dependência"
		case state.cmd.Output:
			response.Results[id] = json.RawMessage(state.result)
		}
	}

	jsonBytes, err := json.Marshal(response)
	if err != nil {
		return nil, err
	}
	return &ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: string(jsonBytes)}},
		IsError: len(response.Errors) > 0 && len(response.Errors) == len(order),
	}, nil
}

// detectCycle detects circular dependencies using DFS
func detectCycle(tasks map[string]*taskState) string {
	visited := make(map[string]int) // 0: unvisited, 1: visiting, 2: visited
	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		if visited[id] == 2 {
			return false
		}
		if visited[id] == 1 {
			cyclePath = append(cyclePath, id)
			return true
		}

		visited[id] = 1
		cyclePath = append(cyclePath, id)

		for _, dep := range tasks[id].cmd.After {
			if dfs(dep) {
				return true
			}
		}

		cyclePath = cyclePath[:len(cyclePath)-1]
		visited[id] = 2
		return false
	}

	for id := range tasks {
		cyclePath = nil
		if dfs(id) {
			return strings.Join(cyclePath, " -> ")
		}
	}
	return ""
}

// executeTask executes a single task after waiting for dependencies
func executeTask(ctx context.Context, taskID string, tasks map[string]*taskState, resultStore *sync.Map) {
	state := tasks[taskID]
	defer close(state.done)

	for _, depID := range state.cmd.After {
		depState := tasks[depID]
		<-depState.done

		if depState.err != nil || depState.skipped {
			state.skipped = true
			return
		}
	}

	resolvedParams := resolveVariables(state.cmd.Params, resultStore)

	result, err := Run(ctx, state.cmd.Module, state.cmd.Tool, resolvedParams)
	if err != nil {
		state.err = err
		return
	}

	text := result.Content[0].Text
	if result.IsError {
		msg := text
		if e, decErr := DecodeEnvelope(text); decErr == nil && e.Error != "" {
			msg = e.Error
		}
		state.err = fmt.Errorf("%s", msg)
		return
	}

	state.result = text
	resultStore.Store(taskID, text)
}

// resolveVariables replaces ${id.data[N].field} and ${id.data.field} references
func resolveVariables(params map[string]any, resultStore *sync.Map) map[string]any {
	if params == nil {
		return nil
	}

	resolved := make(map[string]any, len(params))
	for key, value := range params {
		resolved[key] = resolveValue(value, resultStore)
	}
	return resolved
}

// resolveValue recursively resolves variable references in a value
func resolveValue(value any, resultStore *sync.Map) any {
	switch v := value.(type) {
	case string:
		return resolveStringVariables(v, resultStore)
	case map[string]any:
		resolved := make(map[string]any, len(v))
		for k, val := range v {
			resolved[k] = resolveValue(val, resultStore)
		}
		return resolved
	case []any:
		resolved := make([]any, len(v))
		for i, val := range v {
			resolved[i] = resolveValue(val, resultStore)
		}
		return resolved
	default:
		return value
	}
}

// Variable reference pattern: ${taskId.data[index].field} or ${taskId.data.field}
var varRefPattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_-]*)\.data(?:\[(\d+)\])?\.([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// resolveStringVariables resolves references against stored envelopes.
// Unresolvable references are left untouched.
func resolveStringVariables(s string, resultStore *sync.Map) string {
	return varRefPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varRefPattern.FindStringSubmatch(match)
		if len(parts) != 4 {
			return match
		}
		taskID, indexStr, field := parts[1], parts[2], parts[3]

		resultVal, ok := resultStore.Load(taskID)
		if !ok {
			return match
		}
		resultStr, ok := resultVal.(string)
		if !ok {
			return match
		}

		var envelope struct {
			Data any `json:"data"`
		}
		if err := json.Unmarshal([]byte(resultStr), &envelope); err != nil {
			return match
		}

		item := envelope.Data
		if indexStr != "" {
			rows, ok := item.([]any)
			if !ok {
				return match
			}
			index, err := strconv.Atoi(indexStr)
			if err != nil || index >= len(rows) {
				return match
			}
			item = rows[index]
		}

		obj, ok := item.(map[string]any)
		if !ok {
			return match
		}
		val, ok := obj[field]
		if !ok || val == nil {
			return match
		}
		if strVal, ok := val.(string); ok {
			return strVal
		}
		return fmt.Sprintf("%v", val)
	})
}
