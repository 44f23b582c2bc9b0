package tools

import (
	"context"
	"fmt"
	"log"
	"sync"

	"epicgpt/internal/ai"
)

// ExecuteFunc is the function signature for tool execution
type ExecuteFunc func(ctx context.Context, args map[string]any) (any, error)

// Tool represents a callable tool with its schema and execution function
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Execute     ExecuteFunc
}

// Registry manages the declared tool set. Registration order is preserved so
// the schema list is stable across calls, which keeps the provider-side
// prompt cache warm.
type Registry struct {
	tools map[string]*Tool
	order []string
	mutex sync.RWMutex
}

// NewRegistry creates an empty tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
	}
}

// Register adds a new tool to the registry
func (r *Registry) Register(tool *Tool) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if tool.Execute == nil {
		return fmt.Errorf("tool %s must have an Execute function", tool.Name)
	}
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool %s is already registered", tool.Name)
	}

	r.tools[tool.Name] = tool
	r.order = append(r.order, tool.Name)
	return nil
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	tool, exists := r.tools[name]
	return tool, exists
}

// Schemas returns all registered tools in OpenAI tool format, in
// registration order.
func (r *Registry) Schemas() []map[string]any {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	schemas := make([]map[string]any, 0, len(r.order))
	for _, name := range r.order {
		tool := r.tools[name]
		schemas = append(schemas, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        tool.Name,
				"description": tool.Description,
				"parameters":  tool.Parameters,
			},
		})
	}
	return schemas
}

// Execute runs a tool by name. Errors never propagate as Go errors to the
// conversation loop; they become structured failure outcomes the model can
// read and recover from.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) ai.ToolOutcome {
	tool, exists := r.Get(name)
	if !exists {
		return ai.ToolOutcome{Success: false, Error: fmt.Sprintf("Unknown tool: %s", name)}
	}

	result, err := tool.Execute(ctx, args)
	if err != nil {
		log.Printf("⚠️  [TOOL] %s failed: %v", name, err)
		return ai.ToolOutcome{Success: false, Error: err.Error()}
	}
	return ai.ToolOutcome{Success: true, Result: result}
}

// Count returns the number of registered tools
func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.tools)
}
