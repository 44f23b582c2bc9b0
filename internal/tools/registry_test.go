package tools

import (
	"context"
	"fmt"
	"testing"
)

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	tool := &Tool{
		Name:        "test_tool",
		Description: "a test tool",
		Parameters:  map[string]any{"type": "object"},
		Execute: func(_ context.Context, _ map[string]any) (any, error) {
			return "ok", nil
		},
	}

	if err := r.Register(tool); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(tool); err == nil {
		t.Error("duplicate registration should fail")
	}
	if err := r.Register(&Tool{Name: ""}); err == nil {
		t.Error("empty name should fail")
	}
	if err := r.Register(&Tool{Name: "no_exec"}); err == nil {
		t.Error("missing Execute should fail")
	}
	if r.Count() != 1 {
		t.Errorf("Count = %d, want 1", r.Count())
	}
}

func TestRegistrySchemas(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"alpha", "beta", "gamma"} {
		n := name
		r.Register(&Tool{
			Name:        n,
			Description: "tool " + n,
			Parameters:  map[string]any{"type": "object"},
			Execute:     func(_ context.Context, _ map[string]any) (any, error) { return n, nil },
		})
	}

	schemas := r.Schemas()
	if len(schemas) != 3 {
		t.Fatalf("schemas = %d, want 3", len(schemas))
	}

	// Registration order must be stable for prompt cache hits.
	for i, want := range []string{"alpha", "beta", "gamma"} {
		fn := schemas[i]["function"].(map[string]any)
		if fn["name"] != want {
			t.Errorf("schemas[%d] = %v, want %s", i, fn["name"], want)
		}
		if schemas[i]["type"] != "function" {
			t.Errorf("schemas[%d] type = %v", i, schemas[i]["type"])
		}
	}
}

func TestRegistryExecute(t *testing.T) {
	r := NewRegistry()
	r.Register(&Tool{
		Name:        "echo",
		Description: "echoes input",
		Parameters:  map[string]any{"type": "object"},
		Execute: func(_ context.Context, args map[string]any) (any, error) {
			return args["msg"], nil
		},
	})
	r.Register(&Tool{
		Name:        "fail",
		Description: "always fails",
		Parameters:  map[string]any{"type": "object"},
		Execute: func(_ context.Context, _ map[string]any) (any, error) {
			return nil, fmt.Errorf("boom")
		},
	})

	t.Run("success", func(t *testing.T) {
		outcome := r.Execute(context.Background(), "echo", map[string]any{"msg": "hi"})
		if !outcome.Success || outcome.Result != "hi" {
			t.Errorf("outcome = %+v", outcome)
		}
	})

	t.Run("tool error becomes failure outcome", func(t *testing.T) {
		outcome := r.Execute(context.Background(), "fail", nil)
		if outcome.Success || outcome.Error != "boom" {
			t.Errorf("outcome = %+v", outcome)
		}
	})

	t.Run("unknown tool", func(t *testing.T) {
		outcome := r.Execute(context.Background(), "nope", nil)
		if outcome.Success || outcome.Error != "Unknown tool: nope" {
			t.Errorf("outcome = %+v", outcome)
		}
	})
}
