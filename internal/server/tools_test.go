package server

import (
	"context"
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	if len(tools) == 0 {
		t.Fatal("GetToolDefinitions returned empty slice")
	}

	expectedTools := []string{
		"ppm_info",
		"ppm_preview",
		"ppm_greyscale",
		"ppm_sobel",
		"ppm_compare",
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		if _, dup := toolMap[tool.Name]; dup {
			t.Errorf("Duplicate tool %s", tool.Name)
		}
		toolMap[tool.Name] = tool
	}

	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
	if len(tools) != len(expectedTools) {
		t.Errorf("got %d tools, want %d", len(tools), len(expectedTools))
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want object", tool.InputSchema["type"])
			}

			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema should have properties")
			}

			required, ok := tool.InputSchema["required"].([]string)
			if !ok {
				t.Fatal("InputSchema should have required list")
			}
			// Every required field must be a declared property
			for _, name := range required {
				if _, ok := props[name]; !ok {
					t.Errorf("required field %s is not a property", name)
				}
			}
		})
	}
}

func TestToolDefinitions_HandlersExist(t *testing.T) {
	s := New()
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			// Invalid JSON arguments reach the handler's unmarshal, never the
			// unknown-tool branch.
			_, err := s.executeTool(context.Background(), tool.Name, []byte("{"))
			if err == nil {
				t.Fatal("expected error for malformed arguments")
			}
			if err.Error() == "unknown tool: "+tool.Name {
				t.Errorf("tool %s has no handler", tool.Name)
			}
		})
	}
}
