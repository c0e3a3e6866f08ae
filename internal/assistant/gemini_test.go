package assistant

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestToGeminiSchema(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"status":   map[string]any{"type": "string", "enum": []any{"scheduled", "completed"}},
			"duration": map[string]any{"type": "integer", "description": "minutes"},
			"tags":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []any{"status"},
	}

	out := toGeminiSchema(schema)
	if out.Type != genai.TypeObject || len(out.Properties) != 3 {
		t.Fatalf("unexpected schema %+v", out)
	}
	if s := out.Properties["status"]; s.Type != genai.TypeString || len(s.Enum) != 2 {
		t.Errorf("status = %+v", s)
	}
	if d := out.Properties["duration"]; d.Type != genai.TypeInteger || d.Description != "minutes" {
		t.Errorf("duration = %+v", d)
	}
	if tags := out.Properties["tags"]; tags.Type != genai.TypeArray || tags.Items == nil || tags.Items.Type != genai.TypeString {
		t.Errorf("tags = %+v", tags)
	}
	if len(out.Required) != 1 || out.Required[0] != "status" {
		t.Errorf("required = %v", out.Required)
	}
}

func TestToGeminiContents(t *testing.T) {
	transcript := Transcript{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "list calls"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Name: "list_calls"}}},
		{Role: RoleTool, ToolCallID: "c1", Content: "no calls"},
	}
	system, history, err := toGeminiContents(transcript)
	if err != nil {
		t.Fatal(err)
	}
	if system == nil || len(system.Parts) != 1 {
		t.Fatalf("system = %+v", system)
	}
	if len(history) != 3 {
		t.Fatalf("history has %d entries", len(history))
	}
	if history[1].Role != "model" || history[2].Role != "user" {
		t.Errorf("roles = %s, %s", history[1].Role, history[2].Role)
	}
	resp, ok := history[2].Parts[0].(genai.FunctionResponse)
	if !ok {
		t.Fatalf("part = %T", history[2].Parts[0])
	}
	if resp.Name != "list_calls" || resp.Response["result"] != "no calls" {
		t.Errorf("function response = %+v", resp)
	}
}

func TestFromGeminiResponseSynthesizesIDs(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: "model", Parts: []genai.Part{
			genai.FunctionCall{Name: "list_calls", Args: map[string]any{}},
			genai.FunctionCall{Name: "list_tasks", Args: map[string]any{"status": "todo"}},
		}},
	}}}

	msg, err := fromGeminiResponse(resp)
	if err != nil {
		t.Fatal(err)
	}
	if len(msg.ToolCalls) != 2 {
		t.Fatalf("got %d calls", len(msg.ToolCalls))
	}
	if msg.ToolCalls[0].ID == "" || msg.ToolCalls[0].ID == msg.ToolCalls[1].ID {
		t.Errorf("call ids not unique: %q %q", msg.ToolCalls[0].ID, msg.ToolCalls[1].ID)
	}
	if msg.ToolCalls[1].Arguments["status"] != "todo" {
		t.Errorf("arguments = %v", msg.ToolCalls[1].Arguments)
	}
}
