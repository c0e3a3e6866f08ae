package assistant

import "testing"

func TestTranscriptValidate(t *testing.T) {
	calls := []ToolCall{{ID: "a", Name: "x"}, {ID: "b", Name: "y"}}
	tests := []struct {
		name    string
		t       Transcript
		wantErr bool
	}{
		{"empty", nil, false},
		{"correlated", Transcript{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, ToolCalls: calls},
			{Role: RoleTool, ToolCallID: "a"},
			{Role: RoleTool, ToolCallID: "b"},
			{Role: RoleAssistant, Content: "done"},
		}, false},
		{"out of order", Transcript{
			{Role: RoleAssistant, ToolCalls: calls},
			{Role: RoleTool, ToolCallID: "b"},
			{Role: RoleTool, ToolCallID: "a"},
		}, true},
		{"missing result", Transcript{
			{Role: RoleAssistant, ToolCalls: calls},
			{Role: RoleTool, ToolCallID: "a"},
		}, true},
		{"orphan result", Transcript{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleTool, ToolCallID: "a"},
		}, true},
		{"unknown role", Transcript{{Role: "critic"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.t.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTranscriptCloneIsDeep(t *testing.T) {
	orig := Transcript{{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "a", Arguments: map[string]any{"nested": map[string]any{"k": "v"}}}}}}
	clone := orig.Clone()
	clone[0].ToolCalls[0].Arguments["nested"].(map[string]any)["k"] = "changed"
	if orig[0].ToolCalls[0].Arguments["nested"].(map[string]any)["k"] != "v" {
		t.Error("clone shares argument maps with the original")
	}
}

func TestWithoutSystem(t *testing.T) {
	in := Transcript{{Role: RoleSystem, Content: "s"}, {Role: RoleUser, Content: "u"}, {Role: RoleSystem, Content: "s2"}}
	out := in.WithoutSystem()
	if len(out) != 1 || out[0].Role != RoleUser {
		t.Errorf("WithoutSystem() = %+v", out)
	}
}
