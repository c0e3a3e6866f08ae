package assistant

import (
	"context"
)

// Role represents the role of a message sender
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the four transcript roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	default:
		return false
	}
}

// Message represents a single message in the conversation
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	Name       string     `json:"name,omitempty"` // tool name on tool results
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall represents a request from the LLM to execute a tool. Arguments are
// always decoded; adapters never hand encoded JSON strings to the rest of the system.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolDefinition defines a tool that can be used by the LLM
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"` // JSON Schema
}

// LLMProvider is the chat client facade: one transcript in, one assistant message out.
type LLMProvider interface {
	// Generate issues exactly one backend call. Failures are returned as *GenerationError.
	Generate(ctx context.Context, transcript Transcript, tools []ToolDefinition) (Message, error)
}

// CloneToolCall returns a deep copy of the call.
func CloneToolCall(in ToolCall) ToolCall {
	out := in
	out.Arguments = cloneArguments(in.Arguments)
	return out
}

// CloneMessage returns a deep copy suitable for handing across component boundaries.
func CloneMessage(in Message) Message {
	out := in
	if len(in.ToolCalls) > 0 {
		out.ToolCalls = make([]ToolCall, len(in.ToolCalls))
		for i := range in.ToolCalls {
			out.ToolCalls[i] = CloneToolCall(in.ToolCalls[i])
		}
	} else {
		out.ToolCalls = nil
	}
	return out
}

func cloneArguments(in map[string]any) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	return deepCopyMap(in)
}

func deepCopyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = deepCopyValue(t[i])
		}
		return out
	default:
		return v
	}
}
