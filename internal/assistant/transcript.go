package assistant

import "fmt"

// Transcript is the ordered message history of one conversation.
type Transcript []Message

// Clone returns a deep copy of the transcript.
func (t Transcript) Clone() Transcript {
	if t == nil {
		return nil
	}
	out := make(Transcript, len(t))
	for i := range t {
		out[i] = CloneMessage(t[i])
	}
	return out
}

// WithoutSystem returns a copy with every system message removed. The loop
// inserts a fresh system message per run, so persisted history never keeps one.
func (t Transcript) WithoutSystem() Transcript {
	out := make(Transcript, 0, len(t))
	for _, m := range t {
		if m.Role == RoleSystem {
			continue
		}
		out = append(out, CloneMessage(m))
	}
	return out
}

// Validate checks the tool-call correlation invariant: every assistant message
// that requests tools is followed by exactly one tool result per call, in call
// order, and no tool result appears without a matching preceding request.
func (t Transcript) Validate() error {
	for i := 0; i < len(t); i++ {
		m := t[i]
		if !m.Role.Valid() {
			return &UnsupportedRoleError{Role: m.Role}
		}
		switch m.Role {
		case RoleTool:
			return fmt.Errorf("message %d: tool result %q has no preceding tool call", i, m.ToolCallID)
		case RoleAssistant:
			for j, call := range m.ToolCalls {
				k := i + 1 + j
				if k >= len(t) {
					return fmt.Errorf("message %d: tool call %q has no result", i, call.ID)
				}
				result := t[k]
				if result.Role != RoleTool {
					return fmt.Errorf("message %d: expected tool result for %q, got %s message", k, call.ID, result.Role)
				}
				if result.ToolCallID != call.ID {
					return fmt.Errorf("message %d: tool result %q out of order, expected %q", k, result.ToolCallID, call.ID)
				}
			}
			i += len(m.ToolCalls)
		}
	}
	return nil
}
