package assistant

// EventType tags an orchestration event.
type EventType string

const (
	EventInfo                 EventType = "info"
	EventLLMStart             EventType = "llm_start"
	EventLLMStreamChunk       EventType = "llm_stream_chunk"
	EventToolCallRequested    EventType = "tool_call_requested"
	EventToolResult           EventType = "tool_result"
	EventFinalAnswer          EventType = "final_answer"
	EventConversationSnapshot EventType = "conversation_snapshot"
	EventError                EventType = "error"
	EventDone                 EventType = "done"
)

// Event is one observable step of a run. Events are for display and
// persistence only; the loop never reads them back.
type Event struct {
	Type  EventType
	Round int

	// Message is the human readable payload: info text, streamed text,
	// tool result text, the final answer or the error message.
	Message string

	// Set on tool_call_requested and tool_result.
	ToolName   string
	ToolCallID string
	Arguments  map[string]any

	// Set on conversation_snapshot only.
	Transcript Transcript

	// Set on error only.
	Err error
}

// Terminal reports whether no further events follow this one.
func (e Event) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}
