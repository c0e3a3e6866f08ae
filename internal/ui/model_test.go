package ui

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/reinhart/mcpdemo/internal/assistant"
	"github.com/reinhart/mcpdemo/internal/history"
)

type scriptedRunner struct {
	events   []assistant.Event
	scenario string
}

func (r *scriptedRunner) Run(_ context.Context, _, scenarioContext string, _ assistant.Transcript) iter.Seq[assistant.Event] {
	r.scenario = scenarioContext
	return func(yield func(assistant.Event) bool) {
		for _, ev := range r.events {
			if !yield(ev) {
				return
			}
		}
	}
}

func callScenarioEvents() []assistant.Event {
	transcript := assistant.Transcript{
		{Role: assistant.RoleUser, Content: "List pending calls"},
		{Role: assistant.RoleAssistant, Content: "One call is pending."},
	}
	return []assistant.Event{
		{Type: assistant.EventInfo, Message: "Connected to MCP server with 9 tools"},
		{Type: assistant.EventLLMStart, Round: 1},
		{Type: assistant.EventToolCallRequested, Round: 1, ToolName: "update_call_status", ToolCallID: "c1",
			Arguments: map[string]any{"call_id": "abc", "status": "completed"}},
		{Type: assistant.EventToolResult, Round: 1, ToolName: "update_call_status", ToolCallID: "c1", Message: "Call abc updated"},
		{Type: assistant.EventLLMStart, Round: 2},
		{Type: assistant.EventFinalAnswer, Round: 2, Message: "One call is pending."},
		{Type: assistant.EventConversationSnapshot, Round: 2, Transcript: transcript},
		{Type: assistant.EventDone, Round: 2},
	}
}

func newTestModel(t *testing.T, runner history.Runner, store history.Store) Model {
	t.Helper()
	m := NewModel(history.NewConversation("ui-test", store, runner), Options{})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model)
}

// drain feeds every message produced by cmd back into the model until the run finishes.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for i := 0; i < 100; i++ {
		msg := cmd()
		updated, next := m.Update(msg)
		m = updated.(Model)
		if _, ok := msg.(runFinishedMsg); ok {
			return m
		}
		cmd = next
	}
	t.Fatal("run never finished")
	return m
}

func TestScenarioSelection(t *testing.T) {
	m := newTestModel(t, &scriptedRunner{}, history.NewMemoryStore())

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	if m.Scenario().Title != Scenarios[1].Title {
		t.Fatalf("scenario = %q", m.Scenario().Title)
	}
	if m.textarea.Value() != Scenarios[1].Prompt {
		t.Errorf("prompt not loaded: %q", m.textarea.Value())
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m = updated.(Model)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m = updated.(Model)
	if m.Scenario().Title != Scenarios[len(Scenarios)-1].Title {
		t.Errorf("shift+tab did not wrap: %q", m.Scenario().Title)
	}
}

func TestRunRendersEventsAndPersists(t *testing.T) {
	runner := &scriptedRunner{events: callScenarioEvents()}
	store := history.NewMemoryStore()
	m := newTestModel(t, runner, store)
	m.scenario = 2

	m, cmd := m.submit("List pending calls")
	if m.state != StateThinking {
		t.Fatal("model not thinking after submit")
	}
	m = drain(t, m, cmd)

	if m.state != StateReady {
		t.Error("model not ready after run")
	}
	if runner.scenario != Scenarios[2].Context {
		t.Errorf("scenario context = %q", runner.scenario)
	}

	view := strings.Join(m.blocks, "\n")
	for _, want := range []string{"List pending calls", "→ update_call_status", `"status": "completed"`, "Call abc updated", "One call is pending."} {
		if !strings.Contains(view, want) {
			t.Errorf("chat view missing %q", want)
		}
	}

	saved, err := store.Load(context.Background(), "ui-test")
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 2 {
		t.Errorf("saved %d messages, want 2", len(saved))
	}
}

func TestRunErrorIsShown(t *testing.T) {
	runner := &scriptedRunner{events: []assistant.Event{
		{Type: assistant.EventLLMStart, Round: 1},
		{Type: assistant.EventError, Round: 1, Message: "model unavailable", Err: errors.New("model unavailable")},
	}}
	m := newTestModel(t, runner, history.NewMemoryStore())

	m, cmd := m.submit("hello")
	m = drain(t, m, cmd)

	if !strings.Contains(strings.Join(m.blocks, "\n"), "Error: model unavailable") {
		t.Error("error event not rendered")
	}
}

func TestResetClearsMemory(t *testing.T) {
	store := history.NewMemoryStore()
	m := newTestModel(t, &scriptedRunner{events: callScenarioEvents()}, store)

	m, cmd := m.submit("List pending calls")
	m = drain(t, m, cmd)

	updated, _ := m.Update(m.reset()())
	m = updated.(Model)

	saved, err := store.Load(context.Background(), "ui-test")
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 0 {
		t.Errorf("history not cleared: %d messages", len(saved))
	}
	if len(m.blocks) != 2 || !strings.Contains(m.blocks[1], "cleared") {
		t.Errorf("blocks after reset = %q", m.blocks)
	}
}

// chattyRunner streams info events until the consumer stops reading.
type chattyRunner struct{}

func (chattyRunner) Run(context.Context, string, string, assistant.Transcript) iter.Seq[assistant.Event] {
	return func(yield func(assistant.Event) bool) {
		for {
			if !yield(assistant.Event{Type: assistant.EventInfo, Message: "still working"}) {
				return
			}
		}
	}
}

func TestQuitMidRunReleasesConversation(t *testing.T) {
	conv := history.NewConversation("ui-quit", history.NewMemoryStore(), chattyRunner{})
	m := NewModel(conv, Options{})

	m, cmd := m.submit("hello")
	if _, ok := cmd().(eventMsg); !ok {
		t.Fatal("first event not delivered")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	// Transcript waits on the conversation lock, which the run holds until
	// its goroutine stops sending.
	released := make(chan struct{})
	go func() {
		defer close(released)
		if _, err := conv.Transcript(context.Background()); err != nil {
			t.Error(err)
		}
	}()
	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("run goroutine still blocked after quit")
	}
}
