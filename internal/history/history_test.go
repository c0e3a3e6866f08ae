package history

import (
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/reinhart/mcpdemo/internal/assistant"
	"github.com/reinhart/mcpdemo/internal/blobstore"
)

func sampleTranscript() assistant.Transcript {
	return assistant.Transcript{
		{Role: assistant.RoleSystem, Content: "system"},
		{Role: assistant.RoleUser, Content: "list calls"},
		{Role: assistant.RoleAssistant, ToolCalls: []assistant.ToolCall{{ID: "c1", Name: "list_calls", Arguments: map[string]any{"status": "scheduled"}}}},
		{Role: assistant.RoleTool, ToolCallID: "c1", Name: "list_calls", Content: "No calls found."},
		{Role: assistant.RoleAssistant, Content: "You have no calls."},
	}
}

func storesUnderTest(t *testing.T) map[string]Store {
	fileStore, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fileStore,
		"blob":   NewBlobStore(blobstore.NewMemoryStore()),
	}
}

func TestStores(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			empty, err := store.Load(ctx, "conv-1")
			if err != nil {
				t.Fatal(err)
			}
			if len(empty) != 0 {
				t.Fatalf("new conversation has %d messages", len(empty))
			}

			if err := store.Save(ctx, "conv-1", sampleTranscript()); err != nil {
				t.Fatal(err)
			}
			got, err := store.Load(ctx, "conv-1")
			if err != nil {
				t.Fatal(err)
			}
			if want := sampleTranscript().WithoutSystem(); !reflect.DeepEqual(got, want) {
				t.Errorf("Load = %+v\nwant %+v", got, want)
			}

			if err := store.Clear(ctx, "conv-1"); err != nil {
				t.Fatal(err)
			}
			if err := store.Clear(ctx, "conv-1"); err != nil {
				t.Errorf("second Clear: %v", err)
			}
			cleared, _ := store.Load(ctx, "conv-1")
			if len(cleared) != 0 {
				t.Errorf("cleared conversation has %d messages", len(cleared))
			}

			if _, err := store.Load(ctx, "../etc/passwd"); !errors.Is(err, ErrInvalidConversationID) {
				t.Errorf("path-like id err = %v", err)
			}
		})
	}
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(context.Background(), "abc", sampleTranscript()); err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "abc.json" {
		t.Errorf("dir entries = %v", entries)
	}
	if _, err := os.Stat(filepath.Join(dir, "abc.json")); err != nil {
		t.Error(err)
	}
}

// fakeRunner replays scripted events and records the prior transcript it received.
type fakeRunner struct {
	events []assistant.Event
	prior  assistant.Transcript
}

func (f *fakeRunner) Run(_ context.Context, _, _ string, prior assistant.Transcript) iter.Seq[assistant.Event] {
	f.prior = prior
	return func(yield func(assistant.Event) bool) {
		for _, ev := range f.events {
			if !yield(ev) {
				return
			}
		}
	}
}

func successEvents(t assistant.Transcript) []assistant.Event {
	return []assistant.Event{
		{Type: assistant.EventInfo},
		{Type: assistant.EventFinalAnswer, Message: "done"},
		{Type: assistant.EventConversationSnapshot, Transcript: t},
		{Type: assistant.EventDone},
	}
}

func drain(seq iter.Seq[assistant.Event]) []assistant.Event {
	var out []assistant.Event
	for ev := range seq {
		out = append(out, ev)
	}
	return out
}

func TestConversationPersistsOnlySuccessfulRuns(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	runner := &fakeRunner{events: successEvents(sampleTranscript())}
	conv := NewConversation("", store, runner)
	if conv.ID == "" {
		t.Fatal("no conversation id generated")
	}

	events := drain(conv.Send(ctx, "list calls", ""))
	if len(events) != 4 {
		t.Fatalf("got %d events", len(events))
	}
	saved, _ := conv.Transcript(ctx)
	if len(saved) != 4 {
		t.Fatalf("saved %d messages, want 4", len(saved))
	}

	runner.events = []assistant.Event{
		{Type: assistant.EventInfo},
		{Type: assistant.EventError, Err: errors.New("boom")},
	}
	drain(conv.Send(ctx, "again", ""))
	if !reflect.DeepEqual(runner.prior, saved) {
		t.Error("second run did not receive the persisted transcript")
	}
	after, _ := conv.Transcript(ctx)
	if !reflect.DeepEqual(after, saved) {
		t.Error("failed run changed the persisted transcript")
	}

	if err := conv.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if reset, _ := conv.Transcript(ctx); len(reset) != 0 {
		t.Errorf("reset left %d messages", len(reset))
	}
}

type failingStore struct{ *MemoryStore }

func (failingStore) Save(context.Context, string, assistant.Transcript) error {
	return errors.New("disk full")
}

func TestConversationSaveFailureEndsWithError(t *testing.T) {
	conv := NewConversation("c", failingStore{NewMemoryStore()}, &fakeRunner{events: successEvents(sampleTranscript())})
	events := drain(conv.Send(context.Background(), "hi", ""))
	last := events[len(events)-1]
	if last.Type != assistant.EventError || last.Err == nil {
		t.Fatalf("last event = %+v", last)
	}
	for _, ev := range events {
		if ev.Type == assistant.EventDone {
			t.Error("done emitted after failed save")
		}
	}
}

func TestCorruptHistoryIsRejected(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	orphan := `{"conversation_id":"edited","messages":[
		{"role":"user","content":"list calls"},
		{"role":"tool","tool_call_id":"c9","name":"list_calls","content":"No calls found."}
	]}`
	if err := os.WriteFile(filepath.Join(dir, "edited.json"), []byte(orphan), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Load(ctx, "edited"); err == nil || !strings.Contains(err.Error(), "no preceding tool call") {
		t.Fatalf("Load err = %v", err)
	}

	conv := NewConversation("edited", store, &fakeRunner{events: successEvents(sampleTranscript())})
	events := drain(conv.Send(ctx, "hi", ""))
	if len(events) != 1 || events[0].Type != assistant.EventError {
		t.Fatalf("events = %+v, want single error", events)
	}
	if !strings.Contains(events[0].Message, "corrupt") {
		t.Errorf("error does not name the cause: %q", events[0].Message)
	}
}
