package bridge

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/reinhart/mcpdemo/internal/blobstore"
	"github.com/reinhart/mcpdemo/internal/taskapi"
)

// connect starts the bridge in memory in front of a real Task API over httptest.
func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	api := httptest.NewServer(taskapi.NewRouter(taskapi.NewRepository(blobstore.NewMemoryStore()), "secret"))
	t.Cleanup(api.Close)

	server := NewServer(taskapi.NewClient(api.URL, "secret"), "test")
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func callText(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if len(res.Content) == 0 {
		t.Fatalf("CallTool(%s): empty content", name)
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): content %T", name, res.Content[0])
	}
	return text.Text, res.IsError
}

func extractID(t *testing.T, text string) string {
	t.Helper()
	for _, line := range strings.Split(text, "\n") {
		if id, ok := strings.CutPrefix(line, "ID: "); ok {
			return strings.TrimSpace(id)
		}
	}
	t.Fatalf("no ID line in %q", text)
	return ""
}

func TestListsNineTools(t *testing.T) {
	session := connect(t)
	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"create_task", "get_user", "list_calls", "list_tasks", "list_users",
		"register_user", "schedule_call", "update_call_status", "update_task_status",
	}
	var got []string
	for _, tool := range res.Tools {
		got = append(got, tool.Name)
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("tools = %v, want %v", got, want)
	}
}

func TestOnboardingScenario(t *testing.T) {
	session := connect(t)

	text, isErr := callText(t, session, "register_user", map[string]any{
		"name": "Ada Lovelace", "email": "ada@example.com", "company": "Analytical Engines",
	})
	if isErr || !strings.Contains(text, "Type: client") {
		t.Fatalf("register_user = %q (error=%v)", text, isErr)
	}
	userID := extractID(t, text)

	text, isErr = callText(t, session, "schedule_call", map[string]any{
		"user_id": userID, "title": "Onboarding", "scheduled_for": "2025-03-01T15:00:00",
	})
	if isErr || !strings.Contains(text, "Duration: 30 minutes") || !strings.Contains(text, "2025-03-01T15:00:00Z") {
		t.Fatalf("schedule_call = %q (error=%v)", text, isErr)
	}
	callID := extractID(t, text)

	text, _ = callText(t, session, "list_calls", map[string]any{"status": "scheduled"})
	if !strings.HasPrefix(text, "Found 1 call(s)") {
		t.Errorf("list_calls = %q", text)
	}

	text, isErr = callText(t, session, "update_call_status", map[string]any{"call_id": callID, "status": "completed"})
	if isErr || text != "Call status updated to 'completed' for call: Onboarding" {
		t.Errorf("update_call_status = %q", text)
	}

	text, _ = callText(t, session, "create_task", map[string]any{"title": "Send welcome pack", "user_id": userID, "due_date": "2025-03-05"})
	taskID := extractID(t, text)
	text, _ = callText(t, session, "update_task_status", map[string]any{"task_id": taskID, "status": "in_progress"})
	if text != "Task status updated to 'in_progress' for task: Send welcome pack" {
		t.Errorf("update_task_status = %q", text)
	}

	text, _ = callText(t, session, "list_tasks", nil)
	if !strings.HasPrefix(text, "Found 1 task(s)") {
		t.Errorf("list_tasks = %q", text)
	}
	text, _ = callText(t, session, "list_users", nil)
	if !strings.Contains(text, "Ada Lovelace (Analytical Engines)") {
		t.Errorf("list_users = %q", text)
	}
}

func TestToolErrors(t *testing.T) {
	session := connect(t)

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{"unknown user", "get_user", map[string]any{"user_id": "ghost"}, "Failed to get user: User ghost not found"},
		{"bad enum", "update_call_status", map[string]any{"call_id": "x", "status": "done"}, "status must be one of"},
		{"bad date", "schedule_call", map[string]any{"user_id": "x", "title": "t", "scheduled_for": "tomorrow"}, "not an ISO 8601"},
		{"api validation", "register_user", map[string]any{"name": "A", "email": "nope", "company": "C"}, "Failed to register user: validation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := callText(t, session, tt.tool, tt.args)
			if !isErr {
				t.Fatalf("expected tool error, got %q", text)
			}
			if !strings.Contains(text, tt.want) {
				t.Errorf("error text = %q, want it to contain %q", text, tt.want)
			}
		})
	}

	text, isErr := callText(t, session, "list_calls", nil)
	if isErr || text != "No calls found." {
		t.Errorf("empty list_calls = %q", text)
	}
}

func TestInputSchema(t *testing.T) {
	schema := inputSchema(UpdateCallStatusArgs{})
	if schema["type"] != "object" {
		t.Fatalf("schema type = %v", schema["type"])
	}
	if _, ok := schema["$schema"]; ok {
		t.Error("$schema not stripped")
	}
	props, _ := schema["properties"].(map[string]any)
	status, _ := props["status"].(map[string]any)
	if enum, _ := status["enum"].([]any); len(enum) != 4 {
		t.Errorf("status enum = %v", status["enum"])
	}
	required, _ := schema["required"].([]any)
	if len(required) != 2 {
		t.Errorf("required = %v", required)
	}

	empty := inputSchema(ListUsersArgs{})
	if _, ok := empty["properties"].(map[string]any); !ok {
		t.Errorf("empty args schema = %v", empty)
	}
}

func TestRegistryLookup(t *testing.T) {
	registry := NewToolRegistry()
	RegisterTaskTools(registry, nil)

	tool, ok := registry.Get("schedule_call")
	if !ok || tool.Definition().Name != "schedule_call" {
		t.Fatalf("Get(schedule_call) = %v, %v", tool, ok)
	}
	if _, ok := registry.Get("delete_everything"); ok {
		t.Error("unknown tool found")
	}
	if defs := registry.Definitions(); len(defs) != 9 || defs[0].Name != "create_task" {
		t.Errorf("definitions = %d, first %q", len(defs), defs[0].Name)
	}
}
