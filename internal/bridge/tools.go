package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/reinhart/mcpdemo/internal/taskapi"
)

// TaskAPI is the backend surface the tools need. Both *taskapi.Client and
// *taskapi.Repository satisfy it.
type TaskAPI interface {
	CreateUser(ctx context.Context, in taskapi.UserCreate) (taskapi.User, error)
	ListUsers(ctx context.Context) ([]taskapi.User, error)
	GetUser(ctx context.Context, id string) (taskapi.User, error)
	ScheduleCall(ctx context.Context, in taskapi.ScheduleCallCreate) (taskapi.ScheduledCall, error)
	ListCalls(ctx context.Context, f taskapi.CallFilter) ([]taskapi.ScheduledCall, error)
	UpdateCallStatus(ctx context.Context, id string, status taskapi.CallStatus) (taskapi.ScheduledCall, error)
	CreateTask(ctx context.Context, in taskapi.TaskCreate) (taskapi.Task, error)
	ListTasks(ctx context.Context, f taskapi.TaskFilter) ([]taskapi.Task, error)
	UpdateTaskStatus(ctx context.Context, id string, status taskapi.TaskStatus) (taskapi.Task, error)
}

// RegisterTaskTools registers the nine Task API tools.
func RegisterTaskTools(r *ToolRegistry, api TaskAPI) {
	r.Register(&RegisterUserTool{API: api})
	r.Register(&ListUsersTool{API: api})
	r.Register(&GetUserTool{API: api})
	r.Register(&ScheduleCallTool{API: api})
	r.Register(&ListCallsTool{API: api})
	r.Register(&UpdateCallStatusTool{API: api})
	r.Register(&CreateTaskTool{API: api})
	r.Register(&ListTasksTool{API: api})
	r.Register(&UpdateTaskStatusTool{API: api})
}

// failure turns a backend error into the text the model sees.
func failure(action string, err error) error {
	var apiErr *taskapi.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("Failed to %s: %s", action, apiErr.Message)
	}
	return fmt.Errorf("Failed to %s: %v", action, err)
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTimestamp accepts ISO 8601 with or without a zone; zoneless values are UTC.
func parseTimestamp(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%s %q is not an ISO 8601 date or date-time", field, value)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// --- User Tools ---

type RegisterUserTool struct {
	API TaskAPI
}

type RegisterUserArgs struct {
	Name     string `json:"name" jsonschema:"description=Full name of the user"`
	Email    string `json:"email" jsonschema:"description=Email address of the user"`
	Company  string `json:"company" jsonschema:"description=Company name"`
	UserType string `json:"user_type,omitempty" jsonschema:"description=Type of user,enum=client,enum=prospect,enum=partner,default=client"`
	Notes    string `json:"notes,omitempty" jsonschema:"description=Optional notes about the user"`
}

func (t *RegisterUserTool) Definition() *mcp.Tool {
	return &mcp.Tool{
		Name: "register_user",
		Description: "Register a new user (client, prospect, or partner) in the system. " +
			"Use this when someone asks to add, register, or create a new user or client. " +
			"Returns the created user with ID and timestamps.",
		InputSchema: inputSchema(RegisterUserArgs{}),
	}
}

func (t *RegisterUserTool) Execute(ctx context.Context, raw json.RawMessage) (string, error) {
	var a RegisterUserArgs
	if err := parseArgs(raw, &a); err != nil {
		return "", err
	}
	if a.UserType == "" {
		a.UserType = string(taskapi.UserTypeClient)
	}
	if !taskapi.UserType(a.UserType).Valid() {
		return "", fmt.Errorf("user_type must be one of client, prospect, partner")
	}

	user, err := t.API.CreateUser(ctx, taskapi.UserCreate{
		Name:     a.Name,
		Email:    a.Email,
		Company:  a.Company,
		UserType: taskapi.UserType(a.UserType),
		Notes:    a.Notes,
	})
	if err != nil {
		return "", failure("register user", err)
	}
	return fmt.Sprintf("User registered successfully!\n\nID: %s\nName: %s\nEmail: %s\nCompany: %s\nType: %s",
		user.ID, user.Name, user.Email, user.Company, user.UserType), nil
}

type ListUsersTool struct {
	API TaskAPI
}

type ListUsersArgs struct{}

func (t *ListUsersTool) Definition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_users",
		Description: "List all registered users in the system. Use this to see all clients, prospects, or partners.",
		InputSchema: inputSchema(ListUsersArgs{}),
	}
}

func (t *ListUsersTool) Execute(ctx context.Context, _ json.RawMessage) (string, error) {
	users, err := t.API.ListUsers(ctx)
	if err != nil {
		return "", failure("list users", err)
	}
	if len(users) == 0 {
		return "No users found in the system.", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d user(s):\n\n", len(users))
	for _, u := range users {
		fmt.Fprintf(&b, "• %s (%s) - %s\n  ID: %s, Type: %s\n", u.Name, u.Company, u.Email, u.ID, u.UserType)
	}
	return b.String(), nil
}

type GetUserTool struct {
	API TaskAPI
}

type GetUserArgs struct {
	UserID string `json:"user_id" jsonschema:"description=The unique ID of the user"`
}

func (t *GetUserTool) Definition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_user",
		Description: "Get details of a specific user by their ID. Use this to look up information about a specific user.",
		InputSchema: inputSchema(GetUserArgs{}),
	}
}

func (t *GetUserTool) Execute(ctx context.Context, raw json.RawMessage) (string, error) {
	var a GetUserArgs
	if err := parseArgs(raw, &a); err != nil {
		return "", err
	}
	if a.UserID == "" {
		return "", fmt.Errorf("user_id is required")
	}
	u, err := t.API.GetUser(ctx, a.UserID)
	if err != nil {
		return "", failure("get user", err)
	}
	return fmt.Sprintf("User Details:\n\nName: %s\nEmail: %s\nCompany: %s\nType: %s\nID: %s\nCreated: %s",
		u.Name, u.Email, u.Company, u.UserType, u.ID, formatTime(u.CreatedAt)), nil
}

// --- Call Tools ---

type ScheduleCallTool struct {
	API TaskAPI
}

type ScheduleCallArgs struct {
	UserID          string `json:"user_id" jsonschema:"description=ID of the user to schedule the call with"`
	Title           string `json:"title" jsonschema:"description=Title or purpose of the call"`
	ScheduledFor    string `json:"scheduled_for" jsonschema:"description=Date and time for the call (ISO 8601 format)"`
	DurationMinutes int    `json:"duration_minutes,omitempty" jsonschema:"description=Duration of the call in minutes,minimum=15,maximum=240,default=30"`
	Notes           string `json:"notes,omitempty" jsonschema:"description=Optional notes for the call"`
}

func (t *ScheduleCallTool) Definition() *mcp.Tool {
	return &mcp.Tool{
		Name: "schedule_call",
		Description: "Schedule a call with a registered user. " +
			"Use this for onboarding calls, demos, check-ins, or any scheduled conversation. " +
			"Requires a valid user_id from an existing user.",
		InputSchema: inputSchema(ScheduleCallArgs{}),
	}
}

func (t *ScheduleCallTool) Execute(ctx context.Context, raw json.RawMessage) (string, error) {
	var a ScheduleCallArgs
	if err := parseArgs(raw, &a); err != nil {
		return "", err
	}
	when, err := parseTimestamp("scheduled_for", a.ScheduledFor)
	if err != nil {
		return "", err
	}
	call, err := t.API.ScheduleCall(ctx, taskapi.ScheduleCallCreate{
		UserID:          a.UserID,
		Title:           a.Title,
		ScheduledFor:    when,
		DurationMinutes: a.DurationMinutes,
		Notes:           a.Notes,
	})
	if err != nil {
		return "", failure("schedule call", err)
	}
	return fmt.Sprintf("Call scheduled successfully!\n\nID: %s\nTitle: %s\nScheduled for: %s\nDuration: %d minutes\nUser ID: %s",
		call.ID, call.Title, formatTime(call.ScheduledFor), call.DurationMinutes, call.UserID), nil
}

type ListCallsTool struct {
	API TaskAPI
}

type ListCallsArgs struct {
	UserID string `json:"user_id,omitempty" jsonschema:"description=Optional: Filter calls by user ID"`
	Status string `json:"status,omitempty" jsonschema:"description=Optional: Filter calls by status,enum=scheduled,enum=completed,enum=cancelled,enum=rescheduled,enum="`
}

func (t *ListCallsTool) Definition() *mcp.Tool {
	return &mcp.Tool{
		Name: "list_calls",
		Description: "List scheduled calls, optionally filtered by user or status. " +
			"Use this to see upcoming calls, completed calls, or calls for a specific user.",
		InputSchema: inputSchema(ListCallsArgs{}),
	}
}

func (t *ListCallsTool) Execute(ctx context.Context, raw json.RawMessage) (string, error) {
	var a ListCallsArgs
	if err := parseArgs(raw, &a); err != nil {
		return "", err
	}
	status := taskapi.CallStatus(a.Status)
	if status != "" && !status.Valid() {
		return "", fmt.Errorf("status must be one of scheduled, completed, cancelled, rescheduled")
	}
	calls, err := t.API.ListCalls(ctx, taskapi.CallFilter{UserID: a.UserID, Status: status})
	if err != nil {
		return "", failure("list calls", err)
	}
	if len(calls) == 0 {
		return "No calls found.", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d call(s):\n\n", len(calls))
	for _, c := range calls {
		fmt.Fprintf(&b, "• %s - %s\n  ID: %s, Status: %s, Duration: %dmin\n",
			c.Title, formatTime(c.ScheduledFor), c.ID, c.Status, c.DurationMinutes)
	}
	return b.String(), nil
}

type UpdateCallStatusTool struct {
	API TaskAPI
}

type UpdateCallStatusArgs struct {
	CallID string `json:"call_id" jsonschema:"description=ID of the call to update"`
	Status string `json:"status" jsonschema:"description=New status for the call,enum=scheduled,enum=completed,enum=cancelled,enum=rescheduled"`
}

func (t *UpdateCallStatusTool) Definition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "update_call_status",
		Description: "Update the status of a scheduled call. Use this to mark calls as completed, cancelled, or rescheduled.",
		InputSchema: inputSchema(UpdateCallStatusArgs{}),
	}
}

func (t *UpdateCallStatusTool) Execute(ctx context.Context, raw json.RawMessage) (string, error) {
	var a UpdateCallStatusArgs
	if err := parseArgs(raw, &a); err != nil {
		return "", err
	}
	status := taskapi.CallStatus(a.Status)
	if !status.Valid() {
		return "", fmt.Errorf("status must be one of scheduled, completed, cancelled, rescheduled")
	}
	call, err := t.API.UpdateCallStatus(ctx, a.CallID, status)
	if err != nil {
		return "", failure("update call status", err)
	}
	return fmt.Sprintf("Call status updated to '%s' for call: %s", call.Status, call.Title), nil
}

// --- Task Tools ---

type CreateTaskTool struct {
	API TaskAPI
}

type CreateTaskArgs struct {
	Title       string `json:"title" jsonschema:"description=Title of the task"`
	Description string `json:"description,omitempty" jsonschema:"description=Optional detailed description of the task"`
	UserID      string `json:"user_id,omitempty" jsonschema:"description=Optional: ID of user this task is related to"`
	DueDate     string `json:"due_date,omitempty" jsonschema:"description=Optional: Due date for the task (ISO 8601 format)"`
}

func (t *CreateTaskTool) Definition() *mcp.Tool {
	return &mcp.Tool{
		Name: "create_task",
		Description: "Create a new task. Tasks can be general or associated with a specific user. " +
			"Use this for follow-ups, action items, or any work that needs to be tracked.",
		InputSchema: inputSchema(CreateTaskArgs{}),
	}
}

func (t *CreateTaskTool) Execute(ctx context.Context, raw json.RawMessage) (string, error) {
	var a CreateTaskArgs
	if err := parseArgs(raw, &a); err != nil {
		return "", err
	}
	in := taskapi.TaskCreate{Title: a.Title, Description: a.Description, UserID: a.UserID}
	if a.DueDate != "" {
		due, err := parseTimestamp("due_date", a.DueDate)
		if err != nil {
			return "", err
		}
		in.DueDate = &due
	}
	task, err := t.API.CreateTask(ctx, in)
	if err != nil {
		return "", failure("create task", err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Task created successfully!\n\nID: %s\nTitle: %s\nStatus: %s\n", task.ID, task.Title, task.Status)
	if task.UserID != "" {
		fmt.Fprintf(&b, "User ID: %s\n", task.UserID)
	}
	if task.DueDate != nil {
		fmt.Fprintf(&b, "Due: %s\n", formatTime(*task.DueDate))
	}
	return b.String(), nil
}

type ListTasksTool struct {
	API TaskAPI
}

type ListTasksArgs struct {
	UserID string `json:"user_id,omitempty" jsonschema:"description=Optional: Filter tasks by user ID"`
	Status string `json:"status,omitempty" jsonschema:"description=Optional: Filter tasks by status,enum=todo,enum=in_progress,enum=done,enum=cancelled,enum="`
}

func (t *ListTasksTool) Definition() *mcp.Tool {
	return &mcp.Tool{
		Name: "list_tasks",
		Description: "List all tasks, optionally filtered by user or status. " +
			"Use this to see pending tasks, completed work, or tasks for a specific user.",
		InputSchema: inputSchema(ListTasksArgs{}),
	}
}

func (t *ListTasksTool) Execute(ctx context.Context, raw json.RawMessage) (string, error) {
	var a ListTasksArgs
	if err := parseArgs(raw, &a); err != nil {
		return "", err
	}
	status := taskapi.TaskStatus(a.Status)
	if status != "" && !status.Valid() {
		return "", fmt.Errorf("status must be one of todo, in_progress, done, cancelled")
	}
	tasks, err := t.API.ListTasks(ctx, taskapi.TaskFilter{UserID: a.UserID, Status: status})
	if err != nil {
		return "", failure("list tasks", err)
	}
	if len(tasks) == 0 {
		return "No tasks found.", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d task(s):\n\n", len(tasks))
	for _, task := range tasks {
		fmt.Fprintf(&b, "• %s - Status: %s\n  ID: %s\n", task.Title, task.Status, task.ID)
		if task.Description != "" {
			fmt.Fprintf(&b, "  Description: %s\n", task.Description)
		}
	}
	return b.String(), nil
}

type UpdateTaskStatusTool struct {
	API TaskAPI
}

type UpdateTaskStatusArgs struct {
	TaskID string `json:"task_id" jsonschema:"description=ID of the task to update"`
	Status string `json:"status" jsonschema:"description=New status for the task,enum=todo,enum=in_progress,enum=done,enum=cancelled"`
}

func (t *UpdateTaskStatusTool) Definition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "update_task_status",
		Description: "Update the status of a task. Use this to mark tasks as in progress, done, or cancelled.",
		InputSchema: inputSchema(UpdateTaskStatusArgs{}),
	}
}

func (t *UpdateTaskStatusTool) Execute(ctx context.Context, raw json.RawMessage) (string, error) {
	var a UpdateTaskStatusArgs
	if err := parseArgs(raw, &a); err != nil {
		return "", err
	}
	status := taskapi.TaskStatus(a.Status)
	if !status.Valid() {
		return "", fmt.Errorf("status must be one of todo, in_progress, done, cancelled")
	}
	task, err := t.API.UpdateTaskStatus(ctx, a.TaskID, status)
	if err != nil {
		return "", failure("update task status", err)
	}
	return fmt.Sprintf("Task status updated to '%s' for task: %s", task.Status, task.Title), nil
}
