package taskapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/reinhart/mcpdemo/internal/blobstore"
)

const testAPIKey = "test-key"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(NewRepository(blobstore.NewMemoryStore()), testAPIKey))
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthNeedsNoKey(t *testing.T) {
	srv := newTestServer(t)
	h, err := NewClient(srv.URL, "").Health(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if h.Status != "healthy" || h.Version != Version {
		t.Errorf("health = %+v", h)
	}
}

func TestRejectsBadAPIKey(t *testing.T) {
	srv := newTestServer(t)
	for _, key := range []string{"", "wrong"} {
		_, err := NewClient(srv.URL, key).ListUsers(context.Background())
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusForbidden || apiErr.Message != "Invalid API key" {
			t.Errorf("key %q: err = %v", key, err)
		}
	}
}

func TestEndToEndThroughClient(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	client := NewClient(srv.URL+"/", testAPIKey)

	user, err := client.CreateUser(ctx, UserCreate{Name: "Ada", Email: "ada@example.com", Company: "AE", UserType: UserTypeProspect})
	if err != nil {
		t.Fatal(err)
	}
	if user.ID == "" || user.UserType != UserTypeProspect {
		t.Fatalf("created user = %+v", user)
	}

	fetched, err := client.GetUser(ctx, user.ID)
	if err != nil || fetched.Email != "ada@example.com" {
		t.Fatalf("GetUser = %+v, %v", fetched, err)
	}

	call, err := client.ScheduleCall(ctx, ScheduleCallCreate{
		UserID:       user.ID,
		Title:        "Onboarding",
		ScheduledFor: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	updated, err := client.UpdateCallStatus(ctx, call.ID, CallCompleted)
	if err != nil || updated.Status != CallCompleted {
		t.Fatalf("UpdateCallStatus = %+v, %v", updated, err)
	}
	completed, err := client.ListCalls(ctx, CallFilter{Status: CallCompleted})
	if err != nil || len(completed) != 1 {
		t.Fatalf("ListCalls = %+v, %v", completed, err)
	}

	task, err := client.CreateTask(ctx, TaskCreate{Title: "Send welcome pack", UserID: user.ID})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.UpdateTaskStatus(ctx, task.ID, TaskDone); err != nil {
		t.Fatal(err)
	}
	tasks, err := client.ListTasks(ctx, TaskFilter{UserID: user.ID})
	if err != nil || len(tasks) != 1 || tasks[0].Status != TaskDone {
		t.Fatalf("ListTasks = %+v, %v", tasks, err)
	}
}

func TestErrorStatuses(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	client := NewClient(srv.URL, testAPIKey)

	tests := []struct {
		name   string
		call   func() error
		status int
	}{
		{"unknown user", func() error { _, err := client.GetUser(ctx, "missing"); return err }, http.StatusNotFound},
		{"call for unknown user", func() error {
			_, err := client.ScheduleCall(ctx, ScheduleCallCreate{UserID: "missing", Title: "x", ScheduledFor: time.Now()})
			return err
		}, http.StatusNotFound},
		{"invalid email", func() error {
			_, err := client.CreateUser(ctx, UserCreate{Name: "x", Email: "nope", Company: "y"})
			return err
		}, http.StatusUnprocessableEntity},
		{"invalid status", func() error { _, err := client.UpdateTaskStatus(ctx, "any", "finished"); return err }, http.StatusUnprocessableEntity},
		{"invalid filter", func() error { _, err := client.ListCalls(ctx, CallFilter{Status: "soon"}); return err }, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var apiErr *APIError
			if err := tt.call(); !errors.As(err, &apiErr) || apiErr.StatusCode != tt.status {
				t.Fatalf("err = %v, want status %d", err, tt.status)
			}
			if apiErr.Message == "" {
				t.Error("error message missing")
			}
		})
	}
}

func TestErrorBodyShape(t *testing.T) {
	srv := newTestServer(t)
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/users/missing", nil)
	req.Header.Set(APIKeyHeader, testAPIKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if got := strings.TrimSpace(string(body)); got != `{"success":false,"message":"User missing not found"}` {
		t.Errorf("body = %s", got)
	}
}

func TestRejectsUnknownFields(t *testing.T) {
	srv := newTestServer(t)
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/tasks", strings.NewReader(`{"title":"x","priority":"high"}`))
	req.Header.Set(APIKeyHeader, testAPIKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
