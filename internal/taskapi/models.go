// Package taskapi is the CRUD backend the MCP bridge proxies to: users,
// scheduled calls and tasks stored as JSON blobs.
package taskapi

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

type UserType string

const (
	UserTypeClient   UserType = "client"
	UserTypeProspect UserType = "prospect"
	UserTypePartner  UserType = "partner"
)

func (t UserType) Valid() bool {
	switch t {
	case UserTypeClient, UserTypeProspect, UserTypePartner:
		return true
	}
	return false
}

type CallStatus string

const (
	CallScheduled   CallStatus = "scheduled"
	CallCompleted   CallStatus = "completed"
	CallCancelled   CallStatus = "cancelled"
	CallRescheduled CallStatus = "rescheduled"
)

func (s CallStatus) Valid() bool {
	switch s {
	case CallScheduled, CallCompleted, CallCancelled, CallRescheduled:
		return true
	}
	return false
}

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskCancelled  TaskStatus = "cancelled"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskDone, TaskCancelled:
		return true
	}
	return false
}

// Entity kinds double as storage prefixes.
const (
	KindUsers = "users"
	KindCalls = "calls"
	KindTasks = "tasks"
)

const DefaultCallDuration = 30

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company"`
	UserType  UserType  `json:"user_type"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserCreate struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Company  string   `json:"company"`
	UserType UserType `json:"user_type,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

type ScheduledCall struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Title           string     `json:"title"`
	ScheduledFor    time.Time  `json:"scheduled_for"`
	DurationMinutes int        `json:"duration_minutes"`
	Notes           string     `json:"notes,omitempty"`
	Status          CallStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type ScheduleCallCreate struct {
	UserID          string    `json:"user_id"`
	Title           string    `json:"title"`
	ScheduledFor    time.Time `json:"scheduled_for"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	Notes           string    `json:"notes,omitempty"`
}

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	UserID      string     `json:"user_id,omitempty"`
	Status      TaskStatus `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type TaskCreate struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	UserID      string     `json:"user_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// Health is the unauthenticated liveness payload.
type Health struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// ValidationError lists every field problem found in a request body.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

type validator struct {
	problems []string
}

func (v *validator) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) length(field, value string, min, max int) {
	n := utf8.RuneCountInString(value)
	if n < min || n > max {
		if min > 0 {
			v.addf("%s must be between %d and %d characters", field, min, max)
		} else {
			v.addf("%s must be at most %d characters", field, max)
		}
	}
}

func (v *validator) err() error {
	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: v.problems}
}

// Normalize fills defaults and validates the request.
func (u *UserCreate) Normalize() error {
	u.Name = strings.TrimSpace(u.Name)
	u.Company = strings.TrimSpace(u.Company)
	u.Email = strings.TrimSpace(u.Email)
	if u.UserType == "" {
		u.UserType = UserTypeClient
	}

	var v validator
	v.length("name", u.Name, 1, 100)
	v.length("company", u.Company, 1, 100)
	v.length("notes", u.Notes, 0, 500)
	if addr, err := mail.ParseAddress(u.Email); err != nil || addr.Address != u.Email {
		v.addf("email %q is not a valid address", u.Email)
	}
	if !u.UserType.Valid() {
		v.addf("user_type %q must be one of client, prospect, partner", u.UserType)
	}
	return v.err()
}

func (c *ScheduleCallCreate) Normalize() error {
	c.Title = strings.TrimSpace(c.Title)
	if c.DurationMinutes == 0 {
		c.DurationMinutes = DefaultCallDuration
	}

	var v validator
	if c.UserID == "" {
		v.addf("user_id is required")
	}
	v.length("title", c.Title, 1, 200)
	v.length("notes", c.Notes, 0, 500)
	if c.ScheduledFor.IsZero() {
		v.addf("scheduled_for is required")
	}
	if c.DurationMinutes < 15 || c.DurationMinutes > 240 {
		v.addf("duration_minutes must be between 15 and 240")
	}
	return v.err()
}

func (t *TaskCreate) Normalize() error {
	t.Title = strings.TrimSpace(t.Title)

	var v validator
	v.length("title", t.Title, 1, 200)
	v.length("description", t.Description, 0, 1000)
	return v.err()
}
