package taskapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reinhart/mcpdemo/internal/blobstore"
	"github.com/reinhart/mcpdemo/internal/logger"
)

// NotFoundError names the missing entity.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	noun := strings.TrimSuffix(e.Kind, "s")
	return fmt.Sprintf("%s%s %s not found", strings.ToUpper(noun[:1]), noun[1:], e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == blobstore.ErrNotFound
}

// Repository stores each entity as one JSON blob at <kind>/<id>.json.
type Repository struct {
	store blobstore.Store
	now   func() time.Time
	newID func() string
}

func NewRepository(store blobstore.Store) *Repository {
	return &Repository{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

func entityKey(kind, id string) string {
	return kind + "/" + id + ".json"
}

func save[T any](ctx context.Context, store blobstore.Store, kind, id string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", kind, id, err)
	}
	if err := store.Put(ctx, entityKey(kind, id), data); err != nil {
		return err
	}
	logger.Debug("Saved %s/%s", kind, id)
	return nil
}

func load[T any](ctx context.Context, store blobstore.Store, kind, id string) (T, error) {
	var v T
	// ids are path segments; reject anything that could escape the prefix
	if id == "" || strings.ContainsAny(id, "/\\") {
		return v, &NotFoundError{Kind: kind, ID: id}
	}
	data, err := store.Get(ctx, entityKey(kind, id))
	if errors.Is(err, blobstore.ErrNotFound) {
		return v, &NotFoundError{Kind: kind, ID: id}
	}
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %s/%s: %w", kind, id, err)
	}
	return v, nil
}

// listAll reads every blob under the kind prefix. Unreadable entries are
// logged and skipped so one corrupt object does not hide the rest.
func listAll[T any](ctx context.Context, store blobstore.Store, kind string) ([]T, error) {
	keys, err := store.List(ctx, kind+"/")
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(keys))
	for _, key := range keys {
		data, err := store.Get(ctx, key)
		if err != nil {
			logger.Error("Failed to retrieve %s: %v", key, err)
			continue
		}
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			logger.Error("Failed to decode %s: %v", key, err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *Repository) CreateUser(ctx context.Context, in UserCreate) (User, error) {
	if err := in.Normalize(); err != nil {
		return User{}, err
	}
	now := r.now()
	user := User{
		ID:        r.newID(),
		Name:      in.Name,
		Email:     in.Email,
		Company:   in.Company,
		UserType:  in.UserType,
		Notes:     in.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := save(ctx, r.store, KindUsers, user.ID, user); err != nil {
		return User{}, err
	}
	logger.Info("Created user: %s - %s (%s)", user.ID, user.Name, user.Company)
	return user, nil
}

func (r *Repository) GetUser(ctx context.Context, id string) (User, error) {
	return load[User](ctx, r.store, KindUsers, id)
}

func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	users, err := listAll[User](ctx, r.store, KindUsers)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

// ScheduleCall requires the user to exist.
func (r *Repository) ScheduleCall(ctx context.Context, in ScheduleCallCreate) (ScheduledCall, error) {
	if err := in.Normalize(); err != nil {
		return ScheduledCall{}, err
	}
	if _, err := r.GetUser(ctx, in.UserID); err != nil {
		return ScheduledCall{}, err
	}
	now := r.now()
	call := ScheduledCall{
		ID:              r.newID(),
		UserID:          in.UserID,
		Title:           in.Title,
		ScheduledFor:    in.ScheduledFor.UTC(),
		DurationMinutes: in.DurationMinutes,
		Notes:           in.Notes,
		Status:          CallScheduled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := save(ctx, r.store, KindCalls, call.ID, call); err != nil {
		return ScheduledCall{}, err
	}
	logger.Info("Scheduled call: %s - %s for user %s", call.ID, call.Title, call.UserID)
	return call, nil
}

func (r *Repository) GetCall(ctx context.Context, id string) (ScheduledCall, error) {
	return load[ScheduledCall](ctx, r.store, KindCalls, id)
}

// CallFilter narrows ListCalls; zero fields match everything.
type CallFilter struct {
	UserID string
	Status CallStatus
}

func (r *Repository) ListCalls(ctx context.Context, f CallFilter) ([]ScheduledCall, error) {
	calls, err := listAll[ScheduledCall](ctx, r.store, KindCalls)
	if err != nil {
		return nil, err
	}
	out := calls[:0]
	for _, c := range calls {
		if f.UserID != "" && c.UserID != f.UserID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	return out, nil
}

func (r *Repository) UpdateCallStatus(ctx context.Context, id string, status CallStatus) (ScheduledCall, error) {
	if !status.Valid() {
		return ScheduledCall{}, &ValidationError{Problems: []string{fmt.Sprintf("status %q is not a valid call status", status)}}
	}
	call, err := r.GetCall(ctx, id)
	if err != nil {
		return ScheduledCall{}, err
	}
	call.Status = status
	call.UpdatedAt = r.now()
	if err := save(ctx, r.store, KindCalls, call.ID, call); err != nil {
		return ScheduledCall{}, err
	}
	logger.Info("Updated call %s status to %s", id, status)
	return call, nil
}

// CreateTask checks the user only when one is referenced.
func (r *Repository) CreateTask(ctx context.Context, in TaskCreate) (Task, error) {
	if err := in.Normalize(); err != nil {
		return Task{}, err
	}
	if in.UserID != "" {
		if _, err := r.GetUser(ctx, in.UserID); err != nil {
			return Task{}, err
		}
	}
	now := r.now()
	task := Task{
		ID:          r.newID(),
		Title:       in.Title,
		Description: in.Description,
		UserID:      in.UserID,
		Status:      TaskTodo,
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := save(ctx, r.store, KindTasks, task.ID, task); err != nil {
		return Task{}, err
	}
	logger.Info("Created task: %s - %s", task.ID, task.Title)
	return task, nil
}

func (r *Repository) GetTask(ctx context.Context, id string) (Task, error) {
	return load[Task](ctx, r.store, KindTasks, id)
}

// TaskFilter narrows ListTasks; zero fields match everything.
type TaskFilter struct {
	UserID string
	Status TaskStatus
}

func (r *Repository) ListTasks(ctx context.Context, f TaskFilter) ([]Task, error) {
	tasks, err := listAll[Task](ctx, r.store, KindTasks)
	if err != nil {
		return nil, err
	}
	out := tasks[:0]
	for _, t := range tasks {
		if f.UserID != "" && t.UserID != f.UserID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *Repository) UpdateTaskStatus(ctx context.Context, id string, status TaskStatus) (Task, error) {
	if !status.Valid() {
		return Task{}, &ValidationError{Problems: []string{fmt.Sprintf("status %q is not a valid task status", status)}}
	}
	task, err := r.GetTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	task.Status = status
	task.UpdatedAt = r.now()
	if err := save(ctx, r.store, KindTasks, task.ID, task); err != nil {
		return Task{}, err
	}
	logger.Info("Updated task %s status to %s", id, status)
	return task, nil
}
