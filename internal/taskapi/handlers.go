package taskapi

import (
	"net/http"
	"time"
)

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Health{
		Status:    "healthy",
		Version:   Version,
		Timestamp: time.Now().UTC(),
	})
}

func (h *handlers) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req UserCreate
	if err := decodeJSONBody(r, &req); err != nil {
		writeMappedError(w, err)
		return
	}
	user, err := h.repo.CreateUser(r.Context(), req)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *handlers) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.repo.ListUsers(r.Context())
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *handlers) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.repo.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *handlers) handleScheduleCall(w http.ResponseWriter, r *http.Request) {
	var req ScheduleCallCreate
	if err := decodeJSONBody(r, &req); err != nil {
		writeMappedError(w, err)
		return
	}
	call, err := h.repo.ScheduleCall(r.Context(), req)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, call)
}

func (h *handlers) handleListCalls(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := CallFilter{UserID: q.Get("user_id"), Status: CallStatus(q.Get("status_filter"))}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "status_filter must be one of scheduled, completed, cancelled, rescheduled")
		return
	}
	calls, err := h.repo.ListCalls(r.Context(), filter)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, calls)
}

func (h *handlers) handleGetCall(w http.ResponseWriter, r *http.Request) {
	call, err := h.repo.GetCall(r.Context(), r.PathValue("id"))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, call)
}

func (h *handlers) handleUpdateCallStatus(w http.ResponseWriter, r *http.Request) {
	call, err := h.repo.UpdateCallStatus(r.Context(), r.PathValue("id"), CallStatus(r.URL.Query().Get("new_status")))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, call)
}

func (h *handlers) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req TaskCreate
	if err := decodeJSONBody(r, &req); err != nil {
		writeMappedError(w, err)
		return
	}
	task, err := h.repo.CreateTask(r.Context(), req)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *handlers) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := TaskFilter{UserID: q.Get("user_id"), Status: TaskStatus(q.Get("status_filter"))}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "status_filter must be one of todo, in_progress, done, cancelled")
		return
	}
	tasks, err := h.repo.ListTasks(r.Context(), filter)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *handlers) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.repo.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *handlers) handleUpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	task, err := h.repo.UpdateTaskStatus(r.Context(), r.PathValue("id"), TaskStatus(r.URL.Query().Get("new_status")))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}
