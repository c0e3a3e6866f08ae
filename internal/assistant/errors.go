package assistant

import (
	"errors"
	"fmt"
)

// ErrMaxRoundsExceeded ends a run whose model keeps requesting tools past the configured bound.
var ErrMaxRoundsExceeded = errors.New("agent loop exceeded max rounds")

// UnsupportedRoleError is returned by a message adapter given a role outside the four defined.
type UnsupportedRoleError struct {
	Role Role
}

func (e *UnsupportedRoleError) Error() string {
	return fmt.Sprintf("unsupported message role %q", e.Role)
}

// GenerationError wraps any failure of a completion backend call.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s completion error: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ToolExecutionError describes a failed tool call. It never aborts a run; its
// text is handed back to the model as the tool result.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("Error executing %s: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// SessionError is a failure to open, query, or close the tool-provider session.
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("tool session %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// generationError wraps err unless it already is a *GenerationError.
func generationError(provider string, err error) error {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return err
	}
	return &GenerationError{Provider: provider, Err: err}
}
