package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/reinhart/mcpdemo/internal/assistant"
)

// FileStore writes one JSON file per conversation under Dir.
type FileStore struct {
	Dir string
}

// NewFileStore creates the directory if needed. An empty dir defaults to
// ~/.local/share/mcpdemo/history.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".local", "share", "mcpdemo", "history")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileStore{Dir: dir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.Dir, id+".json")
}

func (s *FileStore) Load(_ context.Context, id string) (assistant.Transcript, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return assistant.Transcript{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord(id, data)
}

// Save replaces the file atomically so a crash never leaves half a transcript.
func (s *FileStore) Save(_ context.Context, id string, t assistant.Transcript) error {
	if err := validateID(id); err != nil {
		return err
	}
	data, err := encodeRecord(id, t)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.Dir, id+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path(id))
}

func (s *FileStore) Clear(_ context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := os.Remove(s.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
