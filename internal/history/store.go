// Package history persists conversation transcripts between orchestration runs.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/reinhart/mcpdemo/internal/assistant"
)

// ErrInvalidConversationID rejects ids that cannot be used as a storage key.
var ErrInvalidConversationID = errors.New("invalid conversation id")

var conversationIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

func validateID(id string) error {
	if !conversationIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidConversationID, id)
	}
	return nil
}

// Store keeps one transcript per conversation id. Load of an unknown
// conversation returns an empty transcript, not an error.
type Store interface {
	Load(ctx context.Context, conversationID string) (assistant.Transcript, error)
	Save(ctx context.Context, conversationID string, transcript assistant.Transcript) error
	Clear(ctx context.Context, conversationID string) error
}

// record is the persisted form of a transcript.
type record struct {
	ConversationID string               `json:"conversation_id"`
	UpdatedAt      time.Time            `json:"updated_at"`
	Messages       assistant.Transcript `json:"messages"`
}

func encodeRecord(id string, t assistant.Transcript) ([]byte, error) {
	data, err := json.MarshalIndent(record{
		ConversationID: id,
		UpdatedAt:      time.Now().UTC(),
		Messages:       t,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode conversation %s: %w", id, err)
	}
	return data, nil
}

// decodeRecord drops system messages; every run builds a fresh one. A
// transcript that breaks tool call correlation is rejected.
func decodeRecord(id string, data []byte) (assistant.Transcript, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", id, err)
	}
	msgs := rec.Messages.WithoutSystem()
	if err := msgs.Validate(); err != nil {
		return nil, fmt.Errorf("conversation %s is corrupt: %w", id, err)
	}
	return msgs, nil
}

// MemoryStore keeps transcripts for the life of the process.
type MemoryStore struct {
	mu    sync.Mutex
	convs map[string]assistant.Transcript
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[string]assistant.Transcript)}
}

func (m *MemoryStore) Load(_ context.Context, id string) (assistant.Transcript, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.convs[id].WithoutSystem(), nil
}

func (m *MemoryStore) Save(_ context.Context, id string, t assistant.Transcript) error {
	if err := validateID(id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.convs[id] = t.Clone()
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.convs, id)
	return nil
}
