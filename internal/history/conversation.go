package history

import (
	"context"
	"iter"
	"sync"

	"github.com/google/uuid"

	"github.com/reinhart/mcpdemo/internal/assistant"
	"github.com/reinhart/mcpdemo/internal/logger"
)

// Runner is the orchestration entry point; *assistant.Agent implements it.
type Runner interface {
	Run(ctx context.Context, userMessage, scenarioContext string, prior assistant.Transcript) iter.Seq[assistant.Event]
}

// NewConversationID returns a fresh random conversation id.
func NewConversationID() string {
	return uuid.NewString()
}

// Conversation ties one conversation id to a store and a runner. Runs on the
// same conversation are serialized.
type Conversation struct {
	ID string

	store  Store
	runner Runner
	mu     sync.Mutex
}

func NewConversation(id string, store Store, runner Runner) *Conversation {
	if id == "" {
		id = NewConversationID()
	}
	return &Conversation{ID: id, store: store, runner: runner}
}

// Send loads the persisted transcript, runs one turn, and passes every event
// through. The transcript is saved when the conversation_snapshot event
// arrives, so failed or abandoned runs leave the stored history untouched.
func (c *Conversation) Send(ctx context.Context, userMessage, scenarioContext string) iter.Seq[assistant.Event] {
	return func(yield func(assistant.Event) bool) {
		c.mu.Lock()
		defer c.mu.Unlock()

		prior, err := c.store.Load(ctx, c.ID)
		if err != nil {
			logger.Error("Loading conversation %s: %v", c.ID, err)
			yield(assistant.Event{Type: assistant.EventError, Message: err.Error(), Err: err})
			return
		}
		logger.Debug("Conversation %s resumed with %d messages", c.ID, len(prior))

		for ev := range c.runner.Run(ctx, userMessage, scenarioContext, prior) {
			if ev.Type == assistant.EventConversationSnapshot {
				if err := c.store.Save(ctx, c.ID, ev.Transcript); err != nil {
					logger.Error("Saving conversation %s: %v", c.ID, err)
					yield(assistant.Event{Type: assistant.EventError, Round: ev.Round, Message: err.Error(), Err: err})
					return
				}
			}
			if !yield(ev) {
				return
			}
		}
	}
}

// Transcript returns the persisted history without the system message.
func (c *Conversation) Transcript(ctx context.Context) (assistant.Transcript, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Load(ctx, c.ID)
}

// Reset clears the persisted history so the next Send starts fresh.
func (c *Conversation) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Clear(ctx, c.ID)
}
