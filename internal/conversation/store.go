// Package conversation holds the ordered list of turns owned by one chat session.
package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/RichardoC/vischat/internal/models"
)

// Store is an append-only sequence of messages that can be reset.
// Implementations are not safe for concurrent use; the owning session
// serializes access.
type Store interface {
	Append(ctx context.Context, msg models.Message) error
	Clear(ctx context.Context) error
	All(ctx context.Context) ([]models.Message, error)
}

// Memory keeps the conversation in process memory only.
type Memory struct {
	messages []models.Message
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(_ context.Context, msg models.Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.messages = nil
	return nil
}

func (m *Memory) All(_ context.Context) ([]models.Message, error) {
	out := make([]models.Message, len(m.messages))
	copy(out, m.messages)
	return out, nil
}

var _ Store = (*Memory)(nil)
