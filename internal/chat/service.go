// Package chat runs one user interaction: validate the turn, record it, ask
// the provider and record the reply.
package chat

import (
	"context"
	"fmt"

	"github.com/RichardoC/vischat/internal/conversation"
	"github.com/RichardoC/vischat/internal/llm"
	"github.com/RichardoC/vischat/internal/models"
	"go.uber.org/zap"
)

type Service struct {
	assembler *llm.Assembler
	completer llm.Completer
	logger    *zap.Logger
}

func New(assembler *llm.Assembler, completer llm.Completer, logger *zap.Logger) *Service {
	return &Service{
		assembler: assembler,
		completer: completer,
		logger:    logger,
	}
}

func (s *Service) AllowImages() bool {
	return s.assembler.AllowImages()
}

// Send records the user turn and, on success, the assistant's reply. A
// rejected turn leaves the store untouched and sends nothing. A provider
// failure leaves the user turn as the last, unanswered entry.
func (s *Service) Send(ctx context.Context, store conversation.Store, in llm.Input) (models.Message, error) {
	if err := s.assembler.Check(in); err != nil {
		return models.Message{}, err
	}

	history, err := store.All(ctx)
	if err != nil {
		return models.Message{}, fmt.Errorf("failed to get conversation history: %w", err)
	}

	req, err := s.assembler.Assemble(history, in)
	if err != nil {
		return models.Message{}, err
	}

	if err := store.Append(ctx, req.Turn()); err != nil {
		return models.Message{}, fmt.Errorf("failed to save user message: %w", err)
	}

	reply, err := s.completer.Complete(ctx, req)
	if err != nil {
		s.logger.Warn("no reply for user turn", zap.Error(err), zap.Int("historyLen", len(history)+1))
		return models.Message{}, err
	}

	response := models.NewTextMessage(models.RoleAssistant, reply)
	if err := store.Append(ctx, response); err != nil {
		return models.Message{}, fmt.Errorf("failed to save assistant message: %w", err)
	}
	return response, nil
}

func (s *Service) Clear(ctx context.Context, store conversation.Store) error {
	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear conversation: %w", err)
	}
	return nil
}
