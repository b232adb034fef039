package llm

import (
	"context"
	"net/http"
	"time"

	"github.com/RichardoC/vischat/internal/config"
	"github.com/RichardoC/vischat/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// Sampling parameters sent with every completion.
const (
	MaxTokens   = 3000
	Temperature = 0.9
	TopP        = 0.95
)

// Completer turns an assembled request into the assistant's reply.
type Completer interface {
	Complete(ctx context.Context, req *Request) (string, error)
}

type Service struct {
	llm    llms.Model
	logger *zap.Logger
}

// New builds a client for the configured endpoint. Extra options are applied
// after the configured ones.
func New(cfg *config.Config, logger *zap.Logger, extra ...openai.Option) (*Service, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(cfg.Endpoint),
		openai.WithModel(cfg.Deployment),
		openai.WithHTTPClient(newSamplingDoer(http.DefaultClient, TopP)),
	}
	if cfg.APIType == config.APITypeAzure {
		opts = append(opts,
			openai.WithAPIType(openai.APITypeAzure),
			openai.WithAPIVersion(cfg.APIVersion),
		)
	}
	opts = append(opts, extra...)

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return NewWithModel(llm, logger), nil
}

func NewWithModel(model llms.Model, logger *zap.Logger) *Service {
	return &Service{llm: model, logger: logger}
}

func (s *Service) Complete(ctx context.Context, req *Request) (string, error) {
	messages := toMessageContent(req.Messages())

	start := time.Now()
	resp, err := s.llm.GenerateContent(ctx, messages,
		llms.WithMaxTokens(MaxTokens),
		llms.WithTemperature(Temperature),
		llms.WithTopP(TopP),
	)
	if err != nil {
		s.logger.Error("completion failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return "", &ProviderError{Op: "complete", Err: err}
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", &ProviderError{Op: "complete", Err: errEmptyResponse}
	}

	s.logger.Debug("completion received",
		zap.Int("messages", len(messages)),
		zap.String("stopReason", resp.Choices[0].StopReason),
		zap.Duration("elapsed", time.Since(start)))
	return resp.Choices[0].Content, nil
}

func toMessageContent(messages []models.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		mc := llms.MessageContent{Role: chatMessageType(msg.Role)}
		for _, p := range msg.Parts {
			switch p := p.(type) {
			case models.TextPart:
				mc.Parts = append(mc.Parts, llms.TextContent{Text: p.Text})
			case models.ImagePart:
				mc.Parts = append(mc.Parts, llms.ImageURLContent{URL: p.DataURL()})
			}
		}
		out = append(out, mc)
	}
	return out
}

func chatMessageType(role models.Role) llms.ChatMessageType {
	switch role {
	case models.RoleSystem:
		return llms.ChatMessageTypeSystem
	case models.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

var _ Completer = (*Service)(nil)

