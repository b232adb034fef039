package llm

import (
	"strings"

	"github.com/RichardoC/vischat/internal/models"
)

const DefaultSystemPrompt = "You are an AI assistant that helps people find information."

// Input is the new user turn as typed and uploaded.
type Input struct {
	Text  string
	Image *models.ImagePart
}

func (in Input) hasText() bool {
	return strings.TrimSpace(in.Text) != ""
}

func (in Input) hasImage() bool {
	return in.Image != nil && len(in.Image.Data) > 0
}

// Empty reports whether the turn carries nothing to send.
func (in Input) Empty() bool {
	return !in.hasText() && !in.hasImage()
}

type AssemblerOptions struct {
	// SystemPrompt is sent as the first message of every request.
	SystemPrompt string
	// UserPreamble, when set, is sent as a user message right after the
	// system prompt.
	UserPreamble string
	AllowImages  bool
	// ReplayImages re-sends image parts of earlier turns. When false only
	// their text is kept.
	ReplayImages bool
}

type Assembler struct {
	opts AssemblerOptions
}

func NewAssembler(opts AssemblerOptions) *Assembler {
	return &Assembler{opts: opts}
}

func (a *Assembler) AllowImages() bool {
	return a.opts.AllowImages
}

// Check rejects a turn that must not reach the provider.
func (a *Assembler) Check(in Input) error {
	if in.Empty() {
		return ErrEmptyTurn
	}
	if in.hasImage() && !a.opts.AllowImages {
		return ErrImagesDisabled
	}
	return nil
}

// Turn builds the user message for in. The image part, if any, comes first.
func (a *Assembler) Turn(in Input) (models.Message, error) {
	if err := a.Check(in); err != nil {
		return models.Message{}, err
	}
	turn := models.Message{Role: models.RoleUser}
	if in.hasImage() {
		turn.Parts = append(turn.Parts, *in.Image)
	}
	if in.hasText() {
		turn.Parts = append(turn.Parts, models.TextPart{Text: in.Text})
	}
	return turn, nil
}

// Assemble builds the request for the new turn on top of history. history
// must not already contain the new turn.
func (a *Assembler) Assemble(history []models.Message, in Input) (*Request, error) {
	turn, err := a.Turn(in)
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(history)+3)
	if a.opts.SystemPrompt != "" {
		messages = append(messages, models.NewTextMessage(models.RoleSystem, a.opts.SystemPrompt))
	}
	if a.opts.UserPreamble != "" {
		messages = append(messages, models.NewTextMessage(models.RoleUser, a.opts.UserPreamble))
	}
	for _, msg := range history {
		if !a.opts.ReplayImages {
			msg = textOnly(msg)
		}
		if len(msg.Parts) == 0 {
			continue
		}
		messages = append(messages, msg)
	}
	messages = append(messages, turn)

	return &Request{messages: messages}, nil
}

func textOnly(msg models.Message) models.Message {
	parts := make([]models.Part, 0, len(msg.Parts))
	for _, p := range msg.Parts {
		if _, ok := p.(models.TextPart); ok {
			parts = append(parts, p)
		}
	}
	msg.Parts = parts
	return msg
}

// Request is the read-only message list sent to the provider.
type Request struct {
	messages []models.Message
}

// Messages returns a copy of the request's messages.
func (r *Request) Messages() []models.Message {
	out := make([]models.Message, len(r.messages))
	for i, m := range r.messages {
		m.Parts = append([]models.Part(nil), m.Parts...)
		out[i] = m
	}
	return out
}

// Turn returns the new user turn, the last message of the request.
func (r *Request) Turn() models.Message {
	turn := r.messages[len(r.messages)-1]
	turn.Parts = append([]models.Part(nil), turn.Parts...)
	return turn
}
