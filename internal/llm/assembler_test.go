package llm

import (
	"testing"

	"github.com/RichardoC/vischat/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testImage = &models.ImagePart{MIMEType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}

func newTestAssembler() *Assembler {
	return NewAssembler(AssemblerOptions{SystemPrompt: DefaultSystemPrompt, AllowImages: true})
}

func TestAssembleTextOnly(t *testing.T) {
	req, err := newTestAssembler().Assemble(nil, Input{Text: "hello"})
	require.NoError(t, err)

	msgs := req.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleSystem, msgs[0].Role)
	assert.Equal(t, DefaultSystemPrompt, msgs[0].Text())

	turn := req.Turn()
	assert.Equal(t, models.RoleUser, turn.Role)
	require.Len(t, turn.Parts, 1)
	assert.Equal(t, models.TextPart{Text: "hello"}, turn.Parts[0])
}

func TestAssembleImageComesFirst(t *testing.T) {
	req, err := newTestAssembler().Assemble(nil, Input{Text: "what is this?", Image: testImage})
	require.NoError(t, err)

	turn := req.Turn()
	require.Len(t, turn.Parts, 2)
	assert.Equal(t, "image", turn.Parts[0].Kind())
	assert.Equal(t, *testImage, turn.Parts[0])
	assert.Equal(t, models.TextPart{Text: "what is this?"}, turn.Parts[1])
}

func TestAssembleImageOnly(t *testing.T) {
	req, err := newTestAssembler().Assemble(nil, Input{Image: testImage})
	require.NoError(t, err)

	turn := req.Turn()
	require.Len(t, turn.Parts, 1)
	assert.NoError(t, turn.Validate())
}

func TestAssembleRejectsEmptyTurn(t *testing.T) {
	for _, in := range []Input{
		{},
		{Text: "   "},
		{Image: &models.ImagePart{MIMEType: "image/png"}},
	} {
		_, err := newTestAssembler().Assemble(nil, in)
		assert.ErrorIs(t, err, ErrEmptyTurn)
	}
}

func TestAssembleImagesDisabled(t *testing.T) {
	a := NewAssembler(AssemblerOptions{SystemPrompt: DefaultSystemPrompt})

	_, err := a.Assemble(nil, Input{Text: "look", Image: testImage})
	assert.ErrorIs(t, err, ErrImagesDisabled)

	_, err = a.Assemble(nil, Input{Text: "no picture"})
	assert.NoError(t, err)
}

func TestAssembleOrdersHistory(t *testing.T) {
	history := []models.Message{
		models.NewTextMessage(models.RoleUser, "hello"),
		models.NewTextMessage(models.RoleAssistant, "hi"),
	}
	a := NewAssembler(AssemblerOptions{SystemPrompt: "sys", UserPreamble: "Be brief.", AllowImages: true})

	req, err := a.Assemble(history, Input{Text: "next"})
	require.NoError(t, err)

	var got []string
	for _, m := range req.Messages() {
		got = append(got, string(m.Role)+":"+m.Text())
	}
	assert.Equal(t, []string{"system:sys", "user:Be brief.", "user:hello", "assistant:hi", "user:next"}, got)
}

func TestAssembleDropsHistoryImagesUnlessReplayed(t *testing.T) {
	history := []models.Message{
		{Role: models.RoleUser, Parts: []models.Part{*testImage, models.TextPart{Text: "see"}}},
		{Role: models.RoleUser, Parts: []models.Part{*testImage}},
		models.NewTextMessage(models.RoleAssistant, "a cat"),
	}

	req, err := newTestAssembler().Assemble(history, Input{Text: "more"})
	require.NoError(t, err)
	msgs := req.Messages()
	require.Len(t, msgs, 4)
	assert.False(t, msgs[1].HasImage())
	assert.Equal(t, "see", msgs[1].Text())
	assert.Equal(t, "a cat", msgs[2].Text())

	replay := NewAssembler(AssemblerOptions{AllowImages: true, ReplayImages: true})
	req, err = replay.Assemble(history, Input{Text: "more"})
	require.NoError(t, err)
	msgs = req.Messages()
	require.Len(t, msgs, 4)
	assert.True(t, msgs[0].HasImage())
	assert.True(t, msgs[1].HasImage())
}

func TestRequestIsReadOnly(t *testing.T) {
	req, err := newTestAssembler().Assemble(nil, Input{Text: "hello"})
	require.NoError(t, err)

	msgs := req.Messages()
	msgs[1].Parts[0] = models.TextPart{Text: "changed"}
	msgs[0] = models.NewTextMessage(models.RoleUser, "changed")

	assert.Equal(t, "hello", req.Turn().Text())
	assert.Equal(t, models.RoleSystem, req.Messages()[0].Role)
}
