package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoryvault/memoryvault/internal/model"
)

type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) Generate(ctx context.Context, systemInstruction, userMessage string, responseSchema []byte) (string, error) {
	return s.response, s.err
}

func msg(role model.Role, text string) model.Message {
	return model.Message{Role: role, Parts: []model.MessagePart{{Text: text}}}
}

func TestFlatten_PreservesOrderAndDropsEmptyParts(t *testing.T) {
	messages := []model.Message{
		msg(model.RoleUser, "hi, I'm Sam"),
		msg(model.RoleModel, "nice to meet you Sam"),
		{Role: model.RoleUser, Parts: []model.MessagePart{{FunctionCall: &model.FunctionCall{Name: "lookup"}}}},
	}

	out := Flatten(messages)

	assert.Equal(t, "User: hi, I'm Sam\nAssistant: nice to meet you Sam", out)
}

func TestExtract_EmptyTranscriptShortCircuits(t *testing.T) {
	llm := &stubLLM{response: "should never be read"}
	e := New(llm)

	facts, err := e.Extract(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, facts)
}

func TestExtract_StripsMarkdownFenceBeforeParsing(t *testing.T) {
	llm := &stubLLM{response: "```json\n{\"facts\": [\"likes tea\"]}\n```"}
	e := New(llm)

	facts, err := e.Extract(context.Background(), []model.Message{msg(model.RoleUser, "I like tea")})

	require.NoError(t, err)
	assert.Equal(t, []string{"likes tea"}, facts)
}
