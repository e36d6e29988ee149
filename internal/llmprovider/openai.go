package llmprovider

import (
	"context"
	"encoding/json"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/memoryvault/memoryvault/internal/errs"
)

// OpenAI calls the Chat Completions API via openai-go/v3. JSON-mode is
// requested through ResponseFormat when a schema is supplied.
type OpenAI struct {
	client      openai.Client
	model       string
	temperature float64
}

// NewOpenAI creates an OpenAI-backed LLM provider.
func NewOpenAI(apiKey, model string, temperature float64) *OpenAI {
	return &OpenAI{
		client:      openai.NewClient(option.WithAPIKey(apiKey)),
		model:       model,
		temperature: temperature,
	}
}

func (o *OpenAI) Generate(ctx context.Context, systemInstruction, userMessage string, responseSchema []byte) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemInstruction),
			openai.UserMessage(userMessage),
		},
		Temperature: openai.Float(o.temperature),
	}

	if len(responseSchema) > 0 {
		var schema map[string]any
		if err := json.Unmarshal(responseSchema, &schema); err != nil {
			return "", errs.Invalid("invalid response schema")
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "memory_plan",
					Schema: schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if isRetryableOpenAIChatErr(err) {
			return "", errs.RetryableErr("openai chat completion failed", err)
		}
		return "", errs.API_("openai chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", errs.API_("openai returned no choices", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

func isRetryableOpenAIChatErr(err error) bool {
	type statusCoder interface{ StatusCode() int }
	sc, ok := err.(statusCoder)
	return ok && sc.StatusCode() >= 500
}
