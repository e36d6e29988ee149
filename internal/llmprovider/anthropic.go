package llmprovider

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/memoryvault/memoryvault/internal/errs"
)

// Anthropic calls the Claude Messages API via anthropic-sdk-go. Structured
// JSON output is emulated by forcing a single tool call shaped by
// responseSchema, the idiomatic way anthropic-sdk-go gets schema-
// constrained output, since the Messages API has no native JSON-mode flag.
type Anthropic struct {
	client      anthropic.Client
	model       anthropic.Model
	temperature float64
	maxTokens   int64
}

// NewAnthropic creates an Anthropic-backed LLM provider.
func NewAnthropic(apiKey, model string, temperature float64) *Anthropic {
	return &Anthropic{
		client:      anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:       anthropic.Model(model),
		temperature: temperature,
		maxTokens:   4096,
	}
}

const structuredOutputTool = "emit_result"

func (a *Anthropic) Generate(ctx context.Context, systemInstruction, userMessage string, responseSchema []byte) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemInstruction},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)),
		},
	}

	useTool := len(responseSchema) > 0
	if useTool {
		var schema struct {
			Properties any `json:"properties"`
		}
		if err := json.Unmarshal(responseSchema, &schema); err != nil {
			return "", errs.Invalid("invalid response schema")
		}
		params.Tools = []anthropic.ToolUnionParam{
			{
				OfTool: &anthropic.ToolParam{
					Name:        structuredOutputTool,
					Description: anthropic.String("Emit the structured result matching the required schema."),
					InputSchema: anthropic.ToolInputSchemaParam{Properties: schema.Properties},
				},
			},
		}
		params.ToolChoice = anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: structuredOutputTool},
		}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		if isRetryableAnthropicErr(err) {
			return "", errs.RetryableErr("anthropic request failed", err)
		}
		return "", errs.API_("anthropic request failed", err)
	}

	if useTool {
		for _, block := range resp.Content {
			if block.Type == "tool_use" && block.Name == structuredOutputTool {
				return string(block.Input), nil
			}
		}
		return "", errs.API_("anthropic response did not contain the expected tool call", nil)
	}

	var out string
	for _, block := range resp.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return out, nil
}

func isRetryableAnthropicErr(err error) bool {
	type statusCoder interface{ StatusCode() int }
	sc, ok := err.(statusCoder)
	return ok && sc.StatusCode() >= 500
}
