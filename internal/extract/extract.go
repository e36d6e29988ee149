// Package extract implements the fact extractor: flatten a conversation
// transcript, ask the LLM for a JSON fact list, validate and return it.
package extract

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/memoryvault/memoryvault/internal/errs"
	"github.com/memoryvault/memoryvault/internal/llmprovider"
	"github.com/memoryvault/memoryvault/internal/model"
)

const systemInstruction = `You are a Memory Extractor. Given a conversation transcript between a
user and an assistant, extract short, declarative, durable facts about the
user worth remembering long-term (identity, preferences, goals, relevant
events). Ignore small talk and facts that are only true for the current
turn. Return strict JSON: {"facts": ["fact one", "fact two", ...]}. If
there is nothing worth remembering, return {"facts": []}.`

var factsSchema = []byte(`{
	"type": "object",
	"properties": {
		"facts": {"type": "array", "items": {"type": "string"}}
	},
	"required": ["facts"]
}`)

// Extractor produces durable facts from a flattened transcript.
type Extractor struct {
	llm llmprovider.Provider
}

// New creates a Fact Extractor over the given LLM provider.
func New(llm llmprovider.Provider) *Extractor {
	return &Extractor{llm: llm}
}

// Flatten renders messages into "User: ...\nAssistant: ..." form,
// preserving order and reading only the Text part of each message;
// function_call/function_response parts are dropped.
func Flatten(messages []model.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		var text strings.Builder
		for _, part := range msg.Parts {
			text.WriteString(strings.TrimSpace(part.Text))
		}
		if text.Len() == 0 {
			continue
		}
		switch msg.Role {
		case model.RoleUser:
			b.WriteString("User: ")
		default:
			b.WriteString("Assistant: ")
		}
		b.WriteString(text.String())
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

type factsResponse struct {
	Facts []string `json:"facts"`
}

// Extract flattens the transcript, short-circuits on an empty result,
// invokes the LLM, and parses and validates the returned fact list.
func (e *Extractor) Extract(ctx context.Context, messages []model.Message) ([]string, error) {
	transcript := Flatten(messages)
	if transcript == "" {
		return []string{}, nil
	}

	raw, err := e.llm.Generate(ctx, systemInstruction, transcript, factsSchema)
	if err != nil {
		return nil, err
	}

	var parsed factsResponse
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &parsed); err != nil {
		return nil, errs.API_("failed to parse extracted facts", err)
	}
	if parsed.Facts == nil {
		parsed.Facts = []string{}
	}
	return parsed.Facts, nil
}

// cleanJSON strips a markdown code fence if the provider wrapped its JSON
// output in one.
func cleanJSON(response string) string {
	response = strings.TrimSpace(response)
	switch {
	case strings.HasPrefix(response, "```json"):
		response = strings.TrimPrefix(response, "```json")
	case strings.HasPrefix(response, "```"):
		response = strings.TrimPrefix(response, "```")
	}
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}
