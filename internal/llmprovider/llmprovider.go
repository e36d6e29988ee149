// Package llmprovider defines the LLM provider contract and its closed
// set of variants (ollama, anthropic, openai).
package llmprovider

import "context"

// Provider generates text from a system instruction and a user message. If
// responseSchema is non-empty (a JSON Schema document), implementations
// request/force JSON-mode output matching it. Implementations distinguish
// retryable (errs.Retryable) from permanent (errs.API) upstream failures,
// never a bare error.
type Provider interface {
	Generate(ctx context.Context, systemInstruction, userMessage string, responseSchema []byte) (string, error)
}
