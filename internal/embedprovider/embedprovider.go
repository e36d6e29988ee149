// Package embedprovider defines the embedding provider contract and its
// closed set of variants (openai, ollama, simple), selected by a factory,
// never by runtime reflection.
package embedprovider

import "context"

// Provider generates embeddings for a batch of texts, preserving input
// order. Every returned vector has length Dimensions(). Implementations
// tag task_type=RETRIEVAL_DOCUMENT on the wire where the backing API
// supports it.
type Provider interface {
	Generate(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}
