package embedprovider

import (
	"context"
	"math"
	"strings"
)

// Simple is a deterministic hash-based embedding generator. It backs
// EMBEDDING_PROVIDER=simple, the offline/test fallback the round-trip and
// consolidator tests rely on for a reproducible similarity score.
type Simple struct {
	dimensions int
}

// NewSimple creates a hash-based embedding generator of the given width.
func NewSimple(dimensions int) *Simple {
	return &Simple{dimensions: dimensions}
}

func (e *Simple) Dimensions() int { return e.dimensions }

func (e *Simple) Generate(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.embed(text)
	}
	return out, nil
}

func (e *Simple) embed(text string) []float32 {
	text = strings.ToLower(strings.TrimSpace(text))
	words := strings.Fields(text)

	embedding := make([]float32, e.dimensions)
	for i, word := range words {
		hash := simpleHash(word)
		position := float32(i) / float32(len(words))
		weight := 1.0 / (1.0 + position)
		// Hashing-trick bucketing: each word lands in one bucket derived
		// from its hash, with a second bucket from a salted rehash so two
		// different words colliding in bucket one rarely collide in both.
		embedding[hash%uint32(e.dimensions)] += weight
		embedding[simpleHash(word+"#2")%uint32(e.dimensions)] += weight * 0.5
	}

	var magnitude float32
	for _, v := range embedding {
		magnitude += v * v
	}
	magnitude = float32(math.Sqrt(float64(magnitude)))
	if magnitude > 0 {
		for i := range embedding {
			embedding[i] /= magnitude
		}
	}
	return embedding
}

func simpleHash(s string) uint32 {
	hash := uint32(0)
	for _, c := range s {
		hash = hash*31 + uint32(c)
	}
	return hash
}
