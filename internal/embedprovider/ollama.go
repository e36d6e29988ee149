package embedprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/memoryvault/memoryvault/internal/errs"
)

// Ollama calls a local Ollama server's /api/embeddings endpoint, one text
// at a time (Ollama has no native batch-embed call): marshal JSON body,
// check status, decode JSON response.
type Ollama struct {
	baseURL    string
	model      string
	dimensions int
	httpClient *http.Client
}

// NewOllama creates an embedding provider backed by a local Ollama server.
func NewOllama(baseURL, model string, dimensions int) *Ollama {
	return &Ollama{baseURL: baseURL, model: model, dimensions: dimensions, httpClient: &http.Client{}}
}

func (o *Ollama) Dimensions() int { return o.dimensions }

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (o *Ollama) Generate(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := o.embedOne(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}

func (o *Ollama) embedOne(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: o.model, Prompt: text})
	if err != nil {
		return nil, errs.Invalid("failed to marshal embed request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, errs.API_("failed to build embed request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, errs.RetryableErr("ollama embeddings request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, errs.RetryableErr(fmt.Sprintf("ollama embeddings 5xx: %s", bodyBytes), nil)
	}
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, errs.API_(fmt.Sprintf("ollama embeddings error %d: %s", resp.StatusCode, bodyBytes), nil)
	}

	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errs.API_("failed to decode ollama embeddings response", err)
	}
	return out.Embedding, nil
}
