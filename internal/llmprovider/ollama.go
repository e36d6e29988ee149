package llmprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/memoryvault/memoryvault/internal/errs"
)

// Ollama is a synchronous, non-streaming Ollama client: a single-shot
// request/response call against /api/generate, with JSON-mode support via
// Ollama's "format" field.
type Ollama struct {
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
}

// NewOllama creates an Ollama-backed LLM provider.
func NewOllama(baseURL, model string, temperature float64, timeout time.Duration) *Ollama {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Ollama{
		baseURL:     baseURL,
		model:       model,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

type ollamaGenerateRequest struct {
	Model       string          `json:"model"`
	Prompt      string          `json:"prompt"`
	System      string          `json:"system,omitempty"`
	Stream      bool            `json:"stream"`
	Temperature float64         `json:"temperature,omitempty"`
	Format      json.RawMessage `json:"format,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (o *Ollama) Generate(ctx context.Context, systemInstruction, userMessage string, responseSchema []byte) (string, error) {
	req := ollamaGenerateRequest{
		Model:       o.model,
		Prompt:      userMessage,
		System:      systemInstruction,
		Stream:      false,
		Temperature: o.temperature,
	}
	if len(responseSchema) > 0 {
		req.Format = responseSchema
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", errs.Invalid("failed to marshal ollama request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", errs.API_("failed to build ollama request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", errs.RetryableErr("ollama request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", errs.RetryableErr(fmt.Sprintf("ollama returned %d: %s", resp.StatusCode, bodyBytes), nil)
	}
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", errs.API_(fmt.Sprintf("ollama returned %d: %s", resp.StatusCode, bodyBytes), nil)
	}

	var genResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", errs.API_("failed to decode ollama response", err)
	}
	return genResp.Response, nil
}
