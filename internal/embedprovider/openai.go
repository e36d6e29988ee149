package embedprovider

import (
	"context"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/memoryvault/memoryvault/internal/errs"
)

// OpenAI calls OpenAI's embeddings endpoint via openai-go/v3: client
// construction via option.WithAPIKey, one batched call preserving input
// order.
type OpenAI struct {
	client     openai.Client
	model      string
	dimensions int
}

// NewOpenAI creates an embedding provider backed by the OpenAI API.
func NewOpenAI(apiKey, model string, dimensions int) *OpenAI {
	return &OpenAI{
		client:     openai.NewClient(option.WithAPIKey(apiKey)),
		model:      model,
		dimensions: dimensions,
	}
}

func (o *OpenAI) Dimensions() int { return o.dimensions }

func (o *OpenAI) Generate(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:      o.model,
		Dimensions: openai.Int(int64(o.dimensions)),
	})
	if err != nil {
		if isRetryableOpenAIErr(err) {
			return nil, errs.RetryableErr("openai embeddings request failed", err)
		}
		return nil, errs.API_("openai embeddings request failed", err)
	}

	byIndex := make(map[int64][]float32, len(resp.Data))
	for _, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		byIndex[d.Index] = vec
	}

	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = byIndex[int64(i)]
	}
	return out, nil
}

func isRetryableOpenAIErr(err error) bool {
	type statusCoder interface{ StatusCode() int }
	sc, ok := err.(statusCoder)
	return ok && sc.StatusCode() >= 500
}
