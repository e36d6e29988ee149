package llmprovider

import (
	"time"

	"github.com/memoryvault/memoryvault/internal/errs"
)

// Options configures the closed set of LLM provider variants.
type Options struct {
	Provider    string // "ollama", "anthropic", or "openai"
	Model       string
	Temperature float64
	APIKey      string
	OllamaURL   string
	Timeout     time.Duration
}

// New selects and constructs one concrete LLM provider variant, a closed
// switch, never a runtime plugin load.
func New(opts Options) (Provider, error) {
	switch opts.Provider {
	case "", "ollama":
		url := opts.OllamaURL
		if url == "" {
			url = "http://localhost:11434"
		}
		model := opts.Model
		if model == "" {
			model = "qwen2.5:7b"
		}
		return NewOllama(url, model, opts.Temperature, opts.Timeout), nil
	case "anthropic":
		if opts.APIKey == "" {
			return nil, errs.Config("LLM_PROVIDER=anthropic requires an API key", nil)
		}
		model := opts.Model
		if model == "" {
			model = "claude-3-5-haiku-latest"
		}
		return NewAnthropic(opts.APIKey, model, opts.Temperature), nil
	case "openai":
		if opts.APIKey == "" {
			return nil, errs.Config("LLM_PROVIDER=openai requires an API key", nil)
		}
		model := opts.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		return NewOpenAI(opts.APIKey, model, opts.Temperature), nil
	default:
		return nil, errs.Config("unknown llm provider: "+opts.Provider, nil)
	}
}
