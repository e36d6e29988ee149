package embedprovider

import "github.com/memoryvault/memoryvault/internal/errs"

// Options configures the closed set of embedding provider variants. Only
// the fields relevant to the selected Provider name need to be set.
type Options struct {
	Provider   string // "openai", "ollama", or "simple"
	Model      string
	Dimensions int
	APIKey     string
	OllamaURL  string
}

// New selects and constructs one concrete embedding provider variant: a
// closed switch, adding a variant means adding a case, never a
// plugin-loading path.
func New(opts Options) (Provider, error) {
	dim := opts.Dimensions
	if dim <= 0 {
		dim = 768
	}
	switch opts.Provider {
	case "", "simple":
		return NewSimple(dim), nil
	case "ollama":
		url := opts.OllamaURL
		if url == "" {
			url = "http://localhost:11434"
		}
		model := opts.Model
		if model == "" {
			model = "nomic-embed-text"
		}
		return NewOllama(url, model, dim), nil
	case "openai":
		if opts.APIKey == "" {
			return nil, errs.Config("EMBEDDING_PROVIDER=openai requires an API key", nil)
		}
		model := opts.Model
		if model == "" {
			model = "text-embedding-3-small"
		}
		return NewOpenAI(opts.APIKey, model, dim), nil
	default:
		return nil, errs.Config("unknown embedding provider: "+opts.Provider, nil)
	}
}
