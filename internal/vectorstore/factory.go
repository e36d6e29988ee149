package vectorstore

import "github.com/memoryvault/memoryvault/internal/errs"

// Options configures the closed set of vector store variants
// (chroma_lite, chroma, postgres), selected by DB_PROVIDER.
type Options struct {
	Provider    string
	Collection  string
	Dimensions  int
	PersistDir  string // chroma_lite
	ChromaURL   string // chroma
	PostgresDSN string // postgres
}

// Validate checks that opts names a known provider. The badgerstore/
// pgstore/chromastore packages already import vectorstore for the shared
// Filter/Scored/Store types, so constructing the concrete variant here
// would cycle; bootstrap dispatches to the right concrete constructor
// itself. Validate is a standalone check of the provider name; bootstrap
// does not call it.
func (o Options) Validate() error {
	switch o.Provider {
	case "", "chroma_lite", "chroma", "postgres":
		return nil
	default:
		return errs.Config("unknown vector store provider: "+o.Provider, nil)
	}
}
