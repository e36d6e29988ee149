package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/memoryvault/memoryvault/internal/config"
	"github.com/memoryvault/memoryvault/internal/consolidate"
	"github.com/memoryvault/memoryvault/internal/embedcache"
	"github.com/memoryvault/memoryvault/internal/embedprovider"
	"github.com/memoryvault/memoryvault/internal/extract"
	"github.com/memoryvault/memoryvault/internal/httpapi"
	"github.com/memoryvault/memoryvault/internal/llmprovider"
	"github.com/memoryvault/memoryvault/internal/memsvc"
	"github.com/memoryvault/memoryvault/internal/obs"
	"github.com/memoryvault/memoryvault/internal/resilience"
	"github.com/memoryvault/memoryvault/internal/vectorstore"
	"github.com/memoryvault/memoryvault/internal/vectorstore/badgerstore"
	"github.com/memoryvault/memoryvault/internal/vectorstore/chromastore"
	"github.com/memoryvault/memoryvault/internal/vectorstore/pgstore"
)

const version = "0.1.0"

func main() {
	var host string
	var port int

	root := &cobra.Command{
		Use:     "memoryd",
		Short:   "memoryd serves the memory extraction and consolidation API",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(host, port)
		},
	}
	flags := root.Flags()
	flags.StringVar(&host, "host", "", "bind host, overrides HOST env")
	flags.IntVar(&port, "port", 0, "bind port, overrides PORT env")
	pflag.CommandLine = flags

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(hostFlag string, portFlag int) error {
	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	cfg := config.DefaultConfig().LoadFromEnv()
	if hostFlag != "" {
		cfg.Host = hostFlag
	}
	if portFlag != 0 {
		cfg.Port = portFlag
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracer, shutdownTracer, err := buildTracer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer shutdownTracer()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	store = obs.WrapStore(store, tracer)
	if err := store.Setup(ctx); err != nil {
		return fmt.Errorf("setup vector store: %w", err)
	}

	llm, err := buildLLM(cfg, tracer)
	if err != nil {
		return err
	}
	embedder, err := buildEmbedder(cfg, tracer)
	if err != nil {
		return err
	}

	extractor := extract.New(llm)
	consolidator := consolidate.New(llm)
	svc := memsvc.New(store, embedder, extractor, consolidator, log)
	defer svc.Close()

	handlers := httpapi.NewHandlers(svc, log, tracer)
	engine := httpapi.NewRouter(handlers)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	srv := &http.Server{Addr: addr, Handler: engine}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case <-sigCh:
		log.Info("shutting down")
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

func buildLLM(cfg *config.Config, tracer obs.Tracer) (llmprovider.Provider, error) {
	base, err := llmprovider.New(llmprovider.Options{
		Provider:  cfg.LLMProvider,
		Model:     cfg.LLMModel,
		APIKey:    cfg.LLMAPIKey,
		OllamaURL: cfg.OllamaURL,
	})
	if err != nil {
		return nil, fmt.Errorf("construct llm provider: %w", err)
	}
	limiter := resilience.NewRateLimiter(cfg.RateLimitCallsPerSecond)
	resilient := resilience.WrapLLM(base, limiter, resilience.DefaultRetryConfig())
	return obs.WrapLLM(resilient, tracer, cfg.LLMModel), nil
}

func buildEmbedder(cfg *config.Config, tracer obs.Tracer) (embedprovider.Provider, error) {
	base, err := embedprovider.New(embedprovider.Options{
		Provider:   cfg.EmbeddingProvider,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.EmbeddingDim,
		APIKey:     cfg.EmbeddingAPIKey,
		OllamaURL:  cfg.OllamaURL,
	})
	if err != nil {
		return nil, fmt.Errorf("construct embedding provider: %w", err)
	}

	limiter := resilience.NewRateLimiter(cfg.RateLimitCallsPerSecond)
	var provider embedprovider.Provider = resilience.WrapEmbed(base, limiter, resilience.DefaultRetryConfig())
	if cfg.EmbeddingCacheURL != "" {
		cached, err := embedcache.New(provider, cfg.EmbeddingCacheURL, cfg.EmbeddingModel)
		if err != nil {
			return nil, fmt.Errorf("construct embedding cache: %w", err)
		}
		provider = cached
	}

	return obs.WrapEmbed(provider, tracer, cfg.EmbeddingModel), nil
}

func openStore(ctx context.Context, cfg *config.Config) (vectorstore.Store, error) {
	switch cfg.DBProvider {
	case "", "chroma_lite":
		return badgerstore.Open(cfg.DBPersistDir, cfg.DBCollectionName)
	case "postgres":
		return pgstore.Open(ctx, cfg.DatabaseDSN, cfg.DBCollectionName, cfg.EmbeddingDim)
	case "chroma":
		return chromastore.Open(chromaURL(cfg), cfg.DBCollectionName, cfg.EmbeddingDim)
	default:
		return nil, fmt.Errorf("unknown DB_PROVIDER %q", cfg.DBProvider)
	}
}

// chromaURL reads the "url" key out of DB_PROVIDER_CONFIG, falling back to
// a local default; DB_PROVIDER_CONFIG is the one generic escape hatch the
// external interface contract gives provider-specific settings that don't
// warrant their own named variable.
func chromaURL(cfg *config.Config) string {
	if v, ok := cfg.DBProviderConfig["url"].(string); ok && v != "" {
		return v
	}
	return "http://localhost:8000"
}

func buildTracer(ctx context.Context, cfg *config.Config, log *zap.Logger) (obs.Tracer, func(), error) {
	if !cfg.EnableOTEL {
		return obs.NoopTracer{}, func() {}, nil
	}
	t, err := obs.NewOtelTracer(ctx, cfg.OTELServiceName, cfg.OTELExporterEndpoint, cfg.OTELExporterHeaders)
	if err != nil {
		return nil, nil, fmt.Errorf("construct otel tracer: %w", err)
	}
	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := t.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	return t, shutdown, nil
}
