package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/cv-shortlister/internal/ai/gemini"
	"github.com/spigell/cv-shortlister/internal/embedding"
	"github.com/spigell/cv-shortlister/internal/oracle"
	"github.com/spigell/cv-shortlister/internal/secrets"
)

const geminiAPIKeyEnv = "GEMINI_API_KEY"

func newGenerator(ctx context.Context, config *Config, embeddingModel string, logger *zap.Logger) (*gemini.Generator, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: config.Gemini.APIKey,
		File:  config.Gemini.APIKeyFile,
		Env:   geminiAPIKeyEnv,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set gemini.api-key-file or %s)", err, geminiAPIKeyEnv)
	}

	return gemini.NewGenerator(ctx, gemini.Config{
		APIKey:         apiKey,
		Model:          config.Gemini.Model,
		EmbeddingModel: embeddingModel,
		MaxRetries:     config.Gemini.MaxRetries,
	}, logger)
}

// newEmbedder defers provider construction until the first text is embedded.
func newEmbedder(ctx context.Context, config *Config, logger *zap.Logger) embedding.Embedder {
	cfg := config.Embedding
	return embedding.NewLazy(func() (embedding.Embedder, error) {
		switch cfg.Provider {
		case embedding.ProviderGemini:
			generator, err := newGenerator(ctx, config, cfg.Model, logger)
			if err != nil {
				return nil, err
			}
			return generator, nil
		case embedding.ProviderOllama:
			return embedding.NewOllama(cfg.URL, cfg.Model, cfg.MaxRetries, logger), nil
		default:
			return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
		}
	})
}

// newOracle builds the configured backend. A gemini backend without an API key
// is kept and reports itself unavailable on every call.
func newOracle(ctx context.Context, config *Config, logger *zap.Logger) (*oracle.Oracle, error) {
	classifier, err := oracle.NewClassifier(config.Oracle.Output)
	if err != nil {
		return nil, err
	}

	var backend oracle.Backend
	switch config.Oracle.Backend {
	case oracle.BackendGemini:
		generator, err := newGenerator(ctx, config, "", logger)
		if err != nil {
			logger.Warn("gemini oracle is not available", zap.Error(err))
			backend = oracle.NewGemini(nil)
			break
		}
		backend = oracle.NewGemini(generator)
	case oracle.BackendProcess:
		backend = oracle.NewProcess(config.Oracle.Command, config.Oracle.Args, config.Oracle.Timeout)
	default:
		return nil, fmt.Errorf("unsupported oracle backend: %s", config.Oracle.Backend)
	}

	return oracle.New(backend, classifier, logger, config.Oracle.MaxLogLength), nil
}
