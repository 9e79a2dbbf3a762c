package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/ai"
	"github.com/spigell/cv-screener/internal/ai/azure"
	"github.com/spigell/cv-screener/internal/ai/gemini"
	"github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/screening"
	"github.com/spigell/cv-screener/internal/secrets"
)

// newGenerator builds the inference client selected by ai.provider.
func newGenerator(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Generator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	switch provider {
	case "", ai.ProviderGemini:
		gc := cfg.Gemini
		if gc == nil {
			gc = &GeminiConfig{}
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name:     "gemini api key",
			File:     gc.APIKeyFile,
			Value:    gc.APIKey,
			FileEnv:  "GEMINI_API_KEY_FILE",
			ValueEnv: "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, err
		}

		generator, err := gemini.NewGenerator(ctx, gemini.Config{
			APIKey:      apiKey,
			Model:       gc.Model,
			MaxRetries:  gc.MaxRetries,
			Temperature: gc.Temperature,
		}, logger.WithCommonFields(log, ai.ProviderGemini, gc.Model).Named("gemini"))
		if err != nil {
			return nil, err
		}
		return generator, nil

	case ai.ProviderAzure:
		ac := cfg.AzureOpenAI
		if ac == nil {
			ac = &AzureOpenAIConfig{}
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name:     "azure openai api key",
			File:     ac.APIKeyFile,
			Value:    ac.APIKey,
			FileEnv:  "AZURE_OPENAI_API_KEY_FILE",
			ValueEnv: "AZURE_OPENAI_API_KEY",
		})
		if err != nil {
			return nil, err
		}

		client, err := azure.NewClient(azure.Config{
			Endpoint:    ac.Endpoint,
			Deployment:  ac.Deployment,
			APIVersion:  ac.APIVersion,
			APIKey:      apiKey,
			Temperature: ac.Temperature,
			Timeout:     ac.Timeout,
		}, logger.WithCommonFields(log, ai.ProviderAzure, ac.Deployment).Named("azure"))
		if err != nil {
			return nil, err
		}
		return client, nil

	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

// newPipeline wires the configured generator into a screening pipeline.
func newPipeline(ctx context.Context, cfg *AIConfig, log *zap.Logger) (*screening.Pipeline, error) {
	generator, err := newGenerator(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("building ai generator: %w", err)
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ai.ProviderGemini
	}

	log.Info("ai generator ready",
		logger.CommonFields(provider, generator.Model())...,
	)

	pipelineLog := logger.WithCommonFields(log, provider, generator.Model()).Named("screening")

	return screening.NewPipeline(generator, pipelineLog, cfg.MaxLogLength), nil
}
