package ai

import "context"

// Generator sends a fully rendered prompt to a text-generation backend and
// returns a single completion.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Provider names accepted in configuration.
const (
	ProviderGemini = "gemini"
	ProviderAzure  = "azure-openai"
)
