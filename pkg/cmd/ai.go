package cmd

import (
	"fmt"
	"log/slog"

	"github.com/BabaVossRS3/FlowForge/pkg/ai"
)

// AIConfig selects the completion provider. An empty Provider picks Gemini when its key is set,
// then OpenAI.
type AIConfig struct {
	Provider     string
	GeminiAPIKey string
	OpenAIAPIKey string
}

// NewAIProvider never fails for a missing key: it returns ai.Unconfigured so AI nodes fail at run
// time while the rest of the engine keeps working.
func NewAIProvider(cfg AIConfig, logger *slog.Logger) (ai.Provider, error) {
	provider := cfg.Provider
	if provider == "" {
		switch {
		case cfg.GeminiAPIKey != "":
			provider = "gemini"
		case cfg.OpenAIAPIKey != "":
			provider = "openai"
		}
	}

	switch provider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			logger.Warn("GEMINI_API_KEY is not set, AI nodes will fail")

			return ai.Unconfigured{ProviderName: provider}, nil
		}

		return ai.NewGemini(ai.GeminiConfig{APIKey: cfg.GeminiAPIKey, Logger: logger}), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			logger.Warn("OPENAI_API_KEY is not set, AI nodes will fail")

			return ai.Unconfigured{ProviderName: provider}, nil
		}

		return ai.NewOpenAI(ai.OpenAIConfig{APIKey: cfg.OpenAIAPIKey}), nil
	case "":
		logger.Warn("no AI provider configured, AI nodes will fail")

		return ai.Unconfigured{}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported AI provider %q", ErrInvalidConfiguration, provider)
	}
}
