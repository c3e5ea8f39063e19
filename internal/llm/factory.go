// Package llm creates chat models and obtains schema-valid structured
// decisions from them.
package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/ollama/ollama/api"

	"dsagent/internal/config"
)

// Factory creates tool-calling chat models for the configured provider.
// Per-role model overrides come from the role table; everything else
// (provider, credentials, sampling) is shared.
type Factory struct {
	cfg config.ModelConfig
}

// NewFactory creates a model factory from configuration.
func NewFactory(cfg config.ModelConfig) *Factory {
	return &Factory{cfg: cfg}
}

// Create builds a chat model for the given model name. An empty name uses
// the configured default.
func (f *Factory) Create(ctx context.Context, modelName string) (model.ToolCallingChatModel, error) {
	if modelName == "" {
		modelName = f.cfg.Model
	}

	switch f.cfg.Provider {
	case "", "openai":
		maxTokens := f.cfg.MaxTokens
		temperature := float32(f.cfg.Temperature)
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      f.cfg.APIKey,
			BaseURL:     f.cfg.BaseURL,
			Model:       modelName,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating openai chat model: %w", err)
		}
		return cm, nil

	case "ollama":
		temperature := float32(f.cfg.Temperature)
		cm, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: f.cfg.BaseURL,
			Model:   modelName,
			Options: &api.Options{
				Temperature: temperature,
				NumPredict:  f.cfg.MaxTokens,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("error creating ollama chat model: %w", err)
		}
		return cm, nil

	case "deepseek":
		cm, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:      f.cfg.APIKey,
			BaseURL:     f.cfg.BaseURL,
			Model:       modelName,
			MaxTokens:   f.cfg.MaxTokens,
			Temperature: float32(f.cfg.Temperature),
		})
		if err != nil {
			return nil, fmt.Errorf("error creating deepseek chat model: %w", err)
		}
		return cm, nil

	case "ark":
		maxTokens := f.cfg.MaxTokens
		temperature := float32(f.cfg.Temperature)
		cm, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
			APIKey:      f.cfg.APIKey,
			BaseURL:     f.cfg.BaseURL,
			Model:       modelName,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating ark chat model: %w", err)
		}
		return cm, nil
	}

	return nil, fmt.Errorf("unknown model provider: %s", f.cfg.Provider)
}
