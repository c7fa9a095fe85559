package ai

import (
	"ImageChat/internal/config"
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

// NewFromConfig создаёт клиента генерации для выбранного провайдера.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (ImageClient, error) {
	switch cfg.Provider {
	case "openai":
		// без ключа SDK сам читает OPENAI_API_KEY из окружения
		var opts []option.RequestOption
		if cfg.OpenAI.APIKey != "" {
			opts = append(opts, option.WithAPIKey(cfg.OpenAI.APIKey))
		}
		oClient := openai.NewClient(opts...)
		return NewOpenAIImageClient(&oClient, cfg.OpenAI, logger), nil
	case "gemini":
		gClient, err := NewGeminiImageClient(ctx, cfg.Gemini, logger)
		if err != nil {
			return nil, err
		}
		return gClient, nil
	case "stub":
		return NewStubClient(cfg.StubDelay), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
