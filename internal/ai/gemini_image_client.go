package ai

import (
	"ImageChat/internal/config"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const defaultGeminiImageModel = "imagen-4.0-generate-001"

// GeminiImageClient генерирует картинки через Imagen (Gemini API) и отдаёт их как data URL.
type GeminiImageClient struct {
	client *genai.Client
	cfg    config.GeminiImageConfig
	logger *zap.SugaredLogger
}

func NewGeminiImageClient(ctx context.Context, cfg config.GeminiImageConfig, logger *zap.SugaredLogger) (*GeminiImageClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: GEMINI_API_KEY is not set")
	}
	if cfg.Model == "" {
		cfg.Model = defaultGeminiImageModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiImageClient{client: client, cfg: cfg, logger: logger}, nil
}

func (c *GeminiImageClient) Generate(ctx context.Context, prompt string) (string, error) {
	gc := &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: "image/png",
	}
	if ar := strings.TrimSpace(c.cfg.AspectRatio); ar != "" {
		gc.AspectRatio = ar
	}

	start := time.Now()
	c.logger.Infow("Запрос генерации в Gemini...", "model", c.cfg.Model)
	resp, err := c.client.Models.GenerateImages(ctx, c.cfg.Model, prompt, gc)
	dur := time.Since(start)
	if err != nil {
		c.logger.Errorw("Ошибка генерации Gemini", "duration", dur.String(), "error", err)
		return "", err
	}
	c.logger.Infow("Картинка Gemini получена", "duration", dur.String())

	if resp == nil || len(resp.GeneratedImages) == 0 {
		return "", ErrNoImage
	}
	gen := resp.GeneratedImages[0]
	if gen == nil || gen.Image == nil || len(gen.Image.ImageBytes) == 0 {
		// Картинку вырезал фильтр безопасности
		if gen != nil && gen.RAIFilteredReason != "" {
			return "", errors.New(gen.RAIFilteredReason)
		}
		return "", ErrNoImage
	}
	return DataURL(gen.Image.MIMEType, gen.Image.ImageBytes), nil
}
