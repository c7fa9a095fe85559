package ai

import (
	"ImageChat/internal/config"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"
)

// OpenAIImageClient генерирует картинки через OpenAI Images API.
type OpenAIImageClient struct {
	client *openai.Client
	cfg    config.OpenAIImageConfig
	logger *zap.SugaredLogger
}

func NewOpenAIImageClient(client *openai.Client, cfg config.OpenAIImageConfig, logger *zap.SugaredLogger) *OpenAIImageClient {
	if cfg.Model == "" {
		cfg.Model = "dall-e-3"
	}
	return &OpenAIImageClient{client: client, cfg: cfg, logger: logger}
}

func (c *OpenAIImageClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.client == nil {
		return "", errors.New("nil openai client")
	}

	params := openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(c.cfg.Model),
		N:      openai.Int(1),
	}
	if s := strings.TrimSpace(c.cfg.Size); s != "" {
		params.Size = openai.ImageGenerateParamsSize(s)
	}
	if q := strings.TrimSpace(c.cfg.Quality); q != "" {
		params.Quality = openai.ImageGenerateParamsQuality(q)
	}
	// gpt-image-* всегда отвечает base64 и не принимает response_format
	if strings.HasPrefix(c.cfg.Model, "dall-e") {
		params.ResponseFormat = openai.ImageGenerateParamsResponseFormat("url")
	}

	start := time.Now()
	c.logger.Infow("Запрос генерации в OpenAI...", "model", c.cfg.Model, "size", c.cfg.Size)
	resp, err := c.client.Images.Generate(ctx, params)
	dur := time.Since(start)
	if err != nil {
		c.logger.Errorw("Ошибка генерации OpenAI", "duration", dur.String(), "error", err)
		return "", describeOpenAIError(err)
	}
	c.logger.Infow("Картинка OpenAI получена", "duration", dur.String())

	if resp == nil || len(resp.Data) == 0 {
		return "", ErrNoImage
	}
	img := resp.Data[0]
	switch {
	case img.URL != "":
		return img.URL, nil
	case img.B64JSON != "":
		return "data:image/png;base64," + img.B64JSON, nil
	default:
		return "", ErrNoImage
	}
}

// describeOpenAIError оставляет от ошибки API только читаемое сообщение.
func describeOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return errors.New(apiErr.Message)
	}
	return err
}
