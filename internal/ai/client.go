package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
)

// ImageClient генерирует картинку по текстовому описанию и возвращает ссылку на неё
// (http(s) URL или data URL). Все реализации должны быть взаимозаменяемыми.
type ImageClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrNoImage — провайдер ответил без картинки.
var ErrNoImage = errors.New("generation returned no image")

// DataURL кодирует байты картинки в data URL.
func DataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}
