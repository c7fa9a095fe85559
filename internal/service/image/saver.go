package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

const defaultMaxSizeBytes = 32 * 1024 * 1024

// ErrNotMaterializable — ссылку нельзя сохранить в файл (например, stub://).
var ErrNotMaterializable = errors.New("image reference cannot be saved")

// SavedImage — картинка, сохранённая на диск.
type SavedImage struct {
	Ref       string
	Path      string
	Width     int
	Height    int
	SizeBytes int
	MimeType  string
}

// Saver сохраняет результат генерации (data URL или http(s) URL) в файл.
type Saver struct {
	outputDir   string
	maxSizeByte int
	httpClient  *http.Client
	now         func() time.Time
}

func NewSaver(outputDir string) *Saver {
	return &Saver{
		outputDir:   outputDir,
		maxSizeByte: defaultMaxSizeBytes,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		now:         time.Now,
	}
}

// Save скачивает/декодирует картинку по ссылке и пишет её в outputDir.
func (s *Saver) Save(ctx context.Context, ref string) (SavedImage, error) {
	var (
		data     []byte
		mimeType string
		err      error
	)
	switch {
	case strings.HasPrefix(ref, "data:"):
		data, mimeType, err = decodeDataURL(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		data, mimeType, err = s.download(ctx, ref)
	default:
		return SavedImage{}, ErrNotMaterializable
	}
	if err != nil {
		return SavedImage{}, err
	}
	if len(data) > s.maxSizeByte {
		return SavedImage{}, fmt.Errorf("image exceeds max size %d bytes", s.maxSizeByte)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return SavedImage{}, fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return SavedImage{}, fmt.Errorf("invalid image size: %dx%d", cfg.Width, cfg.Height)
	}
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		mimeType = "image/" + format
	}

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return SavedImage{}, err
	}
	filename := fmt.Sprintf("image_%s_%s.%s", s.now().Format("2006-01-02_15-04-05"), uuid.NewString()[:8], extFor(format))
	outputPath := filepath.Join(s.outputDir, filename)
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return SavedImage{}, err
	}

	return SavedImage{
		Ref:       ref,
		Path:      outputPath,
		Width:     cfg.Width,
		Height:    cfg.Height,
		SizeBytes: len(data),
		MimeType:  mimeType,
	}, nil
}

func (s *Saver) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(s.maxSizeByte)+1))
	if err != nil {
		return nil, "", fmt.Errorf("download image: %w", err)
	}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return data, mediaType, nil
}

// decodeDataURL разбирает data:<mime>;base64,<payload>.
func decodeDataURL(ref string) ([]byte, string, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, "", errors.New("malformed data URL")
	}
	mimeType, enc, _ := strings.Cut(meta, ";")
	if enc != "base64" {
		return nil, "", fmt.Errorf("unsupported data URL encoding %q", enc)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data URL: %w", err)
	}
	return data, mimeType, nil
}

func extFor(format string) string {
	switch format {
	case "jpeg":
		return "jpg"
	case "":
		return "img"
	default:
		return format
	}
}
