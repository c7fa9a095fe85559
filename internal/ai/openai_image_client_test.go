package ai

import (
	"ImageChat/internal/config"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestOpenAIClient(t *testing.T, handler http.HandlerFunc) *openai.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := openai.NewClient(
		option.WithBaseURL(srv.URL+"/"),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
	return &c
}

func TestOpenAIImageClientReturnsURL(t *testing.T) {
	var body map[string]any
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/generations", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"created":1,"data":[{"url":"https://img.example/fox.png"}]}`)
	})

	c := NewOpenAIImageClient(client, config.OpenAIImageConfig{Model: "dall-e-3", Size: "1024x1024"}, zap.NewNop().Sugar())
	ref, err := c.Generate(context.Background(), "a red fox in snow")

	require.NoError(t, err)
	assert.Equal(t, "https://img.example/fox.png", ref)
	assert.Equal(t, "a red fox in snow", body["prompt"])
	assert.Equal(t, "dall-e-3", body["model"])
	assert.Equal(t, "url", body["response_format"])
}

func TestOpenAIImageClientReturnsDataURLForBase64(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"created":1,"data":[{"b64_json":"aGVsbG8="}]}`)
	})

	c := NewOpenAIImageClient(client, config.OpenAIImageConfig{Model: "gpt-image-1"}, zap.NewNop().Sugar())
	ref, err := c.Generate(context.Background(), "a blue whale")

	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", ref)
}

func TestOpenAIImageClientEmptyData(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"created":1,"data":[]}`)
	})

	c := NewOpenAIImageClient(client, config.OpenAIImageConfig{}, zap.NewNop().Sugar())
	_, err := c.Generate(context.Background(), "nothing")

	require.ErrorIs(t, err, ErrNoImage)
}

func TestOpenAIImageClientAPIErrorMessage(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"quota exceeded","type":"invalid_request_error","param":null,"code":null}}`)
	})

	c := NewOpenAIImageClient(client, config.OpenAIImageConfig{}, zap.NewNop().Sugar())
	_, err := c.Generate(context.Background(), "a blue whale")

	require.Error(t, err)
	assert.Equal(t, "quota exceeded", err.Error())
}
