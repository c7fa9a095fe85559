package ai

import (
	"ImageChat/internal/config"
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDataURL(t *testing.T) {
	got := DataURL("image/jpeg", []byte("abc"))
	assert.Equal(t, "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString([]byte("abc")), got)

	assert.True(t, strings.HasPrefix(DataURL("", []byte("x")), "data:image/png;base64,"))
}

func TestStubClientReturnsDistinctRefs(t *testing.T) {
	c := NewStubClient(0)

	a, err := c.Generate(context.Background(), "a fox")
	require.NoError(t, err)
	b, err := c.Generate(context.Background(), "a whale")
	require.NoError(t, err)

	assert.Equal(t, "stub://image/1", a)
	assert.Equal(t, "stub://image/2", b)
}

func TestStubClientHonorsContext(t *testing.T) {
	c := NewStubClient(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Generate(ctx, "slow")
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Defaults()
	logger := zap.NewNop().Sugar()

	cfg.Provider = "stub"
	c, err := NewFromConfig(context.Background(), cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &StubClient{}, c)

	cfg.Provider = "openai"
	cfg.OpenAI.APIKey = "test-key"
	c, err = NewFromConfig(context.Background(), cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIImageClient{}, c)

	cfg.Provider = "gemini"
	cfg.Gemini.APIKey = ""
	_, err = NewFromConfig(context.Background(), cfg, logger)
	assert.Error(t, err)

	cfg.Provider = "dalle"
	_, err = NewFromConfig(context.Background(), cfg, logger)
	assert.Error(t, err)
}
