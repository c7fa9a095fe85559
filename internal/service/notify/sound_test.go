package notify

import (
	"ImageChat/internal/service/conversation"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPlayer struct {
	mu      sync.Mutex
	formats []string
}

func (p *recordingPlayer) Play(format string, r io.ReadCloser) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.formats = append(p.formats, format)
	return nil
}

func (p *recordingPlayer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.formats)
}

func newSoundFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o644))
	return path
}

func TestObservePlaysOnEachSucceededTransition(t *testing.T) {
	ply := &recordingPlayer{}
	n := NewSoundNotifier(zap.NewNop().Sugar(), newSoundFile(t, "ding.wav"), ply)

	steps := []conversation.Lifecycle{
		conversation.Pending(),
		conversation.Succeeded("a"),
		conversation.Succeeded("a"), // повторное уведомление без перехода
		conversation.Pending(),
		conversation.Failed("x"),
		conversation.Pending(),
		conversation.Succeeded("b"),
	}
	for _, lc := range steps {
		n.Observe(conversation.Snapshot{Lifecycle: lc})
	}
	n.Wait()

	assert.Equal(t, 2, ply.count())
	assert.Equal(t, "wav", ply.formats[0])
}

func TestPlayMissingFile(t *testing.T) {
	ply := &recordingPlayer{}
	n := NewSoundNotifier(zap.NewNop().Sugar(), filepath.Join(t.TempDir(), "none.mp3"), ply)

	assert.Error(t, n.Play(context.Background()))
	assert.Zero(t, ply.count())
}

func TestPlayCancelled(t *testing.T) {
	ply := &recordingPlayer{}
	n := NewSoundNotifier(zap.NewNop().Sugar(), newSoundFile(t, "ding.mp3"), ply)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Play(ctx), context.Canceled)
	assert.Zero(t, ply.count())
}
