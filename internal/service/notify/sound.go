package notify

import (
	"ImageChat/internal/service/conversation"
	"ImageChat/internal/service/player"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// SoundNotifier проигрывает короткий звук, когда картинка готова.
type SoundNotifier struct {
	logger *zap.SugaredLogger
	path   string
	ply    player.Player

	mu   sync.Mutex
	last conversation.Status
	wg   sync.WaitGroup
}

// NewSoundNotifier создаёт нотификатор. Пустой путь — sound/notification.mp3
// (сначала рядом с бинарём, затем от текущей директории).
func NewSoundNotifier(logger *zap.SugaredLogger, path string, ply player.Player) *SoundNotifier {
	if strings.TrimSpace(path) == "" {
		path = resolve(filepath.Join("sound", "notification.mp3"))
	}
	return &SoundNotifier{logger: logger, path: path, ply: ply}
}

func resolve(def string) string {
	if exe, err := os.Executable(); err == nil {
		cand := filepath.Join(filepath.Dir(exe), def)
		if _, statErr := os.Stat(cand); statErr == nil {
			return cand
		}
	}
	return filepath.FromSlash(def)
}

// Observe — колбэк для Store.Subscribe: звук на каждом переходе в succeeded.
func (n *SoundNotifier) Observe(snap conversation.Snapshot) {
	n.mu.Lock()
	prev := n.last
	n.last = snap.Lifecycle.Status
	n.mu.Unlock()

	if prev == conversation.StatusSucceeded || snap.Lifecycle.Status != conversation.StatusSucceeded {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		_ = n.Play(context.Background())
	}()
}

// Play проигрывает звук уведомления. Ошибки логируются и возвращаются.
func (n *SoundNotifier) Play(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	default:
	}

	f, err := os.Open(n.path)
	if err != nil {
		n.logger.Warnw("Не удалось открыть звуковой файл уведомления", "path", n.path, "error", err)
		return err
	}
	defer f.Close()

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(n.path), "."))
	if ext == "" {
		ext = "mp3"
	}
	if err := n.ply.Play(ext, f); err != nil {
		n.logger.Warnw("Не удалось воспроизвести звуковое уведомление", "path", n.path, "error", err)
		return err
	}
	return nil
}

// Wait ждёт окончания начатых проигрываний.
func (n *SoundNotifier) Wait() { n.wg.Wait() }
