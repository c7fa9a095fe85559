package image

import (
	"ImageChat/internal/service/conversation"
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Gallery следит за Store и сохраняет на диск каждую новую готовую картинку.
type Gallery struct {
	saver  *Saver
	logger *zap.SugaredLogger

	mu      sync.Mutex
	lastRef string
	current SavedImage
	notify  chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewGallery(saver *Saver, logger *zap.SugaredLogger) *Gallery {
	ctx, cancel := context.WithCancel(context.Background())
	return &Gallery{
		saver:  saver,
		logger: logger,
		notify: make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Observe — колбэк для Store.Subscribe.
func (g *Gallery) Observe(snap conversation.Snapshot) {
	lc := snap.Lifecycle
	g.mu.Lock()
	defer g.mu.Unlock()
	if lc.Status != conversation.StatusSucceeded || lc.ImageRef == g.lastRef {
		return
	}
	g.lastRef = lc.ImageRef
	g.wg.Add(1)
	go g.save(lc.ImageRef)
}

func (g *Gallery) save(ref string) {
	defer g.wg.Done()

	ctx, cancel := context.WithTimeoutCause(g.ctx, 2*time.Minute, errors.New("image save timeout"))
	defer cancel()

	saved, err := g.saver.Save(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrNotMaterializable) {
			g.logger.Debugw("Image reference is not saved", "ref", ref)
			return
		}
		g.logger.Warnw("Failed to save image", "error", err)
		return
	}
	g.logger.Infow("Image saved", "path", saved.Path, "width", saved.Width, "height", saved.Height, "bytes", saved.SizeBytes)

	g.mu.Lock()
	// пока сохраняли, могла прийти следующая картинка
	if g.lastRef == ref {
		g.current = saved
	}
	g.mu.Unlock()

	select {
	case g.notify <- struct{}{}:
	default:
	}
}

// Lookup возвращает сохранённый файл для ссылки, если он уже готов.
func (g *Gallery) Lookup(ref string) (SavedImage, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ref == "" || g.current.Ref != ref {
		return SavedImage{}, false
	}
	return g.current, true
}

// NotifyCh сигналит о каждой новой сохранённой картинке.
func (g *Gallery) NotifyCh() <-chan struct{} { return g.notify }

// Close отменяет незавершённые сохранения и ждёт их.
func (g *Gallery) Close() {
	g.cancel()
	g.wg.Wait()
}
