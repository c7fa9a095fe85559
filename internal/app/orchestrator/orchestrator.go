package orchestrator

import (
	"ImageChat/internal/ai"
	"ImageChat/internal/service/conversation"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	SuccessNarration = "Here is the image you requested. What should we create next?"
	FallbackError    = "An unexpected error occurred."
)

var errUnexpected = errors.New(FallbackError)

// FailureNarration — текст системной записи при ошибке генерации.
func FailureNarration(msg string) string {
	return fmt.Sprintf("Sorry, I couldn't create that image. Error: %s", msg)
}

// Orchestrator — единственный, кто последовательно меняет Store: принимает промпт,
// переводит запрос в pending, вызывает генерацию и записывает результат.
type Orchestrator struct {
	store   *conversation.Store
	client  ai.ImageClient
	logger  *zap.SugaredLogger
	timeout time.Duration

	mu      sync.Mutex // сериализует SubmitPrompt
	running atomic.Bool
	closed  atomic.Bool
	wg      sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// New создаёт оркестратор. timeout <= 0 — без ограничения времени запроса.
func New(store *conversation.Store, client ai.ImageClient, timeout time.Duration, logger *zap.SugaredLogger) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		store:   store,
		client:  client,
		logger:  logger,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SubmitPrompt принимает текст пользователя. Пустой (после trim) текст или
// уже выполняющийся запрос — тихий no-op; возвращает, был ли промпт принят.
func (o *Orchestrator) SubmitPrompt(raw string) bool {
	prompt := strings.TrimSpace(raw)
	if prompt == "" || o.closed.Load() {
		return false
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	// Два уровня защиты: статус в Store и флаг выполняющегося запроса
	if o.store.Lifecycle().Status == conversation.StatusPending || o.running.Load() {
		o.logger.Infow("Skipping prompt: request already pending")
		return false
	}

	o.store.AppendEntry(conversation.SenderUser, prompt)
	// pending сразу очищает прошлую картинку/ошибку
	o.store.SetLifecycle(conversation.Pending())

	o.running.Store(true)
	o.wg.Add(1)
	go o.run(prompt)
	return true
}

// IsBusy — true, пока запрос в статусе pending.
func (o *Orchestrator) IsBusy() bool {
	return o.store.Lifecycle().Status == conversation.StatusPending
}

func (o *Orchestrator) run(prompt string) {
	defer o.wg.Done()

	start := time.Now()
	o.logger.Infow("Generation start", "prompt", prompt)
	ref, err := o.generate(prompt)

	o.mu.Lock()
	defer o.mu.Unlock()
	// флаг снимается под mu вместе с записью результата
	defer o.running.Store(false)

	// Сессия завершена — результат выбрасываем
	if o.closed.Load() {
		o.logger.Infow("Discarding generation result: session closed")
		return
	}

	if err != nil {
		msg := errorMessage(err)
		o.logger.Warnw("Generation failed", "duration", time.Since(start).String(), "error", msg)
		o.store.Batch(func(b *conversation.Batch) {
			b.AppendEntry(conversation.SenderSystem, FailureNarration(msg))
			b.SetLifecycle(conversation.Failed(msg))
		})
		return
	}

	o.logger.Infow("Generation done", "duration", time.Since(start).String())
	o.store.Batch(func(b *conversation.Batch) {
		b.AppendEntry(conversation.SenderSystem, SuccessNarration)
		b.SetLifecycle(conversation.Succeeded(ref))
	})
}

// generate вызывает клиента с таймаутом; паника клиента превращается в ошибку.
func (o *Orchestrator) generate(prompt string) (ref string, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Errorw("Image client panicked", "panic", r)
			ref, err = "", errUnexpected
		}
	}()

	ctx := o.ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, o.timeout, errors.New("generation timeout"))
		defer cancel()
	}

	ref, err = o.client.Generate(ctx, prompt)
	if err != nil {
		if cause := context.Cause(ctx); cause != nil && errors.Is(err, ctx.Err()) {
			return "", cause
		}
		return "", err
	}
	if strings.TrimSpace(ref) == "" {
		return "", ai.ErrNoImage
	}
	return ref, nil
}

// errorMessage — текст ошибки для пользователя или общий fallback.
func errorMessage(err error) string {
	if err == nil {
		return FallbackError
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return FallbackError
}

// Wait блокируется, пока выполняется запрос.
func (o *Orchestrator) Wait() { o.wg.Wait() }

// Close завершает сессию: новые промпты не принимаются, результат текущего
// запроса будет отброшен.
func (o *Orchestrator) Close() {
	if !o.closed.CompareAndSwap(false, true) {
		return
	}
	o.cancel()
}
