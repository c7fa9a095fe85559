package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Job — периодическая фоновая задача.
type Job func(ctx context.Context) error

// Scheduler запускает Job раз в interval. Если предыдущий запуск ещё идёт,
// тик пропускается; каждый запуск ограничен таймаутом.
type Scheduler struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	job      Job
	logger   *zap.SugaredLogger

	// MaxConsecutiveErrors > 0 останавливает цикл после стольких ошибок подряд
	MaxConsecutiveErrors int

	running           atomic.Bool
	consecutiveErrors int
}

func New(name string, interval, timeout time.Duration, job Job, logger *zap.SugaredLogger) *Scheduler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scheduler{name: name, interval: interval, timeout: timeout, job: job, logger: logger}
}

// Run запускает цикл до отмены контекста или достижения лимита ошибок.
// Первый запуск выполняется по истечении первого интервала.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Infow("Scheduler started", "job", s.name, "interval", s.interval.String())

	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case <-t.C:
		}

		if err := s.RunOnce(ctx); err != nil {
			s.consecutiveErrors++
			s.logger.Errorw("Tick failed", "job", s.name, "error", err, "consecutiveErrors", s.consecutiveErrors)
			if s.MaxConsecutiveErrors > 0 && s.consecutiveErrors >= s.MaxConsecutiveErrors {
				s.logger.Errorw("Stopping due to consecutive errors threshold", "job", s.name, "threshold", s.MaxConsecutiveErrors)
				return err
			}
		} else {
			s.consecutiveErrors = 0
		}
	}
}

// RunOnce выполняет задачу один раз; при перекрытии с идущим запуском — пропуск.
func (s *Scheduler) RunOnce(parent context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Debugw("Skipping tick due to overlap", "job", s.name)
		return nil
	}
	defer s.running.Store(false)

	tickCtx, cancel := context.WithTimeoutCause(parent, s.timeout, errors.New(s.name+" tick timeout"))
	defer cancel()

	start := time.Now()
	if err := s.job(tickCtx); err != nil {
		return err
	}
	s.logger.Debugw("Tick done", "job", s.name, "duration", time.Since(start).String())
	return nil
}
