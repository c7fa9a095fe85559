package ai

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// StubClient заглушка, которая не делает реальных запросов
type StubClient struct {
	delay time.Duration
	n     atomic.Int64
}

func NewStubClient(delay time.Duration) *StubClient { return &StubClient{delay: delay} }

// Generate ждёт delay и возвращает фиктивную ссылку stub://image/<n>.
func (c *StubClient) Generate(ctx context.Context, _ string) (string, error) {
	if c.delay > 0 {
		t := time.NewTimer(c.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", context.Cause(ctx)
		case <-t.C:
		}
	}
	return fmt.Sprintf("stub://image/%d", c.n.Add(1)), nil
}
