package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"jobapplier-backend/internal/shared/telemetry"
)

var (
	// ErrQueueFull is returned when the in-process buffer has no room.
	ErrQueueFull = errors.New("queue full")
	// ErrQueueClosed is returned after Close.
	ErrQueueClosed = errors.New("queue closed")
)

// LocalPool runs messages on a fixed set of in-process workers.
// Messages are detached from the sender's context; only the request id is kept.
type LocalPool struct {
	workers int
	jobs    chan Message

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewLocalPool builds a pool. Call Start before sending.
func NewLocalPool(workers, buffer int) *LocalPool {
	if workers <= 0 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	return &LocalPool{
		workers: workers,
		jobs:    make(chan Message, buffer),
	}
}

// Start launches the workers with the given handler. Calling it twice is a no-op.
func (p *LocalPool) Start(handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(handler)
	}
}

// Send enqueues a message without blocking.
func (p *LocalPool) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrQueueClosed
	}
	select {
	case p.jobs <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting messages and waits for queued work to drain
// or for ctx to expire.
func (p *LocalPool) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *LocalPool) run(handler Handler) {
	defer p.wg.Done()
	for msg := range p.jobs {
		p.handle(handler, msg)
	}
}

func (p *LocalPool) handle(handler Handler, msg Message) {
	ctx := telemetry.WithRequestID(context.Background(), msg.RequestID)
	defer func() {
		if r := recover(); r != nil {
			telemetry.Error("queue.local.panic", map[string]any{
				"document_id": msg.DocumentID,
				"request_id":  msg.RequestID,
				"error":       fmt.Sprint(r),
			})
		}
	}()
	if err := handler(ctx, msg); err != nil {
		telemetry.Warn("queue.local.failed", map[string]any{
			"document_id": msg.DocumentID,
			"request_id":  msg.RequestID,
			"error":       err.Error(),
		})
	}
}

var _ Client = (*LocalPool)(nil)
