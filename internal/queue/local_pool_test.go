package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLocalPoolProcessesMessages(t *testing.T) {
	pool := NewLocalPool(2, 8)
	var (
		mu   sync.Mutex
		seen = map[string]bool{}
	)
	pool.Start(func(ctx context.Context, msg Message) error {
		mu.Lock()
		seen[msg.DocumentID] = true
		mu.Unlock()
		return nil
	})

	for _, id := range []string{"a", "b", "c"} {
		if err := pool.Send(context.Background(), NewStructuringMessage(id, "req")); err != nil {
			t.Fatalf("Send(%s): %v", id, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Fatalf("expected 3 processed messages, got %v", seen)
	}
	if err := pool.Send(context.Background(), NewStructuringMessage("d", "req")); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestLocalPoolFullBuffer(t *testing.T) {
	pool := NewLocalPool(1, 1)
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	pool.Start(func(ctx context.Context, msg Message) error {
		started <- struct{}{}
		<-release
		return nil
	})

	ctx := context.Background()
	if err := pool.Send(ctx, NewStructuringMessage("1", "")); err != nil {
		t.Fatalf("first send: %v", err)
	}
	<-started
	if err := pool.Send(ctx, NewStructuringMessage("2", "")); err != nil {
		t.Fatalf("second send: %v", err)
	}
	if err := pool.Send(ctx, NewStructuringMessage("3", "")); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	close(release)
	closeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Close(closeCtx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestLocalPoolRecoversFromPanic(t *testing.T) {
	pool := NewLocalPool(1, 2)
	done := make(chan string, 2)
	pool.Start(func(ctx context.Context, msg Message) error {
		if msg.DocumentID == "boom" {
			panic("structuring exploded")
		}
		done <- msg.DocumentID
		return nil
	})

	ctx := context.Background()
	_ = pool.Send(ctx, NewStructuringMessage("boom", ""))
	_ = pool.Send(ctx, NewStructuringMessage("ok", ""))

	select {
	case id := <-done:
		if id != "ok" {
			t.Fatalf("unexpected id %s", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive panic")
	}
	_ = pool.Close(ctx)
}
