package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestQueue_EnqueueDequeue(t *testing.T) {
	q := New[int](2)
	ctx := context.Background()

	if got := q.Capacity(); got != 2 {
		t.Errorf("Capacity() = %d, want 2", got)
	}
	if got := q.PendingCount(); got != 0 {
		t.Errorf("initial PendingCount() = %d, want 0", got)
	}

	if err := q.Enqueue(ctx, 1); err != nil {
		t.Fatalf("Enqueue(1) failed: %v", err)
	}
	if err := q.Enqueue(ctx, 2); err != nil {
		t.Fatalf("Enqueue(2) failed: %v", err)
	}
	if got := q.PendingCount(); got != 2 {
		t.Errorf("PendingCount() after two enqueues = %d, want 2", got)
	}

	item, ok, err := q.Dequeue(ctx)
	if err != nil || !ok || item != 1 {
		t.Fatalf("Dequeue() = (%d, %v, %v), want (1, true, nil)", item, ok, err)
	}
}

func TestQueue_TryEnqueueFullReturnsErrQueueFull(t *testing.T) {
	q := New[int](1)
	if err := q.TryEnqueue(1); err != nil {
		t.Fatalf("first TryEnqueue failed: %v", err)
	}
	if err := q.TryEnqueue(2); !errors.Is(err, ErrQueueFull) {
		t.Errorf("second TryEnqueue error = %v, want ErrQueueFull", err)
	}
}

func TestQueue_EnqueueBlocksUntilContextCancelled(t *testing.T) {
	q := New[int](1)
	if err := q.TryEnqueue(1); err != nil {
		t.Fatalf("TryEnqueue failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := q.Enqueue(ctx, 2)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Enqueue on full queue returned %v, want context.DeadlineExceeded", err)
	}
}

func TestQueue_CloseDrainsRemainingThenReturnsNotOK(t *testing.T) {
	q := New[int](2)
	ctx := context.Background()
	q.Enqueue(ctx, 1)
	q.Close()

	item, ok, err := q.Dequeue(ctx)
	if err != nil || !ok || item != 1 {
		t.Fatalf("Dequeue() after Close = (%d, %v, %v), want (1, true, nil)", item, ok, err)
	}

	_, ok, err = q.Dequeue(ctx)
	if err != nil || ok {
		t.Fatalf("Dequeue() on drained closed queue = (ok=%v, err=%v), want (false, nil)", ok, err)
	}
}

func TestQueue_EnqueueAfterCloseReturnsErrClosed(t *testing.T) {
	q := New[int](2)
	q.Close()
	if err := q.Enqueue(context.Background(), 1); !errors.Is(err, ErrClosed) {
		t.Errorf("Enqueue after Close = %v, want ErrClosed", err)
	}
	if err := q.TryEnqueue(1); !errors.Is(err, ErrClosed) {
		t.Errorf("TryEnqueue after Close = %v, want ErrClosed", err)
	}
}

func TestQueue_WaitForDrain(t *testing.T) {
	q := New[int](2)
	q.Enqueue(context.Background(), 1)

	done := make(chan struct{})
	go func() {
		q.WaitForDrain(context.Background())
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("WaitForDrain returned before the item was dequeued")
	case <-time.After(50 * time.Millisecond):
	}

	q.Dequeue(context.Background())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitForDrain did not return after the queue drained")
	}
}

func TestQueue_DefaultCapacityOnNonPositive(t *testing.T) {
	q := New[int](0)
	if got := q.Capacity(); got != DefaultCapacity {
		t.Errorf("Capacity() with zero requested = %d, want DefaultCapacity (%d)", got, DefaultCapacity)
	}

	q = New[int](-5)
	if got := q.Capacity(); got != DefaultCapacity {
		t.Errorf("Capacity() with negative requested = %d, want DefaultCapacity (%d)", got, DefaultCapacity)
	}
}
