package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/voterfile/propensity/internal/domain/model"
)

func voter(id string) model.Voter {
	return model.Voter{
		ID:           id,
		RegisteredAt: time.Date(2016, time.March, 1, 0, 0, 0, 0, time.UTC),
		VotedIn:      []string{"2016-general"},
	}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	// Test empty queue
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	// Test enqueue
	if !q.Enqueue(ctx, voter("v1")) {
		t.Error("expected enqueue to succeed")
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	// Test dequeue
	taskChan := q.Dequeue(ctx)
	task := <-taskChan
	if task.ID != "v1" {
		t.Errorf("expected v1, got %v", task.ID)
	}

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, voter("v1")) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, voter("v2")) {
		t.Error("expected enqueue to succeed")
	}

	// Try to enqueue when full
	if q.Enqueue(ctx, voter("v3")) {
		t.Error("expected enqueue to fail when full")
	}

	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_BatchDrain(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1000))
	ctx := context.Background()
	numVoters := 500

	// A run enqueues the whole batch, then closes the queue.
	for i := 0; i < numVoters; i++ {
		if !q.Enqueue(ctx, voter(fmt.Sprintf("v%03d", i))) {
			t.Fatalf("enqueue %d failed", i)
		}
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	// Consumers drain every queued task and then see a closed channel.
	seen := make(map[string]bool, numVoters)
	for task := range q.Dequeue(ctx) {
		seen[task.ID] = true
	}
	if len(seen) != numVoters {
		t.Errorf("expected %d drained tasks, got %d", numVoters, len(seen))
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()
	numGoroutines := 10
	numVoters := 100

	// Start producer goroutines
	done := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			for j := 0; j < numVoters; j++ {
				v := voter(fmt.Sprintf("v%d_%d", id, j))
				for !q.Enqueue(ctx, v) {
					time.Sleep(time.Millisecond)
				}
			}
			done <- true
		}(i)
	}

	// Start consumer goroutines
	consumed := make(chan string, numGoroutines*numVoters)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			taskChan := q.Dequeue(ctx)
			for task := range taskChan {
				consumed <- task.ID
			}
		}()
	}

	// Wait for producers to finish
	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	// Wait a bit for consumers to process
	time.Sleep(100 * time.Millisecond)

	// Check final queue length
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected final length 0, got %d", l)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if !q.Enqueue(ctx, voter("v1")) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, voter("v2")) {
		t.Error("expected enqueue to succeed")
	}

	// Check initial state
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}

	// Close the queue
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}

	// Check closed state
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}

	// Try to enqueue after closing (should fail)
	if q.Enqueue(ctx, voter("v3")) {
		t.Error("expected enqueue to fail after closing")
	}

	// Queued tasks still drain, then the channel closes
	taskChan := q.Dequeue(ctx)
	drained := 0
	timeout := time.After(100 * time.Millisecond)
	for {
		select {
		case _, ok := <-taskChan:
			if !ok {
				if drained != 2 {
					t.Errorf("expected 2 drained tasks before close, got %d", drained)
				}
				goto channelClosed
			}
			drained++
		case <-timeout:
			t.Error("expected dequeue channel to be closed within timeout")
			return
		}
	}
channelClosed:

	// Close again should not error
	if err := q.Close(); err != nil {
		t.Errorf("expected second close to succeed, got error: %v", err)
	}
}
