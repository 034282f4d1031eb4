package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopOrder(t *testing.T) {
	q := NewInMemoryQueue()
	defer q.Close()

	require.NoError(t, q.Push(&Task{ID: "a", URL: "https://example.com/1", Row: 4}))
	require.NoError(t, q.Push(&Task{ID: "b", URL: "https://example.com/2", Row: 5}))
	assert.Equal(t, 2, q.Size())

	ctx := context.Background()

	task, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", task.ID)

	task, err = q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", task.ID)
	assert.Equal(t, 0, q.Size())
}

func TestPopBlocksUntilPush(t *testing.T) {
	q := NewInMemoryQueue()
	defer q.Close()

	got := make(chan *Task, 1)
	go func() {
		task, err := q.Pop(context.Background())
		if err == nil {
			got <- task
		}
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, q.Push(&Task{ID: "late"}))

	select {
	case task := <-got:
		assert.Equal(t, "late", task.ID)
	case <-time.After(time.Second):
		t.Fatal("Pop did not return after Push")
	}
}

func TestPopContextCancel(t *testing.T) {
	q := NewInMemoryQueue()
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPopRepeatedCancellations(t *testing.T) {
	q := NewInMemoryQueue()
	defer q.Close()

	// hammer the cancel path on an empty queue; every Pop must come back
	// with the context error and leave the queue usable
	for i := 0; i < 2000; i++ {
		ctx, cancel := context.WithCancel(context.Background())

		errs := make(chan error, 1)
		go func() {
			_, err := q.Pop(ctx)
			errs <- err
		}()

		cancel()

		select {
		case err := <-errs:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("Pop did not return after cancel")
		}
	}

	require.NoError(t, q.Push(&Task{ID: "after"}))
	task, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "after", task.ID)
}

func TestConcurrentPoppers(t *testing.T) {
	q := NewInMemoryQueue()
	defer q.Close()

	const n = 8
	got := make(chan string, n)
	for i := 0; i < n; i++ {
		go func() {
			task, err := q.Pop(context.Background())
			if err == nil {
				got <- task.ID
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	for i := 0; i < n; i++ {
		require.NoError(t, q.Push(&Task{ID: "t"}))
	}

	for i := 0; i < n; i++ {
		select {
		case <-got:
		case <-time.After(time.Second):
			t.Fatalf("only %d of %d poppers returned", i, n)
		}
	}
}

func TestClosedQueue(t *testing.T) {
	q := NewInMemoryQueue()
	require.NoError(t, q.Push(&Task{ID: "a"}))
	require.NoError(t, q.Close())

	assert.ErrorIs(t, q.Push(&Task{ID: "b"}), ErrQueueClosed)

	// draining a closed queue still yields the queued task
	task, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", task.ID)

	_, err = q.Pop(context.Background())
	assert.ErrorIs(t, err, ErrQueueClosed)
}
