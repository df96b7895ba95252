package queue

import (
	"errors"
	"testing"
)

func TestQueuePreservesOrder(t *testing.T) {
	q := NewInMemoryQueue()

	urls := []string{
		"https://www.trendyol.com/a/p-1",
		"https://www.trendyol.com/b/p-2",
		"https://www.trendyol.com/c/p-3",
	}
	for i, u := range urls {
		if err := q.Push(&Task{ID: string(rune('a' + i)), URL: u}); err != nil {
			t.Fatalf("Push() error = %v", err)
		}
	}

	if got := q.Size(); got != len(urls) {
		t.Fatalf("Size() = %d, want %d", got, len(urls))
	}

	for _, want := range urls {
		task, err := q.Pop()
		if err != nil {
			t.Fatalf("Pop() error = %v", err)
		}
		if task.URL != want {
			t.Errorf("Pop() url = %q, want %q", task.URL, want)
		}
	}
}

func TestQueuePopEmpty(t *testing.T) {
	q := NewInMemoryQueue()

	if _, err := q.Pop(); !errors.Is(err, ErrQueueEmpty) {
		t.Errorf("Pop() error = %v, want ErrQueueEmpty", err)
	}
}

func TestQueueClosed(t *testing.T) {
	q := NewInMemoryQueue()
	if err := q.Push(&Task{ID: "1", URL: "https://www.trendyol.com/p-1"}); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := q.Push(&Task{ID: "2"}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Push() after close error = %v, want ErrQueueClosed", err)
	}

	// Tasks queued before close still drain.
	if _, err := q.Pop(); err != nil {
		t.Fatalf("Pop() error = %v", err)
	}
	if _, err := q.Pop(); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Pop() on drained closed queue error = %v, want ErrQueueClosed", err)
	}
}
