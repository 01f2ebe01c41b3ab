package engine

import (
	"sync"
	"testing"
)

func TestSerialQueue_RunsInOrder(t *testing.T) {
	q := newSerialQueue()

	var mu sync.Mutex
	var got []int
	for i := 0; i < 100; i++ {
		i := i
		if !q.Enqueue(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}) {
			t.Fatalf("Enqueue(%d) = false, want true", i)
		}
	}
	q.Close()
	q.Wait()

	if len(got) != 100 {
		t.Fatalf("ran %d tasks, want 100", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Errorf("got[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestSerialQueue_RejectsAfterClose(t *testing.T) {
	q := newSerialQueue()
	q.Close()
	q.Close()
	q.Wait()

	if q.Enqueue(func() {}) {
		t.Error("Enqueue after Close = true, want false")
	}
	if n := q.Len(); n != 0 {
		t.Errorf("Len() = %d, want 0", n)
	}
}

func TestSerialQueue_TasksMayEnqueue(t *testing.T) {
	q := newSerialQueue()
	done := make(chan struct{})

	q.Enqueue(func() {
		q.Enqueue(func() { close(done) })
	})
	<-done

	q.Close()
	q.Wait()
}
