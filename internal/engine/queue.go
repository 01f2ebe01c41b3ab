package engine

import "sync"

// serialQueue runs tasks one at a time, in enqueue order, on its own
// goroutine. It is unbounded so producers never block.
type serialQueue struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool
	signal chan struct{} // buffered, size 1
	done   chan struct{}
}

func newSerialQueue() *serialQueue {
	q := &serialQueue{
		tasks:  make([]func(), 0, 16),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

// Enqueue schedules task. It returns false once the queue is closed.
func (q *serialQueue) Enqueue(task func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, task)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

func (q *serialQueue) tryDequeue() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil, false
	}
	task := q.tasks[0]
	q.tasks[0] = nil
	if len(q.tasks) == 1 {
		q.tasks = q.tasks[:0]
	} else {
		q.tasks = q.tasks[1:]
	}
	return task, true
}

func (q *serialQueue) run() {
	defer close(q.done)
	for {
		if task, ok := q.tryDequeue(); ok {
			task()
			continue
		}

		q.mu.Lock()
		if q.closed && len(q.tasks) == 0 {
			q.mu.Unlock()
			return
		}
		q.mu.Unlock()

		<-q.signal
	}
}

// Close stops accepting tasks. Already queued tasks still run.
func (q *serialQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Wait blocks until every queued task has run after Close.
func (q *serialQueue) Wait() {
	<-q.done
}

// Len returns the number of tasks waiting to run.
func (q *serialQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
