package pump

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dshills/termpane/internal/logging"
)

// Executor runs tasks on a single consumer goroutine in submission order.
type Executor interface {
	Post(task func())
}

// Queue is an unbounded FIFO task queue with exactly one consumer. Post never
// blocks; Drain and Run must only be called from the consumer goroutine.
type Queue struct {
	mu     sync.Mutex
	tasks  []func()
	ready  chan struct{}
	logger *log.Logger
}

// NewQueue creates an empty queue. A nil logger discards.
func NewQueue(logger *log.Logger) *Queue {
	return &Queue{
		ready:  make(chan struct{}, 1),
		logger: logging.WithComponent(logger, "ui-queue"),
	}
}

// Post appends task to the queue and wakes the consumer.
func (q *Queue) Post(task func()) {
	if task == nil {
		return
	}

	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Ready returns a channel that receives when tasks may be pending. Hosts
// with their own event loop select on it and call Drain.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Drain runs queued tasks in order until the queue is empty and returns how
// many ran. A panicking task is logged and does not stop the drain.
func (q *Queue) Drain() int {
	ran := 0
	for {
		q.mu.Lock()
		batch := q.tasks
		q.tasks = nil
		q.mu.Unlock()

		if len(batch) == 0 {
			return ran
		}
		for _, task := range batch {
			if err := runTask(task); err != nil {
				q.logger.Error("ui task failed", "err", err)
			}
			ran++
		}
	}
}

// Run drains the queue whenever tasks arrive until ctx is done.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.ready:
			q.Drain()
		}
	}
}

func runTask(task func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	task()
	return nil
}
