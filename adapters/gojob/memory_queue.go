package gojob

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
)

// MemoryQueue is a single-process go-job queue. Messages with the drop
// dedup policy are ignored while an earlier message with the same
// idempotency key is still unsettled. Contents are lost on restart.
type MemoryQueue struct {
	mu      sync.Mutex
	ready   []*job.ExecutionMessage
	pending map[string]struct{}
	dead    []*job.ExecutionMessage
	timers  map[*time.Timer]struct{}
	closed  bool
	signal  chan struct{}
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		pending: map[string]struct{}{},
		timers:  map[*time.Timer]struct{}{},
		signal:  make(chan struct{}, 1),
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	if q == nil {
		return fmt.Errorf("gojob: memory queue is nil")
	}
	if msg == nil {
		return fmt.Errorf("gojob: execution message is required")
	}
	copied := *msg
	copied.Parameters = copyAnyMap(msg.Parameters)
	key := strings.TrimSpace(copied.IdempotencyKey)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("gojob: memory queue is closed")
	}
	if key != "" {
		if _, exists := q.pending[key]; exists && strings.EqualFold(string(copied.DedupPolicy), DedupPolicyDrop) {
			return nil
		}
		q.pending[key] = struct{}{}
	}
	q.pushLocked(&copied)
	return nil
}

// Dequeue blocks until a message is ready or ctx is done.
func (q *MemoryQueue) Dequeue(ctx context.Context) (queue.Delivery, error) {
	if q == nil {
		return nil, fmt.Errorf("gojob: memory queue is nil")
	}
	for {
		q.mu.Lock()
		if len(q.ready) > 0 {
			msg := q.ready[0]
			q.ready = q.ready[1:]
			q.mu.Unlock()
			return &memoryDelivery{queue: q, msg: msg}, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return nil, fmt.Errorf("gojob: memory queue is closed")
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.signal:
		}
	}
}

func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ready)
}

func (q *MemoryQueue) DeadLetters() []*job.ExecutionMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*job.ExecutionMessage(nil), q.dead...)
}

// Close stops delayed requeues and wakes blocked consumers.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	for timer := range q.timers {
		timer.Stop()
	}
	q.timers = map[*time.Timer]struct{}{}
	close(q.signal)
}

func (q *MemoryQueue) pushLocked(msg *job.ExecutionMessage) {
	q.ready = append(q.ready, msg)
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *MemoryQueue) requeue(msg *job.ExecutionMessage, delay time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	if delay <= 0 {
		q.pushLocked(msg)
		return
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.timers, timer)
		if !q.closed {
			q.pushLocked(msg)
		}
	})
	q.timers[timer] = struct{}{}
}

func (q *MemoryQueue) settle(msg *job.ExecutionMessage, deadLetter bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, strings.TrimSpace(msg.IdempotencyKey))
	if deadLetter {
		q.dead = append(q.dead, msg)
	}
}

type memoryDelivery struct {
	queue *MemoryQueue
	msg   *job.ExecutionMessage

	mu      sync.Mutex
	settled bool
}

func (d *memoryDelivery) Message() *job.ExecutionMessage {
	return d.msg
}

func (d *memoryDelivery) Ack(context.Context) error {
	if !d.claim() {
		return nil
	}
	d.queue.settle(d.msg, false)
	return nil
}

func (d *memoryDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	if !d.claim() {
		return nil
	}
	switch {
	case opts.Requeue && !opts.DeadLetter:
		d.queue.requeue(d.msg, opts.Delay)
	default:
		d.queue.settle(d.msg, opts.DeadLetter)
	}
	return nil
}

func (d *memoryDelivery) claim() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.settled {
		return false
	}
	d.settled = true
	return true
}

var (
	_ queue.Enqueuer = (*MemoryQueue)(nil)
	_ queue.Dequeuer = (*MemoryQueue)(nil)
	_ queue.Delivery = (*memoryDelivery)(nil)
)
