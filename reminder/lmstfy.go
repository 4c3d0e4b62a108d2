package reminder

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/bitleak/lmstfy/client"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-shipnotify/core"
)

const (
	DefaultLmstfyQueue = "shipnotify-reminders"

	lmstfyPublishTries = 1
	lmstfyConsumeTTR   = 60
	lmstfyPollTimeout  = 5
	lmstfyErrorBackoff = 2 * time.Second
)

// Job is a consumed queue job.
type Job struct {
	ID   string
	Data []byte
}

// Queue is the delay queue surface the scheduler and worker need.
type Queue interface {
	Publish(queue string, data []byte, delay time.Duration) (string, error)
	Consume(queue string) (*Job, error)
	Ack(queue string, jobID string) error
}

// LmstfyQueue adapts the lmstfy client to Queue.
type LmstfyQueue struct {
	cli *client.LmstfyClient
}

func NewLmstfyQueue(cfg core.LmstfyConfig) *LmstfyQueue {
	return &LmstfyQueue{cli: client.NewLmstfyClient(cfg.Host, cfg.Port, cfg.Namespace, cfg.Token)}
}

func (q *LmstfyQueue) Publish(queue string, data []byte, delay time.Duration) (string, error) {
	jobID, err := q.cli.Publish(queue, data, 0, lmstfyPublishTries, delaySeconds(delay))
	if err != nil {
		return "", err
	}
	return jobID, nil
}

func (q *LmstfyQueue) Consume(queue string) (*Job, error) {
	job, err := q.cli.Consume(queue, lmstfyConsumeTTR, lmstfyPollTimeout)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}
	return &Job{ID: job.ID, Data: job.Data}, nil
}

func (q *LmstfyQueue) Ack(queue string, jobID string) error {
	if err := q.cli.Ack(queue, jobID); err != nil {
		return err
	}
	return nil
}

func delaySeconds(delay time.Duration) uint32 {
	if delay <= 0 {
		return 0
	}
	seconds := math.Ceil(delay.Seconds())
	if seconds > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(seconds)
}

// LmstfyScheduler publishes reminders as delayed jobs. A Worker consuming the
// same queue executes them.
type LmstfyScheduler struct {
	queue Queue
	name  string
}

func NewLmstfyScheduler(queue Queue, queueName string) *LmstfyScheduler {
	name := strings.TrimSpace(queueName)
	if name == "" {
		name = DefaultLmstfyQueue
	}
	return &LmstfyScheduler{queue: queue, name: name}
}

func (s *LmstfyScheduler) Schedule(_ context.Context, task Task, delay time.Duration) error {
	if task.normalizedKey() == "" {
		return core.ValidationFailure(core.FieldOrderID, "reminder key is required")
	}
	if s.queue == nil {
		return core.NewError("reminder: lmstfy queue is not configured", goerrors.CategoryInternal, core.ErrorInternal, nil)
	}
	if task.ScheduledAt.IsZero() {
		task.ScheduledAt = time.Now().UTC()
	}
	data, err := json.Marshal(task)
	if err != nil {
		return core.WrapError(err, goerrors.CategoryInternal, core.ErrorInternal, "reminder: encode task", nil)
	}
	if _, err := s.queue.Publish(s.name, data, delay); err != nil {
		return core.WrapError(err, goerrors.CategoryExternal, core.ErrorExternalFailure, "reminder: publish delayed job", map[string]any{
			"queue": s.name,
			"key":   task.Key,
		})
	}
	return nil
}

type WorkerOption func(*Worker)

func WithWorkerObserver(observer core.Observer) WorkerOption {
	return func(w *Worker) {
		w.observer = observer
	}
}

func WithErrorBackoff(backoff time.Duration) WorkerOption {
	return func(w *Worker) {
		if backoff > 0 {
			w.backoff = backoff
		}
	}
}

// Worker consumes delayed reminder jobs and runs them through an Executor.
// Jobs are acked after one attempt whatever the outcome.
type Worker struct {
	queue    Queue
	name     string
	executor Executor
	observer core.Observer
	backoff  time.Duration
}

func NewWorker(queue Queue, queueName string, executor Executor, opts ...WorkerOption) *Worker {
	name := strings.TrimSpace(queueName)
	if name == "" {
		name = DefaultLmstfyQueue
	}
	w := &Worker{queue: queue, name: name, executor: executor, backoff: lmstfyErrorBackoff}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if _, err := w.RunOnce(ctx); err != nil {
			w.observer.Warn(ctx, "reminder consume failed", map[string]any{"queue": w.name, "error": err.Error()})
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.backoff):
			}
		}
	}
}

// RunOnce consumes at most one job. It reports whether a job was handled.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	if w.queue == nil || w.executor == nil {
		return false, core.NewError("reminder: worker is not configured", goerrors.CategoryInternal, core.ErrorInternal, nil)
	}
	job, err := w.queue.Consume(w.name)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	startedAt := time.Now()
	var task Task
	execErr := json.Unmarshal(job.Data, &task)
	if execErr == nil {
		execErr = w.executor.Execute(ctx, task)
	}
	w.observer.Observe(ctx, startedAt, "reminder_job", execErr, map[string]any{
		"queue":  w.name,
		"job_id": job.ID,
		"key":    task.Key,
	})
	if err := w.queue.Ack(w.name, job.ID); err != nil {
		return true, err
	}
	return true, nil
}

var _ Scheduler = (*LmstfyScheduler)(nil)
