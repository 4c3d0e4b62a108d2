package gojob

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	"github.com/goliatone/go-shipnotify/core"
	"github.com/goliatone/go-shipnotify/reminder"
)

const (
	paramKey            = "key"
	paramAccountCode    = "account_code"
	paramPhone          = "phone"
	paramFirstName      = "first_name"
	paramLandingPageURL = "landing_page_url"
	paramScheduledAt    = "scheduled_at"
)

// TaskMessage encodes a reminder as a go-job execution message keyed by the
// reminder key, so a duplicate enqueue for the same cart is dropped.
func TaskMessage(task reminder.Task) *core.JobExecutionMessage {
	params := map[string]any{
		paramKey:            strings.TrimSpace(task.Key),
		paramAccountCode:    task.AccountCode,
		paramPhone:          task.Phone,
		paramFirstName:      task.FirstName,
		paramLandingPageURL: task.LandingPageURL,
	}
	if !task.ScheduledAt.IsZero() {
		params[paramScheduledAt] = task.ScheduledAt.UTC().Format(time.RFC3339)
	}
	return &core.JobExecutionMessage{
		JobID:          JobIDAbandonedCartReminder,
		ScriptPath:     JobIDAbandonedCartReminder,
		Parameters:     params,
		IdempotencyKey: JobIDAbandonedCartReminder + ":" + strings.TrimSpace(task.Key),
		DedupPolicy:    DedupPolicyDrop,
	}
}

func TaskFromMessage(msg *job.ExecutionMessage) (reminder.Task, error) {
	if msg == nil {
		return reminder.Task{}, fmt.Errorf("gojob: execution message is required")
	}
	if strings.TrimSpace(msg.JobID) != JobIDAbandonedCartReminder {
		return reminder.Task{}, fmt.Errorf("gojob: unexpected job id %q", msg.JobID)
	}
	task := reminder.Task{
		Key:            stringParam(msg.Parameters, paramKey),
		AccountCode:    stringParam(msg.Parameters, paramAccountCode),
		Phone:          stringParam(msg.Parameters, paramPhone),
		FirstName:      stringParam(msg.Parameters, paramFirstName),
		LandingPageURL: stringParam(msg.Parameters, paramLandingPageURL),
	}
	if task.Key == "" {
		return reminder.Task{}, fmt.Errorf("gojob: reminder key is required")
	}
	if raw := stringParam(msg.Parameters, paramScheduledAt); raw != "" {
		if at, err := time.Parse(time.RFC3339, raw); err == nil {
			task.ScheduledAt = at
		}
	}
	return task, nil
}

func stringParam(params map[string]any, key string) string {
	value, ok := params[key]
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

// ReminderExecutor hands due reminders to the job queue instead of running
// them inline.
type ReminderExecutor struct {
	enqueuer core.JobEnqueuer
}

func NewReminderExecutor(enqueuer core.JobEnqueuer) *ReminderExecutor {
	return &ReminderExecutor{enqueuer: enqueuer}
}

func (e *ReminderExecutor) Execute(ctx context.Context, task reminder.Task) error {
	if e == nil || e.enqueuer == nil {
		return fmt.Errorf("gojob: reminder enqueuer is not configured")
	}
	if strings.TrimSpace(task.Key) == "" {
		return fmt.Errorf("gojob: reminder key is required")
	}
	return e.enqueuer.Enqueue(ctx, TaskMessage(task))
}

// ReminderConsumer pulls reminder jobs and runs them through the executor.
type ReminderConsumer struct {
	dequeuer queue.Dequeuer
	executor reminder.Executor
	policy   RetryPolicy
	hook     worker.Hook
	logger   job.Logger
	backoff  time.Duration
	now      func() time.Time

	mu       sync.Mutex
	attempts map[string]int
}

type ConsumerOption func(*ReminderConsumer)

func WithRetryPolicy(policy RetryPolicy) ConsumerOption {
	return func(c *ReminderConsumer) {
		c.policy = policy
	}
}

func WithHook(hook worker.Hook) ConsumerOption {
	return func(c *ReminderConsumer) {
		if hook != nil {
			c.hook = hook
		}
	}
}

// WithJobLogger reports rejected and exhausted deliveries.
func WithJobLogger(logger job.Logger) ConsumerOption {
	return func(c *ReminderConsumer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithErrorBackoff(backoff time.Duration) ConsumerOption {
	return func(c *ReminderConsumer) {
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

func NewReminderConsumer(dequeuer queue.Dequeuer, executor reminder.Executor, opts ...ConsumerOption) *ReminderConsumer {
	c := &ReminderConsumer{
		dequeuer: dequeuer,
		executor: executor,
		policy:   RetryPolicy{MaxAttempts: 1},
		hook:     noopHook{},
		backoff:  2 * time.Second,
		now:      time.Now,
		attempts: map[string]int{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Run consumes until ctx is cancelled.
func (c *ReminderConsumer) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := c.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.backoff):
			}
		}
	}
}

// RunOnce handles one delivery. Execution failures are settled on the
// delivery and not returned; only queue errors are.
func (c *ReminderConsumer) RunOnce(ctx context.Context) error {
	if c == nil || c.dequeuer == nil || c.executor == nil {
		return fmt.Errorf("gojob: reminder consumer is not configured")
	}
	delivery, err := c.dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}
	if delivery == nil {
		return nil
	}
	msg := delivery.Message()
	task, err := TaskFromMessage(msg)
	if err != nil {
		c.warn("reminder job rejected", msg, "error", err.Error())
		return delivery.Nack(ctx, queue.NackOptions{DeadLetter: true, Reason: err.Error()})
	}

	attempt := c.nextAttempt(msg.IdempotencyKey)
	startedAt := c.now()
	event := worker.Event{Message: msg, Delivery: delivery, Attempt: attempt, StartedAt: startedAt}
	c.hook.OnStart(ctx, event)

	execErr := c.executor.Execute(ctx, task)
	event.Duration = c.now().Sub(startedAt)
	if execErr == nil {
		c.forget(msg.IdempotencyKey)
		c.hook.OnSuccess(ctx, event)
		return delivery.Ack(ctx)
	}

	event.Err = execErr
	opts := c.policy.NormalizeAttempt(queue.NackOptions{
		Delay:   c.backoff,
		Requeue: true,
		Reason:  execErr.Error(),
	}, attempt)
	if opts.Requeue {
		event.Delay = opts.Delay
		c.hook.OnRetry(ctx, event)
		return delivery.Nack(ctx, opts)
	}
	c.forget(msg.IdempotencyKey)
	c.hook.OnFailure(ctx, event)
	if opts.DeadLetter {
		c.warn("reminder job dead-lettered", msg, "attempt", attempt, "error", execErr.Error())
		return delivery.Nack(ctx, opts)
	}
	c.warn("reminder job dropped", msg, "attempt", attempt, "error", execErr.Error())
	return delivery.Ack(ctx)
}

func (c *ReminderConsumer) warn(message string, msg *job.ExecutionMessage, args ...any) {
	if c.logger == nil {
		return
	}
	if msg != nil {
		args = append(args, "job_id", msg.JobID, "idempotency_key", msg.IdempotencyKey)
	}
	c.logger.Warn(message, args...)
}

func (c *ReminderConsumer) nextAttempt(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts[key]++
	return c.attempts[key]
}

func (c *ReminderConsumer) forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.attempts, key)
}

type noopHook struct{}

func (noopHook) OnStart(context.Context, worker.Event)   {}
func (noopHook) OnSuccess(context.Context, worker.Event) {}
func (noopHook) OnFailure(context.Context, worker.Event) {}
func (noopHook) OnRetry(context.Context, worker.Event)   {}

var (
	_ reminder.Executor = (*ReminderExecutor)(nil)
	_ worker.Hook       = noopHook{}
)
