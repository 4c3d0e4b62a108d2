// Package reminder schedules delayed customer reminders. The default
// scheduler keeps pending reminders in memory and loses them on restart;
// the lmstfy scheduler hands the delay to a durable queue.
package reminder

import (
	"context"
	"strings"
	"time"
)

// Task is one pending reminder. Key is the ledger key and the scheduling
// identity: scheduling the same key twice replaces the pending reminder.
type Task struct {
	Key            string    `json:"key"`
	AccountCode    string    `json:"account_code"`
	Phone          string    `json:"phone"`
	FirstName      string    `json:"first_name"`
	LandingPageURL string    `json:"landing_page_url"`
	ScheduledAt    time.Time `json:"scheduled_at"`
}

func (t Task) normalizedKey() string {
	return strings.TrimSpace(t.Key)
}

// Executor runs a reminder once its delay has elapsed.
type Executor interface {
	Execute(ctx context.Context, task Task) error
}

type ExecutorFunc func(ctx context.Context, task Task) error

func (f ExecutorFunc) Execute(ctx context.Context, task Task) error {
	return f(ctx, task)
}

type Scheduler interface {
	Schedule(ctx context.Context, task Task, delay time.Duration) error
}
