package reminder

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-shipnotify/core"
)

const defaultExecuteTimeout = 2 * time.Minute

type TimerOption func(*TimerScheduler)

func WithTimerObserver(observer core.Observer) TimerOption {
	return func(s *TimerScheduler) {
		s.observer = observer
	}
}

// WithExecuteTimeout bounds a single fired reminder.
func WithExecuteTimeout(timeout time.Duration) TimerOption {
	return func(s *TimerScheduler) {
		if timeout > 0 {
			s.executeTimeout = timeout
		}
	}
}

// pendingReminder identifies one scheduled timer. The callback holds the
// entry, not the timer, so it never reads a value still being assigned.
type pendingReminder struct {
	timer *time.Timer
}

// TimerScheduler runs reminders on in-process timers.
type TimerScheduler struct {
	executor       Executor
	observer       core.Observer
	executeTimeout time.Duration

	mu      sync.Mutex
	timers  map[string]*pendingReminder
	stopped bool
	wg      sync.WaitGroup
}

func NewTimerScheduler(executor Executor, opts ...TimerOption) *TimerScheduler {
	s := &TimerScheduler{
		executor:       executor,
		executeTimeout: defaultExecuteTimeout,
		timers:         map[string]*pendingReminder{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *TimerScheduler) Schedule(ctx context.Context, task Task, delay time.Duration) error {
	key := task.normalizedKey()
	if key == "" {
		return core.ValidationFailure(core.FieldOrderID, "reminder key is required")
	}
	if s.executor == nil {
		return core.NewError("reminder: executor is not configured", goerrors.CategoryInternal, core.ErrorInternal, nil)
	}
	if delay < 0 {
		delay = 0
	}
	if task.ScheduledAt.IsZero() {
		task.ScheduledAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return core.NewError("reminder: scheduler is stopped", goerrors.CategoryInternal, core.ErrorInternal, map[string]any{"key": key})
	}
	if existing, ok := s.timers[key]; ok {
		existing.timer.Stop()
	}
	values := context.WithoutCancel(ctx)
	entry := &pendingReminder{}
	s.timers[key] = entry
	entry.timer = time.AfterFunc(delay, func() {
		if !s.claim(key, entry) {
			return
		}
		defer s.wg.Done()
		s.fire(values, task)
	})
	return nil
}

// claim removes the timer from the pending set if it is still the current
// one for key. A replaced or cancelled timer loses the claim.
func (s *TimerScheduler) claim(key string, entry *pendingReminder) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.timers[key] != entry {
		return false
	}
	delete(s.timers, key)
	s.wg.Add(1)
	return true
}

func (s *TimerScheduler) fire(parent context.Context, task Task) {
	ctx, cancel := context.WithTimeout(parent, s.executeTimeout)
	defer cancel()
	startedAt := time.Now()
	err := s.executor.Execute(ctx, task)
	s.observer.Observe(ctx, startedAt, "reminder_fire", err, map[string]any{
		"key":          task.Key,
		"account_code": task.AccountCode,
	})
}

// Cancel drops the pending reminder for key. It reports whether one was
// pending.
func (s *TimerScheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.timers[key]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(s.timers, key)
	return true
}

func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every pending reminder and waits for running ones.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for key, entry := range s.timers {
		entry.timer.Stop()
		delete(s.timers, key)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

var _ Scheduler = (*TimerScheduler)(nil)
