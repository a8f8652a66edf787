// Package scheduler is the timer-driven cooperative task driver described
// in SPEC_FULL.md §4.4: daily wall-clock check-ins, fixed-delay periodic
// tasks, and self-removing one-time tasks, all wrapping time.Timer.
package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// taskKind distinguishes the three registration shapes for Status
// reporting.
type taskKind string

const (
	kindDaily    taskKind = "daily"
	kindPeriodic taskKind = "periodic"
	kindOneTime  taskKind = "one_time"
)

type task struct {
	kind         taskKind
	callback     func()
	interval     time.Duration
	delay        time.Duration // one-time only: delay from Run(), not from registration
	dailyAt      string        // HH:MM, only for kindDaily
	scheduleNext func()
}

// TaskStatus summarizes one registered task for Status().
type TaskStatus struct {
	Name     string
	Kind     string
	Interval time.Duration
	DailyAt  string
}

// Status is the overall scheduler snapshot returned by Status().
type Status struct {
	Running bool
	Tasks   []TaskStatus
}

// Scheduler is a single-threaded-semantics cooperative driver: registration
// methods are safe to call from any goroutine, and registered callbacks
// never overlap their own rescheduled successor.
type Scheduler struct {
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	timers  map[string]*time.Timer
	tasks   map[string]*task
	stopCh  chan struct{}
}

// New builds a Scheduler that logs callback errors through logger.
func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		logger: logger,
		timers: make(map[string]*time.Timer),
		tasks:  make(map[string]*task),
	}
}

// RegisterDailyCheckin registers a callback to fire once per day at the
// given HH:MM wall-clock time. It computes the next absolute occurrence,
// schedules a one-shot timer, and on fire re-schedules for +24h.
func (s *Scheduler) RegisterDailyCheckin(hhmm string, callback func()) error {
	hour, minute, err := parseHHMM(hhmm)
	if err != nil {
		return err
	}

	const name = "daily_checkin"
	var scheduleNext func()
	scheduleNext = func() {
		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			return
		}
		now := time.Now()
		target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if !target.After(now) {
			target = target.AddDate(0, 0, 1)
		}
		delay := target.Sub(now)

		if existing, ok := s.timers[name]; ok {
			existing.Stop()
		}
		s.timers[name] = time.AfterFunc(delay, func() {
			s.mu.Lock()
			running := s.running
			s.mu.Unlock()
			if !running {
				return
			}
			s.runSafely(name, callback)
			scheduleNext()
		})
		s.mu.Unlock()
		s.logger.Info("daily checkin scheduled", "at", target)
	}

	s.mu.Lock()
	s.tasks[name] = &task{kind: kindDaily, callback: callback, dailyAt: hhmm, scheduleNext: scheduleNext}
	running := s.running
	s.mu.Unlock()
	if running {
		scheduleNext()
	}
	return nil
}

// RegisterTask registers a fixed-delay periodic callback.
func (s *Scheduler) RegisterTask(name string, callback func(), interval time.Duration) {
	var scheduleNext func()
	scheduleNext = func() {
		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			return
		}
		if existing, ok := s.timers[name]; ok {
			existing.Stop()
		}
		s.timers[name] = time.AfterFunc(interval, func() {
			s.mu.Lock()
			running := s.running
			s.mu.Unlock()
			if !running {
				return
			}
			s.runSafely(name, callback)
			scheduleNext()
		})
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.tasks[name] = &task{kind: kindPeriodic, callback: callback, interval: interval, scheduleNext: scheduleNext}
	running := s.running
	s.mu.Unlock()
	if running {
		scheduleNext()
	}
}

// RegisterOneTime registers a callback that fires once after delay and then
// removes itself. The delay is measured from Run() (or from registration,
// if the scheduler is already running) rather than from the registration
// call itself, matching a driver that only starts counting once armed.
func (s *Scheduler) RegisterOneTime(name string, callback func(), delay time.Duration) {
	s.mu.Lock()
	s.tasks[name] = &task{kind: kindOneTime, callback: callback, delay: delay}
	running := s.running
	if running {
		s.armOneTime(name, callback, delay)
	}
	s.mu.Unlock()
}

// armOneTime starts the timer for a one-time task. Caller must hold s.mu.
func (s *Scheduler) armOneTime(name string, callback func(), delay time.Duration) {
	s.timers[name] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		running := s.running
		s.mu.Unlock()
		if running {
			s.runSafely(name, callback)
		}
		s.mu.Lock()
		delete(s.timers, name)
		delete(s.tasks, name)
		s.mu.Unlock()
	})
}

// UnregisterTask cancels and removes a task by name, reporting whether it
// existed.
func (s *Scheduler) UnregisterTask(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[name]; ok {
		timer.Stop()
		delete(s.timers, name)
	}
	if _, ok := s.tasks[name]; ok {
		delete(s.tasks, name)
		return true
	}
	return false
}

// Run starts every registered task and blocks until Stop is called.
func (s *Scheduler) Run() {
	s.mu.Lock()
	s.running = true
	s.stopCh = make(chan struct{})
	pending := make([]func(), 0, len(s.tasks))
	for name, t := range s.tasks {
		switch {
		case t.scheduleNext != nil:
			pending = append(pending, t.scheduleNext)
		case t.kind == kindOneTime:
			s.armOneTime(name, t.callback, t.delay)
		}
	}
	stopCh := s.stopCh
	s.mu.Unlock()

	for _, schedule := range pending {
		schedule()
	}

	s.logger.Info("scheduler running", "task_count", len(s.tasks))
	<-stopCh
	s.logger.Info("scheduler stopped")
}

// RunInBackground starts Run on a new goroutine and returns immediately.
func (s *Scheduler) RunInBackground() {
	go s.Run()
}

// Stop halts the scheduler and cancels every pending timer.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.running = false
	for _, timer := range s.timers {
		timer.Stop()
	}
	s.timers = make(map[string]*time.Timer)
	stopCh := s.stopCh
	s.mu.Unlock()

	if stopCh != nil {
		select {
		case <-stopCh:
		default:
			close(stopCh)
		}
	}
}

// Status reports whether the scheduler is running and a snapshot of every
// registered task.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{Running: s.running}
	for name, t := range s.tasks {
		st.Tasks = append(st.Tasks, TaskStatus{
			Name:     name,
			Kind:     string(t.kind),
			Interval: t.interval,
			DailyAt:  t.dailyAt,
		})
	}
	return st
}

// runSafely swallows a callback panic or let it log, matching the source's
// catch-and-log behavior so one task's failure never kills the scheduler.
func (s *Scheduler) runSafely(name string, callback func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler task panicked", "task", name, "panic", r)
		}
	}()
	callback()
}

// parseHHMM parses a 24-hour "HH:MM" string.
func parseHHMM(hhmm string) (hour, minute int, err error) {
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("invalid HH:MM time %q: %w", hhmm, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid HH:MM time %q: out of range", hhmm)
	}
	return hour, minute, nil
}
