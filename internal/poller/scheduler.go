package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
)

// minTick floors the scheduler tick to prevent CPU thrashing.
var minTick = time.Second

// Task is one unit of periodic work.
type Task struct {
	// Name identifies the task in logs and results.
	Name string

	// Interval is the time between runs. If 0, the scheduler's default
	// interval is used.
	Interval time.Duration

	// Immediate runs the task once as soon as the scheduler starts.
	Immediate bool

	// Run performs the work. It must return promptly once ctx is done.
	Run func(ctx context.Context) error
}

// Result is the outcome of one task run.
type Result struct {
	Task     string
	RanAt    time.Time
	Duration time.Duration
	Err      error
}

// Scheduler runs tasks at their intervals until stopped.
//
// Tasks run sequentially within a tick. A task that is still running when
// its next tick arrives is simply late; it never overlaps itself.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Scheduler struct {
	tasks    []Task
	interval time.Duration // default interval
	results  chan Result
	logger   *slog.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once

	lastRunAt    map[string]time.Time
	baseInterval time.Duration
}

// NewScheduler creates a [Scheduler] for tasks. Tasks without an interval
// run every interval.
//
// Results are delivered on a buffered channel and dropped when nobody reads
// them; failures are always logged.
func NewScheduler(tasks []Task, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		tasks:    tasks,
		interval: interval,
		results:  make(chan Result, len(tasks)),
		logger:   logger,
	}
}

// Results returns a receive-only channel of task outcomes. The channel is
// closed when the scheduler stops.
func (s *Scheduler) Results() <-chan Result {
	return s.results
}

// calculateBaseInterval determines the tick interval for the scheduler.
// Uses the GCD of all task intervals so every task is checked on time.
func (s *Scheduler) calculateBaseInterval() time.Duration {
	if len(s.tasks) == 0 {
		return max(s.interval, minTick)
	}

	result := s.intervalOf(s.tasks[0])
	for _, t := range s.tasks[1:] {
		result = gcdDuration(result, s.intervalOf(t))
	}

	if result < minTick {
		result = minTick
	}
	return result
}

func (s *Scheduler) intervalOf(t Task) time.Duration {
	if t.Interval > 0 {
		return t.Interval
	}
	return s.interval
}

// gcdDuration calculates the greatest common divisor of two durations.
func gcdDuration(a, b time.Duration) time.Duration {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Start begins the scheduling loop in a background goroutine.
//
// Tasks marked Immediate run straight away; after that the loop ticks at
// the GCD of all intervals and runs whatever is due. If ctx is nil,
// context.Background() is used. Start is idempotent, and a no-op after
// [Scheduler.Stop].
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.lastRunAt = make(map[string]time.Time, len(s.tasks))
	s.baseInterval = s.calculateBaseInterval()

	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.closeOnce.Do(func() { close(s.results) })

		s.runDue(runCtx, true)

		ticker := time.NewTicker(s.baseInterval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.runDue(runCtx, false)
			}
		}
	}()
}

// Stop halts the scheduler and waits for the running task, if any, to
// return. Stop is idempotent and safe to call before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()

	// ensure channel is closed even if Start() was never called
	s.closeOnce.Do(func() { close(s.results) })
}

// runDue runs the tasks whose interval has elapsed. On the first pass only
// Immediate tasks run; the rest start their clock.
//
// lastRunAt is updated when a run STARTS, so a slow task's effective
// interval is its configured interval plus its run time at worst.
func (s *Scheduler) runDue(ctx context.Context, first bool) {
	now := time.Now()
	due := make([]Task, 0, len(s.tasks))

	s.mu.Lock()
	for _, t := range s.tasks {
		if first {
			s.lastRunAt[t.Name] = now
			if t.Immediate {
				due = append(due, t)
			}
			continue
		}
		if now.Sub(s.lastRunAt[t.Name]) >= s.intervalOf(t) {
			due = append(due, t)
			s.lastRunAt[t.Name] = now
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		if ctx.Err() != nil {
			return
		}
		res := s.runTask(ctx, t)
		if res.Err != nil {
			s.logger.Warn("background task failed", "task", res.Task, "error", res.Err)
		}
		select {
		case s.results <- res:
		default:
		}
	}
}

// runTask calls the task with panic recovery. A panic is logged with a
// correlation ID and reported as the run's error.
func (s *Scheduler) runTask(ctx context.Context, t Task) (res Result) {
	res = Result{Task: t.Name, RanAt: time.Now()}
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()

			s.logger.Error("task panic",
				"task", t.Name,
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			res.Err = fmt.Errorf("task panic (correlation_id: %s)", correlationID)
		}
		res.Duration = time.Since(res.RanAt)
	}()
	if t.Run != nil {
		res.Err = t.Run(ctx)
	}
	return res
}
