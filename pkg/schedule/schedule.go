// Package schedule runs periodic maintenance tasks (sitemap publishing,
// analytics pruning) inside the server or from `sitebuilder schedule:run`.
//
//	s := schedule.New()
//	s.Every(time.Hour).Name("sitemaps:publish").WithoutOverlapping().Do(publish)
//	s.Cron("0 3 * * *").Name("analytics:prune").Do(prune)
//	s.Start(ctx)
package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/developlogy/sitebuilder/pkg/logger"
)

// Task is one unit of scheduled work.
type Task func(ctx context.Context) error

type entry struct {
	name      string
	interval  time.Duration
	cron      *cronExpr
	task      Task
	noOverlap bool

	mu         sync.Mutex
	lastRun    time.Time
	lastMinute time.Time
	running    bool
}

// Scheduler holds registered entries.
type Scheduler struct {
	mu      sync.Mutex
	entries []*entry
	wg      sync.WaitGroup
}

func New() *Scheduler { return &Scheduler{} }

// Builder configures one entry before Do registers it.
type Builder struct {
	s *Scheduler
	e *entry
	err error
}

// Every runs a task at a fixed interval, starting on the first tick.
func (s *Scheduler) Every(d time.Duration) *Builder {
	return &Builder{s: s, e: &entry{interval: d}}
}

// Hourly is Every(time.Hour).
func (s *Scheduler) Hourly() *Builder { return s.Every(time.Hour) }

// Cron runs a task when a 5-field expression (minute hour dom month dow)
// matches, at most once per minute. Fields accept *, n, a-b, */n and
// comma-separated lists of those.
func (s *Scheduler) Cron(expr string) *Builder {
	c, err := parseCron(expr)
	return &Builder{s: s, e: &entry{cron: c}, err: err}
}

func (b *Builder) Name(name string) *Builder {
	b.e.name = name
	return b
}

// WithoutOverlapping skips a run while the previous one is still executing.
func (b *Builder) WithoutOverlapping() *Builder {
	b.e.noOverlap = true
	return b
}

// Do registers the task.
func (b *Builder) Do(task Task) error {
	if b.err != nil {
		return b.err
	}
	b.e.task = task
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if b.e.name == "" {
		b.e.name = fmt.Sprintf("task-%d", len(b.s.entries)+1)
	}
	b.s.entries = append(b.s.entries, b.e)
	return nil
}

// Start ticks every second until ctx is done. Tasks run in their own
// goroutines; Wait blocks until they return.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		logger.Info("schedule: scheduler started", "tasks", len(s.List()))
		for {
			select {
			case <-ctx.Done():
				logger.Info("schedule: scheduler stopped")
				return
			case now := <-ticker.C:
				s.Tick(ctx, now)
			}
		}
	}()
}

// Tick dispatches every entry due at now and returns how many were started.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	current := append([]*entry(nil), s.entries...)
	s.mu.Unlock()

	started := 0
	for _, e := range current {
		if s.dispatch(ctx, e, now) {
			started++
		}
	}
	return started
}

// RunAll runs every task once, synchronously, and returns the first error.
func (s *Scheduler) RunAll(ctx context.Context) error {
	s.mu.Lock()
	current := append([]*entry(nil), s.entries...)
	s.mu.Unlock()

	var first error
	for _, e := range current {
		if err := runTask(ctx, e); err != nil && first == nil {
			first = fmt.Errorf("schedule: %s: %w", e.name, err)
		}
	}
	return first
}

// Wait blocks until running tasks have returned.
func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) dispatch(ctx context.Context, e *entry, now time.Time) bool {
	e.mu.Lock()
	if !e.due(now) {
		e.mu.Unlock()
		return false
	}
	if e.noOverlap && e.running {
		e.mu.Unlock()
		logger.Warn("schedule: skipping overlapping task", "task", e.name)
		return false
	}
	e.running = true
	e.lastRun = now
	e.lastMinute = now.Truncate(time.Minute)
	e.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
		}()
		if err := runTask(ctx, e); err != nil {
			logger.WithCtx(ctx).Error("schedule: task failed", "task", e.name, "error", err)
		}
	}()
	return true
}

func runTask(ctx context.Context, e *entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	start := time.Now()
	err = e.task(ctx)
	logger.WithCtx(ctx).Info("schedule: task finished", "task", e.name, "duration", time.Since(start), "ok", err == nil)
	return err
}

// due must be called with e.mu held.
func (e *entry) due(now time.Time) bool {
	if e.cron != nil {
		return e.cron.match(now) && !now.Truncate(time.Minute).Equal(e.lastMinute)
	}
	return e.lastRun.IsZero() || now.Sub(e.lastRun) >= e.interval
}

// List describes the registered entries for `schedule:list`.
func (s *Scheduler) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		freq := e.interval.String()
		if e.cron != nil {
			freq = e.cron.src
		}
		out = append(out, fmt.Sprintf("%-24s %s", e.name, freq))
	}
	return out
}

type cronExpr struct {
	src    string
	fields [5][]cronRange
}

type cronRange struct{ lo, hi, step int }

var cronBounds = [5][2]int{{0, 59}, {0, 23}, {1, 31}, {1, 12}, {0, 6}}

func parseCron(expr string) (*cronExpr, error) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return nil, fmt.Errorf("schedule: cron %q: want 5 fields, got %d", expr, len(parts))
	}
	c := &cronExpr{src: expr}
	for i, part := range parts {
		for _, item := range strings.Split(part, ",") {
			r, err := parseCronItem(item, cronBounds[i][0], cronBounds[i][1])
			if err != nil {
				return nil, fmt.Errorf("schedule: cron %q field %d: %w", expr, i+1, err)
			}
			c.fields[i] = append(c.fields[i], r)
		}
	}
	return c, nil
}

func parseCronItem(item string, min, max int) (cronRange, error) {
	r := cronRange{lo: min, hi: max, step: 1}
	base, step, hasStep := strings.Cut(item, "/")
	if hasStep {
		n, err := strconv.Atoi(step)
		if err != nil || n <= 0 {
			return r, fmt.Errorf("bad step %q", step)
		}
		r.step = n
	}
	switch {
	case base == "*":
	case strings.Contains(base, "-"):
		lo, hi, _ := strings.Cut(base, "-")
		a, err1 := strconv.Atoi(lo)
		b, err2 := strconv.Atoi(hi)
		if err1 != nil || err2 != nil || a > b {
			return r, fmt.Errorf("bad range %q", base)
		}
		r.lo, r.hi = a, b
	default:
		n, err := strconv.Atoi(base)
		if err != nil {
			return r, fmt.Errorf("bad value %q", base)
		}
		r.lo, r.hi = n, n
		if hasStep {
			r.hi = max
		}
	}
	if r.lo < min || r.hi > max {
		return r, fmt.Errorf("%q out of range %d-%d", item, min, max)
	}
	return r, nil
}

func (c *cronExpr) match(t time.Time) bool {
	vals := [5]int{t.Minute(), t.Hour(), t.Day(), int(t.Month()), int(t.Weekday())}
	for i, ranges := range c.fields {
		ok := false
		for _, r := range ranges {
			if vals[i] >= r.lo && vals[i] <= r.hi && (vals[i]-r.lo)%r.step == 0 {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
