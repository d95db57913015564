package schedule_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/developlogy/sitebuilder/pkg/schedule"
)

var base = time.Date(2026, 3, 14, 3, 0, 0, 0, time.UTC)

func TestIntervalTask(t *testing.T) {
	s := schedule.New()
	var runs int32
	if err := s.Every(time.Hour).Name("sitemaps:publish").Do(func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	s.Tick(ctx, base)
	s.Tick(ctx, base.Add(30*time.Minute))
	s.Tick(ctx, base.Add(time.Hour))
	s.Wait()

	if runs != 2 {
		t.Fatalf("expected 2 runs, got %d", runs)
	}
}

func TestCronRunsOncePerMinute(t *testing.T) {
	s := schedule.New()
	var runs int32
	if err := s.Cron("0 3 * * *").Name("analytics:prune").Do(func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for sec := 0; sec < 60; sec++ {
		s.Tick(ctx, base.Add(time.Duration(sec)*time.Second))
	}
	s.Tick(ctx, base.Add(time.Minute))
	s.Wait()

	if runs != 1 {
		t.Fatalf("expected a single run in the matching minute, got %d", runs)
	}
}

func TestCronLists(t *testing.T) {
	s := schedule.New()
	var runs int32
	_ = s.Cron("0,30 */6 * * 1-5").Do(func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	})
	ctx := context.Background()
	monday := time.Date(2026, 3, 16, 6, 30, 0, 0, time.UTC)
	s.Tick(ctx, monday)
	s.Tick(ctx, monday.Add(5*24*time.Hour)) // Saturday
	s.Tick(ctx, monday.Add(time.Hour))      // 07:30
	s.Wait()
	if runs != 1 {
		t.Fatalf("expected 1 run, got %d", runs)
	}
}

func TestInvalidCron(t *testing.T) {
	s := schedule.New()
	if err := s.Cron("61 * * * *").Do(func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected minute 61 to be rejected")
	}
	if err := s.Cron("* * *").Do(func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected short expression to be rejected")
	}
}

func TestWithoutOverlapping(t *testing.T) {
	s := schedule.New()
	release := make(chan struct{})
	var runs int32
	_ = s.Every(time.Second).WithoutOverlapping().Do(func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		<-release
		return nil
	})

	ctx := context.Background()
	if n := s.Tick(ctx, base); n != 1 {
		t.Fatalf("expected first tick to start the task, got %d", n)
	}
	if n := s.Tick(ctx, base.Add(2*time.Second)); n != 0 {
		t.Fatalf("expected overlapping tick to be skipped, got %d", n)
	}
	close(release)
	s.Wait()
	if runs != 1 {
		t.Fatalf("expected 1 run, got %d", runs)
	}
}

func TestRunAllReportsFirstError(t *testing.T) {
	s := schedule.New()
	boom := errors.New("boom")
	_ = s.Every(time.Hour).Name("ok").Do(func(context.Context) error { return nil })
	_ = s.Every(time.Hour).Name("bad").Do(func(context.Context) error { return boom })
	_ = s.Every(time.Hour).Name("panics").Do(func(context.Context) error { panic("x") })

	err := s.RunAll(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got := s.List(); len(got) != 3 {
		t.Fatalf("expected 3 entries, got %v", got)
	}
}
