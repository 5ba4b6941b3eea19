package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

func noop(ctx context.Context) error { return nil }

func TestAddJobAndList(t *testing.T) {
	s := New(time.UTC)
	if err := s.AddJob("b", "0 7 * * *", noop); err != nil {
		t.Fatal(err)
	}
	if err := s.AddRefreshJob(2*time.Hour, noop); err != nil {
		t.Fatal(err)
	}

	jobs := s.ListJobs()
	if len(jobs) != 2 || jobs[0].Name != "b" || jobs[1].Name != RefreshJobName {
		t.Fatalf("ListJobs = %+v", jobs)
	}
}

func TestAddJobInvalidSchedule(t *testing.T) {
	s := New(nil)
	if err := s.AddJob("bad", "not a schedule", noop); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
	if len(s.ListJobs()) != 0 {
		t.Fatal("invalid job should not be registered")
	}
}

func TestAddRefreshJobRejectsShortInterval(t *testing.T) {
	if err := New(nil).AddRefreshJob(10*time.Second, noop); err == nil {
		t.Fatal("expected error for sub-minute interval")
	}
}

func TestAddJobReplacesSameName(t *testing.T) {
	s := New(nil)
	s.AddJob("x", "@every 1h", noop)
	s.AddJob("x", "@every 2h", noop)
	if n := len(s.cron.Entries()); n != 1 {
		t.Fatalf("cron entries = %d, want 1", n)
	}
}

func TestRemoveJob(t *testing.T) {
	s := New(nil)
	s.AddJob("x", "@every 1h", noop)
	s.RemoveJob("x")
	s.RemoveJob("missing")
	if len(s.ListJobs()) != 0 {
		t.Fatal("job not removed")
	}
	if _, ok := s.NextRun("x"); ok {
		t.Fatal("NextRun should miss removed job")
	}
}

func TestNextRunAfterStart(t *testing.T) {
	s := New(time.UTC)
	s.AddRefreshJob(time.Hour, noop)
	s.Start()
	defer s.Stop()

	// The cron loop computes Next asynchronously after Start.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if next, ok := s.NextRun(RefreshJobName); ok && !next.IsZero() {
			if d := time.Until(next); d <= 0 || d > time.Hour+time.Second {
				t.Fatalf("next run in %v, want about 1h", d)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("next run never computed")
}

func TestRunNow(t *testing.T) {
	s := New(nil)
	called := false
	err := s.RunNow("manual", func(ctx context.Context) error {
		called = true
		if _, ok := ctx.Deadline(); !ok {
			t.Error("job context should carry a deadline")
		}
		return nil
	})
	if err != nil || !called {
		t.Fatalf("RunNow: called=%v err=%v", called, err)
	}

	want := errors.New("boom")
	if err := s.RunNow("manual", func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Fatalf("RunNow error = %v", err)
	}
}
