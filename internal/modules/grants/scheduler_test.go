package grants

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SX2s/SX2-Enforcer/internal/storage"

	"go.uber.org/zap"
)

type fakeTimer struct {
	stopped bool
	fn      func()
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return true
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	delays []time.Duration
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{fn: fn}
	f.timers = append(f.timers, t)
	f.delays = append(f.delays, d)
	return t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	var due []*fakeTimer
	var keepTimers []*fakeTimer
	var keepDelays []time.Duration
	for i, timer := range f.timers {
		if f.delays[i] <= d && !timer.stopped {
			due = append(due, timer)
			continue
		}
		keepTimers = append(keepTimers, timer)
		keepDelays = append(keepDelays, f.delays[i]-d)
	}
	f.timers = keepTimers
	f.delays = keepDelays
	f.mu.Unlock()
	for _, timer := range due {
		timer.fn()
	}
}

func newTestScheduler(t *testing.T) (*Scheduler, *fakeClock, *[]storage.ScheduledJob) {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	scheduler := New(store, zap.NewNop())
	clock := &fakeClock{now: time.Unix(1000, 0)}
	scheduler.WithClock(clock)

	reverted := &[]storage.ScheduledJob{}
	scheduler.SetRevert(func(job storage.ScheduledJob) {
		*reverted = append(*reverted, job)
	})
	return scheduler, clock, reverted
}

func TestScheduleAndFire(t *testing.T) {
	scheduler, clock, reverted := newTestScheduler(t)
	ctx := context.Background()

	if err := scheduler.Schedule(ctx, "g1", "u1", "muted", KindMute, 10*time.Minute); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	clock.Advance(11 * time.Minute)
	if len(*reverted) != 1 {
		t.Fatalf("expected 1 reversal, got %d", len(*reverted))
	}
	if (*reverted)[0].RoleID != "muted" || (*reverted)[0].Kind != KindMute {
		t.Fatalf("unexpected reversal %+v", (*reverted)[0])
	}

	if _, ok, _ := scheduler.Remaining(ctx, "g1", "u1", KindMute); ok {
		t.Fatalf("expected job removed after firing")
	}
}

func TestRemainingDecreases(t *testing.T) {
	scheduler, clock, _ := newTestScheduler(t)
	ctx := context.Background()

	if err := scheduler.Schedule(ctx, "g1", "u1", "muted", KindMute, time.Hour); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	first, ok, err := scheduler.Remaining(ctx, "g1", "u1", KindMute)
	if err != nil || !ok {
		t.Fatalf("remaining: ok=%v err=%v", ok, err)
	}

	clock.Advance(10 * time.Minute)
	second, ok, err := scheduler.Remaining(ctx, "g1", "u1", KindMute)
	if err != nil || !ok {
		t.Fatalf("remaining after advance: ok=%v err=%v", ok, err)
	}
	if second >= first {
		t.Fatalf("expected remaining to decrease: %v then %v", first, second)
	}
}

func TestStaleGrantDeletedOnRead(t *testing.T) {
	scheduler, clock, reverted := newTestScheduler(t)
	ctx := context.Background()

	if err := scheduler.Schedule(ctx, "g1", "u1", "muted", KindMute, time.Minute); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	// Move the clock past expiry without running the timer callback.
	clock.mu.Lock()
	clock.now = clock.now.Add(2 * time.Minute)
	clock.mu.Unlock()

	if _, ok, _ := scheduler.Remaining(ctx, "g1", "u1", KindMute); ok {
		t.Fatalf("expected elapsed grant reported absent")
	}
	if _, ok, _ := scheduler.Remaining(ctx, "g1", "u1", KindMute); ok {
		t.Fatalf("expected stale entry deleted on first read")
	}
	if len(*reverted) != 0 {
		t.Fatalf("stale read must not trigger a reversal")
	}
}

func TestCancelPreventsReversal(t *testing.T) {
	scheduler, clock, reverted := newTestScheduler(t)
	ctx := context.Background()

	if err := scheduler.Schedule(ctx, "g1", "u1", "muted", KindMute, time.Minute); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	cancelled, err := scheduler.Cancel(ctx, "g1", "u1", KindMute)
	if err != nil || !cancelled {
		t.Fatalf("cancel: ok=%v err=%v", cancelled, err)
	}

	clock.Advance(2 * time.Minute)
	if len(*reverted) != 0 {
		t.Fatalf("expected no reversal after cancel")
	}
}

func TestRescheduleReplacesGrant(t *testing.T) {
	scheduler, clock, reverted := newTestScheduler(t)
	ctx := context.Background()

	if err := scheduler.Schedule(ctx, "g1", "u1", "muted", KindMute, time.Minute); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := scheduler.Schedule(ctx, "g1", "u1", "muted", KindMute, time.Hour); err != nil {
		t.Fatalf("reschedule: %v", err)
	}

	clock.Advance(2 * time.Minute)
	if len(*reverted) != 0 {
		t.Fatalf("replaced grant must not fire on the old timer")
	}

	clock.Advance(time.Hour)
	if len(*reverted) != 1 {
		t.Fatalf("expected the replacement to fire once, got %d", len(*reverted))
	}
}

func TestResumeReArmsPersistedJobs(t *testing.T) {
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	now := time.Unix(1000, 0)
	ctx := context.Background()
	if _, err := store.AddJob(ctx, storage.ScheduledJob{
		GuildID: "g1", UserID: "past", RoleID: "muted", Kind: KindMute, FireAt: now.Add(-time.Minute),
	}); err != nil {
		t.Fatalf("add past job: %v", err)
	}
	if _, err := store.AddJob(ctx, storage.ScheduledJob{
		GuildID: "g1", UserID: "future", RoleID: "vip", Kind: KindRole, FireAt: now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("add future job: %v", err)
	}

	scheduler := New(store, zap.NewNop())
	clock := &fakeClock{now: now}
	scheduler.WithClock(clock)
	var reverted []storage.ScheduledJob
	scheduler.SetRevert(func(job storage.ScheduledJob) {
		reverted = append(reverted, job)
	})

	if err := scheduler.Resume(ctx); err != nil {
		t.Fatalf("resume: %v", err)
	}

	if len(reverted) != 1 || reverted[0].UserID != "past" {
		t.Fatalf("expected overdue job reverted on resume, got %v", reverted)
	}

	clock.Advance(2 * time.Hour)
	if len(reverted) != 2 || reverted[1].UserID != "future" {
		t.Fatalf("expected re-armed job to fire, got %v", reverted)
	}
}
