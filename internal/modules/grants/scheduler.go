package grants

import (
	"context"
	"sync"
	"time"

	"github.com/SX2s/SX2-Enforcer/internal/storage"

	"go.uber.org/zap"
)

const (
	KindMute = "unmute"
	KindRole = "unrole"
)

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

type realClock struct{}

type realTimer struct{ t *time.Timer }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{t: time.AfterFunc(d, f)}
}

func (t realTimer) Stop() bool { return t.t.Stop() }

// RevertFunc undoes an expired grant on the platform side. It must be
// idempotent: the role may already have been removed manually.
type RevertFunc func(job storage.ScheduledJob)

// Scheduler arms a deferred reversal for every timed grant. Jobs are
// persisted so pending reversals survive a restart; Resume re-arms them.
type Scheduler struct {
	mu     sync.Mutex
	store  *storage.Store
	logger *zap.Logger
	clock  Clock
	revert RevertFunc
	timers map[string]Timer
}

func New(store *storage.Store, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		store:  store,
		logger: logger,
		clock:  realClock{},
		timers: make(map[string]Timer),
	}
}

func (s *Scheduler) WithClock(clock Clock) {
	s.clock = clock
}

func (s *Scheduler) SetRevert(revert RevertFunc) {
	s.revert = revert
}

func jobKey(guildID, userID, kind string) string {
	return guildID + "|" + userID + "|" + kind
}

// Schedule persists the grant and arms its reversal timer, replacing any
// existing grant for the same member and kind.
func (s *Scheduler) Schedule(ctx context.Context, guildID, userID, roleID, kind string, d time.Duration) error {
	job := storage.ScheduledJob{
		GuildID: guildID,
		UserID:  userID,
		RoleID:  roleID,
		Kind:    kind,
		FireAt:  s.clock.Now().Add(d),
	}
	id, err := s.store.AddJob(ctx, job)
	if err != nil {
		return err
	}
	job.ID = id

	s.arm(job, d)
	return nil
}

// Remaining reports the time left on a grant. An elapsed grant is removed
// on read and reported as absent.
func (s *Scheduler) Remaining(ctx context.Context, guildID, userID, kind string) (time.Duration, bool, error) {
	job, ok, err := s.store.GetJob(ctx, guildID, userID, kind)
	if err != nil || !ok {
		return 0, false, err
	}

	remaining := job.FireAt.Sub(s.clock.Now())
	if remaining <= 0 {
		_, _ = s.store.DeleteJobFor(ctx, guildID, userID, kind)
		s.stopTimer(jobKey(guildID, userID, kind))
		return 0, false, nil
	}
	return remaining, true, nil
}

// Cancel drops a pending grant without running its reversal.
func (s *Scheduler) Cancel(ctx context.Context, guildID, userID, kind string) (bool, error) {
	deleted, err := s.store.DeleteJobFor(ctx, guildID, userID, kind)
	if err != nil {
		return false, err
	}
	s.stopTimer(jobKey(guildID, userID, kind))
	return deleted, nil
}

// Resume re-arms every persisted job after a restart. Jobs whose fire time
// has already passed are reverted immediately.
func (s *Scheduler) Resume(ctx context.Context) error {
	jobs, err := s.store.ListJobs(ctx)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	for _, job := range jobs {
		remaining := job.FireAt.Sub(now)
		if remaining <= 0 {
			s.fire(job)
			continue
		}
		s.arm(job, remaining)
	}
	if len(jobs) > 0 {
		s.logger.Info("scheduled grants resumed", zap.Int("count", len(jobs)))
	}
	return nil
}

func (s *Scheduler) arm(job storage.ScheduledJob, d time.Duration) {
	key := jobKey(job.GuildID, job.UserID, job.Kind)

	s.mu.Lock()
	if timer := s.timers[key]; timer != nil {
		timer.Stop()
	}
	s.timers[key] = s.clock.AfterFunc(d, func() {
		s.fire(job)
	})
	s.mu.Unlock()
}

func (s *Scheduler) fire(job storage.ScheduledJob) {
	ctx := context.Background()

	// The grant may have been cancelled or replaced since the timer armed.
	current, ok, err := s.store.GetJob(ctx, job.GuildID, job.UserID, job.Kind)
	if err != nil {
		s.logger.Warn("grant lookup failed", zap.Error(err))
		return
	}
	if !ok || current.ID != job.ID {
		return
	}

	if s.revert != nil {
		s.revert(job)
	}
	if err := s.store.DeleteJob(ctx, job.ID); err != nil {
		s.logger.Warn("grant cleanup failed", zap.Error(err))
	}
	s.stopTimer(jobKey(job.GuildID, job.UserID, job.Kind))
}

func (s *Scheduler) stopTimer(key string) {
	s.mu.Lock()
	if timer := s.timers[key]; timer != nil {
		timer.Stop()
		delete(s.timers, key)
	}
	s.mu.Unlock()
}
