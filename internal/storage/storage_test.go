package storage

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestAddJobReplacesExisting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := ScheduledJob{GuildID: "g1", UserID: "u1", RoleID: "r1", Kind: "unmute", FireAt: time.Now().Add(time.Minute)}
	if _, err := store.AddJob(ctx, first); err != nil {
		t.Fatalf("add job: %v", err)
	}

	second := first
	second.FireAt = time.Now().Add(2 * time.Hour)
	if _, err := store.AddJob(ctx, second); err != nil {
		t.Fatalf("replace job: %v", err)
	}

	jobs, err := store.ListJobs(ctx)
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job after replacement, got %d", len(jobs))
	}
	if jobs[0].FireAt.Unix() != second.FireAt.Unix() {
		t.Fatalf("expected replaced fire time")
	}
}

func TestGetAndDeleteJob(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job := ScheduledJob{GuildID: "g1", UserID: "u1", RoleID: "r1", Kind: "unrole", FireAt: time.Now().Add(time.Minute)}
	if _, err := store.AddJob(ctx, job); err != nil {
		t.Fatalf("add job: %v", err)
	}

	got, ok, err := store.GetJob(ctx, "g1", "u1", "unrole")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if !ok || got.RoleID != "r1" {
		t.Fatalf("expected stored job, got %+v ok=%v", got, ok)
	}

	deleted, err := store.DeleteJobFor(ctx, "g1", "u1", "unrole")
	if err != nil {
		t.Fatalf("delete job: %v", err)
	}
	if !deleted {
		t.Fatalf("expected deletion")
	}

	if _, ok, _ := store.GetJob(ctx, "g1", "u1", "unrole"); ok {
		t.Fatalf("expected job gone")
	}
}

func TestJobsAreScopedByKind(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mute := ScheduledJob{GuildID: "g1", UserID: "u1", RoleID: "muted", Kind: "unmute", FireAt: time.Now().Add(time.Minute)}
	role := ScheduledJob{GuildID: "g1", UserID: "u1", RoleID: "vip", Kind: "unrole", FireAt: time.Now().Add(time.Minute)}
	if _, err := store.AddJob(ctx, mute); err != nil {
		t.Fatalf("add mute job: %v", err)
	}
	if _, err := store.AddJob(ctx, role); err != nil {
		t.Fatalf("add role job: %v", err)
	}

	jobs, err := store.ListJobs(ctx)
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected both kinds to coexist, got %d", len(jobs))
	}
}

func TestModActionLog(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	action := ModAction{
		GuildID:   "g1",
		ActorID:   "mod",
		TargetID:  "user",
		Action:    "kick",
		Reason:    "spamming invites",
		CreatedAt: time.Now(),
	}
	if err := store.AddModAction(ctx, action); err != nil {
		t.Fatalf("add mod action: %v", err)
	}

	actions, err := store.ListModActions(ctx, "g1", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("list mod actions: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(actions))
	}
	if actions[0].Action != "kick" || actions[0].Reason != "spamming invites" {
		t.Fatalf("unexpected action %+v", actions[0])
	}
}
