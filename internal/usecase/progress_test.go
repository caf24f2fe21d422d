package usecase

import (
	"context"
	"testing"
	"time"

	"learntrust/internal/domain"
	"learntrust/internal/infra/ledgermem"
)

func newTracker(t *testing.T, now time.Time) (*ProgressTracker, *ledgermem.Store) {
	t.Helper()
	store := ledgermem.New(newCrypto(t))
	tracker := &ProgressTracker{Progress: store.Progress(), Clock: func() time.Time { return now }}
	return tracker, store
}

func heartbeatAt(position float64) domain.WatchEvent {
	return domain.WatchEvent{
		SubjectID: "u1", ResourceID: "m1",
		EventKind: domain.WatchEventHeartbeat, Position: position,
	}
}

func TestRecordKeepsMaxPercent(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	tracker, store := newTracker(t, now)
	module := domain.Module{ID: "m1", CourseID: "c1", DurationSeconds: 100, MinWatchPercent: 80}
	ctx := context.Background()

	if err := tracker.Record(ctx, module, heartbeatAt(60)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := tracker.Record(ctx, module, heartbeatAt(30)); err != nil {
		t.Fatalf("record: %v", err)
	}
	progress, _, _ := store.Progress().Get(ctx, "u1", "m1")
	if progress.WatchPercent != 60 {
		t.Fatalf("a seek backwards must not lower progress, got %v", progress.WatchPercent)
	}
}

func TestRecordClampsPercent(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	tracker, store := newTracker(t, now)
	module := domain.Module{ID: "m1", CourseID: "c1", DurationSeconds: 100, MinWatchPercent: 80}

	if err := tracker.Record(context.Background(), module, heartbeatAt(250)); err != nil {
		t.Fatalf("record: %v", err)
	}
	progress, _, _ := store.Progress().Get(context.Background(), "u1", "m1")
	if progress.WatchPercent != 100 {
		t.Fatalf("percent must clamp to 100, got %v", progress.WatchPercent)
	}
}

func TestRecordIgnoresNonProgressEvents(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	tracker, store := newTracker(t, now)
	module := domain.Module{ID: "m1", CourseID: "c1", DurationSeconds: 100}

	event := heartbeatAt(50)
	event.EventKind = domain.WatchEventPlay
	if err := tracker.Record(context.Background(), module, event); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, found, _ := store.Progress().Get(context.Background(), "u1", "m1"); found {
		t.Fatal("play events must not create progress rows")
	}
}

func TestCompletionLatches(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	tracker, store := newTracker(t, now)
	module := domain.Module{ID: "m1", CourseID: "c1", DurationSeconds: 100, MinWatchPercent: 80}
	ctx := context.Background()

	if err := tracker.Record(ctx, module, heartbeatAt(85)); err != nil {
		t.Fatalf("record: %v", err)
	}
	progress, _, _ := store.Progress().Get(ctx, "u1", "m1")
	if !progress.IsCompleted || progress.CompletedAt == nil {
		t.Fatal("85%% must complete an 80%% module")
	}
	completedAt := *progress.CompletedAt

	if err := tracker.Record(ctx, module, heartbeatAt(90)); err != nil {
		t.Fatalf("record: %v", err)
	}
	progress, _, _ = store.Progress().Get(ctx, "u1", "m1")
	if !progress.CompletedAt.Equal(completedAt) {
		t.Fatal("completion time must not move once latched")
	}
}

func TestCanUnlock(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	tracker, store := newTracker(t, now)
	ctx := context.Background()
	future := now.Add(24 * time.Hour)
	module := domain.Module{ID: "m1", CourseID: "c1", DurationSeconds: 100, MinWatchPercent: 80, IsPublished: true}

	unpublished := module
	unpublished.IsPublished = false
	if ok, _ := tracker.CanUnlock(ctx, "u1", unpublished); ok {
		t.Fatal("unpublished module must stay locked")
	}

	unreleased := module
	unreleased.ReleaseDate = &future
	if ok, _ := tracker.CanUnlock(ctx, "u1", unreleased); ok {
		t.Fatal("unreleased module must stay locked")
	}

	if ok, _ := tracker.CanUnlock(ctx, "u1", module); ok {
		t.Fatal("module with no progress must stay locked behind its watch gate")
	}

	if err := store.Progress().Upsert(ctx, domain.Progress{
		SubjectID: "u1", ResourceID: "m1", CourseID: "c1", WatchPercent: 85, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if ok, _ := tracker.CanUnlock(ctx, "u1", module); !ok {
		t.Fatal("85%% watched must unlock an 80%% module")
	}

	ungated := module
	ungated.MinWatchPercent = 0
	if ok, _ := tracker.CanUnlock(ctx, "u2", ungated); !ok {
		t.Fatal("module without a watch gate must unlock for anyone")
	}
}
