package usecase

import (
	"context"
	"time"

	"learntrust/internal/domain"
)

// ProgressTracker maintains per-(student, module) watch percentage from
// validated heartbeat and checkpoint events. Completion latches once reached.
type ProgressTracker struct {
	Progress ProgressStore
	Clock    Clock
}

func (t *ProgressTracker) Record(ctx context.Context, module domain.Module, event domain.WatchEvent) error {
	if t == nil || t.Progress == nil {
		return nil
	}
	if event.EventKind != domain.WatchEventHeartbeat && event.EventKind != domain.WatchEventCheckpoint {
		return nil
	}
	if module.DurationSeconds <= 0 {
		return nil
	}

	percent := event.Position / module.DurationSeconds * 100
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	progress, found, err := t.Progress.Get(ctx, event.SubjectID, event.ResourceID)
	if err != nil {
		return err
	}
	if !found {
		progress = domain.Progress{
			SubjectID:  event.SubjectID,
			ResourceID: event.ResourceID,
			CourseID:   module.CourseID,
		}
	}
	if percent > progress.WatchPercent {
		progress.WatchPercent = percent
	}
	if !progress.IsCompleted && progress.WatchPercent >= float64(module.MinWatchPercent) {
		progress.IsCompleted = true
		completedAt := t.now()
		progress.CompletedAt = &completedAt
	}
	progress.UpdatedAt = t.now()
	return t.Progress.Upsert(ctx, progress)
}

// CanUnlock gates module access on watch percentage and release date. Quiz
// gating lives with the quiz collaborator, outside this core.
func (t *ProgressTracker) CanUnlock(ctx context.Context, subjectID string, module domain.Module) (bool, error) {
	if !module.IsPublished {
		return false, nil
	}
	if module.ReleaseDate != nil && module.ReleaseDate.After(t.now()) {
		return false, nil
	}
	if module.MinWatchPercent <= 0 {
		return true, nil
	}
	if t == nil || t.Progress == nil {
		return true, nil
	}
	progress, found, err := t.Progress.Get(ctx, subjectID, module.ID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return progress.WatchPercent >= float64(module.MinWatchPercent), nil
}

func (t *ProgressTracker) now() time.Time {
	if t != nil && t.Clock != nil {
		return t.Clock()
	}
	return time.Now().UTC()
}
