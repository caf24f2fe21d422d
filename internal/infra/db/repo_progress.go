package db

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"learntrust/internal/domain"
)

type ProgressRepository struct {
	db *gorm.DB
}

func NewProgressRepository(gdb *gorm.DB) *ProgressRepository {
	return &ProgressRepository{db: gdb}
}

func (r *ProgressRepository) Get(ctx context.Context, subjectID, resourceID string) (domain.Progress, bool, error) {
	if r.db == nil {
		return domain.Progress{}, false, errDBUnavailable
	}
	var model ProgressModel
	err := r.db.WithContext(ctx).
		Where("subject_id = ? AND resource_id = ?", subjectID, resourceID).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Progress{}, false, nil
	}
	if err != nil {
		return domain.Progress{}, false, err
	}
	return progressFromModel(model), true, nil
}

func (r *ProgressRepository) Upsert(ctx context.Context, progress domain.Progress) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := ProgressModel{
		SubjectID:    progress.SubjectID,
		ResourceID:   progress.ResourceID,
		CourseID:     progress.CourseID,
		WatchPercent: progress.WatchPercent,
		IsCompleted:  progress.IsCompleted,
		CompletedAt:  progress.CompletedAt,
		UpdatedAt:    progress.UpdatedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "subject_id"}, {Name: "resource_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"watch_percent", "is_completed", "completed_at", "updated_at",
		}),
	}).Create(&model).Error
}

func progressFromModel(model ProgressModel) domain.Progress {
	return domain.Progress{
		SubjectID:    model.SubjectID,
		ResourceID:   model.ResourceID,
		CourseID:     model.CourseID,
		WatchPercent: model.WatchPercent,
		IsCompleted:  model.IsCompleted,
		CompletedAt:  model.CompletedAt,
		UpdatedAt:    model.UpdatedAt.UTC(),
	}
}
