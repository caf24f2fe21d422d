package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"learntrust/internal/domain"
)

type ModuleRepository struct {
	db *gorm.DB
}

func NewModuleRepository(gdb *gorm.DB) *ModuleRepository {
	return &ModuleRepository{db: gdb}
}

func (r *ModuleRepository) Get(ctx context.Context, id string) (domain.Module, error) {
	if r.db == nil {
		return domain.Module{}, errDBUnavailable
	}
	var model ModuleModel
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Module{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Module{}, err
	}
	return moduleFromModel(model), nil
}

func (r *ModuleRepository) ListByCourse(ctx context.Context, courseID string) ([]domain.Module, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []ModuleModel
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Module, 0, len(models))
	for _, model := range models {
		out = append(out, moduleFromModel(model))
	}
	return out, nil
}

func moduleFromModel(model ModuleModel) domain.Module {
	return domain.Module{
		ID:              model.ID,
		CourseID:        model.CourseID,
		Title:           model.Title,
		DurationSeconds: model.DurationSeconds,
		MinWatchPercent: model.MinWatchPercent,
		ReleaseDate:     model.ReleaseDate,
		IsPublished:     model.IsPublished,
		HLSPath:         model.HLSPath,
	}
}
