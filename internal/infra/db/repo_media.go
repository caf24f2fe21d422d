package db

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"learntrust/internal/domain"
)

type MediaAssetRepository struct {
	db *gorm.DB
}

func NewMediaAssetRepository(gdb *gorm.DB) *MediaAssetRepository {
	return &MediaAssetRepository{db: gdb}
}

func (r *MediaAssetRepository) Get(ctx context.Context, resourceID string) (domain.PackagingResult, bool, error) {
	if r.db == nil {
		return domain.PackagingResult{}, false, errDBUnavailable
	}
	var model MediaAssetModel
	err := r.db.WithContext(ctx).Where("resource_id = ?", resourceID).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.PackagingResult{}, false, nil
	}
	if err != nil {
		return domain.PackagingResult{}, false, err
	}
	result, err := packagingResultFromModel(model)
	if err != nil {
		return domain.PackagingResult{}, false, err
	}
	return result, true, nil
}

// Save upserts: a failed run may be retried and its row overwritten, so the
// asset row is not immutable the way ledger rows are.
func (r *MediaAssetRepository) Save(ctx context.Context, result domain.PackagingResult) error {
	if r.db == nil {
		return errDBUnavailable
	}
	variantsJSON, err := json.Marshal(result.Variants)
	if err != nil {
		return err
	}
	model := MediaAssetModel{
		ResourceID:     result.ResourceID,
		Status:         string(result.Status),
		KeyHex:         hex.EncodeToString(result.Key.Key),
		IVHex:          result.Key.IVHex,
		KeyURL:         result.Key.KeyURL,
		Directory:      result.Directory,
		MasterPlaylist: result.MasterPlaylist,
		VariantsJSON:   variantsJSON,
		PackagedAt:     result.PackagedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "resource_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "key_hex", "iv_hex", "key_url", "directory",
			"master_playlist", "variants_json", "packaged_at",
		}),
	}).Create(&model).Error
}

func packagingResultFromModel(model MediaAssetModel) (domain.PackagingResult, error) {
	key, err := hex.DecodeString(model.KeyHex)
	if err != nil {
		return domain.PackagingResult{}, err
	}
	var variants []domain.MediaVariant
	if len(model.VariantsJSON) > 0 {
		if err := json.Unmarshal(model.VariantsJSON, &variants); err != nil {
			return domain.PackagingResult{}, err
		}
	}
	return domain.PackagingResult{
		ResourceID:     model.ResourceID,
		Status:         domain.MediaStatus(model.Status),
		Directory:      model.Directory,
		MasterPlaylist: model.MasterPlaylist,
		Variants:       variants,
		Key: domain.MediaKeyMaterial{
			ResourceID: model.ResourceID,
			Key:        key,
			IVHex:      model.IVHex,
			KeyURL:     model.KeyURL,
		},
		PackagedAt: model.PackagedAt.UTC(),
	}, nil
}
