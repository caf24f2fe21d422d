package db

import (
	"context"

	"gorm.io/gorm"

	"learntrust/internal/domain"
)

type AnchorReceiptRepository struct {
	db *gorm.DB
}

func NewAnchorReceiptRepository(gdb *gorm.DB) *AnchorReceiptRepository {
	return &AnchorReceiptRepository{db: gdb}
}

func (r *AnchorReceiptRepository) Append(ctx context.Context, receipt domain.AnchorReceipt) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := AnchorReceiptModel{
		Provider:    receipt.Provider,
		HeadSeq:     receipt.HeadSeq,
		PayloadHash: receipt.PayloadHash,
		Status:      receipt.Status,
		ErrorCode:   stringPtrIfNotEmpty(receipt.ErrorCode),
		TxID:        stringPtrIfNotEmpty(receipt.TxID),
		CreatedAt:   receipt.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *AnchorReceiptRepository) ListByHead(ctx context.Context, headSeq int64) ([]domain.AnchorReceipt, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []AnchorReceiptModel
	err := r.db.WithContext(ctx).
		Where("head_seq = ?", headSeq).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.AnchorReceipt, 0, len(models))
	for _, model := range models {
		out = append(out, domain.AnchorReceipt{
			ID:          model.ID,
			Provider:    model.Provider,
			HeadSeq:     model.HeadSeq,
			PayloadHash: model.PayloadHash,
			Status:      model.Status,
			ErrorCode:   stringValue(model.ErrorCode),
			TxID:        stringValue(model.TxID),
			CreatedAt:   model.CreatedAt.UTC(),
		})
	}
	return out, nil
}
