package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"learntrust/internal/domain"
	cryptoinfra "learntrust/internal/infra/crypto"
)

// WatchEventRepository persists watch events and, in the same transaction,
// mirrors each one into the hash chain. Either both rows land or neither does.
type WatchEventRepository struct {
	db     *gorm.DB
	crypto *cryptoinfra.Service
}

func NewWatchEventRepository(gdb *gorm.DB, svc *cryptoinfra.Service) *WatchEventRepository {
	return &WatchEventRepository{db: gdb, crypto: svc}
}

func (r *WatchEventRepository) LastSequence(ctx context.Context, subjectID, resourceID string) (int64, bool, error) {
	if r.db == nil {
		return 0, false, errDBUnavailable
	}
	var model WatchEventModel
	err := r.db.WithContext(ctx).
		Where("subject_id = ? AND resource_id = ?", subjectID, resourceID).
		Order("sequence_number DESC").
		Limit(1).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return model.SequenceNumber, true, nil
}

func (r *WatchEventRepository) Exists(ctx context.Context, subjectID, resourceID string, sequenceNumber int64) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&WatchEventModel{}).
		Where("subject_id = ? AND resource_id = ? AND sequence_number = ?", subjectID, resourceID, sequenceNumber).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *WatchEventRepository) Append(ctx context.Context, event domain.WatchEvent, entry domain.LedgerEntry) (domain.SubmitOutcome, error) {
	if r.db == nil {
		return domain.SubmitOutcome{}, errDBUnavailable
	}
	var outcome domain.SubmitOutcome
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		if event.CreatedAt.IsZero() {
			event.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
		}
		metadataJSON, err := cryptoinfra.CanonicalizeMetadata(event.Metadata)
		if err != nil {
			return err
		}
		model := WatchEventModel{
			ID:               event.ID,
			SubjectID:        event.SubjectID,
			ResourceID:       event.ResourceID,
			EventKind:        string(event.EventKind),
			SequenceNumber:   event.SequenceNumber,
			Position:         event.Position,
			ClientTimestamp:  event.ClientTimestamp,
			TokenFingerprint: event.TokenFingerprint,
			MetadataJSON:     metadataJSON,
			CreatedAt:        event.CreatedAt,
		}
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		appended, err := appendEntryTx(ctx, tx, r.crypto, entry)
		if err != nil {
			return err
		}
		outcome = domain.SubmitOutcome{Event: event, Entry: appended}
		return nil
	})
	if err != nil {
		// Both tables carry unique indexes; the constraint name tells the
		// duplicate event apart from a raced chain append.
		if isUniqueViolation(err, "watch") {
			return domain.SubmitOutcome{}, domain.ErrDuplicateSequence
		}
		if isUniqueViolation(err, "ledger") {
			return domain.SubmitOutcome{}, domain.ErrConcurrencyConflict
		}
		return domain.SubmitOutcome{}, err
	}
	return outcome, nil
}

func (r *WatchEventRepository) ListHeartbeats(ctx context.Context, resourceID string) ([]domain.WatchEvent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []WatchEventModel
	err := r.db.WithContext(ctx).
		Where("resource_id = ? AND event_kind = ?", resourceID, string(domain.WatchEventHeartbeat)).
		Order("sequence_number ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.WatchEvent, 0, len(models))
	for _, model := range models {
		event, err := watchEventFromModel(model)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, nil
}

func watchEventFromModel(model WatchEventModel) (domain.WatchEvent, error) {
	metadata := map[string]any{}
	if len(model.MetadataJSON) > 0 {
		if err := json.Unmarshal(model.MetadataJSON, &metadata); err != nil {
			return domain.WatchEvent{}, err
		}
	}
	return domain.WatchEvent{
		ID:               model.ID,
		SubjectID:        model.SubjectID,
		ResourceID:       model.ResourceID,
		EventKind:        domain.WatchEventKind(model.EventKind),
		SequenceNumber:   model.SequenceNumber,
		Position:         model.Position,
		ClientTimestamp:  model.ClientTimestamp,
		TokenFingerprint: model.TokenFingerprint,
		Metadata:         metadata,
		CreatedAt:        model.CreatedAt.UTC(),
	}, nil
}
