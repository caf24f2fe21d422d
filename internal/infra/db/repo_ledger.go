package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"learntrust/internal/domain"
	cryptoinfra "learntrust/internal/infra/crypto"
)

// defaultLedgerID keys the single-row sequence table; the system runs one
// linear chain with no branching.
const defaultLedgerID = "default"

// LedgerRepository is the persistent hash chain. It deliberately has no
// update or delete method; entries leave this type only by being read.
type LedgerRepository struct {
	db     *gorm.DB
	crypto *cryptoinfra.Service
}

func NewLedgerRepository(gdb *gorm.DB, svc *cryptoinfra.Service) *LedgerRepository {
	return &LedgerRepository{db: gdb, crypto: svc}
}

func (r *LedgerRepository) Append(ctx context.Context, entry domain.LedgerEntry) (domain.LedgerEntry, error) {
	if r.db == nil {
		return domain.LedgerEntry{}, errDBUnavailable
	}
	var out domain.LedgerEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		appended, err := appendEntryTx(ctx, tx, r.crypto, entry)
		if err != nil {
			return err
		}
		out = appended
		return nil
	})
	if err != nil {
		if isUniqueViolation(err, "ledger") {
			return domain.LedgerEntry{}, domain.ErrConcurrencyConflict
		}
		return domain.LedgerEntry{}, err
	}
	return out, nil
}

func (r *LedgerRepository) Tail(ctx context.Context) (*domain.LedgerEntry, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model LedgerEntryModel
	err := r.db.WithContext(ctx).Order("seq DESC").Limit(1).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	entry, err := ledgerEntryFromModel(model)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Range returns entries with from <= seq <= to, oldest first. Zero bounds are
// open: Range(0, 0) walks the entire chain.
func (r *LedgerRepository) Range(ctx context.Context, from, to int64) ([]domain.LedgerEntry, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	q := r.db.WithContext(ctx).Order("seq ASC")
	if from > 0 {
		q = q.Where("seq >= ?", from)
	}
	if to > 0 {
		q = q.Where("seq <= ?", to)
	}
	var models []LedgerEntryModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	return ledgerEntriesFromModels(models)
}

func (r *LedgerRepository) ListByResources(ctx context.Context, resourceIDs []string) ([]domain.LedgerEntry, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if len(resourceIDs) == 0 {
		return nil, nil
	}
	var models []LedgerEntryModel
	if err := r.db.WithContext(ctx).
		Where("resource_id IN ?", resourceIDs).
		Order("seq ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return ledgerEntriesFromModels(models)
}

// appendEntryTx is the single linearization point of the chain. It locks the
// sequence row FOR UPDATE, reads the tail under that lock, links the new
// entry and inserts it, all inside the caller's transaction, so the watch
// event repository can seal an event and its entry as one atomic unit.
func appendEntryTx(ctx context.Context, tx *gorm.DB, svc *cryptoinfra.Service, entry domain.LedgerEntry) (domain.LedgerEntry, error) {
	if svc == nil {
		return domain.LedgerEntry{}, errors.New("crypto service is required")
	}
	if err := tx.WithContext(ctx).Exec(
		"INSERT INTO ledger_seq (ledger_id, seq, updated_at) VALUES (?, 0, ?) ON CONFLICT (ledger_id) DO NOTHING",
		defaultLedgerID, time.Now().UTC(),
	).Error; err != nil {
		return domain.LedgerEntry{}, err
	}

	var currentSeq int64
	if err := tx.WithContext(ctx).Raw(
		"SELECT seq FROM ledger_seq WHERE ledger_id = ? FOR UPDATE",
		defaultLedgerID,
	).Scan(&currentSeq).Error; err != nil {
		return domain.LedgerEntry{}, err
	}
	nextSeq := currentSeq + 1
	if err := tx.WithContext(ctx).Exec(
		"UPDATE ledger_seq SET seq = ?, updated_at = ? WHERE ledger_id = ?",
		nextSeq, time.Now().UTC(), defaultLedgerID,
	).Error; err != nil {
		return domain.LedgerEntry{}, err
	}

	previous := domain.GenesisFingerprint
	var prevCreatedAt time.Time
	if currentSeq > 0 {
		var prev LedgerEntryModel
		if err := tx.WithContext(ctx).
			Where("seq = ?", currentSeq).
			Take(&prev).Error; err != nil {
			return domain.LedgerEntry{}, err
		}
		if prev.CurrentFingerprint == "" {
			return domain.LedgerEntry{}, fmt.Errorf("missing fingerprint on chain tail seq %d", currentSeq)
		}
		previous = prev.CurrentFingerprint
		prevCreatedAt = prev.CreatedAt
	}

	createdAt := time.Now().UTC().Truncate(time.Microsecond)
	if !createdAt.After(prevCreatedAt) {
		// Creation time is part of the total order; never let a fast append
		// tie or regress against the tail.
		createdAt = prevCreatedAt.Add(time.Microsecond)
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.Seq = nextSeq
	entry.PreviousFingerprint = previous
	entry.CreatedAt = createdAt
	entry.CurrentFingerprint = svc.ChainFingerprint(entry.SubjectID, entry.EventKind, createdAt, previous)

	metadataJSON, err := cryptoinfra.CanonicalizeMetadata(entry.Metadata)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	model := LedgerEntryModel{
		ID:                  entry.ID,
		Seq:                 entry.Seq,
		SubjectID:           entry.SubjectID,
		ResourceID:          stringPtrIfNotEmpty(entry.ResourceID),
		EventKind:           entry.EventKind,
		MetadataJSON:        metadataJSON,
		TokenFingerprint:    entry.TokenFingerprint,
		PreviousFingerprint: entry.PreviousFingerprint,
		CurrentFingerprint:  entry.CurrentFingerprint,
		CreatedAt:           entry.CreatedAt,
	}
	if err := tx.Create(&model).Error; err != nil {
		return domain.LedgerEntry{}, err
	}
	return entry, nil
}

func ledgerEntryFromModel(model LedgerEntryModel) (domain.LedgerEntry, error) {
	metadata := map[string]any{}
	if len(model.MetadataJSON) > 0 {
		if err := json.Unmarshal(model.MetadataJSON, &metadata); err != nil {
			return domain.LedgerEntry{}, err
		}
	}
	return domain.LedgerEntry{
		ID:                  model.ID,
		Seq:                 model.Seq,
		SubjectID:           model.SubjectID,
		ResourceID:          stringValue(model.ResourceID),
		EventKind:           model.EventKind,
		Metadata:            metadata,
		TokenFingerprint:    model.TokenFingerprint,
		PreviousFingerprint: model.PreviousFingerprint,
		CurrentFingerprint:  model.CurrentFingerprint,
		CreatedAt:           model.CreatedAt.UTC(),
	}, nil
}

func ledgerEntriesFromModels(models []LedgerEntryModel) ([]domain.LedgerEntry, error) {
	out := make([]domain.LedgerEntry, 0, len(models))
	for _, model := range models {
		entry, err := ledgerEntryFromModel(model)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}
