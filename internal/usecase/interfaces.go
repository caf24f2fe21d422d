package usecase

import (
	"context"
	"time"

	"learntrust/internal/domain"
)

type Clock func() time.Time

// LedgerStore is the append-and-read-only port of the hash chain. There is no
// update or delete operation: immutability is a property of the type, not a
// runtime check. Append assigns Seq, PreviousFingerprint, CurrentFingerprint
// and CreatedAt atomically with respect to other appends and returns
// domain.ErrConcurrencyConflict when two appends race for the same tail.
type LedgerStore interface {
	Append(ctx context.Context, entry domain.LedgerEntry) (domain.LedgerEntry, error)
	Tail(ctx context.Context) (*domain.LedgerEntry, error)
	Range(ctx context.Context, from, to int64) ([]domain.LedgerEntry, error)
	ListByResources(ctx context.Context, resourceIDs []string) ([]domain.LedgerEntry, error)
}

// WatchEventStore persists validated watch events. Append writes the event
// and its ledger entry in one atomic unit; a duplicate
// (subject, resource, sequence) triple returns domain.ErrDuplicateSequence
// even when the optimistic pre-checks raced.
type WatchEventStore interface {
	LastSequence(ctx context.Context, subjectID, resourceID string) (int64, bool, error)
	Exists(ctx context.Context, subjectID, resourceID string, sequenceNumber int64) (bool, error)
	Append(ctx context.Context, event domain.WatchEvent, entry domain.LedgerEntry) (domain.SubmitOutcome, error)
	ListHeartbeats(ctx context.Context, resourceID string) ([]domain.WatchEvent, error)
}

type ModuleStore interface {
	Get(ctx context.Context, id string) (domain.Module, error)
	ListByCourse(ctx context.Context, courseID string) ([]domain.Module, error)
}

type ProgressStore interface {
	Get(ctx context.Context, subjectID, resourceID string) (domain.Progress, bool, error)
	Upsert(ctx context.Context, progress domain.Progress) error
}

type MediaAssetStore interface {
	Get(ctx context.Context, resourceID string) (domain.PackagingResult, bool, error)
	Save(ctx context.Context, result domain.PackagingResult) error
}
