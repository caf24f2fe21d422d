package usecase

import (
	"context"
	"errors"
	"time"

	"learntrust/internal/domain"
	"learntrust/internal/infra/crypto"
)

const defaultAppendAttempts = 3

// Ledger is the application service over the hash chain: append with bounded
// retry, chain verification, and best-effort anchoring of new heads.
type Ledger struct {
	Store         LedgerStore
	Crypto        *crypto.Service
	Anchor        domain.AnchorService
	AnchorTimeout time.Duration
	MaxAttempts   int
	Clock         Clock
}

// Append mints a system fingerprint and links a new entry to the current
// tail. A raced tail (ErrConcurrencyConflict) is retried up to MaxAttempts
// and then surfaced as a StorageError; user-facing validation failures are
// never retried.
func (l *Ledger) Append(ctx context.Context, subjectID, resourceID, eventKind string, metadata map[string]any) (domain.LedgerEntry, error) {
	if l == nil || l.Store == nil || l.Crypto == nil {
		return domain.LedgerEntry{}, errors.New("ledger store and crypto service are required")
	}
	if subjectID == "" || eventKind == "" {
		return domain.LedgerEntry{}, domain.NewValidationError(domain.ValidationMissingFields, "subject_id and event_kind are required")
	}
	mint, err := l.Crypto.MintFingerprint(subjectID, resourceID, eventKind)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	entry := domain.LedgerEntry{
		SubjectID:        subjectID,
		ResourceID:       resourceID,
		EventKind:        eventKind,
		Metadata:         metadata,
		TokenFingerprint: mint,
	}

	attempts := l.MaxAttempts
	if attempts <= 0 {
		attempts = defaultAppendAttempts
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		appended, err := l.Store.Append(ctx, entry)
		if err == nil {
			l.anchorBestEffort(ctx, appended)
			return appended, nil
		}
		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			return domain.LedgerEntry{}, err
		}
		lastErr = err
	}
	return domain.LedgerEntry{}, &domain.StorageError{Op: "ledger append", Err: lastErr}
}

// VerifyChain recomputes every fingerprint and linkage in [from, to] (zero
// bounds mean the whole chain). A broken chain yields Valid=false with the
// first divergent sequence; it is a detectable fact, not an error.
func (l *Ledger) VerifyChain(ctx context.Context, from, to int64) (domain.ChainVerification, error) {
	if l == nil || l.Store == nil || l.Crypto == nil {
		return domain.ChainVerification{}, errors.New("ledger store and crypto service are required")
	}
	entries, err := l.Store.Range(ctx, from, to)
	if err != nil {
		return domain.ChainVerification{}, err
	}
	report := domain.ChainVerification{
		Valid:     true,
		From:      from,
		To:        to,
		Entries:   int64(len(entries)),
		CheckedAt: l.now(),
	}
	if len(entries) == 0 {
		return report, nil
	}

	prev := domain.GenesisFingerprint
	expectedSeq := entries[0].Seq
	if from > 1 || entries[0].Seq > 1 {
		// Verification starting mid-chain trusts the stored previous link of
		// the first entry in range and checks everything from there on.
		prev = entries[0].PreviousFingerprint
	}
	for _, entry := range entries {
		if entry.Seq != expectedSeq ||
			entry.PreviousFingerprint != prev ||
			entry.CurrentFingerprint != l.Crypto.ChainFingerprint(entry.SubjectID, entry.EventKind, entry.CreatedAt, entry.PreviousFingerprint) {
			report.Valid = false
			report.FirstMismatch = entry.Seq
			return report, nil
		}
		prev = entry.CurrentFingerprint
		expectedSeq++
	}
	report.TailHash = prev
	return report, nil
}

// ExportForCourse supplies the ledger entries for every module of a course,
// oldest first, for the reporting collaborators.
func (l *Ledger) ExportForCourse(ctx context.Context, modules ModuleStore, courseID string) ([]domain.LedgerEntry, error) {
	if modules == nil {
		return nil, errors.New("module store is required")
	}
	mods, err := modules.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if len(mods) == 0 {
		return nil, domain.ErrNotFound
	}
	ids := make([]string, 0, len(mods))
	for _, m := range mods {
		ids = append(ids, m.ID)
	}
	return l.Store.ListByResources(ctx, ids)
}

func (l *Ledger) anchorBestEffort(ctx context.Context, entry domain.LedgerEntry) {
	if l.Anchor == nil {
		return
	}
	timeout := l.AnchorTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	anchorCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, _ = l.Anchor.AnchorHead(anchorCtx, entry)
}

func (l *Ledger) now() time.Time {
	if l.Clock != nil {
		return l.Clock()
	}
	return time.Now().UTC()
}
