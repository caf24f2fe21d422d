package usecase

import (
	"context"
	"errors"
	"math"
	"time"

	"learntrust/internal/domain"
	"learntrust/internal/infra/crypto"
)

// SubmitRequest is one player submission: heartbeat, checkpoint, play, pause
// or snapshot. ClientTimestamp is unix seconds as reported by the player and
// is advisory only; see the freshness rule below.
type SubmitRequest struct {
	SubjectID       string
	ResourceID      string
	EventKind       domain.WatchEventKind
	SequenceNumber  int64
	Position        float64
	ClientTimestamp *float64
}

// WatchEvents enforces strictly increasing, freshness-bounded, duplicate-free
// event submission per (subject, resource) pair and mirrors every accepted
// event into the hash chain.
type WatchEvents struct {
	Modules     ModuleStore
	Events      WatchEventStore
	Crypto      *crypto.Service
	Progress    *ProgressTracker
	StaleWindow time.Duration
	MaxAttempts int
	Clock       Clock
}

// Submit applies the validation rules in contract order and, on success,
// persists exactly one WatchEvent and exactly one LedgerEntry atomically.
//
// The freshness window is advisory trust in client-supplied time: a replay
// inside the window with a stolen valid token remains possible. That is an
// inherited property of the contract, not something this layer papers over.
func (s *WatchEvents) Submit(ctx context.Context, req SubmitRequest) (domain.SubmitOutcome, error) {
	if s == nil || s.Modules == nil || s.Events == nil || s.Crypto == nil {
		return domain.SubmitOutcome{}, errors.New("watch event dependencies are required")
	}
	if req.SubjectID == "" || req.ResourceID == "" || req.EventKind == "" || req.SequenceNumber == 0 {
		return domain.SubmitOutcome{}, domain.NewValidationError(domain.ValidationMissingFields, "module_id, event_type and sequence_number are required")
	}

	module, err := s.Modules.Get(ctx, req.ResourceID)
	if err != nil {
		return domain.SubmitOutcome{}, err
	}

	last, ok, err := s.Events.LastSequence(ctx, req.SubjectID, req.ResourceID)
	if err != nil {
		return domain.SubmitOutcome{}, err
	}
	if ok && req.SequenceNumber <= last {
		return domain.SubmitOutcome{}, domain.NewValidationError(domain.ValidationSequenceRegression,
			"sequence number must be greater than %d", last)
	}

	if req.ClientTimestamp != nil {
		window := s.StaleWindow
		if window <= 0 {
			window = 30 * time.Second
		}
		drift := math.Abs(float64(s.now().Unix()) - *req.ClientTimestamp)
		if drift > window.Seconds() {
			return domain.SubmitOutcome{}, domain.NewValidationError(domain.ValidationStaleTimestamp,
				"event timestamp too old (>%ds)", int(window.Seconds()))
		}
	}

	exists, err := s.Events.Exists(ctx, req.SubjectID, req.ResourceID, req.SequenceNumber)
	if err != nil {
		return domain.SubmitOutcome{}, err
	}
	if exists {
		return domain.SubmitOutcome{}, domain.ErrDuplicateSequence
	}

	fingerprint := s.Crypto.WatchFingerprint(req.SubjectID, req.ResourceID, req.SequenceNumber)
	event := domain.WatchEvent{
		SubjectID:        req.SubjectID,
		ResourceID:       req.ResourceID,
		EventKind:        req.EventKind,
		SequenceNumber:   req.SequenceNumber,
		Position:         req.Position,
		ClientTimestamp:  req.ClientTimestamp,
		TokenFingerprint: fingerprint,
	}
	mint, err := s.Crypto.MintFingerprint(req.SubjectID, req.ResourceID, string(domain.LedgerKindPrefix+req.EventKind))
	if err != nil {
		return domain.SubmitOutcome{}, err
	}
	entry := domain.LedgerEntry{
		SubjectID:        req.SubjectID,
		ResourceID:       req.ResourceID,
		EventKind:        domain.LedgerKindPrefix + string(req.EventKind),
		TokenFingerprint: mint,
		Metadata: map[string]any{
			"module_id":       req.ResourceID,
			"event_type":      string(req.EventKind),
			"sequence_number": req.SequenceNumber,
			"token_hash":      fingerprint,
		},
	}

	outcome, err := s.appendWithRetry(ctx, event, entry)
	if err != nil {
		return domain.SubmitOutcome{}, err
	}

	if s.Progress != nil {
		// Progress is mutable derived state; its failure must not unwind the
		// already-sealed event/entry pair.
		_ = s.Progress.Record(ctx, module, outcome.Event)
	}
	return outcome, nil
}

func (s *WatchEvents) appendWithRetry(ctx context.Context, event domain.WatchEvent, entry domain.LedgerEntry) (domain.SubmitOutcome, error) {
	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = defaultAppendAttempts
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		outcome, err := s.Events.Append(ctx, event, entry)
		if err == nil {
			return outcome, nil
		}
		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			return domain.SubmitOutcome{}, err
		}
		lastErr = err
	}
	return domain.SubmitOutcome{}, &domain.StorageError{Op: "watch event append", Err: lastErr}
}

func (s *WatchEvents) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}
