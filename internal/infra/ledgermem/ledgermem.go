// Package ledgermem is the in-memory storage backend. It backs tests and the
// no-db development mode with the same semantics the postgres repositories
// provide: linearized chain appends, immutable entries, unique watch event
// sequence triples.
package ledgermem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"learntrust/internal/domain"
	cryptoinfra "learntrust/internal/infra/crypto"
)

// Store holds all tables behind one mutex. The per-port views returned by
// Ledger, WatchEvents and friends share it, so a watch event append and its
// ledger entry land atomically just as they do in one postgres transaction.
type Store struct {
	mu       sync.Mutex
	crypto   *cryptoinfra.Service
	now      func() time.Time
	entries  []domain.LedgerEntry
	events   map[eventKey]domain.WatchEvent
	modules  map[string]domain.Module
	progress map[progressKey]domain.Progress
	media    map[string]domain.PackagingResult
	receipts []domain.AnchorReceipt
}

type eventKey struct {
	subjectID      string
	resourceID     string
	sequenceNumber int64
}

type progressKey struct {
	subjectID  string
	resourceID string
}

func New(svc *cryptoinfra.Service) *Store {
	return NewWithClock(svc, time.Now)
}

func NewWithClock(svc *cryptoinfra.Service, now func() time.Time) *Store {
	return &Store{
		crypto:   svc,
		now:      now,
		events:   make(map[eventKey]domain.WatchEvent),
		modules:  make(map[string]domain.Module),
		progress: make(map[progressKey]domain.Progress),
		media:    make(map[string]domain.PackagingResult),
	}
}

func (s *Store) Ledger() *LedgerStore          { return &LedgerStore{store: s} }
func (s *Store) WatchEvents() *WatchEventStore { return &WatchEventStore{store: s} }
func (s *Store) Modules() *ModuleStore         { return &ModuleStore{store: s} }
func (s *Store) Progress() *ProgressStore      { return &ProgressStore{store: s} }
func (s *Store) Media() *MediaStore            { return &MediaStore{store: s} }
func (s *Store) Receipts() *ReceiptStore       { return &ReceiptStore{store: s} }

// PutModule seeds a module row. Course/module CRUD lives outside the core, so
// this is the only write path the module table has.
func (s *Store) PutModule(module domain.Module) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules[module.ID] = module
}

// appendLocked links entry onto the current tail. The mutex plays the role
// the FOR UPDATE row lock plays in postgres.
func (s *Store) appendLocked(entry domain.LedgerEntry) domain.LedgerEntry {
	previous := domain.GenesisFingerprint
	var prevCreatedAt time.Time
	if n := len(s.entries); n > 0 {
		previous = s.entries[n-1].CurrentFingerprint
		prevCreatedAt = s.entries[n-1].CreatedAt
	}
	createdAt := s.now().UTC().Truncate(time.Microsecond)
	if !createdAt.After(prevCreatedAt) {
		createdAt = prevCreatedAt.Add(time.Microsecond)
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.Seq = int64(len(s.entries)) + 1
	entry.PreviousFingerprint = previous
	entry.CreatedAt = createdAt
	entry.CurrentFingerprint = s.crypto.ChainFingerprint(entry.SubjectID, entry.EventKind, createdAt, previous)
	entry.Metadata = cloneMetadata(entry.Metadata)
	s.entries = append(s.entries, entry)
	return entry
}

type LedgerStore struct {
	store *Store
}

func (l *LedgerStore) Append(_ context.Context, entry domain.LedgerEntry) (domain.LedgerEntry, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return l.store.appendLocked(entry), nil
}

func (l *LedgerStore) Tail(context.Context) (*domain.LedgerEntry, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	if len(l.store.entries) == 0 {
		return nil, nil
	}
	tail := l.store.entries[len(l.store.entries)-1]
	tail.Metadata = cloneMetadata(tail.Metadata)
	return &tail, nil
}

func (l *LedgerStore) Range(_ context.Context, from, to int64) ([]domain.LedgerEntry, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	out := make([]domain.LedgerEntry, 0, len(l.store.entries))
	for _, entry := range l.store.entries {
		if from > 0 && entry.Seq < from {
			continue
		}
		if to > 0 && entry.Seq > to {
			continue
		}
		entry.Metadata = cloneMetadata(entry.Metadata)
		out = append(out, entry)
	}
	return out, nil
}

func (l *LedgerStore) ListByResources(_ context.Context, resourceIDs []string) ([]domain.LedgerEntry, error) {
	wanted := make(map[string]struct{}, len(resourceIDs))
	for _, id := range resourceIDs {
		wanted[id] = struct{}{}
	}
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	var out []domain.LedgerEntry
	for _, entry := range l.store.entries {
		if _, ok := wanted[entry.ResourceID]; !ok {
			continue
		}
		entry.Metadata = cloneMetadata(entry.Metadata)
		out = append(out, entry)
	}
	return out, nil
}

type WatchEventStore struct {
	store *Store
}

func (w *WatchEventStore) LastSequence(_ context.Context, subjectID, resourceID string) (int64, bool, error) {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	var last int64
	found := false
	for key := range w.store.events {
		if key.subjectID != subjectID || key.resourceID != resourceID {
			continue
		}
		if !found || key.sequenceNumber > last {
			last = key.sequenceNumber
			found = true
		}
	}
	return last, found, nil
}

func (w *WatchEventStore) Exists(_ context.Context, subjectID, resourceID string, sequenceNumber int64) (bool, error) {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	_, ok := w.store.events[eventKey{subjectID, resourceID, sequenceNumber}]
	return ok, nil
}

func (w *WatchEventStore) Append(_ context.Context, event domain.WatchEvent, entry domain.LedgerEntry) (domain.SubmitOutcome, error) {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	key := eventKey{event.SubjectID, event.ResourceID, event.SequenceNumber}
	if _, ok := w.store.events[key]; ok {
		return domain.SubmitOutcome{}, domain.ErrDuplicateSequence
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = w.store.now().UTC().Truncate(time.Microsecond)
	}
	event.Metadata = cloneMetadata(event.Metadata)
	appended := w.store.appendLocked(entry)
	w.store.events[key] = event
	return domain.SubmitOutcome{Event: event, Entry: appended}, nil
}

func (w *WatchEventStore) ListHeartbeats(_ context.Context, resourceID string) ([]domain.WatchEvent, error) {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	var out []domain.WatchEvent
	for _, event := range w.store.events {
		if event.ResourceID != resourceID || event.EventKind != domain.WatchEventHeartbeat {
			continue
		}
		event.Metadata = cloneMetadata(event.Metadata)
		out = append(out, event)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNumber < out[j].SequenceNumber })
	return out, nil
}

type ModuleStore struct {
	store *Store
}

func (m *ModuleStore) Get(_ context.Context, id string) (domain.Module, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	module, ok := m.store.modules[id]
	if !ok {
		return domain.Module{}, domain.ErrNotFound
	}
	return module, nil
}

func (m *ModuleStore) ListByCourse(_ context.Context, courseID string) ([]domain.Module, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var out []domain.Module
	for _, module := range m.store.modules {
		if module.CourseID == courseID {
			out = append(out, module)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type ProgressStore struct {
	store *Store
}

func (p *ProgressStore) Get(_ context.Context, subjectID, resourceID string) (domain.Progress, bool, error) {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	progress, ok := p.store.progress[progressKey{subjectID, resourceID}]
	return progress, ok, nil
}

func (p *ProgressStore) Upsert(_ context.Context, progress domain.Progress) error {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	p.store.progress[progressKey{progress.SubjectID, progress.ResourceID}] = progress
	return nil
}

type MediaStore struct {
	store *Store
}

func (m *MediaStore) Get(_ context.Context, resourceID string) (domain.PackagingResult, bool, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	result, ok := m.store.media[resourceID]
	return result, ok, nil
}

func (m *MediaStore) Save(_ context.Context, result domain.PackagingResult) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.media[result.ResourceID] = result
	return nil
}

type ReceiptStore struct {
	store *Store
}

func (r *ReceiptStore) Append(_ context.Context, receipt domain.AnchorReceipt) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	receipt.ID = int64(len(r.store.receipts)) + 1
	r.store.receipts = append(r.store.receipts, receipt)
	return nil
}

func (r *ReceiptStore) ListByHead(_ context.Context, headSeq int64) ([]domain.AnchorReceipt, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.AnchorReceipt
	for _, receipt := range r.store.receipts {
		if receipt.HeadSeq == headSeq {
			out = append(out, receipt)
		}
	}
	return out, nil
}

func cloneMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
