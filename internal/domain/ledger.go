package domain

import "time"

// GenesisFingerprint is the previous_fingerprint of the first chain entry.
const GenesisFingerprint = "0000000000000000000000000000000000000000000000000000000000000000"

// LedgerEntry is one immutable link of the audit hash chain. Entries are
// created exactly once via append and are never updated or deleted; any
// attempt fails with ErrImmutable.
type LedgerEntry struct {
	ID                  string
	Seq                 int64
	SubjectID           string
	ResourceID          string
	EventKind           string
	Metadata            map[string]any
	TokenFingerprint    string
	PreviousFingerprint string
	CurrentFingerprint  string
	CreatedAt           time.Time
}

// ChainVerification is the result of recomputing a range of the chain.
// A broken chain is a detectable fact, not a fault: Valid is false and
// FirstMismatch names the first divergent sequence number.
type ChainVerification struct {
	Valid         bool
	FirstMismatch int64
	From          int64
	To            int64
	Entries       int64
	TailHash      string
	CheckedAt     time.Time
}
