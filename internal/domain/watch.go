package domain

import "time"

type WatchEventKind string

const (
	WatchEventPlay       WatchEventKind = "play"
	WatchEventPause      WatchEventKind = "pause"
	WatchEventHeartbeat  WatchEventKind = "heartbeat"
	WatchEventCheckpoint WatchEventKind = "checkpoint"
	WatchEventSnapshot   WatchEventKind = "webcam_snapshot"
)

// LedgerKindPrefix prefixes the watch event kind when the validator mirrors a
// successful submission into the audit chain ("play" -> "watch_play").
const LedgerKindPrefix = "watch_"

// WatchEvent is an append-only record of a player action. The triple
// (SubjectID, ResourceID, SequenceNumber) is unique and SequenceNumber is
// strictly increasing per pair.
type WatchEvent struct {
	ID               string
	SubjectID        string
	ResourceID       string
	EventKind        WatchEventKind
	SequenceNumber   int64
	Position         float64
	ClientTimestamp  *float64
	TokenFingerprint string
	Metadata         map[string]any
	CreatedAt        time.Time
}

// SubmitOutcome reports a successful watch event submission together with the
// audit chain entry minted in the same transaction.
type SubmitOutcome struct {
	Event WatchEvent
	Entry LedgerEntry
}
