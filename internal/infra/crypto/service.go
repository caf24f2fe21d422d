// Package crypto computes the fingerprints that seal ledger entries and bind
// watch events to the server secret.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

type Service struct {
	secret []byte
}

func NewService(secret string) (*Service, error) {
	if secret == "" {
		return nil, errors.New("server secret is required")
	}
	return &Service{secret: []byte(secret)}, nil
}

// ChainFingerprint seals one ledger entry:
// sha256(subject_id || event_kind || creation_time || previous_fingerprint || secret).
// creation_time must already be truncated to microseconds so the stored
// timestamp recomputes to the identical digest.
func (s *Service) ChainFingerprint(subjectID, eventKind string, createdAt time.Time, previousFingerprint string) string {
	h := sha256.New()
	h.Write([]byte(subjectID))
	h.Write([]byte(eventKind))
	h.Write([]byte(ChainTime(createdAt)))
	h.Write([]byte(previousFingerprint))
	h.Write(s.secret)
	return hex.EncodeToString(h.Sum(nil))
}

// MintFingerprint proves an entry was minted by the system rather than forged
// by a client: sha256(subject || resource || kind || nonce || secret) with a
// fresh 16-byte nonce.
func (s *Service) MintFingerprint(subjectID, resourceID, eventKind string) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(subjectID))
	h.Write([]byte(resourceID))
	h.Write([]byte(eventKind))
	h.Write([]byte(hex.EncodeToString(nonce)))
	h.Write(s.secret)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// WatchFingerprint binds a watch event submission to its sequence number:
// sha256(subject || resource || sequence || secret).
func (s *Service) WatchFingerprint(subjectID, resourceID string, sequenceNumber int64) string {
	h := sha256.New()
	h.Write([]byte(subjectID))
	h.Write([]byte(resourceID))
	h.Write([]byte(strconv.FormatInt(sequenceNumber, 10)))
	h.Write(s.secret)
	return hex.EncodeToString(h.Sum(nil))
}

// ChainTime is the canonical textual form of a creation time used as hash
// input: UTC, microsecond precision, RFC 3339.
func ChainTime(t time.Time) string {
	return t.UTC().Truncate(time.Microsecond).Format(time.RFC3339Nano)
}

// CanonicalizeMetadata renders a metadata map deterministically. Go's JSON
// encoder sorts map keys, which is all the determinism the ledger needs.
func CanonicalizeMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return json.Marshal(metadata)
}
