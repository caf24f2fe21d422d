package anchor

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"learntrust/internal/domain"
	cryptoinfra "learntrust/internal/infra/crypto"
)

// Payload is what gets posted to the anchoring endpoint: the chain head hash
// plus enough metadata to locate the head again during an audit.
type Payload struct {
	HeadSeq       int64
	HeadHash      string
	CanonicalJSON []byte
	HashHex       string
}

func BuildPayload(entry domain.LedgerEntry) (Payload, error) {
	if entry.CurrentFingerprint == "" {
		return Payload{}, errors.New("chain head fingerprint is required")
	}
	body := map[string]any{
		"v":          "learntrust_anchor_v1",
		"hash":       entry.CurrentFingerprint,
		"metadata": map[string]any{
			"seq":        entry.Seq,
			"event_kind": entry.EventKind,
			"created_at": cryptoinfra.ChainTime(entry.CreatedAt),
		},
	}
	canonical, err := cryptoinfra.CanonicalizeMetadata(body)
	if err != nil {
		return Payload{}, err
	}
	sum := sha256.Sum256(canonical)
	return Payload{
		HeadSeq:       entry.Seq,
		HeadHash:      entry.CurrentFingerprint,
		CanonicalJSON: canonical,
		HashHex:       hex.EncodeToString(sum[:]),
	}, nil
}
