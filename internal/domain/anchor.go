package domain

import (
	"context"
	"time"
)

const (
	AnchorStatusAnchored = "anchored"
	AnchorStatusFailed   = "failed"
	AnchorStatusSkipped  = "skipped"

	AnchorErrorTimeout     = "TIMEOUT"
	AnchorErrorHTTPStatus  = "HTTP_STATUS"
	AnchorErrorNetwork     = "NETWORK"
	AnchorErrorPersistence = "PERSISTENCE"
)

// AnchorReceipt records one best-effort attempt to anchor a chain head at an
// external endpoint. Anchoring carries no hard guarantee; the chain stands on
// its own hashes.
type AnchorReceipt struct {
	ID          int64
	Provider    string
	HeadSeq     int64
	PayloadHash string
	Status      string
	ErrorCode   string
	TxID        string
	CreatedAt   time.Time
}

type AnchorService interface {
	AnchorHead(ctx context.Context, entry LedgerEntry) (AnchorReceipt, error)
}

type AnchorReceiptRepository interface {
	Append(ctx context.Context, receipt AnchorReceipt) error
	ListByHead(ctx context.Context, headSeq int64) ([]AnchorReceipt, error)
}
