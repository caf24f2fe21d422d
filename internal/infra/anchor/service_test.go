package anchor

import (
	"context"
	"testing"
	"time"

	"learntrust/internal/domain"
)

type receiptRecorder struct {
	receipts []domain.AnchorReceipt
}

func (r *receiptRecorder) Append(_ context.Context, receipt domain.AnchorReceipt) error {
	r.receipts = append(r.receipts, receipt)
	return nil
}

func (r *receiptRecorder) ListByHead(_ context.Context, headSeq int64) ([]domain.AnchorReceipt, error) {
	var out []domain.AnchorReceipt
	for _, receipt := range r.receipts {
		if receipt.HeadSeq == headSeq {
			out = append(out, receipt)
		}
	}
	return out, nil
}

type providerStub struct {
	receipt domain.AnchorReceipt
}

func (p *providerStub) ProviderName() string { return "stub" }

func (p *providerStub) Anchor(context.Context, Payload) domain.AnchorReceipt {
	return p.receipt
}

func headEntry() domain.LedgerEntry {
	return domain.LedgerEntry{
		Seq:                 7,
		SubjectID:           "u1",
		EventKind:           "watch_play",
		CurrentFingerprint:  "abc123",
		PreviousFingerprint: domain.GenesisFingerprint,
		CreatedAt:           time.Unix(1_700_000_000, 0).UTC(),
	}
}

func TestAnchorHeadDisabledRecordsSkip(t *testing.T) {
	recorder := &receiptRecorder{}
	svc, err := NewService(nil, recorder, false)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	receipt, err := svc.AnchorHead(context.Background(), headEntry())
	if err != nil {
		t.Fatalf("anchor head: %v", err)
	}
	if receipt.Status != domain.AnchorStatusSkipped {
		t.Fatalf("expected skipped, got %s", receipt.Status)
	}
	if len(recorder.receipts) != 1 || recorder.receipts[0].HeadSeq != 7 {
		t.Fatalf("skip must still be recorded, got %+v", recorder.receipts)
	}
}

func TestAnchorHeadRecordsSuccess(t *testing.T) {
	recorder := &receiptRecorder{}
	provider := &providerStub{receipt: domain.AnchorReceipt{Status: domain.AnchorStatusAnchored, TxID: "tx-1"}}
	svc, err := NewService(provider, recorder, true)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	receipt, err := svc.AnchorHead(context.Background(), headEntry())
	if err != nil {
		t.Fatalf("anchor head: %v", err)
	}
	if receipt.Status != domain.AnchorStatusAnchored || receipt.TxID != "tx-1" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if receipt.Provider != "stub" || receipt.HeadSeq != 7 || receipt.PayloadHash == "" {
		t.Fatalf("receipt must carry provider, head and payload hash, got %+v", receipt)
	}
}

func TestAnchorHeadEnabledWithoutProvider(t *testing.T) {
	if _, err := NewService(nil, &receiptRecorder{}, true); err == nil {
		t.Fatal("enabling anchoring without a provider must fail")
	}
}

func TestBuildPayloadRequiresFingerprint(t *testing.T) {
	if _, err := BuildPayload(domain.LedgerEntry{Seq: 1}); err == nil {
		t.Fatal("payload without a fingerprint must fail")
	}
	payload, err := BuildPayload(headEntry())
	if err != nil {
		t.Fatalf("build payload: %v", err)
	}
	if payload.HeadSeq != 7 || payload.HeadHash != "abc123" || len(payload.HashHex) != 64 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}
