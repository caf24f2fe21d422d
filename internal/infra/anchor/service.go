// Package anchor posts the current chain head to an external witness on a
// best-effort basis. A failed or skipped anchor never fails the append that
// triggered it; the outcome is recorded as a receipt either way.
package anchor

import (
	"context"
	"errors"
	"time"

	"learntrust/internal/domain"
)

type Provider interface {
	ProviderName() string
	Anchor(ctx context.Context, payload Payload) domain.AnchorReceipt
}

type Service struct {
	provider Provider
	receipts domain.AnchorReceiptRepository
	enabled  bool
	now      func() time.Time
}

func NewService(provider Provider, receipts domain.AnchorReceiptRepository, enabled bool) (*Service, error) {
	if enabled && provider == nil {
		return nil, errors.New("anchoring enabled without a provider")
	}
	return &Service{
		provider: provider,
		receipts: receipts,
		enabled:  enabled,
		now:      time.Now,
	}, nil
}

func (s *Service) AnchorHead(ctx context.Context, entry domain.LedgerEntry) (domain.AnchorReceipt, error) {
	if s == nil {
		return domain.AnchorReceipt{}, errors.New("anchor service is nil")
	}
	payload, err := BuildPayload(entry)
	if err != nil {
		return domain.AnchorReceipt{}, err
	}
	if !s.enabled {
		receipt := domain.AnchorReceipt{
			Provider:    "anchor",
			HeadSeq:     payload.HeadSeq,
			PayloadHash: payload.HashHex,
			Status:      domain.AnchorStatusSkipped,
			CreatedAt:   s.now().UTC(),
		}
		return s.persist(ctx, receipt), nil
	}

	receipt := s.provider.Anchor(ctx, payload)
	if receipt.Provider == "" {
		receipt.Provider = s.provider.ProviderName()
	}
	if receipt.Status == "" {
		receipt.Status = domain.AnchorStatusAnchored
	}
	receipt.HeadSeq = payload.HeadSeq
	receipt.PayloadHash = payload.HashHex
	receipt.CreatedAt = s.now().UTC()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		receipt.Status = domain.AnchorStatusFailed
		if receipt.ErrorCode == "" {
			receipt.ErrorCode = domain.AnchorErrorTimeout
		}
	}
	return s.persist(ctx, receipt), nil
}

func (s *Service) persist(ctx context.Context, receipt domain.AnchorReceipt) domain.AnchorReceipt {
	if s.receipts == nil {
		return receipt
	}
	// Persist with a fresh context; the provider may already have burned the
	// caller's deadline.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.receipts.Append(persistCtx, receipt); err != nil {
		receipt.Status = domain.AnchorStatusFailed
		receipt.ErrorCode = domain.AnchorErrorPersistence
	}
	return receipt
}
