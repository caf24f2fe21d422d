// Package httpchain anchors chain heads at a plain HTTP endpoint, typically a
// blockchain gateway that accepts a hash plus free-form metadata.
package httpchain

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"learntrust/internal/domain"
	"learntrust/internal/infra/anchor"
)

const providerName = "httpchain"

type Provider struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewProvider(endpoint, apiKey string, client *http.Client) (*Provider, error) {
	if endpoint == "" {
		return nil, errors.New("anchor endpoint is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Provider{endpoint: endpoint, apiKey: apiKey, client: client}, nil
}

func (p *Provider) ProviderName() string {
	return providerName
}

func (p *Provider) Anchor(ctx context.Context, payload anchor.Payload) domain.AnchorReceipt {
	receipt := domain.AnchorReceipt{
		Provider:    providerName,
		HeadSeq:     payload.HeadSeq,
		PayloadHash: payload.HashHex,
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload.CanonicalJSON))
	if err != nil {
		receipt.Status = domain.AnchorStatusFailed
		receipt.ErrorCode = domain.AnchorErrorNetwork
		return receipt
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		receipt.Status = domain.AnchorStatusFailed
		if errors.Is(err, context.DeadlineExceeded) {
			receipt.ErrorCode = domain.AnchorErrorTimeout
		} else {
			receipt.ErrorCode = domain.AnchorErrorNetwork
		}
		return receipt
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		receipt.Status = domain.AnchorStatusFailed
		receipt.ErrorCode = domain.AnchorErrorHTTPStatus
		return receipt
	}
	// The gateway may return a transaction id; a missing one is not an error.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	receipt.TxID = txIDFromBody(body)
	receipt.Status = domain.AnchorStatusAnchored
	return receipt
}
