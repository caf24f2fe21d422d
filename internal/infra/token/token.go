// Package token implements the short-lived HMAC capability token gating media
// delivery. Wire format: base64url(payload_json) + "." + hex(hmac_sha256).
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const DefaultTTL = 600 * time.Second

type payload struct {
	SubjectID  string `json:"subject_id"`
	ResourceID string `json:"resource_id"`
	Expiry     int64  `json:"expiry"`
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// NewIssuerWithClock is for tests that need to move time.
func NewIssuerWithClock(secret string, ttl time.Duration, now func() time.Time) (*Issuer, error) {
	issuer, err := NewIssuer(secret, ttl)
	if err != nil {
		return nil, err
	}
	if now != nil {
		issuer.now = now
	}
	return issuer, nil
}

func (i *Issuer) Issue(subjectID, resourceID string) (string, error) {
	return i.IssueWithTTL(subjectID, resourceID, i.ttl)
}

func (i *Issuer) IssueWithTTL(subjectID, resourceID string, ttl time.Duration) (string, error) {
	if subjectID == "" || resourceID == "" {
		return "", errors.New("subject and resource are required")
	}
	if ttl <= 0 {
		ttl = i.ttl
	}
	body, err := json.Marshal(payload{
		SubjectID:  subjectID,
		ResourceID: resourceID,
		Expiry:     i.now().Add(ttl).Unix(),
	})
	if err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(body)
	return encoded + "." + i.sign(body), nil
}

// Verify reports whether the token grants the exact (subject, resource) pair
// and has not expired. It is total over attacker-controlled input: malformed
// tokens, decode failures and mismatches all return false, never an error.
func (i *Issuer) Verify(token, expectedSubjectID, expectedResourceID string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return false
	}
	body, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[0], "="))
	if err != nil {
		return false
	}
	expected := i.sign(body)
	if !hmac.Equal([]byte(parts[1]), []byte(expected)) {
		return false
	}
	var claims payload
	if err := json.Unmarshal(body, &claims); err != nil {
		return false
	}
	if claims.Expiry < i.now().Unix() {
		return false
	}
	if claims.SubjectID != expectedSubjectID {
		return false
	}
	return claims.ResourceID == expectedResourceID
}

// VerifyForResource authenticates a token against a resource alone and
// returns the subject it was issued to. Media players present the token as a
// query parameter with no other credential, so the subject identity has to
// come out of the token itself.
func (i *Issuer) VerifyForResource(token, expectedResourceID string) (string, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return "", false
	}
	body, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[0], "="))
	if err != nil {
		return "", false
	}
	if !hmac.Equal([]byte(parts[1]), []byte(i.sign(body))) {
		return "", false
	}
	var claims payload
	if err := json.Unmarshal(body, &claims); err != nil {
		return "", false
	}
	if claims.Expiry < i.now().Unix() {
		return "", false
	}
	if claims.ResourceID != expectedResourceID || claims.SubjectID == "" {
		return "", false
	}
	return claims.SubjectID, true
}

func (i *Issuer) sign(body []byte) string {
	mac := hmac.New(sha256.New, i.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
