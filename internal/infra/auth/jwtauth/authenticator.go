// Package jwtauth authenticates API callers with HS256 session tokens issued
// by the surrounding platform. It only verifies and extracts; issuing session
// tokens is not this system's job.
package jwtauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"learntrust/internal/domain"
)

type claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) (*Authenticator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &Authenticator{secret: []byte(secret)}, nil
}

func (a *Authenticator) Authenticate(_ context.Context, tokenString string) (domain.Principal, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.Subject == "" {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	return domain.Principal{Subject: c.Subject, Roles: c.Roles}, nil
}
