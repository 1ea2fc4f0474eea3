package auth

import (
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSigner signs a set of JWT claims. Injecting the signer lets the
// token source be unit-tested without real key material.
type TokenSigner interface {
	Sign(claims jwt.Claims) (string, error)
}

// HMACSigner signs tokens with HS256. Used in tests and local development.
type HMACSigner struct {
	secret []byte
}

func NewHMACSigner(secret string) *HMACSigner {
	return &HMACSigner{secret: []byte(secret)}
}

func (s *HMACSigner) Sign(claims jwt.Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign jwt: %w", err)
	}
	return signed, nil
}

// RSASigner signs tokens with RS256, as required for Google service account
// assertions.
type RSASigner struct {
	key *rsa.PrivateKey
}

// NewRSASignerFromPEM parses a PKCS#1 or PKCS#8 PEM private key.
func NewRSASignerFromPEM(pemBytes []byte) (*RSASigner, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rsa private key: %w", err)
	}
	return &RSASigner{key: key}, nil
}

func (s *RSASigner) Sign(claims jwt.Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign jwt: %w", err)
	}
	return signed, nil
}
