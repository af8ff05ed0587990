// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrConfiguration is returned by constructors in this package when a required
// secret or work factor is missing. It is a startup error, never a request error.
var ErrConfiguration = errors.New("sec: configuration error")

// Hasher hashes passwords with bcrypt after keying them with a process-wide pepper.
//
// The password is first reduced to HMAC-SHA256(pepper, password) in base64,
// which keeps the bcrypt input at 44 bytes whatever the password or pepper length.
//
// A Hasher is immutable after construction and safe for concurrent use.
type Hasher struct {
	pepper string
	cost   int
}

// NewHasher validates the pepper and bcrypt cost and returns a [Hasher].
func NewHasher(pepper string, cost int) (*Hasher, error) {
	if pepper == "" {
		return nil, fmt.Errorf("%w: pepper is not set", ErrConfiguration)
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: hash cost %d outside [%d, %d]", ErrConfiguration, cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Hasher{pepper: pepper, cost: cost}, nil
}

// Hash returns a salted bcrypt hash of the peppered password.
func (h *Hasher) Hash(plainTextPassword string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword(h.peppered(plainTextPassword), h.cost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Compare reports whether plainTextPassword matches existingHash.
// bcrypt compares in constant time.
func (h *Hasher) Compare(plainTextPassword, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), h.peppered(plainTextPassword))
	return err == nil
}

func (h *Hasher) peppered(plainTextPassword string) []byte {
	mac := hmac.New(sha256.New, []byte(h.pepper))
	mac.Write([]byte(plainTextPassword))
	sum := mac.Sum(nil)

	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(encoded, sum)
	return encoded
}
