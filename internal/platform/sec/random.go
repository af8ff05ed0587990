// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
)

const (
	otpMin = 100000
	otpMax = 999999

	// SessionTokenBytes is the entropy of a reset session token (256 bits).
	SessionTokenBytes = 32
)

// SecretGenerator produces the one-time codes and capability tokens used by
// the password reset flow.
type SecretGenerator interface {
	GenerateOtp() (string, error)
	GenerateSessionToken() (string, error)
}

// RandomGenerator draws from crypto/rand.
type RandomGenerator struct{}

// GenerateOtp returns a 6-digit code uniform over [100000, 999999].
func (RandomGenerator) GenerateOtp() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", fmt.Errorf("sec: failed to generate otp: %w", err)
	}
	return strconv.FormatInt(n.Int64()+otpMin, 10), nil
}

// GenerateSessionToken returns a hex-encoded 256-bit random token.
func (RandomGenerator) GenerateSessionToken() (string, error) {
	return GenerateSecureToken(SessionTokenBytes)
}

// GenerateSecureToken returns length random bytes, hex-encoded.
func GenerateSecureToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("sec: failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
