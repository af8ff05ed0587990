// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package email normalizes email addresses before they reach storage.
//
// # Usage
//
// Every lookup and insert keyed on an email goes through [Normalize], so
// "Alice@Example.com " and "alice@example.com" resolve to the same account.
package email

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// folder performs full Unicode case folding (ß → ss, K → k).
var folder = cases.Fold()

// Normalize trims surrounding whitespace, applies NFC, and case folds.
func Normalize(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return ""
	}
	return folder.String(norm.NFC.String(address))
}

// Equal reports whether two addresses are the same after normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
