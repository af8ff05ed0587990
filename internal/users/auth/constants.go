// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

// # Account Constraints

const (
	// UsernameMinLen and UsernameMaxLen bound the username length.
	UsernameMinLen = 3
	UsernameMaxLen = 30

	// NameMaxLen bounds first and last names.
	NameMaxLen = 100

	// EmailMaxLen matches the column width in users.account.
	EmailMaxLen = 254

	// OtpLength is the number of digits in a reset code.
	OtpLength = 6

	// TokenType is returned alongside access tokens.
	TokenType = "Bearer"
)
