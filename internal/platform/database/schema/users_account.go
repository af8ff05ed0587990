// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns the repositories query.
package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table              string
	ID                 string
	Email              string
	Username           string
	FirstName          string
	LastName           string
	Role               string
	Password           string
	ResetOtp           string
	OtpExpiry          string
	ResetSessionToken  string
	ResetSessionExpiry string
	PasswordChangedAt  string
	CreatedAt          string
	UpdatedAt          string
	DeletedAt          string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:              "users.account",
	ID:                 "id",
	Email:              "email",
	Username:           "username",
	FirstName:          "firstname",
	LastName:           "lastname",
	Role:               "role",
	Password:           "passwordhash",
	ResetOtp:           "resetotp",
	OtpExpiry:          "otpexpiry",
	ResetSessionToken:  "resetsessiontoken",
	ResetSessionExpiry: "resetsessionexpiry",
	PasswordChangedAt:  "passwordchangedat",
	CreatedAt:          "createdat",
	UpdatedAt:          "updatedat",
	DeletedAt:          "deletedat",
}

// Columns returns all standard column names in scan order.
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.Email, t.Username, t.FirstName, t.LastName, t.Role, t.Password,
		t.ResetOtp, t.OtpExpiry, t.ResetSessionToken, t.ResetSessionExpiry,
		t.PasswordChangedAt, t.CreatedAt, t.UpdatedAt, t.DeletedAt,
	}
}

// SearchColumns returns the columns matched by free-text account search.
func (t UserAccountTable) SearchColumns() []string {
	return []string{t.Email, t.Username, t.FirstName, t.LastName}
}
