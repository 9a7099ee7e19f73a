// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account. Posts reference it by ID. Salt and Verifier come from
// the client, the server never sees a password.
type User struct {
	ID        string
	UserName  string
	Salt      []byte
	Verifier  []byte
	CreatedAt time.Time
}
