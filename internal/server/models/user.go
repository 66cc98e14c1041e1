// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a registered account. Salt and PasswordHash never leave the server.
type User struct {
	ID           int64
	UserName     string
	Salt         []byte
	PasswordHash string
	Email        string
	CreatedAt    time.Time
}
