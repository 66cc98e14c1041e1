package models

import "time"

// Message is a stored message. ContentEncrypted is what the database holds;
// Content is filled in memory on the read path only.
type Message struct {
	ID               string
	FromID           int64
	ToID             int64
	FromUser         string
	ToUser           string
	ContentEncrypted []byte
	Content          string
	SentAt           time.Time
}
