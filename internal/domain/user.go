package domain

import "time"

// TimestampLayout is the wire format for every timestamp exposed by the API.
const TimestampLayout = "2006-01-02 15:04:05"

// User is an account holder that can send and receive messages.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
