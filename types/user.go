package types

import "time"

// User represents a registered account.
type User struct {
	// ID is the store-assigned identifier of the user. Its format depends
	// on the backing store (ObjectID hex, numeric id, ...).
	ID string `json:"_id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user registered.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Identity is the caller identity carried by a session token.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}
