// Package user defines the user account model used throughout the
// application, particularly for registration, authentication and profile
// storage.
package user

import "time"

// User represents a registered account.
type User struct {
	// ID is the unique identifier of the user, meaning a UUID.
	ID string `json:"userId"`

	// Name is the display name supplied at registration.
	Name string `json:"name"`

	// Username is the login alias supplied at registration.
	Username string `json:"username"`

	// Email is unique across all accounts.
	Email string `json:"email"`

	// PasswordHash is the bcrypt hash of the account password.
	// It is never serialized into API responses.
	PasswordHash string `json:"-"`

	// CreatedAt is set once when the account is created.
	CreatedAt time.Time `json:"createdAt"`
}
