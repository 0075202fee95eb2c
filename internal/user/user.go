// Package user defines the user model used throughout the application,
// particularly for authentication and contact ownership.
package user

// User represents a registered account.
type User struct {
	// ID is the unique numeric identifier assigned by the storage.
	ID int64

	// Name is the display name given on signup.
	Name string

	// Email is the unique login key.
	Email string

	// PasswordHash is the bcrypt hash of the password. The clear password is never stored.
	PasswordHash string
}
