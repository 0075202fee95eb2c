// Package storage declares the persistence contract shared by all storage
// backends (PostgreSQL, SQLite and in-memory) and the errors they report.
package storage

import (
	"context"
	"errors"

	"github.com/patric-chuzhbe/contactbook/internal/contact"
	"github.com/patric-chuzhbe/contactbook/internal/user"
)

var (
	// ErrEmailTaken is returned by CreateUser when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrUserNotFound is returned when no user matches the lookup key.
	ErrUserNotFound = errors.New("user not found")
)

type Storage interface {
	// CreateUser inserts the user and returns the assigned id.
	// Concurrent inserts of the same email leave exactly one row; the others get ErrEmailTaken.
	CreateUser(ctx context.Context, usr *user.User) (int64, error)

	GetUserByID(ctx context.Context, userID int64) (*user.User, error)

	GetUserByEmail(ctx context.Context, email string) (*user.User, error)

	CreateContact(ctx context.Context, c *contact.Contact) (int64, error)

	// FindContacts returns the requested page and the number of contacts matching the query filters.
	FindContacts(ctx context.Context, query contact.Query) ([]contact.Contact, int64, error)

	GetNumberOfUsers(ctx context.Context) (int64, error)

	GetNumberOfContacts(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error

	Close() error
}
