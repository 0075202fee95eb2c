// Package mockstorage provides a testify-based mock implementation
// of storage.Storage. It is used for unit testing the service and the
// HTTP handlers without a database.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/contactbook/internal/contact"
	"github.com/patric-chuzhbe/contactbook/internal/db/storage"
	"github.com/patric-chuzhbe/contactbook/internal/user"
)

// StorageMock is a testify mock of storage.Storage.
type StorageMock struct {
	mock.Mock

	// OnGetNumberOfUsers is an optional function field that can be assigned
	// to define custom mock behavior for GetNumberOfUsers in tests.
	//
	// If set, GetNumberOfUsers will delegate to this function instead of
	// using testify's generic mock handler.
	OnGetNumberOfUsers func(ctx context.Context) (int64, error)

	// OnGetNumberOfContacts plays the same role for GetNumberOfContacts.
	OnGetNumberOfContacts func(ctx context.Context) (int64, error)
}

var _ storage.Storage = (*StorageMock)(nil)

// Ping mocks a health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// CreateUser mocks user creation and returns the assigned ID.
func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User) (int64, error) {
	args := m.Called(ctx, usr)
	return args.Get(0).(int64), args.Error(1)
}

// GetUserByID mocks fetching a user by their ID.
func (m *StorageMock) GetUserByID(ctx context.Context, userID int64) (*user.User, error) {
	args := m.Called(ctx, userID)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

// GetUserByEmail mocks fetching a user by email.
func (m *StorageMock) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

// CreateContact mocks contact creation.
func (m *StorageMock) CreateContact(ctx context.Context, c *contact.Contact) (int64, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(int64), args.Error(1)
}

// FindContacts mocks the paged contact search.
func (m *StorageMock) FindContacts(ctx context.Context, query contact.Query) ([]contact.Contact, int64, error) {
	args := m.Called(ctx, query)
	contacts, _ := args.Get(0).([]contact.Contact)
	return contacts, args.Get(1).(int64), args.Error(2)
}

// Close mocks closing the storage and releasing resources.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// GetNumberOfUsers returns the number of users as defined by the mock.
//
// If OnGetNumberOfUsers is non-nil, it will be called to produce the result.
// Otherwise, the method returns 0 and no error by default.
func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfUsers != nil {
		return m.OnGetNumberOfUsers(ctx)
	}
	return 0, nil
}

// GetNumberOfContacts returns the number of stored contacts.
func (m *StorageMock) GetNumberOfContacts(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfContacts != nil {
		return m.OnGetNumberOfContacts(ctx)
	}
	return 0, nil
}
