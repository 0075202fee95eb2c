// Package memorystorage keeps users and contacts in process memory.
// Data is lost on shutdown; it backs the server when no database is configured.
package memorystorage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/patric-chuzhbe/contactbook/internal/contact"
	"github.com/patric-chuzhbe/contactbook/internal/db/storage"
	"github.com/patric-chuzhbe/contactbook/internal/user"
)

type CacheStruct struct {
	Users         map[int64]*user.User
	UserIDByEmail map[string]int64
	NextUserID    int64

	// Contacts are kept in insertion order, which is also id order.
	Contacts      []contact.Contact
	NextContactID int64
}

type MemoryStorage struct {
	mu    sync.RWMutex
	Cache CacheStruct
}

var _ storage.Storage = (*MemoryStorage)(nil)

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		Cache: CacheStruct{
			Users:         map[int64]*user.User{},
			UserIDByEmail: map[string]int64{},
			NextUserID:    1,
			Contacts:      []contact.Contact{},
			NextContactID: 1,
		},
	}, nil
}

func (theStorage *MemoryStorage) CreateUser(ctx context.Context, usr *user.User) (int64, error) {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	if _, taken := theStorage.Cache.UserIDByEmail[usr.Email]; taken {
		return 0, storage.ErrEmailTaken
	}

	stored := *usr
	stored.ID = theStorage.Cache.NextUserID
	theStorage.Cache.NextUserID++

	theStorage.Cache.Users[stored.ID] = &stored
	theStorage.Cache.UserIDByEmail[stored.Email] = stored.ID

	return stored.ID, nil
}

func (theStorage *MemoryStorage) GetUserByID(ctx context.Context, userID int64) (*user.User, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	usr, found := theStorage.Cache.Users[userID]
	if !found {
		return nil, storage.ErrUserNotFound
	}

	result := *usr
	return &result, nil
}

func (theStorage *MemoryStorage) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	theStorage.mu.RLock()
	userID, found := theStorage.Cache.UserIDByEmail[email]
	theStorage.mu.RUnlock()

	if !found {
		return nil, storage.ErrUserNotFound
	}

	return theStorage.GetUserByID(ctx, userID)
}

func (theStorage *MemoryStorage) CreateContact(ctx context.Context, c *contact.Contact) (int64, error) {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	if _, found := theStorage.Cache.Users[c.UserID]; !found {
		return 0, storage.ErrUserNotFound
	}

	stored := *c
	stored.ID = theStorage.Cache.NextContactID
	theStorage.Cache.NextContactID++
	theStorage.Cache.Contacts = append(theStorage.Cache.Contacts, stored)

	return stored.ID, nil
}

// FindContacts filters, orders and pages the owner's contacts the same way
// the SQL backends do: substring filters on lower-cased values, byte-wise
// name comparison with id as the tie-breaker.
func (theStorage *MemoryStorage) FindContacts(ctx context.Context, query contact.Query) ([]contact.Contact, int64, error) {
	theStorage.mu.RLock()
	matched := []contact.Contact{}
	for _, c := range theStorage.Cache.Contacts {
		if c.UserID == query.UserID && matches(c, query) {
			matched = append(matched, c)
		}
	}
	theStorage.mu.RUnlock()

	sortContacts(matched, query.SortBy)

	total := int64(len(matched))
	start := min(max(query.Offset, 0), len(matched))
	end := start + min(max(query.Limit, 0), len(matched)-start)

	return append([]contact.Contact{}, matched[start:end]...), total, nil
}

func (theStorage *MemoryStorage) GetNumberOfUsers(ctx context.Context) (int64, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	return int64(len(theStorage.Cache.Users)), nil
}

func (theStorage *MemoryStorage) GetNumberOfContacts(ctx context.Context) (int64, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	return int64(len(theStorage.Cache.Contacts)), nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}

func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

func matches(c contact.Contact, query contact.Query) bool {
	if !containsFold(c.Name, query.Name) {
		return false
	}
	if query.Email != "" && (c.Email == nil || !containsFold(*c.Email, query.Email)) {
		return false
	}

	return containsFold(c.Phone, query.Phone)
}

func containsFold(value, substr string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(substr))
}

func sortContacts(contacts []contact.Contact, sortBy string) {
	var less func(a, b contact.Contact) bool

	switch sortBy {
	case contact.SortLatest:
		less = func(a, b contact.Contact) bool { return a.ID > b.ID }
	case contact.SortOldest:
		less = func(a, b contact.Contact) bool { return a.ID < b.ID }
	case contact.SortAlphabeticallyAToZ:
		less = func(a, b contact.Contact) bool {
			if a.Name != b.Name {
				return a.Name < b.Name
			}
			return a.ID < b.ID
		}
	case contact.SortAlphabeticallyZToA:
		less = func(a, b contact.Contact) bool {
			if a.Name != b.Name {
				return a.Name > b.Name
			}
			return a.ID > b.ID
		}
	default:
		return
	}

	sort.SliceStable(contacts, func(i, j int) bool {
		return less(contacts[i], contacts[j])
	})
}
