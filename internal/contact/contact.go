// Package contact defines the contact record owned by a user and the
// query parameters used to search a user's contact list.
package contact

// Contact is an address book entry. Only its owner may see it.
type Contact struct {
	ID      int64
	UserID  int64
	Name    string
	Email   *string
	Phone   string
	Address *string
	Country *string
}

// Sort orders accepted by the contact list.
const (
	SortLatest             = "latest"
	SortOldest             = "oldest"
	SortAlphabeticallyAToZ = "alphabetically_a_to_z"
	SortAlphabeticallyZToA = "alphabetically_z_to_a"
)

// Query selects one page of a user's contacts.
//
// Empty filter strings are ignored. Filters are case-insensitive substring
// matches and are combined with AND. Any SortBy value other than the Sort*
// constants leaves the order to the storage.
type Query struct {
	UserID int64

	Name  string
	Email string
	Phone string

	SortBy string

	Limit  int
	Offset int
}
