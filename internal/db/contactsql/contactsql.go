// Package contactsql builds the SQL used by the relational backends to
// filter, order and page a user's contacts. Only the placeholder syntax
// differs between PostgreSQL and SQLite.
package contactsql

import (
	"strconv"
	"strings"

	"github.com/patric-chuzhbe/contactbook/internal/contact"
)

// Placeholder renders the n-th (1-based) bind parameter.
type Placeholder func(n int) string

// Dollar renders PostgreSQL placeholders: $1, $2, ...
func Dollar(n int) string {
	return "$" + strconv.Itoa(n)
}

// Question renders SQLite placeholders.
func Question(int) string {
	return "?"
}

const selectColumns = `id, user_id, name, email, phone, address, country`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Statements holds the count and page queries for one contact.Query.
type Statements struct {
	Count     string
	CountArgs []any
	Page      string
	PageArgs  []any
}

// Build renders the statements for the query.
func Build(query contact.Query, placeholder Placeholder) Statements {
	args := []any{query.UserID}
	conditions := []string{"user_id = " + placeholder(1)}

	filters := []struct {
		column string
		value  string
	}{
		{"name", query.Name},
		{"email", query.Email},
		{"phone", query.Phone},
	}
	for _, filter := range filters {
		if filter.value == "" {
			continue
		}
		args = append(args, LikePattern(filter.value))
		conditions = append(
			conditions,
			"LOWER("+filter.column+") LIKE "+placeholder(len(args))+` ESCAPE '\'`,
		)
	}

	where := strings.Join(conditions, " AND ")

	pageArgs := append(append([]any{}, args...), query.Limit, query.Offset)
	page := "SELECT " + selectColumns + " FROM contact WHERE " + where
	if orderBy := OrderBy(query.SortBy); orderBy != "" {
		page += " ORDER BY " + orderBy
	}
	page += " LIMIT " + placeholder(len(args)+1) + " OFFSET " + placeholder(len(args)+2)

	return Statements{
		Count:     "SELECT COUNT(*) FROM contact WHERE " + where,
		CountArgs: args,
		Page:      page,
		PageArgs:  pageArgs,
	}
}

// OrderBy maps a sort name to its ORDER BY expression.
// Unknown names yield an empty string.
func OrderBy(sortBy string) string {
	switch sortBy {
	case contact.SortLatest:
		return "id DESC"
	case contact.SortOldest:
		return "id ASC"
	case contact.SortAlphabeticallyAToZ:
		return "name ASC, id ASC"
	case contact.SortAlphabeticallyZToA:
		return "name DESC, id DESC"
	}

	return ""
}

// LikePattern lower-cases the value, escapes LIKE wildcards and wraps it
// for a substring match.
func LikePattern(value string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(value)) + "%"
}
