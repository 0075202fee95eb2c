// Package sqlitedb provides an embedded SQLite implementation of the storage
// interface, backed by the pure-Go modernc.org/sqlite driver.
package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/patric-chuzhbe/contactbook/internal/contact"
	"github.com/patric-chuzhbe/contactbook/internal/db/contactsql"
	"github.com/patric-chuzhbe/contactbook/internal/db/migrations"
	"github.com/patric-chuzhbe/contactbook/internal/db/storage"
	"github.com/patric-chuzhbe/contactbook/internal/user"
)

// SQLiteDB stores users and contacts in a single SQLite database file.
type SQLiteDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

var _ storage.Storage = (*SQLiteDB)(nil)

// New opens (creating if needed) the database at path and migrates it.
// Pass ":memory:" for a private in-memory database.
func New(ctx context.Context, path string, connectionTimeout time.Duration) (*SQLiteDB, error) {
	database, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/New(): error while `sql.Open()` calling: %w", err)
	}

	// SQLite allows one writer at a time; a single connection also keeps a
	// ":memory:" database alive for the lifetime of the pool.
	database.SetMaxOpenConns(1)
	database.SetConnMaxLifetime(0)

	result := &SQLiteDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if err := result.Ping(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/New(): error while `result.Ping()` calling: %w", err)
	}

	if err := migrations.Up(database, migrations.SQLite); err != nil {
		_ = database.Close()
		return nil, err
	}

	return result, nil
}

func dsn(path string) string {
	pragmas := url.Values{}
	pragmas.Add("_pragma", "foreign_keys(1)")
	pragmas.Add("_pragma", "busy_timeout(5000)")

	return "file:" + path + "?" + pragmas.Encode()
}

// CreateUser implements storage.Storage.
func (db *SQLiteDB) CreateUser(ctx context.Context, usr *user.User) (int64, error) {
	result, err := db.database.ExecContext(
		ctx,
		`INSERT INTO "user" (name, email, password) VALUES (?, ?, ?)`,
		usr.Name,
		usr.Email,
		usr.PasswordHash,
	)
	if err != nil {
		var liteErr *sqlite.Error
		if errors.As(err, &liteErr) && liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return 0, storage.ErrEmailTaken
		}
		return 0, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/CreateUser(): error while `db.database.ExecContext()` calling: %w", err)
	}

	return result.LastInsertId()
}

// GetUserByID implements storage.Storage.
func (db *SQLiteDB) GetUserByID(ctx context.Context, userID int64) (*user.User, error) {
	return db.getUser(ctx, `SELECT id, name, email, password FROM "user" WHERE id = ?`, userID)
}

// GetUserByEmail implements storage.Storage.
func (db *SQLiteDB) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return db.getUser(ctx, `SELECT id, name, email, password FROM "user" WHERE email = ?`, email)
}

func (db *SQLiteDB) getUser(ctx context.Context, query string, arg any) (*user.User, error) {
	usr := &user.User{}
	err := db.database.QueryRowContext(ctx, query, arg).Scan(&usr.ID, &usr.Name, &usr.Email, &usr.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/getUser(): error while `row.Scan()` calling: %w", err)
	}

	return usr, nil
}

// CreateContact implements storage.Storage.
func (db *SQLiteDB) CreateContact(ctx context.Context, c *contact.Contact) (int64, error) {
	result, err := db.database.ExecContext(
		ctx,
		`INSERT INTO contact (name, email, phone, address, country, user_id) VALUES (?, ?, ?, ?, ?, ?)`,
		c.Name,
		c.Email,
		c.Phone,
		c.Address,
		c.Country,
		c.UserID,
	)
	if err != nil {
		return 0, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/CreateContact(): error while `db.database.ExecContext()` calling: %w", err)
	}

	return result.LastInsertId()
}

// FindContacts implements storage.Storage.
func (db *SQLiteDB) FindContacts(ctx context.Context, query contact.Query) ([]contact.Contact, int64, error) {
	statements := contactsql.Build(query, contactsql.Question)

	var total int64
	if err := db.database.QueryRowContext(ctx, statements.Count, statements.CountArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/FindContacts(): error while counting contacts: %w", err)
	}

	rows, err := db.database.QueryContext(ctx, statements.Page, statements.PageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/FindContacts(): error while `db.database.QueryContext()` calling: %w", err)
	}
	defer rows.Close()

	result := []contact.Contact{}
	for rows.Next() {
		var (
			c                       contact.Contact
			email, address, country sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &email, &c.Phone, &address, &country); err != nil {
			return nil, 0, err
		}
		c.Email = nullStringPtr(email)
		c.Address = nullStringPtr(address)
		c.Country = nullStringPtr(country)
		result = append(result, c)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return result, total, nil
}

// GetNumberOfUsers implements storage.Storage.
func (db *SQLiteDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM "user"`)
}

// GetNumberOfContacts implements storage.Storage.
func (db *SQLiteDB) GetNumberOfContacts(ctx context.Context) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM contact`)
}

func (db *SQLiteDB) count(ctx context.Context, query string) (int64, error) {
	var result int64
	if err := db.database.QueryRowContext(ctx, query).Scan(&result); err != nil {
		return 0, err
	}

	return result, nil
}

// Ping verifies the database is reachable within the configured timeout.
func (db *SQLiteDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database.
func (db *SQLiteDB) Close() error {
	return db.database.Close()
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	return &value.String
}
