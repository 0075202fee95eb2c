// Package postgresdb provides a PostgreSQL-based implementation of the storage interface
// for persisting users and their contacts.
// Both the pgx stdlib driver and lib/pq are supported.
package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"github.com/patric-chuzhbe/contactbook/internal/contact"
	"github.com/patric-chuzhbe/contactbook/internal/db/contactsql"
	"github.com/patric-chuzhbe/contactbook/internal/db/migrations"
	"github.com/patric-chuzhbe/contactbook/internal/db/storage"
	"github.com/patric-chuzhbe/contactbook/internal/user"
)

// Supported database/sql driver names.
const (
	DriverPgx = "pgx"
	DriverPq  = "postgres"
)

const uniqueViolationCode = "23505"

// PostgresDB is a PostgreSQL-backed implementation of the contact book storage.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

var _ storage.Storage = (*PostgresDB)(nil)

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables or disables dropping every public table before migration.
// It is meant for test setups.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New establishes a connection to the PostgreSQL database through the named
// driver, runs schema migrations, and returns a configured PostgresDB instance.
func New(
	ctx context.Context,
	driver string,
	databaseDSN string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if driver == "" {
		driver = DriverPgx
	}

	database, err := sql.Open(driver, databaseDSN)
	if err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `sql.Open()` calling: %w",
				err,
			)
	}

	result := newFromDB(database, connectionTimeout)

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			_ = database.Close()
			return nil,
				fmt.Errorf(
					"in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w",
					err,
				)
		}
	}

	if err := migrations.Up(database, migrations.Postgres); err != nil {
		_ = database.Close()
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `migrations.Up()` calling: %w",
				err,
			)
	}

	return result, nil
}

func newFromDB(database *sql.DB, connectionTimeout time.Duration) *PostgresDB {
	return &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}
}

// CreateUser inserts a new user record into the database.
// Returns the created user ID, or storage.ErrEmailTaken when the email already exists.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *user.User) (int64, error) {
	row := db.database.QueryRowContext(
		ctx,
		`INSERT INTO "user" (name, email, password) VALUES ($1, $2, $3) RETURNING id`,
		usr.Name,
		usr.Email,
		usr.PasswordHash,
	)
	var userIDFromDB int64
	err := row.Scan(&userIDFromDB)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, storage.ErrEmailTaken
		}
		return 0, err
	}

	return userIDFromDB, nil
}

// GetUserByID fetches a user by id.
func (db *PostgresDB) GetUserByID(ctx context.Context, userID int64) (*user.User, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT id, name, email, password FROM "user" WHERE id = $1`,
		userID,
	)

	return scanUser(row)
}

// GetUserByEmail fetches a user by the exact email.
func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT id, name, email, password FROM "user" WHERE email = $1`,
		email,
	)

	return scanUser(row)
}

// CreateContact inserts the contact and returns its id.
func (db *PostgresDB) CreateContact(ctx context.Context, c *contact.Contact) (int64, error) {
	row := db.database.QueryRowContext(
		ctx,
		`
			INSERT INTO contact (name, email, phone, address, country, user_id)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id
		`,
		c.Name,
		c.Email,
		c.Phone,
		c.Address,
		c.Country,
		c.UserID,
	)
	var contactID int64
	if err := row.Scan(&contactID); err != nil {
		return 0, err
	}

	return contactID, nil
}

// FindContacts returns one page of the user's contacts and the total
// number of contacts that match the filters.
func (db *PostgresDB) FindContacts(ctx context.Context, query contact.Query) ([]contact.Contact, int64, error) {
	statements := contactsql.Build(query, contactsql.Dollar)

	var total int64
	err := db.database.QueryRowContext(ctx, statements.Count, statements.CountArgs...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/FindContacts(): error while counting contacts: %w",
			err,
		)
	}

	rows, err := db.database.QueryContext(ctx, statements.Page, statements.PageArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	result := []contact.Contact{}
	for rows.Next() {
		var c contact.Contact
		err = rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Country)
		if err != nil {
			return nil, 0, err
		}

		result = append(result, c)
	}

	err = rows.Err()
	if err != nil {
		return nil, 0, err
	}

	return result, total, nil
}

// GetNumberOfUsers returns how many users are registered.
func (db *PostgresDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM "user"`)
}

// GetNumberOfContacts returns how many contacts are stored across all users.
func (db *PostgresDB) GetNumberOfContacts(ctx context.Context) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM contact`)
}

func (db *PostgresDB) count(ctx context.Context, query string) (int64, error) {
	var result int64
	err := db.database.QueryRowContext(ctx, query).Scan(&result)
	if err != nil {
		return 0, err
	}

	return result, nil
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}
	return nil
}

func scanUser(row *sql.Row) (*user.User, error) {
	usr := &user.User{}
	err := row.Scan(&usr.ID, &usr.Name, &usr.Email, &usr.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}

	return usr, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolationCode
	}

	return false
}
