// Package service implements the account and contact operations behind the
// HTTP handlers. It validates input, talks to the storage and returns
// response payloads or *Error values describing client-facing failures.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/contactbook/internal/contact"
	"github.com/patric-chuzhbe/contactbook/internal/db/storage"
	"github.com/patric-chuzhbe/contactbook/internal/models"
	"github.com/patric-chuzhbe/contactbook/internal/passhash"
	"github.com/patric-chuzhbe/contactbook/internal/user"
)

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User) (int64, error)

	GetUserByID(ctx context.Context, userID int64) (*user.User, error)

	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
}

type contactKeeper interface {
	CreateContact(ctx context.Context, c *contact.Contact) (int64, error)

	FindContacts(ctx context.Context, query contact.Query) ([]contact.Contact, int64, error)
}

type statsKeeper interface {
	GetNumberOfUsers(ctx context.Context) (int64, error)

	GetNumberOfContacts(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storer interface {
	userKeeper
	contactKeeper
	statsKeeper
	pinger
}

type passwordHasher interface {
	Hash(password string) (string, error)

	Compare(hash, password string) (bool, error)
}

type tokenIssuer interface {
	BuildJWTString(userID int64) (string, error)
}

type Service struct {
	db       storer
	hasher   passwordHasher
	tokens   tokenIssuer
	validate *validator.Validate
}

func New(
	db storer,
	hasher passwordHasher,
	tokens tokenIssuer,
) *Service {
	return &Service{
		db:       db,
		hasher:   hasher,
		tokens:   tokens,
		validate: newValidator(),
	}
}

// Signup registers a new user and logs them in.
func (s *Service) Signup(ctx context.Context, request models.SignupRequest) (*models.AuthResponse, error) {
	if err := s.validateRequest(request, signupMessages); err != nil {
		return nil, err
	}

	_, err := s.db.GetUserByEmail(ctx, request.Email)
	switch {
	case err == nil:
		return nil, conflictError("Email already registered")
	case !errors.Is(err, storage.ErrUserNotFound):
		return nil, fmt.Errorf(
			"in internal/service/service.go/Signup(): error while `s.db.GetUserByEmail()` calling: %w",
			err,
		)
	}

	hash, err := s.hasher.Hash(request.Password)
	if err != nil {
		if errors.Is(err, passhash.ErrPasswordTooLong) {
			return nil, validationError("Password is too long")
		}
		return nil, fmt.Errorf("in internal/service/service.go/Signup(): error while `s.hasher.Hash()` calling: %w", err)
	}

	usr := &user.User{
		Name:         request.Name,
		Email:        request.Email,
		PasswordHash: hash,
	}
	usr.ID, err = s.db.CreateUser(ctx, usr)
	if err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return nil, conflictError("Email already registered")
		}
		return nil, fmt.Errorf("in internal/service/service.go/Signup(): error while `s.db.CreateUser()` calling: %w", err)
	}

	return s.authResponse(usr)
}

// Login checks the credentials and issues a fresh token.
func (s *Service) Login(ctx context.Context, request models.LoginRequest) (*models.AuthResponse, error) {
	if err := s.validateRequest(request, loginMessages); err != nil {
		return nil, err
	}

	usr, err := s.db.GetUserByEmail(ctx, request.Email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, notFoundError("Email not registered")
		}
		return nil, fmt.Errorf("in internal/service/service.go/Login(): error while `s.db.GetUserByEmail()` calling: %w", err)
	}

	matched, err := s.hasher.Compare(usr.PasswordHash, request.Password)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/Login(): error while `s.hasher.Compare()` calling: %w", err)
	}
	if !matched {
		return nil, unauthorizedError("Invalid password")
	}

	return s.authResponse(usr)
}

// GetProfile returns the public part of the user record.
func (s *Service) GetProfile(ctx context.Context, userID int64) (*models.UserResponse, error) {
	usr, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := toUserResponse(usr)
	return &result, nil
}

// CreateContact stores a new contact owned by the user.
func (s *Service) CreateContact(
	ctx context.Context,
	userID int64,
	request models.CreateContactRequest,
) (*models.ContactResponse, error) {
	if err := s.validateRequest(request, contactMessages); err != nil {
		return nil, err
	}

	if _, err := s.getUser(ctx, userID); err != nil {
		return nil, err
	}

	c := &contact.Contact{
		UserID:  userID,
		Name:    request.Name,
		Email:   request.Email,
		Phone:   request.Phone,
		Address: request.Address,
		Country: request.Country,
	}
	var err error
	c.ID, err = s.db.CreateContact(ctx, c)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/service/service.go/CreateContact(): error while `s.db.CreateContact()` calling: %w",
			err,
		)
	}

	result := toContactResponse(*c)
	return &result, nil
}

// ListContacts returns one page of the user's contacts.
func (s *Service) ListContacts(
	ctx context.Context,
	userID int64,
	query models.ContactsQuery,
) (*models.ContactListResponse, error) {
	if query.Page < 1 {
		return nil, validationError("Page must be a positive integer")
	}
	if query.PerPage < 1 {
		return nil, validationError("Limit must be a positive integer")
	}
	if query.SortBy == "" {
		query.SortBy = contact.SortLatest
	}

	contacts, total, err := s.db.FindContacts(ctx, contact.Query{
		UserID: userID,
		Name:   query.Name,
		Email:  query.Email,
		Phone:  query.Phone,
		SortBy: query.SortBy,
		Limit:  query.PerPage,
		Offset: offset(query.Page, query.PerPage),
	})
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/service/service.go/ListContacts(): error while `s.db.FindContacts()` calling: %w",
			err,
		)
	}

	pages := numberOfPages(total, query.PerPage)

	return &models.ContactListResponse{
		List:    funk.Map(contacts, toContactResponse).([]models.ContactResponse),
		HasNext: int64(query.Page) < pages,
		HasPrev: query.Page > 1,
		Page:    query.Page,
		Pages:   int(pages),
		PerPage: query.PerPage,
		Total:   total,
	}, nil
}

// Ping checks that the storage is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// GetInternalStats counts users and contacts.
func (s *Service) GetInternalStats(ctx context.Context) (*models.InternalStatsResponse, error) {
	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return nil, err
	}

	contacts, err := s.db.GetNumberOfContacts(ctx)
	if err != nil {
		return nil, err
	}

	return &models.InternalStatsResponse{
		Users:    users,
		Contacts: contacts,
	}, nil
}

func (s *Service) getUser(ctx context.Context, userID int64) (*user.User, error) {
	usr, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, notFoundError("User not found")
		}
		return nil, fmt.Errorf("in internal/service/service.go/getUser(): error while `s.db.GetUserByID()` calling: %w", err)
	}

	return usr, nil
}

func (s *Service) authResponse(usr *user.User) (*models.AuthResponse, error) {
	token, err := s.tokens.BuildJWTString(usr.ID)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/service/service.go/authResponse(): error while `s.tokens.BuildJWTString()` calling: %w",
			err,
		)
	}

	return &models.AuthResponse{
		AccessToken: token,
		User:        toUserResponse(usr),
	}, nil
}

func offset(page, perPage int) int {
	if page-1 > math.MaxInt32/perPage {
		return math.MaxInt32
	}

	return (page - 1) * perPage
}

func numberOfPages(total int64, perPage int) int64 {
	if total == 0 {
		return 0
	}

	pages := total / int64(perPage)
	if total%int64(perPage) != 0 {
		pages++
	}

	return pages
}

func toUserResponse(usr *user.User) models.UserResponse {
	return models.UserResponse{
		ID:    usr.ID,
		Name:  usr.Name,
		Email: usr.Email,
	}
}

func toContactResponse(c contact.Contact) models.ContactResponse {
	return models.ContactResponse{
		ID:      c.ID,
		Name:    c.Name,
		Email:   c.Email,
		Phone:   c.Phone,
		Address: c.Address,
		Country: c.Country,
	}
}
