// Package models holds the request and response payloads of the HTTP API.
package models

// Envelope wraps every response body.
type Envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

type SignupRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,basicemail,max=120"`
	Password string `json:"password" validate:"required,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,basicemail"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	User        UserResponse `json:"user"`
}

type CreateContactRequest struct {
	Name    string  `json:"name" validate:"required,max=100"`
	Phone   string  `json:"phone" validate:"required,max=20"`
	Email   *string `json:"email" validate:"omitempty,max=120"`
	Address *string `json:"address" validate:"omitempty,max=200"`
	Country *string `json:"country" validate:"omitempty,max=50"`
}

type ContactResponse struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Email   *string `json:"email"`
	Phone   string  `json:"phone"`
	Address *string `json:"address"`
	Country *string `json:"country"`
}

// ContactsQuery is the list request as read from the query string.
type ContactsQuery struct {
	Page    int
	PerPage int
	SortBy  string
	Name    string
	Email   string
	Phone   string
}

type ContactListResponse struct {
	List    []ContactResponse `json:"list"`
	HasNext bool              `json:"has_next"`
	HasPrev bool              `json:"has_prev"`
	Page    int               `json:"page"`
	Pages   int               `json:"pages"`
	PerPage int               `json:"per_page"`
	Total   int64             `json:"total"`
}

type InternalStatsResponse struct {
	Users    int64 `json:"users"`
	Contacts int64 `json:"contacts"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeSQLite
	StorageTypeMemory
)

const (
	DefaultPage    = 1
	DefaultPerPage = 10
)
