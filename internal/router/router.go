// Package router wires the HTTP API: routes, middleware chain and the
// handlers translating between JSON envelopes and the service layer.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/contactbook/internal/auth"
	"github.com/patric-chuzhbe/contactbook/internal/contact"
	"github.com/patric-chuzhbe/contactbook/internal/gzippedhttp"
	"github.com/patric-chuzhbe/contactbook/internal/logger"
	"github.com/patric-chuzhbe/contactbook/internal/models"
	"github.com/patric-chuzhbe/contactbook/internal/panicrescuer"
	"github.com/patric-chuzhbe/contactbook/internal/response"
	"github.com/patric-chuzhbe/contactbook/internal/service"
)

const (
	invalidRequestBodyMessage = "Invalid request body"
	internalErrorMessage      = panicrescuer.InternalErrorMessage
)

type accountService interface {
	Signup(ctx context.Context, request models.SignupRequest) (*models.AuthResponse, error)

	Login(ctx context.Context, request models.LoginRequest) (*models.AuthResponse, error)

	GetProfile(ctx context.Context, userID int64) (*models.UserResponse, error)
}

type contactService interface {
	CreateContact(
		ctx context.Context,
		userID int64,
		request models.CreateContactRequest,
	) (*models.ContactResponse, error)

	ListContacts(
		ctx context.Context,
		userID int64,
		query models.ContactsQuery,
	) (*models.ContactListResponse, error)
}

type operationalService interface {
	Ping(ctx context.Context) error

	GetInternalStats(ctx context.Context) (*models.InternalStatsResponse, error)
}

type contactBook interface {
	accountService
	contactService
	operationalService
}

type authenticator interface {
	AuthenticateUser(h http.Handler) http.Handler
}

type subnetGuard interface {
	TrustedSubnetOnly(h http.Handler) http.Handler
}

// Router holds the handlers of the API.
type Router struct {
	service contactBook
}

// New builds the chi mux serving the whole API.
func New(
	svc contactBook,
	authMiddleware authenticator,
	guard subnetGuard,
) *chi.Mux {
	theRouter := &Router{service: svc}

	router := chi.NewRouter()
	router.Use(
		logger.WithLoggingHTTPMiddleware,
		panicrescuer.Rescue,
		gzippedhttp.UngzipRequest,
		gzippedhttp.GzipResponse,
	)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	router.Get(`/ping`, theRouter.GetPing)
	router.Post(`/user/signup`, theRouter.PostUsersignup)
	router.Post(`/user/login`, theRouter.PostUserlogin)

	router.Group(func(r chi.Router) {
		r.Use(authMiddleware.AuthenticateUser)
		r.Get(`/user`, theRouter.GetUser)
		r.Post(`/contact`, theRouter.PostContact)
		r.Get(`/contact`, theRouter.GetContact)
	})

	router.With(guard.TrustedSubnetOnly).Get(`/api/internal/stats`, theRouter.GetApiinternalstats)

	return router
}

// PostUsersignup registers a user and returns an access token.
func (router *Router) PostUsersignup(w http.ResponseWriter, r *http.Request) {
	var request models.SignupRequest
	if !decodeJSONBody(w, r, &request) {
		return
	}

	result, err := router.service.Signup(r.Context(), request)
	if err != nil {
		writeServiceError(w, err, "Error calling the `router.service.Signup()`: ")
		return
	}

	response.JSON(w, http.StatusOK, "User signup complete", result)
}

// PostUserlogin exchanges credentials for an access token.
func (router *Router) PostUserlogin(w http.ResponseWriter, r *http.Request) {
	var request models.LoginRequest
	if !decodeJSONBody(w, r, &request) {
		return
	}

	result, err := router.service.Login(r.Context(), request)
	if err != nil {
		writeServiceError(w, err, "Error calling the `router.service.Login()`: ")
		return
	}

	response.JSON(w, http.StatusOK, "Login successful", result)
}

// GetUser returns the profile of the authenticated user.
func (router *Router) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, auth.MissingOrInvalidTokenMessage)
		return
	}

	result, err := router.service.GetProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "Error calling the `router.service.GetProfile()`: ")
		return
	}

	response.JSON(w, http.StatusOK, "User detail", result)
}

// PostContact adds a contact to the authenticated user's book.
func (router *Router) PostContact(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, auth.MissingOrInvalidTokenMessage)
		return
	}

	var request models.CreateContactRequest
	if !decodeJSONBody(w, r, &request) {
		return
	}

	result, err := router.service.CreateContact(r.Context(), userID, request)
	if err != nil {
		writeServiceError(w, err, "Error calling the `router.service.CreateContact()`: ")
		return
	}

	response.JSON(w, http.StatusOK, "Contact added", result)
}

// GetContact lists the authenticated user's contacts.
// Query parameters: page, limit, sort_by, name, email, phone.
func (router *Router) GetContact(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, auth.MissingOrInvalidTokenMessage)
		return
	}

	result, err := router.service.ListContacts(r.Context(), userID, parseContactsQuery(r))
	if err != nil {
		writeServiceError(w, err, "Error calling the `router.service.ListContacts()`: ")
		return
	}

	response.JSON(w, http.StatusOK, "Contact list", result)
}

// GetPing reports whether the storage is reachable.
func (router *Router) GetPing(w http.ResponseWriter, r *http.Request) {
	if err := router.service.Ping(r.Context()); err != nil {
		logger.Log.Errorln("Error calling the `router.service.Ping()`: ", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}

	response.JSON(w, http.StatusOK, "pong", nil)
}

// GetApiinternalstats returns the number of users and contacts.
func (router *Router) GetApiinternalstats(w http.ResponseWriter, r *http.Request) {
	result, err := router.service.GetInternalStats(r.Context())
	if err != nil {
		writeServiceError(w, err, "Error calling the `router.service.GetInternalStats()`: ")
		return
	}

	response.JSON(w, http.StatusOK, "Internal stats", result)
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		logger.Log.Debugln("Error calling the `json.NewDecoder().Decode()`: ", zap.Error(err))
		response.Error(w, http.StatusBadRequest, invalidRequestBodyMessage)
		return false
	}

	return true
}

func parseContactsQuery(r *http.Request) models.ContactsQuery {
	values := r.URL.Query()

	sortBy := contact.SortLatest
	if values.Has("sort_by") {
		sortBy = values.Get("sort_by")
	}

	return models.ContactsQuery{
		Page:    intOrDefault(values.Get("page"), models.DefaultPage),
		PerPage: intOrDefault(values.Get("limit"), models.DefaultPerPage),
		SortBy:  sortBy,
		Name:    values.Get("name"),
		Email:   values.Get("email"),
		Phone:   values.Get("phone"),
	}
}

func intOrDefault(value string, defaultValue int) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return result
}

func writeServiceError(w http.ResponseWriter, err error, logMessage string) {
	var serviceErr *service.Error
	if errors.As(err, &serviceErr) {
		response.Error(w, statusCodeFor(serviceErr), serviceErr.Message)
		return
	}

	logger.Log.Errorln(logMessage, zap.Error(err))
	response.Error(w, http.StatusInternalServerError, internalErrorMessage)
}

func statusCodeFor(err *service.Error) int {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	}

	return http.StatusInternalServerError
}
