// Package auth provides JWT issuing and the HTTP middleware that
// authenticates requests carrying a bearer access token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/contactbook/internal/logger"
	"github.com/patric-chuzhbe/contactbook/internal/response"
)

// ErrInvalidToken is returned for a token that is malformed, badly signed or expired.
var ErrInvalidToken = errors.New("invalid token")

// MissingOrInvalidTokenMessage is the envelope message of every 401 produced by the middleware.
const MissingOrInvalidTokenMessage = "Missing or invalid token"

// Auth issues and verifies access tokens.
type Auth struct {
	// signingSecretKey is the HMAC key used to sign JWTs.
	signingSecretKey []byte

	// tokenTTL is the lifetime of an issued token.
	tokenTTL time.Duration

	now func() time.Time
}

// Claims represents the JWT claims used by the system.
// It embeds standard JWT claims and adds the identity of the user.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"user_id"`
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserIDKey is the context key used to store and retrieve the authenticated user's ID.
const UserIDKey ContextKey = "userID"

// New creates an Auth signing tokens with secret that stay valid for tokenTTL.
func New(secret []byte, tokenTTL time.Duration) *Auth {
	return &Auth{
		signingSecretKey: secret,
		tokenTTL:         tokenTTL,
		now:              time.Now,
	}
}

// BuildJWTString issues a signed access token for the user.
func (a *Auth) BuildJWTString(userID int64) (string, error) {
	issuedAt := a.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(a.tokenTTL)),
		},
		UserID: userID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(a.signingSecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetUserIDFromToken verifies the token and returns the user id it was issued for.
func (a *Auth) GetUserIDFromToken(tokenString string) (int64, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.signingSecretKey, nil
		},
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.ExpiresAt == nil || claims.UserID <= 0 {
		return 0, ErrInvalidToken
	}

	return claims.UserID, nil
}

// AuthenticateUser is an HTTP middleware that rejects requests without a
// valid bearer token and stores the user ID in the request context.
func (a *Auth) AuthenticateUser(h http.Handler) http.Handler {
	middleware := func(w http.ResponseWriter, r *http.Request) {
		tokenString := getTokenStringFromAuthorizationHeader(r)
		if tokenString == "" {
			response.Error(w, http.StatusUnauthorized, MissingOrInvalidTokenMessage)
			return
		}

		userID, err := a.GetUserIDFromToken(tokenString)
		if err != nil {
			logger.Log.Debugln("Error calling the `a.GetUserIDFromToken()`: ", zap.Error(err))
			response.Error(w, http.StatusUnauthorized, MissingOrInvalidTokenMessage)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		h.ServeHTTP(w, r.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// UserIDFromContext returns the id stored by AuthenticateUser.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok && userID > 0
}

func getTokenStringFromAuthorizationHeader(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}

	scheme, token, found := strings.Cut(header, " ")
	if found && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}

	return header
}
